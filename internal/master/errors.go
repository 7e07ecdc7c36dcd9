package master

import (
	"errors"
	"fmt"
)

// InvariantViolationError reports a business-rule breach detected while
// re-checking a modified snapshot. The operation was aborted before any
// write. Rule is a stable identifier, Detail names the offending records.
type InvariantViolationError struct {
	Rule   string
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Rule, e.Detail)
}

// IsInvariantViolation returns true if the error is an InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var ive *InvariantViolationError
	return errors.As(err, &ive)
}

// Invariant rule identifiers, referenced by InvariantViolationError.Rule.
const (
	RulePixelOverlap     = "pixel-ranges-disjoint"
	RulePixelCapacity    = "pixel-range-within-controller"
	RulePositionUnique   = "drawer-position-unique"
	RuleRackResolves     = "drawer-rack-resolves"
	RuleDrawerResolves   = "part-drawer-resolves"
	RuleCategoryResolves = "part-category-resolves"
	RuleMakerResolves    = "part-manufacturer-resolves"
	RuleTagResolves      = "part-tag-resolves"
	RuleUniqueID         = "record-id-unique"
	RuleRecordValid      = "record-well-formed"
)

// ReferentialIntegrityError reports a delete blocked by live references.
// Cascading detachment must be requested explicitly by the caller; it is
// never implied.
type ReferentialIntegrityError struct {
	Kind         string // entity kind being deleted, e.g. "rack"
	ID           string
	ReferencedBy string // description of the referencing records
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete %s '%s': still referenced by %s (request cascading detachment to override)",
		e.Kind, e.ID, e.ReferencedBy)
}

// IsReferentialIntegrity returns true if the error is a ReferentialIntegrityError.
func IsReferentialIntegrity(err error) bool {
	var rie *ReferentialIntegrityError
	return errors.As(err, &rie)
}

// NotFoundError reports a record id that does not exist in its collection.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

// IsNotFound returns true if the error is a record NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// AlreadyExistsError reports a create with an id that is already taken.
type AlreadyExistsError struct {
	Kind string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s '%s' already exists", e.Kind, e.ID)
}

// IsAlreadyExists returns true if the error is an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var aee *AlreadyExistsError
	return errors.As(err, &aee)
}
