package store

import (
	"errors"
	"fmt"
)

// ValidationError reports stored or proposed content that does not conform
// to the registered schema, including malformed JSON. It names the file and
// the JSON pointer of the offending field so the caller can surface an
// actionable message.
type ValidationError struct {
	File string // logical file path, e.g. "master/parts.json"
	Path string // JSON pointer into the document, "" for the document root
	Rule string // description of the violated rule
	Err  error  // underlying cause, if any
}

func (e *ValidationError) Error() string {
	loc := e.File
	if e.Path != "" {
		loc = fmt.Sprintf("%s at %s", e.File, e.Path)
	}
	return fmt.Sprintf("invalid content in %s: %s", loc, e.Rule)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports a missing backing file for an entity kind that has
// no empty-default semantics.
type NotFoundError struct {
	File string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("data file '%s' does not exist", e.File)
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// ConflictError reports a stale write: the file changed on disk after the
// caller's read. The write was rejected and the file left untouched.
// Recover by reloading, reapplying the change and writing again — the store
// never retries on its own.
type ConflictError struct {
	File     string
	Expected Version
	Actual   Version
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stale write to '%s': file changed since it was read (expected version %s, found %s)",
		e.File, e.Expected.short(), e.Actual.short())
}

// IsConflict returns true if the error is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
