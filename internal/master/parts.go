package master

import (
	"context"
	"fmt"

	"github.com/picklight/picklight/pkg/catalog"
)

// GetPart returns the part with the given id.
func (r *Repository) GetPart(ctx context.Context, id string) (catalog.Part, error) {
	parts, _, err := r.parts.Load(ctx)
	if err != nil {
		return catalog.Part{}, err
	}
	part, ok := getByID(parts, id, func(p catalog.Part) string { return p.ID })
	if !ok {
		return catalog.Part{}, &NotFoundError{Kind: "part", ID: id}
	}
	return part, nil
}

// CreatePart adds a new part. Category, manufacturer, tag and drawer
// references must all resolve.
func (r *Repository) CreatePart(ctx context.Context, part catalog.Part) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, exists := snap.PartByID(part.ID); exists {
		return &AlreadyExistsError{Kind: "part", ID: part.ID}
	}
	snap.Parts = append(snap.Parts, part)
	normalizeParts(snap.Parts)
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.parts.Save(ctx, snap.Parts, versions.parts); err != nil {
		return fmt.Errorf("failed to save parts: %w", err)
	}
	return nil
}

// UpdatePart replaces an existing part.
func (r *Repository) UpdatePart(ctx context.Context, part catalog.Part) error {
	return r.MutatePart(ctx, part.ID, func(p *catalog.Part) error {
		*p = part
		return nil
	})
}

// MutatePart loads the part, applies fn to it in place and saves the
// collection under the version captured at load time. It is the building
// block for the small targeted updates the stocking and picking flows make
// (quantity snapshot, drawer assignment).
func (r *Repository) MutatePart(ctx context.Context, id string, fn func(*catalog.Part) error) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	idx := indexByID(snap.Parts, id, func(p catalog.Part) string { return p.ID })
	if idx < 0 {
		return &NotFoundError{Kind: "part", ID: id}
	}
	if err := fn(&snap.Parts[idx]); err != nil {
		return err
	}
	if snap.Parts[idx].ID != id {
		return &InvariantViolationError{Rule: RuleRecordValid, Detail: fmt.Sprintf("part id '%s' cannot be changed", id)}
	}
	normalizeParts(snap.Parts)
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.parts.Save(ctx, snap.Parts, versions.parts); err != nil {
		return fmt.Errorf("failed to save parts: %w", err)
	}
	return nil
}

// AssignDrawer moves a part to the given drawer; an empty drawerID makes
// the part unlocated.
func (r *Repository) AssignDrawer(ctx context.Context, partID, drawerID string) error {
	return r.MutatePart(ctx, partID, func(p *catalog.Part) error {
		p.DrawerID = drawerID
		return nil
	})
}

// AdjustQuantitySnapshot shifts the stored quantity snapshot by delta.
// The movement ledger stays authoritative; this keeps the cached value on
// the part in step with the write that appended the movement.
func (r *Repository) AdjustQuantitySnapshot(ctx context.Context, partID string, delta int) error {
	return r.MutatePart(ctx, partID, func(p *catalog.Part) error {
		next := p.Quantity + delta
		if next < 0 {
			next = 0
		}
		p.Quantity = next
		return nil
	})
}

// DeletePart removes a part. Without cascade the delete is blocked while
// any historical movement names the part. With cascade the part is removed
// and history keeps its id as a tombstone reference.
func (r *Repository) DeletePart(ctx context.Context, id string, cascade bool) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, ok := snap.PartByID(id); !ok {
		return &NotFoundError{Kind: "part", ID: id}
	}

	if !cascade && r.history != nil {
		used, err := r.history.PartReferenced(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to scan movement history: %w", err)
		}
		if used {
			return &ReferentialIntegrityError{
				Kind: "part", ID: id,
				ReferencedBy: "movement history",
			}
		}
	}

	snap.Parts = deleteByID(snap.Parts, id, func(p catalog.Part) string { return p.ID })
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.parts.Save(ctx, snap.Parts, versions.parts); err != nil {
		return fmt.Errorf("failed to save parts: %w", err)
	}
	return nil
}
