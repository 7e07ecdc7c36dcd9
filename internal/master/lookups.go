package master

import (
	"context"
	"fmt"

	"github.com/picklight/picklight/pkg/catalog"
)

// CreateCategory adds a new category.
func (r *Repository) CreateCategory(ctx context.Context, c catalog.Category) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, exists := snap.CategoryByID(c.ID); exists {
		return &AlreadyExistsError{Kind: "category", ID: c.ID}
	}
	snap.Categories = append(snap.Categories, c)
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.categories.Save(ctx, snap.Categories, versions.categories); err != nil {
		return fmt.Errorf("failed to save categories: %w", err)
	}
	return nil
}

// DeleteCategory removes a category. Blocked while any part references it;
// categories have no cascade because a part cannot exist without one.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, ok := snap.CategoryByID(id); !ok {
		return &NotFoundError{Kind: "category", ID: id}
	}
	var referencing int
	for _, p := range snap.Parts {
		if p.CategoryID == id {
			referencing++
		}
	}
	if referencing > 0 {
		return &ReferentialIntegrityError{
			Kind: "category", ID: id,
			ReferencedBy: fmt.Sprintf("%d part(s)", referencing),
		}
	}
	snap.Categories = deleteByID(snap.Categories, id, func(c catalog.Category) string { return c.ID })
	if _, err := r.categories.Save(ctx, snap.Categories, versions.categories); err != nil {
		return fmt.Errorf("failed to save categories: %w", err)
	}
	return nil
}

// CreateManufacturer adds a new manufacturer.
func (r *Repository) CreateManufacturer(ctx context.Context, m catalog.Manufacturer) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, exists := snap.ManufacturerByID(m.ID); exists {
		return &AlreadyExistsError{Kind: "manufacturer", ID: m.ID}
	}
	snap.Manufacturers = append(snap.Manufacturers, m)
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.manufacturers.Save(ctx, snap.Manufacturers, versions.manufacturers); err != nil {
		return fmt.Errorf("failed to save manufacturers: %w", err)
	}
	return nil
}

// DeleteManufacturer removes a manufacturer. Blocked while any part
// references it.
func (r *Repository) DeleteManufacturer(ctx context.Context, id string) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, ok := snap.ManufacturerByID(id); !ok {
		return &NotFoundError{Kind: "manufacturer", ID: id}
	}
	var referencing int
	for _, p := range snap.Parts {
		if p.ManufacturerID == id {
			referencing++
		}
	}
	if referencing > 0 {
		return &ReferentialIntegrityError{
			Kind: "manufacturer", ID: id,
			ReferencedBy: fmt.Sprintf("%d part(s)", referencing),
		}
	}
	snap.Manufacturers = deleteByID(snap.Manufacturers, id, func(m catalog.Manufacturer) string { return m.ID })
	if _, err := r.manufacturers.Save(ctx, snap.Manufacturers, versions.manufacturers); err != nil {
		return fmt.Errorf("failed to save manufacturers: %w", err)
	}
	return nil
}

// CreateTag adds a new tag.
func (r *Repository) CreateTag(ctx context.Context, t catalog.Tag) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, exists := getByID(snap.Tags, t.ID, func(t catalog.Tag) string { return t.ID }); exists {
		return &AlreadyExistsError{Kind: "tag", ID: t.ID}
	}
	snap.Tags = append(snap.Tags, t)
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.tags.Save(ctx, snap.Tags, versions.tags); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}

// DeleteTag removes a tag. Without cascade the delete is blocked while any
// part carries it; with cascade the tag is stripped from those parts.
func (r *Repository) DeleteTag(ctx context.Context, id string, cascade bool) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, ok := getByID(snap.Tags, id, func(t catalog.Tag) string { return t.ID }); !ok {
		return &NotFoundError{Kind: "tag", ID: id}
	}

	var referencing int
	for _, p := range snap.Parts {
		if p.HasTag(id) {
			referencing++
		}
	}
	if referencing > 0 && !cascade {
		return &ReferentialIntegrityError{
			Kind: "tag", ID: id,
			ReferencedBy: fmt.Sprintf("%d part(s)", referencing),
		}
	}

	partsChanged := false
	for i := range snap.Parts {
		p := &snap.Parts[i]
		if !p.HasTag(id) {
			continue
		}
		stripped := make([]string, 0, len(p.Tags)-1)
		for _, tag := range p.Tags {
			if tag != id {
				stripped = append(stripped, tag)
			}
		}
		p.Tags = stripped
		partsChanged = true
	}
	snap.Tags = deleteByID(snap.Tags, id, func(t catalog.Tag) string { return t.ID })

	if err := checkState(snap); err != nil {
		return err
	}
	// Parts first so no part ever references a tag that is already gone.
	if partsChanged {
		normalizeParts(snap.Parts)
		if _, err := r.parts.Save(ctx, snap.Parts, versions.parts); err != nil {
			return fmt.Errorf("failed to save parts: %w", err)
		}
	}
	if _, err := r.tags.Save(ctx, snap.Tags, versions.tags); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}

// CreateLocation adds a new location.
func (r *Repository) CreateLocation(ctx context.Context, l catalog.Location) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, exists := getByID(snap.Locations, l.ID, func(l catalog.Location) string { return l.ID }); exists {
		return &AlreadyExistsError{Kind: "location", ID: l.ID}
	}
	snap.Locations = append(snap.Locations, l)
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.locations.Save(ctx, snap.Locations, versions.locations); err != nil {
		return fmt.Errorf("failed to save locations: %w", err)
	}
	return nil
}

// DeleteLocation removes a location. Locations label nothing else in the
// model, so the delete never blocks.
func (r *Repository) DeleteLocation(ctx context.Context, id string) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, ok := getByID(snap.Locations, id, func(l catalog.Location) string { return l.ID }); !ok {
		return &NotFoundError{Kind: "location", ID: id}
	}
	snap.Locations = deleteByID(snap.Locations, id, func(l catalog.Location) string { return l.ID })
	if _, err := r.locations.Save(ctx, snap.Locations, versions.locations); err != nil {
		return fmt.Errorf("failed to save locations: %w", err)
	}
	return nil
}
