// Package master implements the typed repositories for the long-lived
// reference entities (racks, drawers, parts, categories, manufacturers,
// tags, locations) on top of the JSON store.
//
// Every mutation follows the same discipline: load the current snapshot,
// apply the change in memory, re-check the cross-entity invariants against
// the modified state, and write back under the version token captured at
// load time. A failed invariant check aborts before any write; a stale
// version surfaces as a store.ConflictError for the caller to retry.
package master

import (
	"context"
	"fmt"

	"github.com/picklight/picklight/internal/schema"
	"github.com/picklight/picklight/internal/store"
	"github.com/picklight/picklight/pkg/catalog"
)

// ReferenceScanner answers whether historical movement records still
// reference a master entity. Implemented by the movement ledger; deletes
// consult it so immutable history is never orphaned silently.
type ReferenceScanner interface {
	DrawerReferenced(ctx context.Context, drawerID string) (bool, error)
	PartReferenced(ctx context.Context, partID string) (bool, error)
}

// Repository is the typed CRUD surface over the master data files.
type Repository struct {
	racks         *store.Document[[]catalog.Rack]
	drawers       *store.Document[[]catalog.Drawer]
	parts         *store.Document[[]catalog.Part]
	categories    *store.Document[[]catalog.Category]
	manufacturers *store.Document[[]catalog.Manufacturer]
	tags          *store.Document[[]catalog.Tag]
	locations     *store.Document[[]catalog.Location]

	history ReferenceScanner // nil means history checks are skipped
}

// Option configures a Repository.
type Option func(*Repository)

// WithHistory wires the movement-history reference scanner into delete
// checks for drawers and parts.
func WithHistory(scanner ReferenceScanner) Option {
	return func(r *Repository) {
		r.history = scanner
	}
}

// Open binds the repository to the master data files under dataDir.
func Open(dataDir string, reg *schema.Registry, opts ...Option) (*Repository, error) {
	racks, err := store.NewCollection[catalog.Rack](dataDir, "master/racks.json", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to bind racks collection: %w", err)
	}
	drawers, err := store.NewCollection[catalog.Drawer](dataDir, "master/drawers.json", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to bind drawers collection: %w", err)
	}
	parts, err := store.NewCollection[catalog.Part](dataDir, "master/parts.json", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to bind parts collection: %w", err)
	}
	categories, err := store.NewCollection[catalog.Category](dataDir, "master/categories.json", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to bind categories collection: %w", err)
	}
	manufacturers, err := store.NewCollection[catalog.Manufacturer](dataDir, "master/manufacturers.json", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to bind manufacturers collection: %w", err)
	}
	tags, err := store.NewCollection[catalog.Tag](dataDir, "master/tags.json", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to bind tags collection: %w", err)
	}
	locations, err := store.NewCollection[catalog.Location](dataDir, "master/locations.json", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to bind locations collection: %w", err)
	}

	repo := &Repository{
		racks:         racks,
		drawers:       drawers,
		parts:         parts,
		categories:    categories,
		manufacturers: manufacturers,
		tags:          tags,
		locations:     locations,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// Snapshot is a consistent read of the master data used by search and the
// pick-by-light resolver. PartsVersion is the version token of parts.json
// at read time; derived indexes are stamped with it and compared against it
// for staleness.
type Snapshot struct {
	Racks         []catalog.Rack
	Drawers       []catalog.Drawer
	Parts         []catalog.Part
	Categories    []catalog.Category
	Manufacturers []catalog.Manufacturer
	Tags          []catalog.Tag
	Locations     []catalog.Location

	PartsVersion store.Version
}

// Snapshot loads all master collections.
func (r *Repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap, _, err := r.loadState(ctx)
	return snap, err
}

// versions holds the per-file version tokens captured while loading a
// snapshot; mutations save under these tokens.
type versions struct {
	racks, drawers, parts     store.Version
	categories, manufacturers store.Version
	tags, locations           store.Version
}

func (r *Repository) loadState(ctx context.Context) (*Snapshot, versions, error) {
	var (
		snap Snapshot
		vers versions
		err  error
	)
	if snap.Racks, vers.racks, err = r.racks.Load(ctx); err != nil {
		return nil, vers, err
	}
	if snap.Drawers, vers.drawers, err = r.drawers.Load(ctx); err != nil {
		return nil, vers, err
	}
	if snap.Parts, vers.parts, err = r.parts.Load(ctx); err != nil {
		return nil, vers, err
	}
	snap.PartsVersion = vers.parts
	if snap.Categories, vers.categories, err = r.categories.Load(ctx); err != nil {
		return nil, vers, err
	}
	if snap.Manufacturers, vers.manufacturers, err = r.manufacturers.Load(ctx); err != nil {
		return nil, vers, err
	}
	if snap.Tags, vers.tags, err = r.tags.Load(ctx); err != nil {
		return nil, vers, err
	}
	if snap.Locations, vers.locations, err = r.locations.Load(ctx); err != nil {
		return nil, vers, err
	}
	return &snap, vers, nil
}

// RackByID returns the rack with the given id, or false.
func (s *Snapshot) RackByID(id string) (catalog.Rack, bool) {
	return getByID(s.Racks, id, func(r catalog.Rack) string { return r.ID })
}

// DrawerByID returns the drawer with the given id, or false.
func (s *Snapshot) DrawerByID(id string) (catalog.Drawer, bool) {
	return getByID(s.Drawers, id, func(d catalog.Drawer) string { return d.ID })
}

// PartByID returns the part with the given id, or false.
func (s *Snapshot) PartByID(id string) (catalog.Part, bool) {
	return getByID(s.Parts, id, func(p catalog.Part) string { return p.ID })
}

// CategoryByID returns the category with the given id, or false.
func (s *Snapshot) CategoryByID(id string) (catalog.Category, bool) {
	return getByID(s.Categories, id, func(c catalog.Category) string { return c.ID })
}

// ManufacturerByID returns the manufacturer with the given id, or false.
func (s *Snapshot) ManufacturerByID(id string) (catalog.Manufacturer, bool) {
	return getByID(s.Manufacturers, id, func(m catalog.Manufacturer) string { return m.ID })
}

// getByID finds an item by key in a slice.
func getByID[T any](items []T, id string, key func(T) string) (T, bool) {
	for _, item := range items {
		if key(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// indexByID returns the position of the item with the given key, or -1.
func indexByID[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}

// deleteByID returns items without the record carrying the given key.
func deleteByID[T any](items []T, id string, key func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if key(item) != id {
			out = append(out, item)
		}
	}
	return out
}
