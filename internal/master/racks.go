package master

import (
	"context"
	"fmt"

	"github.com/picklight/picklight/pkg/catalog"
)

// GetRack returns the rack with the given id.
func (r *Repository) GetRack(ctx context.Context, id string) (catalog.Rack, error) {
	racks, _, err := r.racks.Load(ctx)
	if err != nil {
		return catalog.Rack{}, err
	}
	rack, ok := getByID(racks, id, func(r catalog.Rack) string { return r.ID })
	if !ok {
		return catalog.Rack{}, &NotFoundError{Kind: "rack", ID: id}
	}
	return rack, nil
}

// CreateRack adds a new rack.
func (r *Repository) CreateRack(ctx context.Context, rack catalog.Rack) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, exists := snap.RackByID(rack.ID); exists {
		return &AlreadyExistsError{Kind: "rack", ID: rack.ID}
	}
	snap.Racks = append(snap.Racks, rack)
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.racks.Save(ctx, snap.Racks, versions.racks); err != nil {
		return fmt.Errorf("failed to save racks: %w", err)
	}
	return nil
}

// UpdateRack replaces an existing rack. Shrinking PixelCount below an
// assigned drawer range fails the capacity invariant.
func (r *Repository) UpdateRack(ctx context.Context, rack catalog.Rack) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	idx := indexByID(snap.Racks, rack.ID, func(r catalog.Rack) string { return r.ID })
	if idx < 0 {
		return &NotFoundError{Kind: "rack", ID: rack.ID}
	}
	snap.Racks[idx] = rack
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.racks.Save(ctx, snap.Racks, versions.racks); err != nil {
		return fmt.Errorf("failed to save racks: %w", err)
	}
	return nil
}

// DeleteRack removes a rack. Without cascade the delete is blocked while any
// drawer belongs to the rack. With cascade the rack's drawers are deleted
// too and parts stored in them become unlocated; movement history is left
// intact either way.
func (r *Repository) DeleteRack(ctx context.Context, id string, cascade bool) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, ok := snap.RackByID(id); !ok {
		return &NotFoundError{Kind: "rack", ID: id}
	}

	owned := make(map[string]bool)
	for _, d := range snap.Drawers {
		if d.RackID == id {
			owned[d.ID] = true
		}
	}
	if len(owned) > 0 && !cascade {
		return &ReferentialIntegrityError{
			Kind: "rack", ID: id,
			ReferencedBy: fmt.Sprintf("%d drawer(s)", len(owned)),
		}
	}

	partsChanged := false
	for i := range snap.Parts {
		if owned[snap.Parts[i].DrawerID] {
			snap.Parts[i].DrawerID = ""
			partsChanged = true
		}
	}
	drawersChanged := len(owned) > 0
	kept := make([]catalog.Drawer, 0, len(snap.Drawers))
	for _, d := range snap.Drawers {
		if !owned[d.ID] {
			kept = append(kept, d)
		}
	}
	snap.Drawers = kept
	snap.Racks = deleteByID(snap.Racks, id, func(r catalog.Rack) string { return r.ID })

	if err := checkState(snap); err != nil {
		return err
	}

	// Children first so the on-disk state between writes never has a drawer
	// pointing at a deleted rack.
	if partsChanged {
		normalizeParts(snap.Parts)
		if _, err := r.parts.Save(ctx, snap.Parts, versions.parts); err != nil {
			return fmt.Errorf("failed to save parts: %w", err)
		}
	}
	if drawersChanged {
		if _, err := r.drawers.Save(ctx, snap.Drawers, versions.drawers); err != nil {
			return fmt.Errorf("failed to save drawers: %w", err)
		}
	}
	if _, err := r.racks.Save(ctx, snap.Racks, versions.racks); err != nil {
		return fmt.Errorf("failed to save racks: %w", err)
	}
	return nil
}

// GetDrawer returns the drawer with the given id.
func (r *Repository) GetDrawer(ctx context.Context, id string) (catalog.Drawer, error) {
	drawers, _, err := r.drawers.Load(ctx)
	if err != nil {
		return catalog.Drawer{}, err
	}
	drawer, ok := getByID(drawers, id, func(d catalog.Drawer) string { return d.ID })
	if !ok {
		return catalog.Drawer{}, &NotFoundError{Kind: "drawer", ID: id}
	}
	return drawer, nil
}

// CreateDrawer adds a new drawer. The pixel-range and position invariants
// are checked against every drawer sharing the rack's controller.
func (r *Repository) CreateDrawer(ctx context.Context, drawer catalog.Drawer) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, exists := snap.DrawerByID(drawer.ID); exists {
		return &AlreadyExistsError{Kind: "drawer", ID: drawer.ID}
	}
	snap.Drawers = append(snap.Drawers, drawer)
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.drawers.Save(ctx, snap.Drawers, versions.drawers); err != nil {
		return fmt.Errorf("failed to save drawers: %w", err)
	}
	return nil
}

// UpdateDrawer replaces an existing drawer.
func (r *Repository) UpdateDrawer(ctx context.Context, drawer catalog.Drawer) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	idx := indexByID(snap.Drawers, drawer.ID, func(d catalog.Drawer) string { return d.ID })
	if idx < 0 {
		return &NotFoundError{Kind: "drawer", ID: drawer.ID}
	}
	snap.Drawers[idx] = drawer
	if err := checkState(snap); err != nil {
		return err
	}
	if _, err := r.drawers.Save(ctx, snap.Drawers, versions.drawers); err != nil {
		return fmt.Errorf("failed to save drawers: %w", err)
	}
	return nil
}

// DeleteDrawer removes a drawer. Without cascade the delete is blocked while
// any part is stored in it or any historical movement names it. With cascade
// the referencing parts become unlocated; history is immutable and keeps its
// drawer id as a tombstone reference.
func (r *Repository) DeleteDrawer(ctx context.Context, id string, cascade bool) error {
	snap, versions, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if _, ok := snap.DrawerByID(id); !ok {
		return &NotFoundError{Kind: "drawer", ID: id}
	}

	var referencing int
	for _, p := range snap.Parts {
		if p.DrawerID == id {
			referencing++
		}
	}
	if !cascade {
		if referencing > 0 {
			return &ReferentialIntegrityError{
				Kind: "drawer", ID: id,
				ReferencedBy: fmt.Sprintf("%d part(s)", referencing),
			}
		}
		if r.history != nil {
			used, err := r.history.DrawerReferenced(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to scan movement history: %w", err)
			}
			if used {
				return &ReferentialIntegrityError{
					Kind: "drawer", ID: id,
					ReferencedBy: "movement history",
				}
			}
		}
	}

	partsChanged := false
	for i := range snap.Parts {
		if snap.Parts[i].DrawerID == id {
			snap.Parts[i].DrawerID = ""
			partsChanged = true
		}
	}
	snap.Drawers = deleteByID(snap.Drawers, id, func(d catalog.Drawer) string { return d.ID })

	if err := checkState(snap); err != nil {
		return err
	}
	if partsChanged {
		normalizeParts(snap.Parts)
		if _, err := r.parts.Save(ctx, snap.Parts, versions.parts); err != nil {
			return fmt.Errorf("failed to save parts: %w", err)
		}
	}
	if _, err := r.drawers.Save(ctx, snap.Drawers, versions.drawers); err != nil {
		return fmt.Errorf("failed to save drawers: %w", err)
	}
	return nil
}
