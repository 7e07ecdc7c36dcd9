package master

import (
	"fmt"
	"sort"

	"github.com/picklight/picklight/pkg/catalog"
)

// checkState re-checks the cross-entity invariants against a fully modified
// snapshot before anything is written. It works on the whole state rather
// than the delta: mutations are rare and small compared to reads, and a
// full check also catches pre-existing corruption before it is re-saved.
func checkState(s *Snapshot) error {
	if err := checkRacks(s.Racks); err != nil {
		return err
	}
	if err := checkDrawers(s); err != nil {
		return err
	}
	if err := checkParts(s); err != nil {
		return err
	}
	if err := checkLookups(s); err != nil {
		return err
	}
	return nil
}

func checkRacks(racks []catalog.Rack) error {
	seen := make(map[string]bool, len(racks))
	for i := range racks {
		r := &racks[i]
		if err := r.Validate(); err != nil {
			return &InvariantViolationError{Rule: RuleRecordValid, Detail: err.Error()}
		}
		if seen[r.ID] {
			return &InvariantViolationError{Rule: RuleUniqueID, Detail: fmt.Sprintf("duplicate rack id '%s'", r.ID)}
		}
		seen[r.ID] = true
	}
	return nil
}

func checkDrawers(s *Snapshot) error {
	rackByID := make(map[string]catalog.Rack, len(s.Racks))
	for _, r := range s.Racks {
		rackByID[r.ID] = r
	}

	seen := make(map[string]bool, len(s.Drawers))
	type position struct {
		rackID   string
		row, col int
	}
	positions := make(map[position]string, len(s.Drawers))

	// Drawers grouped by controller endpoint: two racks wired to the same
	// WLED instance share one pixel address space, so their ranges must be
	// disjoint across rack boundaries.
	byController := make(map[string][]catalog.Drawer)

	for i := range s.Drawers {
		d := &s.Drawers[i]
		if err := d.Validate(); err != nil {
			return &InvariantViolationError{Rule: RuleRecordValid, Detail: err.Error()}
		}
		if seen[d.ID] {
			return &InvariantViolationError{Rule: RuleUniqueID, Detail: fmt.Sprintf("duplicate drawer id '%s'", d.ID)}
		}
		seen[d.ID] = true

		rack, ok := rackByID[d.RackID]
		if !ok {
			return &InvariantViolationError{
				Rule:   RuleRackResolves,
				Detail: fmt.Sprintf("drawer '%s' references unknown rack '%s'", d.ID, d.RackID),
			}
		}

		if d.PixelRange.End() > rack.PixelCount {
			return &InvariantViolationError{
				Rule: RulePixelCapacity,
				Detail: fmt.Sprintf("drawer '%s' pixel range [%d,%d) exceeds the %d pixels of controller '%s'",
					d.ID, d.PixelRange.Start, d.PixelRange.End(), rack.PixelCount, rack.Controller),
			}
		}

		pos := position{rackID: d.RackID, row: d.Row, col: d.Col}
		if other, taken := positions[pos]; taken {
			return &InvariantViolationError{
				Rule: RulePositionUnique,
				Detail: fmt.Sprintf("drawers '%s' and '%s' both occupy row %d col %d of rack '%s'",
					other, d.ID, d.Row, d.Col, d.RackID),
			}
		}
		positions[pos] = d.ID

		byController[rack.Controller] = append(byController[rack.Controller], *d)
	}

	for controller, drawers := range byController {
		sort.Slice(drawers, func(i, j int) bool {
			return drawers[i].PixelRange.Start < drawers[j].PixelRange.Start
		})
		for i := 1; i < len(drawers); i++ {
			prev, cur := drawers[i-1], drawers[i]
			if prev.PixelRange.Overlaps(cur.PixelRange) {
				return &InvariantViolationError{
					Rule: RulePixelOverlap,
					Detail: fmt.Sprintf("drawers '%s' [%d,%d) and '%s' [%d,%d) overlap on controller '%s'",
						prev.ID, prev.PixelRange.Start, prev.PixelRange.End(),
						cur.ID, cur.PixelRange.Start, cur.PixelRange.End(), controller),
				}
			}
		}
	}
	return nil
}

func checkParts(s *Snapshot) error {
	drawerIDs := make(map[string]bool, len(s.Drawers))
	for _, d := range s.Drawers {
		drawerIDs[d.ID] = true
	}
	categoryIDs := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		categoryIDs[c.ID] = true
	}
	makerIDs := make(map[string]bool, len(s.Manufacturers))
	for _, m := range s.Manufacturers {
		makerIDs[m.ID] = true
	}
	tagIDs := make(map[string]bool, len(s.Tags))
	for _, t := range s.Tags {
		tagIDs[t.ID] = true
	}

	seen := make(map[string]bool, len(s.Parts))
	for i := range s.Parts {
		p := &s.Parts[i]
		if err := p.Validate(); err != nil {
			return &InvariantViolationError{Rule: RuleRecordValid, Detail: err.Error()}
		}
		if seen[p.ID] {
			return &InvariantViolationError{Rule: RuleUniqueID, Detail: fmt.Sprintf("duplicate part id '%s'", p.ID)}
		}
		seen[p.ID] = true

		if p.DrawerID != "" && !drawerIDs[p.DrawerID] {
			return &InvariantViolationError{
				Rule:   RuleDrawerResolves,
				Detail: fmt.Sprintf("part '%s' references unknown drawer '%s'", p.ID, p.DrawerID),
			}
		}
		if !categoryIDs[p.CategoryID] {
			return &InvariantViolationError{
				Rule:   RuleCategoryResolves,
				Detail: fmt.Sprintf("part '%s' references unknown category '%s'", p.ID, p.CategoryID),
			}
		}
		if !makerIDs[p.ManufacturerID] {
			return &InvariantViolationError{
				Rule:   RuleMakerResolves,
				Detail: fmt.Sprintf("part '%s' references unknown manufacturer '%s'", p.ID, p.ManufacturerID),
			}
		}
		for _, tag := range p.Tags {
			if !tagIDs[tag] {
				return &InvariantViolationError{
					Rule:   RuleTagResolves,
					Detail: fmt.Sprintf("part '%s' references unknown tag '%s'", p.ID, tag),
				}
			}
		}
	}
	return nil
}

func checkLookups(s *Snapshot) error {
	if err := checkUnique(s.Categories, "category", func(c catalog.Category) (string, error) { return c.ID, c.Validate() }); err != nil {
		return err
	}
	if err := checkUnique(s.Manufacturers, "manufacturer", func(m catalog.Manufacturer) (string, error) { return m.ID, m.Validate() }); err != nil {
		return err
	}
	if err := checkUnique(s.Tags, "tag", func(t catalog.Tag) (string, error) { return t.ID, t.Validate() }); err != nil {
		return err
	}
	return checkUnique(s.Locations, "location", func(l catalog.Location) (string, error) { return l.ID, l.Validate() })
}

func checkUnique[T any](items []T, kind string, idAndValidate func(T) (string, error)) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		id, err := idAndValidate(item)
		if err != nil {
			return &InvariantViolationError{Rule: RuleRecordValid, Detail: err.Error()}
		}
		if seen[id] {
			return &InvariantViolationError{Rule: RuleUniqueID, Detail: fmt.Sprintf("duplicate %s id '%s'", kind, id)}
		}
		seen[id] = true
	}
	return nil
}

// normalizeParts ensures the slice fields the schema requires are present
// even when a caller constructed a Part with nil slices.
func normalizeParts(parts []catalog.Part) {
	for i := range parts {
		if parts[i].Tags == nil {
			parts[i].Tags = []string{}
		}
	}
}
