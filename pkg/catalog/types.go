package catalog

import (
	"fmt"
)

// PixelRange is a contiguous span of addressable LED positions on a
// controller, assigned to exactly one drawer.
type PixelRange struct {
	Start int `json:"start"` // First pixel index (0-based)
	Count int `json:"count"` // Number of pixels, must be > 0
}

// End returns the exclusive upper bound of the range.
func (p PixelRange) End() int {
	return p.Start + p.Count
}

// Overlaps reports whether two ranges share at least one pixel.
func (p PixelRange) Overlaps(o PixelRange) bool {
	return p.Start < o.End() && o.Start < p.End()
}

// Validate checks if the PixelRange has valid field values.
func (p PixelRange) Validate() error {
	if p.Start < 0 {
		return fmt.Errorf("pixel range start must be >= 0, got %d", p.Start)
	}
	if p.Count < 1 {
		return fmt.Errorf("pixel range count must be >= 1, got %d", p.Count)
	}
	return nil
}

// Rack represents a physical storage rack driven by one WLED controller.
type Rack struct {
	ID            string `json:"id"`            // Stable identifier, e.g. "rack-a"
	Name          string `json:"name"`          // Display name
	Controller    string `json:"controller"`    // WLED endpoint (host or host:port)
	PixelCount    int    `json:"pixelCount"`    // Addressable pixels on the controller
	Rows          int    `json:"rows"`          // Drawer rows (layout hint, not required uniform)
	DrawersPerRow int    `json:"drawersPerRow"` // Drawers per row (layout hint)
}

// Validate checks if the Rack has valid field values.
func (r *Rack) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rack id cannot be empty")
	}
	if r.Name == "" {
		return fmt.Errorf("rack %q: name cannot be empty", r.ID)
	}
	if r.Controller == "" {
		return fmt.Errorf("rack %q: controller endpoint cannot be empty", r.ID)
	}
	if r.PixelCount < 1 {
		return fmt.Errorf("rack %q: pixelCount must be >= 1, got %d", r.ID, r.PixelCount)
	}
	if r.Rows < 1 {
		return fmt.Errorf("rack %q: rows must be >= 1, got %d", r.ID, r.Rows)
	}
	if r.DrawersPerRow < 1 {
		return fmt.Errorf("rack %q: drawersPerRow must be >= 1, got %d", r.ID, r.DrawersPerRow)
	}
	return nil
}

// Drawer represents a single drawer within a rack, mapped to a pixel range
// on the rack's controller.
type Drawer struct {
	ID         string     `json:"id"`
	RackID     string     `json:"rackId"`
	Row        int        `json:"row"`
	Col        int        `json:"col"`
	Label      string     `json:"label"`
	PixelRange PixelRange `json:"pixelRange"`
}

// Validate checks if the Drawer has valid field values.
func (d *Drawer) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("drawer id cannot be empty")
	}
	if d.RackID == "" {
		return fmt.Errorf("drawer %q: rackId cannot be empty", d.ID)
	}
	if d.Row < 0 {
		return fmt.Errorf("drawer %q: row must be >= 0, got %d", d.ID, d.Row)
	}
	if d.Col < 0 {
		return fmt.Errorf("drawer %q: col must be >= 0, got %d", d.ID, d.Col)
	}
	if err := d.PixelRange.Validate(); err != nil {
		return fmt.Errorf("drawer %q: %w", d.ID, err)
	}
	return nil
}

// Part represents a stocked part. DrawerID may be empty, meaning the part
// currently has no physical location and never lights up.
//
// Quantity is a stored snapshot maintained by the stocking and picking
// write paths; the movement ledger remains the authoritative source for
// quantity on hand.
type Part struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	CategoryID     string   `json:"categoryId"`
	ManufacturerID string   `json:"manufacturerId"`
	DrawerID       string   `json:"drawerId,omitempty"`
	Tags           []string `json:"tags"`
	Quantity       int      `json:"quantity"`
	Notes          string   `json:"notes,omitempty"`
	Images         []string `json:"images,omitempty"`
}

// Validate checks if the Part has valid field values.
func (p *Part) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("part id cannot be empty")
	}
	if p.Name == "" {
		return fmt.Errorf("part %q: name cannot be empty", p.ID)
	}
	if p.CategoryID == "" {
		return fmt.Errorf("part %q: categoryId cannot be empty", p.ID)
	}
	if p.ManufacturerID == "" {
		return fmt.Errorf("part %q: manufacturerId cannot be empty", p.ID)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("part %q: quantity must be >= 0, got %d", p.ID, p.Quantity)
	}
	for i, tag := range p.Tags {
		if tag == "" {
			return fmt.Errorf("part %q: tag at index %d cannot be empty", p.ID, i)
		}
	}
	return nil
}

// HasTag reports whether the part carries the given tag id.
func (p *Part) HasTag(tagID string) bool {
	for _, t := range p.Tags {
		if t == tagID {
			return true
		}
	}
	return false
}

// Category is a simple id+name lookup entity referenced by parts.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks if the Category has valid field values.
func (c *Category) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("category id cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("category %q: name cannot be empty", c.ID)
	}
	return nil
}

// Manufacturer is a simple id+name lookup entity referenced by parts.
type Manufacturer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks if the Manufacturer has valid field values.
func (m *Manufacturer) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manufacturer id cannot be empty")
	}
	if m.Name == "" {
		return fmt.Errorf("manufacturer %q: name cannot be empty", m.ID)
	}
	return nil
}

// Tag is a free-form label parts can carry any number of.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks if the Tag has valid field values.
func (t *Tag) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tag id cannot be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("tag %q: name cannot be empty", t.ID)
	}
	return nil
}

// Location is an optional coarse location entity, independent of drawers
// (e.g. "workshop shelf", "garage"). Referenced by nothing else in the
// core model; kept for labelling.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Validate checks if the Location has valid field values.
func (l *Location) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("location id cannot be empty")
	}
	if l.Name == "" {
		return fmt.Errorf("location %q: name cannot be empty", l.ID)
	}
	return nil
}
