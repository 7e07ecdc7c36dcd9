package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MovementKind classifies a stock movement. The sign of the movement's
// delta must agree with the kind: inbound kinds are positive, outbound
// kinds negative.
type MovementKind string

const (
	// MovementStockIn records new stock entering a drawer.
	MovementStockIn MovementKind = "stock-in"

	// MovementPick records stock taken out of a drawer.
	MovementPick MovementKind = "pick"

	// MovementRelocateOut records stock leaving a drawer during relocation.
	MovementRelocateOut MovementKind = "relocate-out"

	// MovementRelocateIn records stock arriving in a drawer during relocation.
	MovementRelocateIn MovementKind = "relocate-in"
)

// Validate checks if the MovementKind is a valid enum value.
func (k MovementKind) Validate() error {
	switch k {
	case MovementStockIn, MovementPick, MovementRelocateOut, MovementRelocateIn:
		return nil
	default:
		return fmt.Errorf("unknown movement kind: %q", k)
	}
}

// Sign returns +1 for inbound kinds and -1 for outbound kinds.
func (k MovementKind) Sign() int {
	switch k {
	case MovementStockIn, MovementRelocateIn:
		return 1
	default:
		return -1
	}
}

// StockMovement is an append-only record of a stock change. DrawerID is the
// drawer active at the time of the event; it is a historical fact and is
// never rewritten when the part later relocates.
type StockMovement struct {
	ID            string       `json:"id"` // UUID
	PartID        string       `json:"partId"`
	DrawerID      string       `json:"drawerId"`
	Kind          MovementKind `json:"kind"`
	Delta         int          `json:"delta"` // Signed quantity change
	Timestamp     time.Time    `json:"timestamp"`
	ReservationID string       `json:"reservationId,omitempty"` // UUID of the reservation this fulfils, if any
	Note          string       `json:"note,omitempty"`
}

// Validate checks if the StockMovement has valid field values.
func (m *StockMovement) Validate() error {
	if !isValidUUID(m.ID) {
		return fmt.Errorf("invalid movement ID: not a valid UUID")
	}
	if m.PartID == "" {
		return fmt.Errorf("movement %s: partId cannot be empty", m.ID)
	}
	if m.DrawerID == "" {
		return fmt.Errorf("movement %s: drawerId cannot be empty", m.ID)
	}
	if err := m.Kind.Validate(); err != nil {
		return fmt.Errorf("movement %s: %w", m.ID, err)
	}
	if m.Delta == 0 {
		return fmt.Errorf("movement %s: delta cannot be zero", m.ID)
	}
	if (m.Delta > 0) != (m.Kind.Sign() > 0) {
		return fmt.Errorf("movement %s: delta %d does not match kind %q", m.ID, m.Delta, m.Kind)
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("movement %s: timestamp cannot be zero", m.ID)
	}
	if m.ReservationID != "" && !isValidUUID(m.ReservationID) {
		return fmt.Errorf("movement %s: invalid reservation ID: not a valid UUID", m.ID)
	}
	return nil
}

// Period returns the year-month partition key (YYYYMM) for the movement.
func (m *StockMovement) Period() string {
	return m.Timestamp.UTC().Format("200601")
}

// Adjustment is an append-only manual stock correction outside the normal
// stocking/picking flow (stocktake difference, damage, loss).
type Adjustment struct {
	ID        string    `json:"id"` // UUID
	PartID    string    `json:"partId"`
	DrawerID  string    `json:"drawerId"`
	Delta     int       `json:"delta"`  // Signed quantity change, either direction
	Reason    string    `json:"reason"` // Reason code, e.g. "stocktake", "damage"
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"` // Free-text actor note
}

// Validate checks if the Adjustment has valid field values.
func (a *Adjustment) Validate() error {
	if !isValidUUID(a.ID) {
		return fmt.Errorf("invalid adjustment ID: not a valid UUID")
	}
	if a.PartID == "" {
		return fmt.Errorf("adjustment %s: partId cannot be empty", a.ID)
	}
	if a.DrawerID == "" {
		return fmt.Errorf("adjustment %s: drawerId cannot be empty", a.ID)
	}
	if a.Delta == 0 {
		return fmt.Errorf("adjustment %s: delta cannot be zero", a.ID)
	}
	if a.Reason == "" {
		return fmt.Errorf("adjustment %s: reason cannot be empty", a.ID)
	}
	if a.Timestamp.IsZero() {
		return fmt.Errorf("adjustment %s: timestamp cannot be zero", a.ID)
	}
	return nil
}

// Period returns the year-month partition key (YYYYMM) for the adjustment.
func (a *Adjustment) Period() string {
	return a.Timestamp.UTC().Format("200601")
}

// ReservationStatus is the lifecycle state of a reservation.
// Reservations move open -> fulfilled or open -> cancelled and are
// immutable once closed.
type ReservationStatus string

const (
	// ReservationOpen means the reserved quantity is still waiting to be picked.
	ReservationOpen ReservationStatus = "open"

	// ReservationFulfilled means the reservation was picked.
	ReservationFulfilled ReservationStatus = "fulfilled"

	// ReservationCancelled means the reservation was withdrawn unpicked.
	ReservationCancelled ReservationStatus = "cancelled"
)

// Validate checks if the ReservationStatus is a valid enum value.
func (s ReservationStatus) Validate() error {
	switch s {
	case ReservationOpen, ReservationFulfilled, ReservationCancelled:
		return nil
	default:
		return fmt.Errorf("unknown reservation status: %q", s)
	}
}

// Closed reports whether the status is terminal.
func (s ReservationStatus) Closed() bool {
	return s == ReservationFulfilled || s == ReservationCancelled
}

// Reservation earmarks a quantity of a part for later picking.
type Reservation struct {
	ID        string            `json:"id"` // UUID
	PartID    string            `json:"partId"`
	Qty       int               `json:"qty"` // Requested quantity, must be > 0
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Note      string            `json:"note,omitempty"`
}

// Validate checks if the Reservation has valid field values.
func (r *Reservation) Validate() error {
	if !isValidUUID(r.ID) {
		return fmt.Errorf("invalid reservation ID: not a valid UUID")
	}
	if r.PartID == "" {
		return fmt.Errorf("reservation %s: partId cannot be empty", r.ID)
	}
	if r.Qty < 1 {
		return fmt.Errorf("reservation %s: qty must be >= 1, got %d", r.ID, r.Qty)
	}
	if err := r.Status.Validate(); err != nil {
		return fmt.Errorf("reservation %s: %w", r.ID, err)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("reservation %s: createdAt cannot be zero", r.ID)
	}
	if r.UpdatedAt.IsZero() {
		return fmt.Errorf("reservation %s: updatedAt cannot be zero", r.ID)
	}
	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
