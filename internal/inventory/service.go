// Package inventory implements the compound stock operations that touch
// both the master data and the movement ledger: stocking in, picking,
// relocating and adjusting. Each operation appends the authoritative ledger
// record first and then updates the quantity snapshot on the part, so a
// failure between the two writes leaves the ledger correct and the snapshot
// merely stale.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/picklight/picklight/internal/movement"
	"github.com/picklight/picklight/pkg/catalog"
)

// UnlocatedPartError reports a stock operation on a part that has no
// drawer assignment. Movements record the drawer they happen in, so an
// unlocated part must be assigned before stock can move.
type UnlocatedPartError struct {
	PartID string
}

func (e *UnlocatedPartError) Error() string {
	return fmt.Sprintf("part '%s' has no drawer assigned", e.PartID)
}

// IsUnlocatedPart returns true if the error is an UnlocatedPartError.
func IsUnlocatedPart(err error) bool {
	var upe *UnlocatedPartError
	return errors.As(err, &upe)
}

// SnapshotUpdateError reports that the ledger record was written but the
// quantity snapshot on the part could not be updated. The stock change is
// durable: re-running the operation would record it a second time. The
// snapshot catches up on the next successful write, or via an adjustment.
type SnapshotUpdateError struct {
	PartID string
	Err    error
}

func (e *SnapshotUpdateError) Error() string {
	return fmt.Sprintf("stock change for part '%s' recorded in the ledger but the snapshot update failed: %v", e.PartID, e.Err)
}

func (e *SnapshotUpdateError) Unwrap() error { return e.Err }

// IsSnapshotUpdate returns true if the error is a SnapshotUpdateError.
func IsSnapshotUpdate(err error) bool {
	var sue *SnapshotUpdateError
	return errors.As(err, &sue)
}

// Master is the slice of the master repository the stock operations need.
type Master interface {
	GetPart(ctx context.Context, id string) (catalog.Part, error)
	GetDrawer(ctx context.Context, id string) (catalog.Drawer, error)
	AssignDrawer(ctx context.Context, partID, drawerID string) error
	AdjustQuantitySnapshot(ctx context.Context, partID string, delta int) error
}

// Service wires the master repository and the movement ledger together.
type Service struct {
	master Master
	ledger *movement.Ledger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New builds the inventory service.
func New(m Master, l *movement.Ledger, opts ...Option) *Service {
	s := &Service{master: m, ledger: l, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StockIn records qty units entering the part's assigned drawer.
func (s *Service) StockIn(ctx context.Context, partID string, qty int, note string) (catalog.StockMovement, error) {
	if qty < 1 {
		return catalog.StockMovement{}, fmt.Errorf("stock-in quantity must be >= 1, got %d", qty)
	}
	part, err := s.master.GetPart(ctx, partID)
	if err != nil {
		return catalog.StockMovement{}, err
	}
	if part.DrawerID == "" {
		return catalog.StockMovement{}, &UnlocatedPartError{PartID: partID}
	}

	m := catalog.StockMovement{
		ID:        uuid.NewString(),
		PartID:    partID,
		DrawerID:  part.DrawerID,
		Kind:      catalog.MovementStockIn,
		Delta:     qty,
		Timestamp: s.now().UTC(),
		Note:      note,
	}
	if err := s.ledger.AppendMovement(ctx, m); err != nil {
		return catalog.StockMovement{}, err
	}
	if err := s.master.AdjustQuantitySnapshot(ctx, partID, qty); err != nil {
		return catalog.StockMovement{}, &SnapshotUpdateError{PartID: partID, Err: err}
	}
	return m, nil
}

// Pick records qty units leaving the part's assigned drawer. Unless
// allowNegative is set, picking more than is on hand is rejected.
func (s *Service) Pick(ctx context.Context, partID string, qty int, note string, allowNegative bool) (catalog.StockMovement, error) {
	if qty < 1 {
		return catalog.StockMovement{}, fmt.Errorf("pick quantity must be >= 1, got %d", qty)
	}
	part, err := s.master.GetPart(ctx, partID)
	if err != nil {
		return catalog.StockMovement{}, err
	}
	if part.DrawerID == "" {
		return catalog.StockMovement{}, &UnlocatedPartError{PartID: partID}
	}

	if !allowNegative {
		onHand, err := s.ledger.QuantityOnHand(ctx, partID)
		if err != nil {
			return catalog.StockMovement{}, err
		}
		if qty > onHand {
			return catalog.StockMovement{}, &movement.InsufficientStockError{
				PartID: partID, Available: onHand, Requested: qty,
			}
		}
	}

	m := catalog.StockMovement{
		ID:        uuid.NewString(),
		PartID:    partID,
		DrawerID:  part.DrawerID,
		Kind:      catalog.MovementPick,
		Delta:     -qty,
		Timestamp: s.now().UTC(),
		Note:      note,
	}
	if err := s.ledger.AppendMovement(ctx, m); err != nil {
		return catalog.StockMovement{}, err
	}
	if err := s.master.AdjustQuantitySnapshot(ctx, partID, -qty); err != nil {
		return catalog.StockMovement{}, &SnapshotUpdateError{PartID: partID, Err: err}
	}
	return m, nil
}

// Relocate moves a part to another drawer. The stock on hand travels with
// it as a relocate-out/relocate-in movement pair stamped with the same
// timestamp; a part with nothing on hand is reassigned without movements.
func (s *Service) Relocate(ctx context.Context, partID, toDrawerID, note string) error {
	if toDrawerID == "" {
		return fmt.Errorf("relocation target drawer cannot be empty")
	}
	part, err := s.master.GetPart(ctx, partID)
	if err != nil {
		return err
	}
	if part.DrawerID == toDrawerID {
		return nil
	}
	if _, err := s.master.GetDrawer(ctx, toDrawerID); err != nil {
		return err
	}

	onHand, err := s.ledger.QuantityOnHand(ctx, partID)
	if err != nil {
		return err
	}

	if part.DrawerID != "" && onHand > 0 {
		now := s.now().UTC()
		out := catalog.StockMovement{
			ID:        uuid.NewString(),
			PartID:    partID,
			DrawerID:  part.DrawerID,
			Kind:      catalog.MovementRelocateOut,
			Delta:     -onHand,
			Timestamp: now,
			Note:      note,
		}
		in := catalog.StockMovement{
			ID:        uuid.NewString(),
			PartID:    partID,
			DrawerID:  toDrawerID,
			Kind:      catalog.MovementRelocateIn,
			Delta:     onHand,
			Timestamp: now,
			Note:      note,
		}
		if err := s.ledger.AppendMovement(ctx, out); err != nil {
			return err
		}
		if err := s.ledger.AppendMovement(ctx, in); err != nil {
			return err
		}
	}

	return s.master.AssignDrawer(ctx, partID, toDrawerID)
}

// Adjust records a manual correction with a reason code and keeps the
// snapshot in step.
func (s *Service) Adjust(ctx context.Context, partID string, delta int, reason, note string) (catalog.Adjustment, error) {
	part, err := s.master.GetPart(ctx, partID)
	if err != nil {
		return catalog.Adjustment{}, err
	}
	if part.DrawerID == "" {
		return catalog.Adjustment{}, &UnlocatedPartError{PartID: partID}
	}

	a := catalog.Adjustment{
		ID:        uuid.NewString(),
		PartID:    partID,
		DrawerID:  part.DrawerID,
		Delta:     delta,
		Reason:    reason,
		Timestamp: s.now().UTC(),
		Note:      note,
	}
	if err := s.ledger.AppendAdjustment(ctx, a); err != nil {
		return catalog.Adjustment{}, err
	}
	if err := s.master.AdjustQuantitySnapshot(ctx, partID, delta); err != nil {
		return catalog.Adjustment{}, &SnapshotUpdateError{PartID: partID, Err: err}
	}
	return a, nil
}

// FulfillReservation picks the reserved quantity from the part's current
// drawer, closes the reservation and updates the snapshot.
func (s *Service) FulfillReservation(ctx context.Context, reservationID string) error {
	r, err := s.ledger.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	part, err := s.master.GetPart(ctx, r.PartID)
	if err != nil {
		return err
	}
	if part.DrawerID == "" {
		return &UnlocatedPartError{PartID: r.PartID}
	}
	if err := s.ledger.FulfillReservation(ctx, reservationID, part.DrawerID); err != nil {
		return err
	}
	if err := s.master.AdjustQuantitySnapshot(ctx, r.PartID, -r.Qty); err != nil {
		return &SnapshotUpdateError{PartID: r.PartID, Err: err}
	}
	return nil
}
