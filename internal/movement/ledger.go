// Package movement implements the append-only stock ledger: monthly
// partitioned movement and adjustment files plus the reservation book.
//
// The ledger is the authoritative source for quantity on hand. Records are
// never rewritten; corrections are new adjustment records, relocations are
// an out/in movement pair, and reservations are closed by status change,
// never removed.
package movement

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/picklight/picklight/internal/schema"
	"github.com/picklight/picklight/internal/store"
	"github.com/picklight/picklight/pkg/catalog"
)

const (
	movementPrefix   = "stock_movements_"
	adjustmentPrefix = "adjustments_"
)

// Ledger is the typed surface over the movement history files.
type Ledger struct {
	dataDir      string
	reg          *schema.Registry
	reservations *store.Document[[]catalog.Reservation]
	now          func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Open binds the ledger to the movement files under dataDir.
func Open(dataDir string, reg *schema.Registry, opts ...Option) (*Ledger, error) {
	reservations, err := store.NewCollection[catalog.Reservation](dataDir, "movements/reservations.json", reg)
	if err != nil {
		return nil, fmt.Errorf("failed to bind reservations collection: %w", err)
	}
	l := &Ledger{
		dataDir:      dataDir,
		reg:          reg,
		reservations: reservations,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// movementDoc binds the stock-movement partition for the given period key.
// Partitions spring into existence on first append.
func (l *Ledger) movementDoc(period string) (*store.Document[[]catalog.StockMovement], error) {
	logical := fmt.Sprintf("movements/%s%s.json", movementPrefix, period)
	return store.NewCollection[catalog.StockMovement](l.dataDir, logical, l.reg, store.WithEmptyDefault())
}

func (l *Ledger) adjustmentDoc(period string) (*store.Document[[]catalog.Adjustment], error) {
	logical := fmt.Sprintf("movements/%s%s.json", adjustmentPrefix, period)
	return store.NewCollection[catalog.Adjustment](l.dataDir, logical, l.reg, store.WithEmptyDefault())
}

// AppendMovement validates and appends a stock movement to the partition
// its timestamp falls in.
func (l *Ledger) AppendMovement(ctx context.Context, m catalog.StockMovement) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid movement: %w", err)
	}
	doc, err := l.movementDoc(m.Period())
	if err != nil {
		return err
	}
	return store.Append(ctx, doc, m)
}

// AppendAdjustment validates and appends a manual stock correction.
func (l *Ledger) AppendAdjustment(ctx context.Context, a catalog.Adjustment) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid adjustment: %w", err)
	}
	doc, err := l.adjustmentDoc(a.Period())
	if err != nil {
		return err
	}
	return store.Append(ctx, doc, a)
}

// periods lists the period keys of existing partitions with the given file
// prefix, sorted ascending. Period keys are zero-padded YYYYMM, so the
// lexical order is the chronological order.
func (l *Ledger) periods(prefix string) ([]string, error) {
	pattern := filepath.Join(l.dataDir, "movements", prefix+"*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list movement partitions: %w", err)
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		key := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Movements iterates all stock movements in chronological order, oldest
// first. Partitions are loaded lazily one at a time, so iteration over a
// long history never holds more than one month in memory.
func (l *Ledger) Movements(ctx context.Context) iter.Seq2[catalog.StockMovement, error] {
	return func(yield func(catalog.StockMovement, error) bool) {
		keys, err := l.periods(movementPrefix)
		if err != nil {
			yield(catalog.StockMovement{}, err)
			return
		}
		for _, key := range keys {
			doc, err := l.movementDoc(key)
			if err != nil {
				yield(catalog.StockMovement{}, err)
				return
			}
			records, _, err := doc.Load(ctx)
			if err != nil {
				yield(catalog.StockMovement{}, err)
				return
			}
			sort.SliceStable(records, func(i, j int) bool {
				return records[i].Timestamp.Before(records[j].Timestamp)
			})
			for _, m := range records {
				if !yield(m, nil) {
					return
				}
			}
		}
	}
}

// PartMovements iterates the movements of one part within [from, to) in
// chronological order. A zero from or to leaves that bound open. Partitions
// whose month falls entirely outside the range are never loaded. The
// returned sequence is restartable: each range-over starts a fresh pass.
func (l *Ledger) PartMovements(ctx context.Context, partID string, from, to time.Time) iter.Seq2[catalog.StockMovement, error] {
	var fromKey, toKey string
	if !from.IsZero() {
		fromKey = from.UTC().Format("200601")
	}
	if !to.IsZero() {
		toKey = to.UTC().Format("200601")
	}
	return func(yield func(catalog.StockMovement, error) bool) {
		keys, err := l.periods(movementPrefix)
		if err != nil {
			yield(catalog.StockMovement{}, err)
			return
		}
		for _, key := range keys {
			if fromKey != "" && key < fromKey {
				continue
			}
			if toKey != "" && key > toKey {
				break
			}
			doc, err := l.movementDoc(key)
			if err != nil {
				yield(catalog.StockMovement{}, err)
				return
			}
			records, _, err := doc.Load(ctx)
			if err != nil {
				yield(catalog.StockMovement{}, err)
				return
			}
			sort.SliceStable(records, func(i, j int) bool {
				return records[i].Timestamp.Before(records[j].Timestamp)
			})
			for _, m := range records {
				if m.PartID != partID {
					continue
				}
				if !from.IsZero() && m.Timestamp.Before(from) {
					continue
				}
				if !to.IsZero() && !m.Timestamp.Before(to) {
					continue
				}
				if !yield(m, nil) {
					return
				}
			}
		}
	}
}

// Adjustments iterates all adjustments in chronological order, oldest first.
func (l *Ledger) Adjustments(ctx context.Context) iter.Seq2[catalog.Adjustment, error] {
	return func(yield func(catalog.Adjustment, error) bool) {
		keys, err := l.periods(adjustmentPrefix)
		if err != nil {
			yield(catalog.Adjustment{}, err)
			return
		}
		for _, key := range keys {
			doc, err := l.adjustmentDoc(key)
			if err != nil {
				yield(catalog.Adjustment{}, err)
				return
			}
			records, _, err := doc.Load(ctx)
			if err != nil {
				yield(catalog.Adjustment{}, err)
				return
			}
			sort.SliceStable(records, func(i, j int) bool {
				return records[i].Timestamp.Before(records[j].Timestamp)
			})
			for _, a := range records {
				if !yield(a, nil) {
					return
				}
			}
		}
	}
}

// QuantityOnHand computes the current stock level of a part by replaying
// every movement and adjustment. The stored snapshot on the part record is
// a convenience; this is the authoritative figure.
func (l *Ledger) QuantityOnHand(ctx context.Context, partID string) (int, error) {
	total := 0
	for m, err := range l.Movements(ctx) {
		if err != nil {
			return 0, err
		}
		if m.PartID == partID {
			total += m.Delta
		}
	}
	for a, err := range l.Adjustments(ctx) {
		if err != nil {
			return 0, err
		}
		if a.PartID == partID {
			total += a.Delta
		}
	}
	return total, nil
}

// DrawerReferenced reports whether any historical movement or adjustment
// names the drawer.
func (l *Ledger) DrawerReferenced(ctx context.Context, drawerID string) (bool, error) {
	for m, err := range l.Movements(ctx) {
		if err != nil {
			return false, err
		}
		if m.DrawerID == drawerID {
			return true, nil
		}
	}
	for a, err := range l.Adjustments(ctx) {
		if err != nil {
			return false, err
		}
		if a.DrawerID == drawerID {
			return true, nil
		}
	}
	return false, nil
}

// PartReferenced reports whether any historical movement, adjustment or
// reservation names the part.
func (l *Ledger) PartReferenced(ctx context.Context, partID string) (bool, error) {
	for m, err := range l.Movements(ctx) {
		if err != nil {
			return false, err
		}
		if m.PartID == partID {
			return true, nil
		}
	}
	for a, err := range l.Adjustments(ctx) {
		if err != nil {
			return false, err
		}
		if a.PartID == partID {
			return true, nil
		}
	}
	reservations, _, err := l.reservations.Load(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range reservations {
		if r.PartID == partID {
			return true, nil
		}
	}
	return false, nil
}

// Reservations returns all reservations, open and closed.
func (l *Ledger) Reservations(ctx context.Context) ([]catalog.Reservation, error) {
	reservations, _, err := l.reservations.Load(ctx)
	return reservations, err
}

// GetReservation returns the reservation with the given id.
func (l *Ledger) GetReservation(ctx context.Context, id string) (catalog.Reservation, error) {
	reservations, _, err := l.reservations.Load(ctx)
	if err != nil {
		return catalog.Reservation{}, err
	}
	for _, r := range reservations {
		if r.ID == id {
			return r, nil
		}
	}
	return catalog.Reservation{}, &ReservationNotFoundError{ID: id}
}

// openReserved sums the quantities of open reservations for a part.
func openReserved(reservations []catalog.Reservation, partID string) int {
	total := 0
	for _, r := range reservations {
		if r.PartID == partID && r.Status == catalog.ReservationOpen {
			total += r.Qty
		}
	}
	return total
}

// OpenReservation earmarks qty units of a part. Unless allowNegative is
// set, the request is rejected when it exceeds the quantity on hand minus
// what open reservations already claim.
func (l *Ledger) OpenReservation(ctx context.Context, partID string, qty int, note string, allowNegative bool) (catalog.Reservation, error) {
	reservations, version, err := l.reservations.Load(ctx)
	if err != nil {
		return catalog.Reservation{}, err
	}

	if !allowNegative {
		onHand, err := l.QuantityOnHand(ctx, partID)
		if err != nil {
			return catalog.Reservation{}, err
		}
		available := onHand - openReserved(reservations, partID)
		if qty > available {
			return catalog.Reservation{}, &InsufficientStockError{
				PartID: partID, Available: available, Requested: qty,
			}
		}
	}

	now := l.now().UTC()
	r := catalog.Reservation{
		ID:        uuid.NewString(),
		PartID:    partID,
		Qty:       qty,
		Status:    catalog.ReservationOpen,
		CreatedAt: now,
		UpdatedAt: now,
		Note:      note,
	}
	if err := r.Validate(); err != nil {
		return catalog.Reservation{}, fmt.Errorf("invalid reservation: %w", err)
	}

	reservations = append(reservations, r)
	if _, err := l.reservations.Save(ctx, reservations, version); err != nil {
		return catalog.Reservation{}, err
	}
	return r, nil
}

// FulfillReservation records the pick that satisfies an open reservation:
// a pick movement carrying the reservation id is appended and the
// reservation moves to fulfilled. drawerID names where the stock was taken
// from at pick time.
func (l *Ledger) FulfillReservation(ctx context.Context, id, drawerID string) error {
	return l.closeReservation(ctx, id, catalog.ReservationFulfilled, drawerID)
}

// CancelReservation withdraws an open reservation without a pick.
func (l *Ledger) CancelReservation(ctx context.Context, id string) error {
	return l.closeReservation(ctx, id, catalog.ReservationCancelled, "")
}

// fulfilmentRecorded reports whether a pick carrying the reservation id is
// already in the ledger.
func (l *Ledger) fulfilmentRecorded(ctx context.Context, reservationID string) (bool, error) {
	for m, err := range l.Movements(ctx) {
		if err != nil {
			return false, err
		}
		if m.ReservationID == reservationID {
			return true, nil
		}
	}
	return false, nil
}

func (l *Ledger) closeReservation(ctx context.Context, id string, status catalog.ReservationStatus, drawerID string) error {
	reservations, version, err := l.reservations.Load(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, r := range reservations {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &ReservationNotFoundError{ID: id}
	}
	r := reservations[idx]
	if r.Status.Closed() {
		return &ReservationClosedError{ID: id, Status: string(r.Status)}
	}

	now := l.now().UTC()
	if status == catalog.ReservationFulfilled {
		// The movement goes in first. If the append lands but the status
		// write then loses a conflict, the reservation stays open with its
		// pick already durable, so a retry must not deduct again.
		recorded, err := l.fulfilmentRecorded(ctx, r.ID)
		if err != nil {
			return err
		}
		if !recorded {
			m := catalog.StockMovement{
				ID:            uuid.NewString(),
				PartID:        r.PartID,
				DrawerID:      drawerID,
				Kind:          catalog.MovementPick,
				Delta:         -r.Qty,
				Timestamp:     now,
				ReservationID: r.ID,
			}
			if err := l.AppendMovement(ctx, m); err != nil {
				return err
			}
		}
	}

	reservations[idx].Status = status
	reservations[idx].UpdatedAt = now
	if _, err := l.reservations.Save(ctx, reservations, version); err != nil {
		return err
	}
	return nil
}
