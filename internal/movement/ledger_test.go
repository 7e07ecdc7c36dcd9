package movement_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklight/picklight/internal/movement"
	"github.com/picklight/picklight/internal/scaffold"
	"github.com/picklight/picklight/internal/schema"
	"github.com/picklight/picklight/pkg/catalog"
)

func newLedger(t *testing.T, opts ...movement.Option) *movement.Ledger {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, scaffold.Initialize(root, false))
	dataDir := filepath.Join(root, "data")
	reg, err := schema.NewRegistry(filepath.Join(dataDir, "schema"))
	require.NoError(t, err)
	ledger, err := movement.Open(dataDir, reg, opts...)
	require.NoError(t, err)
	return ledger
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func stockIn(t *testing.T, partID string, qty int, at string) catalog.StockMovement {
	t.Helper()
	return catalog.StockMovement{
		ID:        uuid.NewString(),
		PartID:    partID,
		DrawerID:  "drawer-a1",
		Kind:      catalog.MovementStockIn,
		Delta:     qty,
		Timestamp: mustTime(t, at),
	}
}

func pick(t *testing.T, partID string, qty int, at string) catalog.StockMovement {
	t.Helper()
	return catalog.StockMovement{
		ID:        uuid.NewString(),
		PartID:    partID,
		DrawerID:  "drawer-a1",
		Kind:      catalog.MovementPick,
		Delta:     -qty,
		Timestamp: mustTime(t, at),
	}
}

func TestQuantityOnHandSpansPartitions(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 100, "2026-06-01T09:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, pick(t, "part-bolt", 30, "2026-07-15T14:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 10, "2026-08-02T10:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-nut", 500, "2026-08-02T10:05:00Z")))

	require.NoError(t, ledger.AppendAdjustment(ctx, catalog.Adjustment{
		ID: uuid.NewString(), PartID: "part-bolt", DrawerID: "drawer-a1",
		Delta: -5, Reason: "stocktake",
		Timestamp: mustTime(t, "2026-08-20T08:00:00Z"),
	}))

	qty, err := ledger.QuantityOnHand(ctx, "part-bolt")
	require.NoError(t, err)
	assert.Equal(t, 75, qty)

	qty, err = ledger.QuantityOnHand(ctx, "part-nut")
	require.NoError(t, err)
	assert.Equal(t, 500, qty)

	qty, err = ledger.QuantityOnHand(ctx, "part-unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestMovementsAreChronological(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	// Appended out of order, also within a single month.
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "p", 3, "2026-08-20T00:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "p", 1, "2026-06-01T00:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "p", 2, "2026-08-05T00:00:00Z")))

	var deltas []int
	var last time.Time
	for m, err := range ledger.Movements(ctx) {
		require.NoError(t, err)
		assert.False(t, m.Timestamp.Before(last), "movements must come out oldest first")
		last = m.Timestamp
		deltas = append(deltas, m.Delta)
	}
	assert.Equal(t, []int{1, 2, 3}, deltas)
}

func TestPartMovementsFiltersByPartAndRange(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 1, "2026-05-10T00:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 2, "2026-06-10T00:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-nut", 99, "2026-06-11T00:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 3, "2026-07-10T00:00:00Z")))
	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 4, "2026-08-10T00:00:00Z")))

	from := mustTime(t, "2026-06-01T00:00:00Z")
	to := mustTime(t, "2026-08-01T00:00:00Z")

	var deltas []int
	seq := ledger.PartMovements(ctx, "part-bolt", from, to)
	for m, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, "part-bolt", m.PartID)
		deltas = append(deltas, m.Delta)
	}
	assert.Equal(t, []int{2, 3}, deltas, "to is exclusive, other parts are skipped")

	// The sequence restarts from the top on a second range-over.
	deltas = deltas[:0]
	for m, err := range seq {
		require.NoError(t, err)
		deltas = append(deltas, m.Delta)
	}
	assert.Equal(t, []int{2, 3}, deltas)

	// Open bounds walk the whole history.
	deltas = deltas[:0]
	for m, err := range ledger.PartMovements(ctx, "part-bolt", time.Time{}, time.Time{}) {
		require.NoError(t, err)
		deltas = append(deltas, m.Delta)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, deltas)
}

func TestMovementDeltaMustMatchKind(t *testing.T) {
	ledger := newLedger(t)

	bad := stockIn(t, "p", 5, "2026-08-01T00:00:00Z")
	bad.Delta = -5 // inbound kind with outbound delta
	err := ledger.AppendMovement(context.Background(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match kind")
}

func TestReservationLifecycle(t *testing.T) {
	now := mustTime(t, "2026-08-25T12:00:00Z")
	ledger := newLedger(t, movement.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 10, "2026-08-01T00:00:00Z")))

	r1, err := ledger.OpenReservation(ctx, "part-bolt", 6, "build batch 7", false)
	require.NoError(t, err)
	assert.Equal(t, catalog.ReservationOpen, r1.Status)
	assert.Equal(t, now, r1.CreatedAt)

	// 10 on hand, 6 already reserved: only 4 left to promise.
	_, err = ledger.OpenReservation(ctx, "part-bolt", 5, "", false)
	require.Error(t, err)
	assert.True(t, movement.IsInsufficientStock(err))

	// The override records the shortfall deliberately.
	r2, err := ledger.OpenReservation(ctx, "part-bolt", 5, "backorder", true)
	require.NoError(t, err)
	require.NoError(t, ledger.CancelReservation(ctx, r2.ID))

	require.NoError(t, ledger.FulfillReservation(ctx, r1.ID, "drawer-a1"))

	got, err := ledger.GetReservation(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.ReservationFulfilled, got.Status)

	// The fulfilment appended a pick carrying the reservation id.
	var found bool
	for m, err := range ledger.Movements(ctx) {
		require.NoError(t, err)
		if m.ReservationID == r1.ID {
			found = true
			assert.Equal(t, catalog.MovementPick, m.Kind)
			assert.Equal(t, -6, m.Delta)
			assert.Equal(t, "drawer-a1", m.DrawerID)
		}
	}
	assert.True(t, found)

	qty, err := ledger.QuantityOnHand(ctx, "part-bolt")
	require.NoError(t, err)
	assert.Equal(t, 4, qty)

	// Closed reservations are immutable.
	err = ledger.CancelReservation(ctx, r1.ID)
	require.Error(t, err)
	assert.True(t, movement.IsReservationClosed(err))

	err = ledger.FulfillReservation(ctx, "f2a31c11-0000-0000-0000-000000000000", "drawer-a1")
	require.Error(t, err)
	assert.True(t, movement.IsReservationNotFound(err))
}

func TestFulfillRetryAfterConflictDeductsOnce(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 10, "2026-08-01T00:00:00Z")))
	r, err := ledger.OpenReservation(ctx, "part-bolt", 4, "", false)
	require.NoError(t, err)

	// A first fulfilment attempt whose pick landed but whose reservation
	// save then lost a write conflict: the movement is durable, the
	// reservation is still open.
	require.NoError(t, ledger.AppendMovement(ctx, catalog.StockMovement{
		ID:            uuid.NewString(),
		PartID:        "part-bolt",
		DrawerID:      "drawer-a1",
		Kind:          catalog.MovementPick,
		Delta:         -4,
		Timestamp:     mustTime(t, "2026-08-02T00:00:00Z"),
		ReservationID: r.ID,
	}))

	require.NoError(t, ledger.FulfillReservation(ctx, r.ID, "drawer-a1"))

	got, err := ledger.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.ReservationFulfilled, got.Status)

	picks := 0
	for m, err := range ledger.Movements(ctx) {
		require.NoError(t, err)
		if m.ReservationID == r.ID {
			picks++
		}
	}
	assert.Equal(t, 1, picks, "the retry must not append a second pick")

	qty, err := ledger.QuantityOnHand(ctx, "part-bolt")
	require.NoError(t, err)
	assert.Equal(t, 6, qty)
}

func TestReferenceScans(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.AppendMovement(ctx, stockIn(t, "part-bolt", 10, "2026-08-01T00:00:00Z")))

	used, err := ledger.DrawerReferenced(ctx, "drawer-a1")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = ledger.DrawerReferenced(ctx, "drawer-z9")
	require.NoError(t, err)
	assert.False(t, used)

	used, err = ledger.PartReferenced(ctx, "part-bolt")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = ledger.PartReferenced(ctx, "part-unknown")
	require.NoError(t, err)
	assert.False(t, used)

	// A reservation alone counts as a reference.
	_, err = ledger.OpenReservation(ctx, "part-bolt", 1, "", false)
	require.NoError(t, err)
	_, err = ledger.OpenReservation(ctx, "part-reserved-only", 1, "", true)
	require.NoError(t, err)
	used, err = ledger.PartReferenced(ctx, "part-reserved-only")
	require.NoError(t, err)
	assert.True(t, used)
}
