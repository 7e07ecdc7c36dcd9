package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklight/picklight/internal/scaffold"
	"github.com/picklight/picklight/internal/schema"
	"github.com/picklight/picklight/internal/store"
	"github.com/picklight/picklight/pkg/catalog"
)

// newFixture scaffolds a data directory and returns its data root and registry.
func newFixture(t *testing.T) (string, *schema.Registry) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, scaffold.Initialize(root, false))
	dataDir := filepath.Join(root, "data")
	reg, err := schema.NewRegistry(filepath.Join(dataDir, "schema"))
	require.NoError(t, err)
	return dataDir, reg
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func sampleRack(id string) catalog.Rack {
	return catalog.Rack{
		ID:            id,
		Name:          "Rack " + id,
		Controller:    "wled-" + id + ".local",
		PixelCount:    60,
		Rows:          4,
		DrawersPerRow: 6,
	}
}

// TestRoundTrip verifies a written snapshot reads back structurally identical
func TestRoundTrip(t *testing.T) {
	dataDir, reg := newFixture(t)
	ctx := context.Background()

	racks, err := store.NewCollection[catalog.Rack](dataDir, "master/racks.json", reg)
	require.NoError(t, err)

	records, version, err := racks.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	want := []catalog.Rack{sampleRack("a"), sampleRack("b")}
	newVersion, err := racks.Save(ctx, want, version)
	require.NoError(t, err)
	assert.NotEqual(t, version, newVersion)

	got, gotVersion, err := racks.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, newVersion, gotVersion)
}

// TestSaveRejectsInvalidContentBeforeWrite verifies schema-breaking writes
// never touch the backing file
func TestSaveRejectsInvalidContentBeforeWrite(t *testing.T) {
	dataDir, reg := newFixture(t)
	ctx := context.Background()

	racks, err := store.NewCollection[catalog.Rack](dataDir, "master/racks.json", reg)
	require.NoError(t, err)

	_, version, err := racks.Load(ctx)
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(dataDir, "master", "racks.json"))
	require.NoError(t, err)

	bad := sampleRack("a")
	bad.PixelCount = 0 // violates the schema minimum
	_, err = racks.Save(ctx, []catalog.Rack{bad}, version)
	require.Error(t, err)
	assert.True(t, store.IsValidation(err), "expected ValidationError, got %v", err)
	assert.Contains(t, err.Error(), "master/racks.json")

	after, err := os.ReadFile(filepath.Join(dataDir, "master", "racks.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed save must leave the file untouched")
}

// TestLoadRejectsNonConformingFile verifies stored content is validated on read
func TestLoadRejectsNonConformingFile(t *testing.T) {
	dataDir, reg := newFixture(t)

	path := filepath.Join(dataDir, "master", "racks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"rack-a"}]`), 0644))

	racks, err := store.NewCollection[catalog.Rack](dataDir, "master/racks.json", reg)
	require.NoError(t, err)

	_, _, err = racks.Load(context.Background())
	require.Error(t, err)
	assert.True(t, store.IsValidation(err))

	// Malformed JSON is a validation failure too, with the file named
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":`), 0644))
	_, _, err = racks.Load(context.Background())
	require.Error(t, err)
	assert.True(t, store.IsValidation(err))
	assert.Contains(t, err.Error(), "master/racks.json")
}

// TestLoadMissingFile verifies NotFoundError vs empty-default semantics
func TestLoadMissingFile(t *testing.T) {
	dataDir, reg := newFixture(t)
	ctx := context.Background()

	// Monthly partitions do not exist until first append
	moves, err := store.NewCollection[catalog.StockMovement](
		dataDir, "movements/stock_movements_202608.json", reg, store.WithEmptyDefault())
	require.NoError(t, err)

	records, version, err := moves.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, store.NoVersion, version)

	// Without empty-default semantics a missing file is an error
	strict, err := store.NewCollection[catalog.StockMovement](
		dataDir, "movements/stock_movements_209901.json", reg)
	require.NoError(t, err)
	_, _, err = strict.Load(ctx)
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

// TestConflictingWrite verifies the stale-version write is rejected and the
// file keeps the first writer's content
func TestConflictingWrite(t *testing.T) {
	dataDir, reg := newFixture(t)
	ctx := context.Background()

	racks, err := store.NewCollection[catalog.Rack](dataDir, "master/racks.json", reg)
	require.NoError(t, err)

	// Both writers read the same version
	_, versionA, err := racks.Load(ctx)
	require.NoError(t, err)
	_, versionB, err := racks.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, versionA, versionB)

	first := []catalog.Rack{sampleRack("first")}
	_, err = racks.Save(ctx, first, versionA)
	require.NoError(t, err)

	_, err = racks.Save(ctx, []catalog.Rack{sampleRack("second")}, versionB)
	require.Error(t, err)
	assert.True(t, store.IsConflict(err), "expected ConflictError, got %v", err)

	got, _, err := racks.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got, "losing writer must not alter the file")
}

// TestUnmappedFileFailsConstruction verifies a missing schema mapping is a
// configuration defect caught when the document is bound
func TestUnmappedFileFailsConstruction(t *testing.T) {
	dataDir, reg := newFixture(t)

	_, err := store.NewCollection[catalog.Rack](dataDir, "master/unmapped.json", reg)
	require.Error(t, err)
	assert.True(t, schema.IsNotFound(err))
}

// TestAppendCreatesPartition verifies append-only documents spring into
// existence on first append and keep growing
func TestAppendCreatesPartition(t *testing.T) {
	dataDir, reg := newFixture(t)
	ctx := context.Background()

	moves, err := store.NewCollection[catalog.StockMovement](
		dataDir, "movements/stock_movements_202608.json", reg, store.WithEmptyDefault())
	require.NoError(t, err)

	m1 := catalog.StockMovement{
		ID:        "0b7d31a5-0a90-4a51-b2b0-111111111111",
		PartID:    "part-a",
		DrawerID:  "drawer-a1",
		Kind:      catalog.MovementStockIn,
		Delta:     10,
		Timestamp: mustTime(t, "2026-08-14T10:00:00Z"),
	}
	require.NoError(t, store.Append(ctx, moves, m1))

	m2 := m1
	m2.ID = "0b7d31a5-0a90-4a51-b2b0-222222222222"
	m2.Kind = catalog.MovementPick
	m2.Delta = -3
	require.NoError(t, store.Append(ctx, moves, m2))

	records, _, err := moves.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, m1.ID, records[0].ID)
	assert.Equal(t, m2.ID, records[1].ID)
}
