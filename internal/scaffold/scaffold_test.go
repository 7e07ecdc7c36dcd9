package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklight/picklight/internal/schema"
)

// TestInitializeCreatesLayout verifies the full data tree is created
func TestInitializeCreatesLayout(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Initialize(root, false))

	for _, rel := range []string{
		"data/master/racks.json",
		"data/master/parts.json",
		"data/movements/reservations.json",
		"data/schema/schema-map.json",
		"data/schema/master/parts.json",
		"data/schema/movements/stock_movements.json",
		"data/schema/indexes/index.json",
	} {
		_, err := os.Stat(filepath.Join(root, rel))
		assert.NoError(t, err, "expected %s to exist", rel)
	}

	// The indexes directory exists but starts empty
	entries, err := os.ReadDir(filepath.Join(root, "data", "indexes"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestInitializePreservesExistingData verifies a re-run never clobbers records
func TestInitializePreservesExistingData(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Initialize(root, false))

	racksPath := filepath.Join(root, "data", "master", "racks.json")
	content := []byte(`[{"id":"rack-a","name":"A","controller":"wled-a.local","pixelCount":30,"rows":2,"drawersPerRow":3}]` + "\n")
	require.NoError(t, os.WriteFile(racksPath, content, 0644))

	require.NoError(t, Initialize(root, false))
	after, err := os.ReadFile(racksPath)
	require.NoError(t, err)
	assert.Equal(t, content, after, "re-initialization must not overwrite existing master data")

	// force refreshes schemas but still leaves data alone
	require.NoError(t, Initialize(root, true))
	after, err = os.ReadFile(racksPath)
	require.NoError(t, err)
	assert.Equal(t, content, after)
}

// TestInitializeSchemasLoadable verifies the scaffolded schema map covers the
// stored file layout and compiles
func TestInitializeSchemasLoadable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Initialize(root, false))

	reg, err := schema.NewRegistry(filepath.Join(root, "data", "schema"))
	require.NoError(t, err)

	for _, logical := range []string{
		"master/racks.json",
		"master/drawers.json",
		"master/parts.json",
		"master/categories.json",
		"master/manufacturers.json",
		"master/tags.json",
		"master/locations.json",
		"movements/stock_movements_202608.json",
		"movements/adjustments_202601.json",
		"movements/reservations.json",
		"indexes/parts_by_tag.json",
		"indexes/parts_by_category.json",
		"indexes/parts_by_drawer.json",
	} {
		_, err := reg.Lookup(logical)
		assert.NoError(t, err, "expected a schema mapping for %s", logical)
	}

	_, err = reg.Lookup("master/unknown.json")
	assert.True(t, schema.IsNotFound(err), "expected schema not-found for unmapped file")
}
