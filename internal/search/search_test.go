package search_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklight/picklight/internal/master"
	"github.com/picklight/picklight/internal/scaffold"
	"github.com/picklight/picklight/internal/schema"
	"github.com/picklight/picklight/internal/search"
	"github.com/picklight/picklight/pkg/catalog"
)

func newSearcher(t *testing.T) (*search.Searcher, *master.Repository, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, scaffold.Initialize(root, false))
	dataDir := filepath.Join(root, "data")
	reg, err := schema.NewRegistry(filepath.Join(dataDir, "schema"))
	require.NoError(t, err)
	repo, err := master.Open(dataDir, reg)
	require.NoError(t, err)
	return search.New(repo, dataDir, reg), repo, dataDir
}

// seedCatalog loads a small parts catalog: bolts and nuts across two
// drawers, tagged by thread size.
func seedCatalog(t *testing.T, repo *master.Repository) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, repo.CreateCategory(ctx, catalog.Category{ID: "cat-fasteners", Name: "Fasteners"}))
	require.NoError(t, repo.CreateCategory(ctx, catalog.Category{ID: "cat-electronics", Name: "Electronics"}))
	require.NoError(t, repo.CreateManufacturer(ctx, catalog.Manufacturer{ID: "mfg-acme", Name: "Acme"}))
	require.NoError(t, repo.CreateTag(ctx, catalog.Tag{ID: "tag-m3", Name: "M3"}))
	require.NoError(t, repo.CreateTag(ctx, catalog.Tag{ID: "tag-m4", Name: "M4"}))
	require.NoError(t, repo.CreateTag(ctx, catalog.Tag{ID: "tag-steel", Name: "steel"}))
	require.NoError(t, repo.CreateRack(ctx, catalog.Rack{
		ID: "rack-a", Name: "Rack A", Controller: "wled-a.local",
		PixelCount: 30, Rows: 2, DrawersPerRow: 3,
	}))
	require.NoError(t, repo.CreateDrawer(ctx, catalog.Drawer{
		ID: "d1", RackID: "rack-a", Row: 0, Col: 0, Label: "A1",
		PixelRange: catalog.PixelRange{Start: 0, Count: 5},
	}))
	require.NoError(t, repo.CreateDrawer(ctx, catalog.Drawer{
		ID: "d2", RackID: "rack-a", Row: 0, Col: 1, Label: "A2",
		PixelRange: catalog.PixelRange{Start: 5, Count: 5},
	}))

	parts := []catalog.Part{
		{ID: "part-bolt-m3", Name: "M3 bolt", CategoryID: "cat-fasteners", ManufacturerID: "mfg-acme",
			DrawerID: "d1", Tags: []string{"tag-m3", "tag-steel"}, Quantity: 100},
		{ID: "part-bolt-m4", Name: "M4 bolt", CategoryID: "cat-fasteners", ManufacturerID: "mfg-acme",
			DrawerID: "d2", Tags: []string{"tag-m4", "tag-steel"}, Quantity: 40},
		{ID: "part-nut-m3", Name: "M3 nut", CategoryID: "cat-fasteners", ManufacturerID: "mfg-acme",
			DrawerID: "d2", Tags: []string{"tag-m3"}, Quantity: 3},
		{ID: "part-led", Name: "5mm LED", CategoryID: "cat-electronics", ManufacturerID: "mfg-acme",
			Quantity: 0, Notes: "red, clear lens"},
	}
	for _, p := range parts {
		require.NoError(t, repo.CreatePart(ctx, p))
	}
}

func ids(parts []catalog.Part) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p.ID
	}
	return out
}

func TestFindByQuery(t *testing.T) {
	s, repo, _ := newSearcher(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	got, err := s.Find(ctx, search.Criteria{Query: "m3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"part-bolt-m3", "part-nut-m3"}, ids(got))

	// Query reaches into notes too.
	got, err = s.Find(ctx, search.Criteria{Query: "clear lens"})
	require.NoError(t, err)
	assert.Equal(t, []string{"part-led"}, ids(got))

	got, err = s.Find(ctx, search.Criteria{Query: "titanium"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindCombinesCriteria(t *testing.T) {
	s, repo, _ := newSearcher(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	min := 10
	got, err := s.Find(ctx, search.Criteria{
		CategoryID:  "cat-fasteners",
		TagsAny:     []string{"tag-m3", "tag-m4"},
		MinQuantity: &min,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"part-bolt-m3", "part-bolt-m4"}, ids(got))

	got, err = s.Find(ctx, search.Criteria{TagsAll: []string{"tag-m3", "tag-steel"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"part-bolt-m3"}, ids(got))

	max := 5
	got, err = s.Find(ctx, search.Criteria{DrawerID: "d2", MaxQuantity: &max})
	require.NoError(t, err)
	assert.Equal(t, []string{"part-nut-m3"}, ids(got))
}

func TestIndexAndScanAgree(t *testing.T) {
	s, repo, _ := newSearcher(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	criteria := []search.Criteria{
		{TagsAll: []string{"tag-steel"}},
		{CategoryID: "cat-fasteners"},
		{DrawerID: "d2"},
	}

	// Without indexes everything is a scan.
	var scanned [][]string
	for _, c := range criteria {
		got, err := s.Find(ctx, c)
		require.NoError(t, err)
		scanned = append(scanned, ids(got))
	}

	require.NoError(t, s.Rebuild(ctx))

	for i, c := range criteria {
		got, err := s.Find(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, scanned[i], ids(got), "indexed result must equal scan for criteria %d", i)
	}
}

func TestStaleIndexIsIgnored(t *testing.T) {
	s, repo, _ := newSearcher(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	require.NoError(t, s.Rebuild(ctx))
	stale, err := s.Stale(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	// A new part invalidates the indexes.
	require.NoError(t, repo.CreatePart(ctx, catalog.Part{
		ID: "part-washer-m3", Name: "M3 washer",
		CategoryID: "cat-fasteners", ManufacturerID: "mfg-acme",
		DrawerID: "d1", Tags: []string{"tag-m3"}, Quantity: 7,
	}))

	stale, err = s.Stale(ctx)
	require.NoError(t, err)
	assert.True(t, stale)

	// The stale index must not hide the new part.
	got, err := s.Find(ctx, search.Criteria{TagsAll: []string{"tag-m3"}})
	require.NoError(t, err)
	assert.Contains(t, ids(got), "part-washer-m3")

	require.NoError(t, s.Rebuild(ctx))
	got, err = s.Find(ctx, search.Criteria{TagsAll: []string{"tag-m3"}})
	require.NoError(t, err)
	assert.Contains(t, ids(got), "part-washer-m3")
}

func TestRebuildReplacesCorruptIndex(t *testing.T) {
	s, repo, dataDir := newSearcher(t)
	seedCatalog(t, repo)
	ctx := context.Background()

	path := filepath.Join(dataDir, "indexes", "parts_by_tag.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	require.NoError(t, s.Rebuild(ctx))

	got, err := s.Find(ctx, search.Criteria{TagsAll: []string{"tag-m4"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"part-bolt-m4"}, ids(got))
}
