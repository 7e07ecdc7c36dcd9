package light_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklight/picklight/internal/light"
	"github.com/picklight/picklight/internal/master"
	"github.com/picklight/picklight/internal/scaffold"
	"github.com/picklight/picklight/internal/schema"
	"github.com/picklight/picklight/internal/search"
	"github.com/picklight/picklight/pkg/catalog"
)

// recordingGateway captures the states pushed through Plan.Send.
type recordingGateway struct {
	applied []light.ControllerState
	fail    map[string]error // endpoint -> injected failure
}

func (g *recordingGateway) Apply(_ context.Context, state light.ControllerState) error {
	if err := g.fail[state.Endpoint]; err != nil {
		return err
	}
	g.applied = append(g.applied, state)
	return nil
}

// twoRackFixture builds two racks on separate controllers: rack-a holds an
// M3 bolt in d1 (pixels 0-4) and an M4 bolt in d2 (pixels 5-9), rack-b has
// one empty drawer.
func twoRackFixture(t *testing.T) (*master.Repository, *search.Searcher, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, scaffold.Initialize(root, false))
	dataDir := filepath.Join(root, "data")
	reg, err := schema.NewRegistry(filepath.Join(dataDir, "schema"))
	require.NoError(t, err)
	repo, err := master.Open(dataDir, reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.CreateCategory(ctx, catalog.Category{ID: "cat-fasteners", Name: "Fasteners"}))
	require.NoError(t, repo.CreateManufacturer(ctx, catalog.Manufacturer{ID: "mfg-acme", Name: "Acme"}))
	require.NoError(t, repo.CreateRack(ctx, catalog.Rack{
		ID: "r1", Name: "Rack 1", Controller: "c1.local",
		PixelCount: 10, Rows: 1, DrawersPerRow: 2,
	}))
	require.NoError(t, repo.CreateRack(ctx, catalog.Rack{
		ID: "r2", Name: "Rack 2", Controller: "c2.local",
		PixelCount: 10, Rows: 1, DrawersPerRow: 1,
	}))
	require.NoError(t, repo.CreateDrawer(ctx, catalog.Drawer{
		ID: "d1", RackID: "r1", Row: 0, Col: 0, Label: "1",
		PixelRange: catalog.PixelRange{Start: 0, Count: 5},
	}))
	require.NoError(t, repo.CreateDrawer(ctx, catalog.Drawer{
		ID: "d2", RackID: "r1", Row: 0, Col: 1, Label: "2",
		PixelRange: catalog.PixelRange{Start: 5, Count: 5},
	}))
	require.NoError(t, repo.CreateDrawer(ctx, catalog.Drawer{
		ID: "d3", RackID: "r2", Row: 0, Col: 0, Label: "1",
		PixelRange: catalog.PixelRange{Start: 0, Count: 10},
	}))
	require.NoError(t, repo.CreatePart(ctx, catalog.Part{
		ID: "part-m3", Name: "M3 bolt",
		CategoryID: "cat-fasteners", ManufacturerID: "mfg-acme", DrawerID: "d1",
	}))
	require.NoError(t, repo.CreatePart(ctx, catalog.Part{
		ID: "part-m4", Name: "M4 bolt",
		CategoryID: "cat-fasteners", ManufacturerID: "mfg-acme", DrawerID: "d2",
	}))

	return repo, search.New(repo, dataDir, reg), dataDir
}

// stateFor pulls one controller's state out of a plan.
func stateFor(t *testing.T, plan *light.Plan, endpoint string) light.ControllerState {
	t.Helper()
	for _, s := range plan.Controllers {
		if s.Endpoint == endpoint {
			return s
		}
	}
	t.Fatalf("plan has no state for controller %s", endpoint)
	return light.ControllerState{}
}

func TestSearchToLightEndToEnd(t *testing.T) {
	repo, searcher, _ := twoRackFixture(t)
	ctx := context.Background()

	matched, err := searcher.Find(ctx, search.Criteria{Query: "M3"})
	require.NoError(t, err)
	require.Len(t, matched, 1)

	plan, err := light.New(repo).Resolve(ctx, matched)
	require.NoError(t, err)
	require.Len(t, plan.Controllers, 2, "every configured controller gets a full state")

	c1 := stateFor(t, plan, "c1.local")
	require.Len(t, c1.Segments, 2)
	assert.True(t, c1.Segments[0].Active, "drawer holding the M3 bolt lights up")
	assert.False(t, c1.Segments[1].Active, "drawer holding the M4 bolt stays dark")
	assert.Equal(t, []catalog.PixelRange{{Start: 0, Count: 5}}, c1.ActiveRanges())

	c2 := stateFor(t, plan, "c2.local")
	assert.Empty(t, c2.ActiveRanges(), "second controller carries no active pixels")
	assert.Empty(t, plan.Unlocated)
}

func TestUnlocatedMatchesAreReportedNotLit(t *testing.T) {
	repo, _, _ := twoRackFixture(t)
	ctx := context.Background()

	require.NoError(t, repo.CreatePart(ctx, catalog.Part{
		ID: "part-loose", Name: "M3 washer",
		CategoryID: "cat-fasteners", ManufacturerID: "mfg-acme",
	}))
	part, err := repo.GetPart(ctx, "part-loose")
	require.NoError(t, err)

	plan, err := light.New(repo).Resolve(ctx, []catalog.Part{part})
	require.NoError(t, err)
	require.Len(t, plan.Unlocated, 1)
	assert.Equal(t, "part-loose", plan.Unlocated[0].ID)
	for _, state := range plan.Controllers {
		assert.Empty(t, state.ActiveRanges())
	}
}

func TestOffDarkensEverything(t *testing.T) {
	repo, _, _ := twoRackFixture(t)

	plan, err := light.New(repo).Off(context.Background())
	require.NoError(t, err)
	require.Len(t, plan.Controllers, 2)
	for _, state := range plan.Controllers {
		assert.Empty(t, state.ActiveRanges())
		assert.NotEmpty(t, state.Segments, "off is still a full-state command")
	}
}

func TestResolveRejectsUnmappedPixels(t *testing.T) {
	repo, _, dataDir := twoRackFixture(t)
	ctx := context.Background()

	// The repository refuses to shrink a controller under an assigned range.
	rack, err := repo.GetRack(ctx, "r2")
	require.NoError(t, err)
	rack.PixelCount = 4
	err = repo.UpdateRack(ctx, rack)
	require.Error(t, err)

	// A hand-edited file can still carry the inconsistency; the resolver
	// surfaces it instead of lighting the wrong pixels.
	racksJSON := `[
  {"id":"r1","name":"Rack 1","controller":"c1.local","pixelCount":10,"rows":1,"drawersPerRow":2},
  {"id":"r2","name":"Rack 2","controller":"c2.local","pixelCount":4,"rows":1,"drawersPerRow":1}
]
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "master", "racks.json"), []byte(racksJSON), 0644))

	_, err = light.New(repo).Resolve(ctx, nil)
	require.Error(t, err)
	assert.True(t, light.IsUnmappedPixel(err))
	assert.Contains(t, err.Error(), "d3")
}

func TestPlanSendPushesAllControllersDespiteFailure(t *testing.T) {
	repo, searcher, _ := twoRackFixture(t)
	ctx := context.Background()

	matched, err := searcher.Find(ctx, search.Criteria{Query: "bolt"})
	require.NoError(t, err)
	plan, err := light.New(repo).Resolve(ctx, matched)
	require.NoError(t, err)

	gw := &recordingGateway{fail: map[string]error{"c1.local": errors.New("timeout")}}
	err = plan.Send(ctx, gw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1.local")
	require.Len(t, gw.applied, 1, "the healthy controller was still updated")
	assert.Equal(t, "c2.local", gw.applied[0].Endpoint)
}
