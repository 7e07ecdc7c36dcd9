// Package light turns a set of matched parts into per-controller pixel
// commands. Commands are full-state: every drawer range a controller
// drives is either active or off in each plan, so a previous highlight is
// always cleared before the next one shows and a stuck light cannot
// survive a new query.
package light

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/picklight/picklight/internal/master"
	"github.com/picklight/picklight/pkg/catalog"
)

// UnmappedPixelError reports a drawer whose declared pixel range does not
// fit the controller's known pixel count. The mapping is master data; this
// is a data-integrity problem surfaced to the caller, never skipped over.
type UnmappedPixelError struct {
	DrawerID   string
	Controller string
	Range      catalog.PixelRange
	PixelCount int
}

func (e *UnmappedPixelError) Error() string {
	return fmt.Sprintf("drawer '%s' pixel range [%d,%d) does not fit the %d pixels of controller '%s'",
		e.DrawerID, e.Range.Start, e.Range.End(), e.PixelCount, e.Controller)
}

// IsUnmappedPixel returns true if the error is an UnmappedPixelError.
func IsUnmappedPixel(err error) bool {
	var upe *UnmappedPixelError
	return errors.As(err, &upe)
}

// Segment is one drawer's pixel range with its target state.
type Segment struct {
	DrawerID string
	Range    catalog.PixelRange
	Active   bool
}

// ControllerState is the full target pixel state for one controller
// endpoint: every declared drawer range appears exactly once, active or
// off. States for different controllers are independent and may be sent
// in any order.
type ControllerState struct {
	Endpoint   string
	PixelCount int
	Segments   []Segment
}

// ActiveRanges returns the pixel ranges to light, sorted by start.
func (c *ControllerState) ActiveRanges() []catalog.PixelRange {
	var out []catalog.PixelRange
	for _, seg := range c.Segments {
		if seg.Active {
			out = append(out, seg.Range)
		}
	}
	return out
}

// Plan is the resolved outcome of one search: full states for every
// configured controller plus the matched parts that have no drawer and
// therefore cannot light up.
type Plan struct {
	Controllers []ControllerState
	Unlocated   []catalog.Part
}

// Gateway is the pixel-command sink the resolver hands plans to. The wire
// protocol behind it is not the resolver's concern.
type Gateway interface {
	Apply(ctx context.Context, state ControllerState) error
}

// Send pushes every controller state in the plan through the gateway.
// Controllers are independent; the first failure is reported but the
// remaining controllers are still attempted so one unreachable rack does
// not leave the others stale.
func (p *Plan) Send(ctx context.Context, gw Gateway) error {
	var firstErr error
	for _, state := range p.Controllers {
		if err := gw.Apply(ctx, state); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("controller '%s': %w", state.Endpoint, err)
		}
	}
	return firstErr
}

// Resolver builds pixel plans from the master data.
type Resolver struct {
	repo *master.Repository
}

// New builds a Resolver.
func New(repo *master.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve produces the full-state plan that highlights the drawers holding
// at least one of the matched parts. Every configured controller appears
// in the plan, including those with nothing to highlight, so sending the
// plan clears stale highlights everywhere.
func (r *Resolver) Resolve(ctx context.Context, matched []catalog.Part) (*Plan, error) {
	snap, err := r.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return resolve(snap, matched)
}

// Off produces the plan that darkens every configured controller.
func (r *Resolver) Off(ctx context.Context) (*Plan, error) {
	return r.Resolve(ctx, nil)
}

func resolve(snap *master.Snapshot, matched []catalog.Part) (*Plan, error) {
	activeDrawers := make(map[string]bool)
	var unlocated []catalog.Part
	for _, p := range matched {
		if p.DrawerID == "" {
			unlocated = append(unlocated, p)
			continue
		}
		activeDrawers[p.DrawerID] = true
	}

	// One state per controller endpoint; racks sharing an endpoint share
	// the pixel space and collapse into one command.
	pixelCounts := make(map[string]int)
	rackController := make(map[string]string, len(snap.Racks))
	for _, rack := range snap.Racks {
		rackController[rack.ID] = rack.Controller
		if rack.PixelCount > pixelCounts[rack.Controller] {
			pixelCounts[rack.Controller] = rack.PixelCount
		}
	}

	segments := make(map[string][]Segment)
	for _, d := range snap.Drawers {
		controller, ok := rackController[d.RackID]
		if !ok {
			// The repository rejects dangling rack references on write;
			// hand-edited files can still carry them.
			return nil, fmt.Errorf("drawer '%s' references unknown rack '%s'", d.ID, d.RackID)
		}
		if d.PixelRange.End() > pixelCounts[controller] {
			return nil, &UnmappedPixelError{
				DrawerID:   d.ID,
				Controller: controller,
				Range:      d.PixelRange,
				PixelCount: pixelCounts[controller],
			}
		}
		segments[controller] = append(segments[controller], Segment{
			DrawerID: d.ID,
			Range:    d.PixelRange,
			Active:   activeDrawers[d.ID],
		})
	}

	plan := &Plan{Unlocated: unlocated}
	endpoints := make([]string, 0, len(pixelCounts))
	for endpoint := range pixelCounts {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)
	for _, endpoint := range endpoints {
		segs := segments[endpoint]
		sort.Slice(segs, func(i, j int) bool { return segs[i].Range.Start < segs[j].Range.Start })
		plan.Controllers = append(plan.Controllers, ControllerState{
			Endpoint:   endpoint,
			PixelCount: pixelCounts[endpoint],
			Segments:   segs,
		})
	}
	return plan, nil
}
