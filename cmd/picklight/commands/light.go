package commands

import (
	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/light"
	"github.com/picklight/picklight/internal/printer"
	"github.com/picklight/picklight/internal/wled"
)

var (
	lightFlags  criteriaFlags
	lightDryRun bool
)

var lightCmd = &cobra.Command{
	Use:   "light [query]",
	Short: "Light up the drawers holding matching parts",
	Long: `Search for parts and set every controller to the matching state: drawers
holding a matched part light green, all other drawers switch off. The
command always sends the full state, so highlights from a previous search
are cleared.`,
	RunE: runLight,
}

func init() {
	lightFlags.register(lightCmd)
	lightCmd.Flags().BoolVar(&lightDryRun, "dry-run", false, "Print the per-controller plan without sending it")
	rootCmd.AddCommand(lightCmd)
}

func runLight(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	parts, err := e.searcher.Find(ctx, lightFlags.criteria(args))
	if err != nil {
		return reportErr(err)
	}

	resolver := light.New(e.repo)
	plan, err := resolver.Resolve(ctx, parts)
	if err != nil {
		return reportErr(err)
	}

	if lightDryRun {
		for _, state := range plan.Controllers {
			printer.Printf("%s (%d pixels)\n", state.Endpoint, state.PixelCount)
			for _, seg := range state.Segments {
				mark := "off"
				if seg.Active {
					mark = "GREEN"
				}
				printer.Printf("  %4d-%-4d %-6s %s\n",
					seg.Range.Start, seg.Range.End()-1, mark, seg.DrawerID)
			}
		}
		for _, p := range plan.Unlocated {
			printer.Warning("%s (%s) matches but has no drawer\n", p.Name, p.ID)
		}
		return nil
	}

	gateway := wled.NewClient(wled.WithTimeout(e.cfg.Lights.Timeout))
	if err := plan.Send(ctx, gateway); err != nil {
		return printer.Error(
			"Some controllers could not be updated",
			err.Error(),
			[]string{"Check that the WLED controllers are powered and reachable"},
		)
	}

	snap, err := e.repo.Snapshot(ctx)
	if err != nil {
		return reportErr(err)
	}
	lit := 0
	for _, state := range plan.Controllers {
		for _, seg := range state.Segments {
			if !seg.Active {
				continue
			}
			lit++
			label := seg.DrawerID
			if d, ok := snap.DrawerByID(seg.DrawerID); ok {
				label = d.Label
				if r, ok := snap.RackByID(d.RackID); ok {
					label = r.Name + " / " + d.Label
				}
			}
			printer.Lit(label, "")
		}
	}
	if lit == 0 {
		printer.Info("Nothing to light: %d part(s) matched, none located.\n", len(parts))
	}
	for _, p := range plan.Unlocated {
		printer.Warning("%s (%s) matches but has no drawer\n", p.Name, p.ID)
	}
	return nil
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Switch all drawer highlights off",
	RunE:  runOff,
}

func init() {
	rootCmd.AddCommand(offCmd)
}

func runOff(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	plan, err := light.New(e.repo).Off(ctx)
	if err != nil {
		return reportErr(err)
	}
	gateway := wled.NewClient(wled.WithTimeout(e.cfg.Lights.Timeout))
	if err := plan.Send(ctx, gateway); err != nil {
		return printer.Error(
			"Some controllers could not be updated",
			err.Error(),
			[]string{"Check that the WLED controllers are powered and reachable"},
		)
	}
	printer.Success("all %d controller(s) dark\n", len(plan.Controllers))
	return nil
}
