package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/printer"
	"github.com/picklight/picklight/internal/search"
)

// criteriaFlags holds the search criteria flags shared by the search and
// light commands.
type criteriaFlags struct {
	query        string
	category     string
	manufacturer string
	drawer       string
	tags         []string
	tagsAny      []string
	minQty       int
	maxQty       int
}

// register adds the flags to cmd.
func (f *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Free-text search over id, name, notes and tags")
	cmd.Flags().StringVar(&f.category, "category", "", "Filter by category id")
	cmd.Flags().StringVar(&f.manufacturer, "manufacturer", "", "Filter by manufacturer id")
	cmd.Flags().StringVar(&f.drawer, "drawer", "", "Filter by drawer id")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Require this tag (repeatable, all must match)")
	cmd.Flags().StringSliceVar(&f.tagsAny, "tag-any", nil, "Require at least one of these tags")
	cmd.Flags().IntVar(&f.minQty, "min-qty", -1, "Minimum stored quantity")
	cmd.Flags().IntVar(&f.maxQty, "max-qty", -1, "Maximum stored quantity")
}

// criteria converts the flags into search criteria. A positional argument,
// if present, becomes the free-text query.
func (f *criteriaFlags) criteria(args []string) search.Criteria {
	c := search.Criteria{
		Query:          f.query,
		CategoryID:     f.category,
		ManufacturerID: f.manufacturer,
		DrawerID:       f.drawer,
		TagsAll:        f.tags,
		TagsAny:        f.tagsAny,
	}
	if c.Query == "" && len(args) > 0 {
		c.Query = strings.Join(args, " ")
	}
	if f.minQty >= 0 {
		qty := f.minQty
		c.MinQuantity = &qty
	}
	if f.maxQty >= 0 {
		qty := f.maxQty
		c.MaxQuantity = &qty
	}
	return c
}

var (
	searchFlags criteriaFlags
	searchJSONL bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find parts by name, tags, category or location",
	RunE:  runSearch,
}

func init() {
	searchFlags.register(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSONL, "jsonl", false, "Emit one JSON object per matching part")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}

	parts, err := e.searcher.Find(cmd.Context(), searchFlags.criteria(args))
	if err != nil {
		return reportErr(err)
	}
	if searchJSONL {
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, p := range parts {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	}
	if len(parts) == 0 {
		printer.Info("No parts match.\n")
		return nil
	}

	snap, err := e.repo.Snapshot(cmd.Context())
	if err != nil {
		return reportErr(err)
	}
	for _, p := range parts {
		location := "unlocated"
		if d, ok := snap.DrawerByID(p.DrawerID); ok {
			location = d.Label
			if r, ok := snap.RackByID(d.RackID); ok {
				location = fmt.Sprintf("%s / %s", r.Name, d.Label)
			}
		}
		printer.Printf("%-24s %-30s qty %-6d %s\n", p.ID, p.Name, p.Quantity, location)
	}
	printer.Info("%d part(s)\n", len(parts))
	return nil
}
