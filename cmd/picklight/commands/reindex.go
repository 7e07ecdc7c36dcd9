package commands

import (
	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/printer"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the derived search indexes",
	Long: `Regenerate the tag, category and drawer indexes from the current parts
file. Indexes are caches: search falls back to a full scan while they are
stale, so reindexing is an optimization, never a correctness requirement.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	if err := e.searcher.Rebuild(cmd.Context()); err != nil {
		return reportErr(err)
	}
	printer.Success("indexes rebuilt\n")
	return nil
}
