package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/export"
	"github.com/picklight/picklight/internal/printer"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export the inventory and movement history as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	defer f.Close()

	if err := export.New(e.repo, e.ledger).WriteWorkbook(cmd.Context(), f); err != nil {
		return reportErr(err)
	}
	printer.Success("inventory exported to %s\n", args[0])
	return nil
}
