package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/printer"
	"github.com/picklight/picklight/internal/scaffold"
)

var (
	initRoot  string
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new picklight project",
	Long: `Initialize a new picklight project in the current directory (or --root).

Creates:
  • picklight.yml - Project configuration file
  • data/master/ - Empty master data collections
  • data/movements/ - Movement ledger directory
  • data/indexes/ - Derived index directory
  • data/schema/ - Validation schemas

Existing data files are never overwritten. Use --force to refresh the
schema documents after an upgrade; stored records are left alone.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initRoot, "root", ".", "Directory to initialize")
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite schema documents with the embedded versions")
	rootCmd.AddCommand(initCmd)
}

const defaultConfig = `version: "1.0"
data:
  root: .
server:
  listen: 127.0.0.1:8090
lights:
  timeout: 5s
metrics:
  enabled: false
`

func runInit(cmd *cobra.Command, args []string) error {
	if err := scaffold.Initialize(initRoot, forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	cfgPath := configPath
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := os.WriteFile(cfgPath, []byte(defaultConfig), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfgPath, err)
		}
		printer.Success("created %s\n", cfgPath)
	}

	printer.Success("data directory ready under %s\n", initRoot)
	printer.Info("Next steps:\n")
	printer.Info("  1. Add racks and drawers to data/master/\n")
	printer.Info("  2. Run 'picklight serve' for the web UI\n")
	return nil
}
