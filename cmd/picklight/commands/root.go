package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/picklight/picklight/internal/config"
	"github.com/picklight/picklight/internal/inventory"
	"github.com/picklight/picklight/internal/master"
	"github.com/picklight/picklight/internal/movement"
	"github.com/picklight/picklight/internal/printer"
	"github.com/picklight/picklight/internal/schema"
	"github.com/picklight/picklight/internal/search"
	"github.com/picklight/picklight/internal/store"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "picklight",
	Short: "Picklight - pick-by-light parts inventory",
	Long: `Picklight tracks small parts in LED-equipped storage racks and lights
up the drawers that match a search, so the right part is found by looking
for the green light instead of reading labels.

All data lives in plain JSON files validated against schemas; there is no
database to run.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to picklight.yml")
}

// env bundles the opened services every data command needs.
type env struct {
	cfg      *config.Config
	dataDir  string
	registry *schema.Registry
	repo     *master.Repository
	ledger   *movement.Ledger
	svc      *inventory.Service
	searcher *search.Searcher
}

// openEnv loads the configuration and binds the repositories.
func openEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"Cannot load configuration",
			err.Error(),
			[]string{"Run 'picklight init' to create a new project here", "Point --config at an existing picklight.yml"},
		)
	}

	dataDir := filepath.Join(cfg.Data.Root, "data")
	registry, err := schema.NewRegistry(filepath.Join(dataDir, "schema"))
	if err != nil {
		return nil, printer.Error(
			"Cannot load schemas",
			err.Error(),
			[]string{"Run 'picklight init' to provision the schema directory"},
		)
	}

	ledger, err := movement.Open(dataDir, registry)
	if err != nil {
		return nil, err
	}
	repo, err := master.Open(dataDir, registry, master.WithHistory(ledger))
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:      cfg,
		dataDir:  dataDir,
		registry: registry,
		repo:     repo,
		ledger:   ledger,
		svc:      inventory.New(repo, ledger),
		searcher: search.New(repo, dataDir, registry),
	}, nil
}

// reportErr translates the typed errors into actionable CLI messages.
func reportErr(err error) error {
	// Checked before the plain conflict case: once the ledger record is in,
	// re-running the command would record the stock change twice.
	var stale *inventory.SnapshotUpdateError
	if errors.As(err, &stale) {
		return printer.Error(
			"Stock change recorded, snapshot not updated",
			err.Error(),
			[]string{
				"Do not re-run the command; the change is already in the ledger",
				fmt.Sprintf("Run 'picklight qoh %s' to see the authoritative quantity", stale.PartID),
			},
		)
	}
	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		return printer.Conflict(conflict.File)
	}
	var validation *store.ValidationError
	if errors.As(err, &validation) {
		return printer.Error(
			"Data validation failed",
			err.Error(),
			[]string{"Fix the named field and try again"},
		)
	}
	if master.IsReferentialIntegrity(err) {
		return printer.Error(
			"Delete blocked by references",
			err.Error(),
			[]string{"Pass --cascade to detach the referencing records"},
		)
	}
	return err
}
