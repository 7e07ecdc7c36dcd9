package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/picklight/picklight/internal/light"
	"github.com/picklight/picklight/internal/printer"
	"github.com/picklight/picklight/internal/webui"
	"github.com/picklight/picklight/internal/wled"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI and JSON API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	gateway := wled.NewClient(
		wled.WithTimeout(e.cfg.Lights.Timeout),
		wled.WithLogger(log.Named("wled")),
	)

	opts := []webui.Option{webui.WithLogger(log.Named("webui"))}
	if e.cfg.Metrics.Enabled {
		opts = append(opts, webui.WithMetrics())
	}
	server, err := webui.New(e.repo, e.searcher, light.New(e.repo), gateway, e.ledger, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer.Info("serving on http://%s\n", e.cfg.Server.Listen)
	if err := server.ListenAndServe(ctx, e.cfg.Server.Listen); err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		printer.Info("shut down\n")
		return nil
	}
	return nil
}
