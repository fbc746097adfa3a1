// Command alertctl is the operator CLI for the scam-alert store.
//
// Usage:
//
//	alertctl [--config configs/development.yaml] <command>
//
// Commands: fetch (dry-run ingestion), drain, list, stats, prune, migrate,
// request-refresh, version.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "alertctl",
		Short: "Operate the scam alert queue and public feed",
		Long: `alertctl runs the ingestion pipeline and drain cycle by hand and inspects
the alert store. It reads the same configuration file as the alerts service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			// stdout carries command output.
			slog.SetDefault(logger.New(os.Stderr, cfg.Logging.Level, "text"))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: built-in defaults and SA_* environment)")

	root.AddCommand(
		c.fetchCmd(),
		c.drainCmd(),
		c.listCmd(),
		c.statsCmd(),
		c.pruneCmd(),
		c.migrateCmd(),
		c.requestRefreshCmd(),
		versionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
