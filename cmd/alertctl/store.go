package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/app"
)

func (c *cli) openApp(cmd *cobra.Command) (*app.App, error) {
	return app.New(cmd.Context(), c.cfg, prometheus.NewRegistry())
}

func (c *cli) drainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run one drain cycle and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Drain.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var (
		limit  int
		oldest bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListPublic(cmd.Context(), limit, !oldest)
			if err != nil {
				return err
			}
			if records == nil {
				records = []alerts.PublicRecord{}
			}
			switch format {
			case "json":
				return printJSON(cmd, records)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(records)
			default:
				for _, r := range records {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n",
						r.ID, r.Timestamp.Format(time.RFC3339), r.Severity, r.Category, r.Title)
				}
				return nil
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 30, "maximum number of alerts (0 for all)")
	cmd.Flags().BoolVar(&oldest, "oldest-first", false, "order by ascending timestamp")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json, yaml")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print pending and public counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pending: %d\npublic:  %d\n", stats.Pending, stats.Public)
			return nil
		},
	}
}

func (c *cli) pruneCmd() *cobra.Command {
	var maxAge time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete public alerts older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 {
				maxAge = c.cfg.Retention.MaxAge
			}
			store, err := app.OpenStore(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.PrunePublic(cmd.Context(), time.Now().UTC().Add(-maxAge))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d alerts older than %s\n", n, maxAge)
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "age cutoff (default: retention.maxAge)")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the alert tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context(), c.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", c.cfg.Database.Driver)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
