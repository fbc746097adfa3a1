package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/classifier"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/pipeline"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/upstream/gemini"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
)

func (c *cli) fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the ingestion pipeline once and print the batch without storing it",
		Long: `Fetch issues every configured query to the upstream provider, parses,
deduplicates, truncates and classifies the results, and prints the batch as
YAML. Nothing is written to the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Upstream.APIKey == "" {
				return errors.New("no upstream API key configured (set GEMINI_API_KEY)")
			}
			m := metrics.New(prometheus.NewRegistry())
			gen := gemini.New(c.cfg.Upstream, gemini.WithMetrics(m))
			p := pipeline.New(gen, c.cfg.Pipeline, classifier.New(c.cfg.Classifier), pipeline.WithMetrics(m))

			batch, err := p.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(batch)
		},
	}
	return cmd
}
