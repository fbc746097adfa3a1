package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/events"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/kafka"
)

func (c *cli) requestRefreshCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "request-refresh",
		Short: "Ask running services to run a drain cycle via kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.cfg.Kafka.Enabled {
				return errors.New("kafka is disabled (set kafka.enabled or SA_KAFKA_BROKERS)")
			}
			producer := kafka.NewProducer(c.cfg.Kafka, c.cfg.Kafka.Topics.RefreshRequests)
			defer producer.Close()

			if err := events.RequestRefresh(cmd.Context(), producer, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refresh requested on %s\n", producer.Topic())
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "operator", "reason recorded on the request")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of alertctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "alertctl %s\n", version)
		},
	}
}
