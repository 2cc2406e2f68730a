package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskboard-app/taskboard/internal/config"
	"github.com/taskboard-app/taskboard/internal/events"
)

// NewScanCmd creates the scan command, which asks the worker to run a
// scheduling scan immediately instead of waiting for the next tick.
func NewScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Request an immediate notification scheduling scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			bus, err := events.NewRabbitMQBus(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("connect to RabbitMQ: %w", err)
			}
			defer func() { _ = bus.Close() }()

			ev := events.NewEvent(events.EventScanRequested, uuid.Nil, nil)
			if err := bus.Publish(context.Background(), ev); err != nil {
				return fmt.Errorf("publish scan request: %w", err)
			}
			fmt.Println("Scan requested.")
			return nil
		},
	}
}
