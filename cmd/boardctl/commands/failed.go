package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskboard-app/taskboard/internal/config"
	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/models"
)

// NewFailedCmd creates the failed command, which lists notifications that
// exhausted their retries.
func NewFailedCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List notifications that exhausted their retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			repo := database.NewNotificationRepository(db, models.DefaultRetryPolicy, cfg.ClaimLease)
			failed, err := repo.ListFailed(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("list failed notifications: %w", err)
			}
			if len(failed) == 0 {
				fmt.Println("No failed notifications.")
				return nil
			}
			for _, n := range failed {
				fmt.Printf("%s  task=%s  %s/%s  retries=%d  last_error=%s\n",
					n.ID, n.TaskID, n.Type, n.Channel, n.RetryCount, n.LastError)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows to list")
	return cmd
}
