package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskboard-app/taskboard/internal/config"
	"github.com/taskboard-app/taskboard/internal/database"
)

// NewPrefsCmd creates the prefs command with a show subcommand
func NewPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect a user's notification channel preferences",
	}
	cmd.AddCommand(newPrefsShowCmd())
	return cmd
}

func newPrefsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show the channel preferences applied to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user ID: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			repo := database.NewPreferencesRepository(db)
			prefs, err := repo.GetByUserID(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("get preferences: %w", err)
			}

			fmt.Printf("Preferences for %s:\n", userID)
			fmt.Printf("  email:    enabled=%v address=%q\n", prefs.EmailEnabled, prefs.EmailAddress)
			fmt.Printf("  telegram: enabled=%v chat_id=%q\n", prefs.TelegramEnabled, prefs.TelegramChatID)
			fmt.Printf("  in_app:   enabled=%v\n", prefs.InAppEnabled)
			fmt.Printf("  effective channels: %v\n", prefs.EnabledChannels())
			return nil
		},
	}
}
