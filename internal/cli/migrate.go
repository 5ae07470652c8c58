package cli

import (
	"github.com/spf13/cobra"

	"github.com/Rushigaming001/askify-sky-chat-sub002/internal/store"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if err := store.RunMigrations(cmd.Context(), cfg.DatabaseURL); err != nil {
				return err
			}
			log.Info("database migrations completed")
			return nil
		},
	}
}
