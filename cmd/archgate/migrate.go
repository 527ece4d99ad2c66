package main

import (
	"errors"

	"github.com/spf13/cobra"

	"archgate/internal/platform/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("migrate requires DATABASE_URL")
			}
			env := newRuntimeEnv(cfg)
			ctx := cmd.Context()

			db, err := postgres.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.Migrate(ctx, db, env.logger)
			if err != nil {
				return err
			}
			env.logger.InfoContext(ctx, "migrations complete", "applied", len(applied))
			for _, v := range applied {
				cmd.Println(v)
			}
			return nil
		},
	}
}
