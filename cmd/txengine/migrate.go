package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/iho/txengine/internal/infrastructure/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema used by the postgres exporter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DatabaseURL == "" {
				return errors.New("migrate requires DATABASE_URL")
			}
			if down {
				return postgres.RunMigrationsDown(a.cfg.DatabaseURL, a.log)
			}
			return postgres.RunMigrations(a.cfg.DatabaseURL, a.log)
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back the last migration")
	return cmd
}
