package main

import (
	"github.com/spf13/cobra"

	relay "github.com/coregx/brokerrelay"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured driver",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := bootstrap("migrate")
			if err != nil {
				return err
			}
			defer a.close()

			if err := relay.Migrate(a.db, a.cfg.Database.Driver); err != nil {
				return err
			}

			ver, dirty, err := relay.MigrationVersion(a.db, a.cfg.Database.Driver)
			if err != nil {
				return err
			}
			a.logger.Infof("Schema at version %d (dirty=%t)", ver, dirty)
			return nil
		},
	}
}
