package main

import (
	idb "birthday_notifier/internal/infra/database"
	"birthday_notifier/internal/infra/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Manage the database schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := bootstrap()
		if err != nil {
			return err
		}
		defer store.Close()
		return idb.Migrate(store.DB, store.Driver, args[0], logger.Log)
	},
}
