package main

import (
	"context"

	"birthday_notifier/internal/infra/logger"
	"birthday_notifier/internal/infra/scheduler"

	"github.com/spf13/cobra"
)

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Run the birthday job once and exit",
	Long:  "Runs a single tick for tomorrow's date. Safe to repeat: a date that was already notified is skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, err := bootstrap()
		if err != nil {
			return err
		}
		defer store.Close()

		_, broadcaster, err := newTelegram(cfg)
		if err != nil {
			return err
		}
		job, err := newBirthdayJob(cfg, store, broadcaster)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RunTimeout)
		defer cancel()
		_, err = scheduler.RunAndLog(ctx, job, logger.For("run_once"))
		return err
	},
}
