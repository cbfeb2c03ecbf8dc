package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"birthday_notifier/internal/app"
	idb "birthday_notifier/internal/infra/database"
	"birthday_notifier/internal/infra/httpapi"
	"birthday_notifier/internal/infra/logger"
	"birthday_notifier/internal/infra/scheduler"
	"birthday_notifier/internal/infra/telegram"

	"github.com/spf13/cobra"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, HTTP API and Telegram bot until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply pending migrations before starting")
}

func serve() error {
	cfg, store, err := bootstrap()
	if err != nil {
		return err
	}
	defer store.Close()
	mainLogger := logger.For("main")

	if migrateOnStart {
		if err := idb.Migrate(store.DB, store.Driver, "up", logger.Log); err != nil {
			return err
		}
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, broadcaster, err := newTelegram(cfg)
	if err != nil {
		return err
	}
	job, err := newBirthdayJob(cfg, store, broadcaster)
	if err != nil {
		return err
	}
	userService := app.NewUserService(store.Users, store.Ledger)

	birthdayScheduler := scheduler.NewBirthdayScheduler(job, logger.For("scheduler"), cfg.CronSpecBirthday, cfg.RunTimeout)
	if err := birthdayScheduler.Start(); err != nil {
		return err
	}
	defer birthdayScheduler.Stop()

	if bot != nil {
		telegram.RegisterBotCommands(bot, cfg.TelegramAdminID, logger.For("telegram"))
		if cfg.TelegramAdminID != 0 {
			cmds := telegram.NewAdminCommands(userService, logger.For("telegram_admin"))
			telegram.RegisterAdminHandlers(ctx, bot, cmds, cfg.TelegramAdminID)
			mainLogger.Info("Admin command handlers registered.")
		}
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
		defer bot.Stop()
	}

	if cfg.HTTPAddr != "" {
		e := httpapi.New(httpapi.NewController(userService, logger.For("http")), store.DB, logger.For("http"))
		go func() {
			if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mainLogger.WithError(err).Error("HTTP server error")
				stop()
			}
		}()
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				mainLogger.WithError(err).Error("HTTP shutdown error")
			}
		}()
	}

	mainLogger.Info("Application setup complete. Scheduler is running.")
	<-ctx.Done() // Block until a signal is received
	mainLogger.Info("Shutting down application...")
	return nil
}
