package main

import (
	"fmt"
	"os"

	"birthday_notifier/internal/app"
	domainTelegram "birthday_notifier/internal/domain/telegram"
	"birthday_notifier/internal/infra/config"
	idb "birthday_notifier/internal/infra/database"
	"birthday_notifier/internal/infra/logger"
	infraMail "birthday_notifier/internal/infra/mail"
	"birthday_notifier/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "notifier",
	Short:         "Birthday notifier - emails the team about tomorrow's birthdays",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runOnceCmd)
	rootCmd.AddCommand(migrateCmd)
}

// bootstrap loads configuration, initializes logging and opens the store.
func bootstrap() (*config.AppConfig, *idb.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	logger.Log.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"db_driver":   cfg.DatabaseDriver,
	}).Info("Configuration loaded")

	store, err := idb.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to database: %w", err)
	}
	logger.Log.Info("Database connection established successfully.")
	return cfg, store, nil
}

// newTelegram returns the bot and team broadcaster. Both are nil when the bot
// is not configured; the broadcaster is nil when no team chat is set.
func newTelegram(cfg *config.AppConfig) (*telebot.Bot, domainTelegram.Broadcaster, error) {
	if !cfg.TelegramEnabled() {
		return nil, nil, nil
	}
	bot, err := telegram.NewBot(cfg.TelegramToken, logger.For("telegram"))
	if err != nil {
		return nil, nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	if cfg.TelegramTeamChatID == 0 {
		return bot, nil, nil
	}
	return bot, telegram.NewTelebotAdapter(bot, cfg.TelegramTeamChatID), nil
}

func newBirthdayJob(cfg *config.AppConfig, store *idb.Store, broadcaster domainTelegram.Broadcaster) (*app.BirthdayJob, error) {
	mailer, err := infraMail.NewSender(cfg, logger.For("mail"))
	if err != nil {
		return nil, err
	}
	return app.NewBirthdayJob(
		store.Users,
		store.Ledger,
		mailer,
		broadcaster,
		logger.For("birthday_job"),
		app.JobOptions{
			SendTimeout:     cfg.MailSendTimeout,
			SendConcurrency: cfg.MailConcurrency,
			LedgerAttempts:  cfg.LedgerWriteAttempts,
			LedgerTimeout:   cfg.LedgerTimeout,
		},
	), nil
}
