package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	MailProviderSendGrid = "sendgrid"
	MailProviderSMTP     = "smtp"
	MailProviderLog      = "log"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	LogLevel    string
	Environment string

	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	CronSpecBirthday string
	RunTimeout       time.Duration

	MailProvider           string
	MailFrom               string
	SendGridAPIKey         string
	SendGridBaseURL        string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	MailSendTimeout        time.Duration
	MailConcurrency        int
	MailBreakerMaxFailures uint32
	MailBreakerOpenTimeout time.Duration

	LedgerWriteAttempts int
	LedgerTimeout       time.Duration

	HTTPAddr string

	TelegramToken      string
	TelegramTeamChatID int64
	TelegramAdminID    int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables that are already set.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.DatabaseDriver = strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres))
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case DriverSQLite:
		cfg.SQLitePath = getEnv("SQLITE_PATH", "birthdays.db")
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or sqlite)", cfg.DatabaseDriver)
	}

	cfg.CronSpecBirthday = getEnv("CRON_SPEC_BIRTHDAY", "*/30 * * * *")
	if cfg.RunTimeout, err = getDuration("RUN_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.MailProvider = strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderSendGrid))
	cfg.MailFrom = getEnv("MAIL_FROM", os.Getenv("SENDGRID_SENDER_EMAIL"))
	cfg.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	cfg.SendGridBaseURL = strings.TrimRight(getEnv("SENDGRID_BASE_URL", "https://api.sendgrid.com"), "/")
	cfg.SMTPHost = getEnv("SMTP_HOST", "localhost")
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 1025); err != nil {
		return nil, err
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")

	switch cfg.MailProvider {
	case MailProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is not set")
		}
		if cfg.MailFrom == "" {
			return nil, fmt.Errorf("MAIL_FROM is not set")
		}
	case MailProviderSMTP:
		if cfg.MailFrom == "" {
			return nil, fmt.Errorf("MAIL_FROM is not set")
		}
	case MailProviderLog:
	default:
		return nil, fmt.Errorf("unsupported MAIL_PROVIDER %q (want sendgrid, smtp or log)", cfg.MailProvider)
	}

	if cfg.MailSendTimeout, err = getDuration("MAIL_SEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.MailConcurrency, err = getInt("MAIL_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.MailConcurrency < 1 {
		return nil, fmt.Errorf("MAIL_CONCURRENCY must be at least 1")
	}
	maxFailures, err := getInt("MAIL_BREAKER_MAX_FAILURES", 5)
	if err != nil {
		return nil, err
	}
	if maxFailures < 1 {
		return nil, fmt.Errorf("MAIL_BREAKER_MAX_FAILURES must be at least 1")
	}
	cfg.MailBreakerMaxFailures = uint32(maxFailures)
	if cfg.MailBreakerOpenTimeout, err = getDuration("MAIL_BREAKER_OPEN_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	if cfg.LedgerWriteAttempts, err = getInt("LEDGER_WRITE_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.LedgerWriteAttempts < 1 {
		return nil, fmt.Errorf("LEDGER_WRITE_ATTEMPTS must be at least 1")
	}
	if cfg.LedgerTimeout, err = getDuration("LEDGER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	// An explicitly empty HTTP_ADDR disables the HTTP API.
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	} else {
		cfg.HTTPAddr = ":8080"
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramTeamChatID, err = getInt64("TELEGRAM_TEAM_CHAT_ID"); err != nil {
		return nil, err
	}
	if cfg.TelegramAdminID, err = getInt64("TELEGRAM_ADMIN_ID"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// TelegramEnabled reports whether a bot token is configured and the bot has
// something to do.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != "" && (c.TelegramTeamChatID != 0 || c.TelegramAdminID != 0)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func getInt64(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
