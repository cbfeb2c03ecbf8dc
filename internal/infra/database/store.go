package database

import (
	"database/sql"
	"fmt"

	"birthday_notifier/internal/domain/notification"
	"birthday_notifier/internal/domain/user"
	"birthday_notifier/internal/infra/config"
)

// Store bundles the connection and the repositories for the configured backend.
type Store struct {
	DB     *sql.DB
	Driver string
	Users  user.Repository
	Ledger notification.Ledger
}

// Open connects to the backend selected by cfg.DatabaseDriver.
func Open(cfg *config.AppConfig) (*Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, err := NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Store{
			DB:     db,
			Driver: config.DriverPostgres,
			Users:  NewPostgresUserRepository(db),
			Ledger: NewPostgresLedgerRepository(db),
		}, nil
	case config.DriverSQLite:
		db, err := NewSQLiteConnection(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{
			DB:     db,
			Driver: config.DriverSQLite,
			Users:  NewSQLiteUserRepository(db),
			Ledger: NewSQLiteLedgerRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func (s *Store) Close() error {
	return s.DB.Close()
}
