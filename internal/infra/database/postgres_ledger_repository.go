package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"birthday_notifier/internal/domain/notification"

	"github.com/lib/pq" // For pq.Array
)

type PostgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

func (r *PostgresLedgerRepository) FindByDate(ctx context.Context, date string) (*notification.Run, error) {
	query := `SELECT id, target_date, sent_to, birthday_people, created_at
               FROM notification_runs WHERE target_date = $1`
	run := notification.Run{}
	err := r.db.QueryRowContext(ctx, query, date).Scan(
		&run.ID, &run.TargetDate, pq.Array(&run.SentTo), pq.Array(&run.BirthdayPeople), &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notification.ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting notification run by date: %w", err)
	}
	return &run, nil
}

func (r *PostgresLedgerRepository) RecordRun(ctx context.Context, run *notification.Run) error {
	query := `INSERT INTO notification_runs (target_date, sent_to, birthday_people)
               VALUES ($1, $2, $3)
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		run.TargetDate, pq.Array(nonNil(run.SentTo)), pq.Array(nonNil(run.BirthdayPeople)),
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return notification.ErrRunAlreadyRecorded
		}
		return fmt.Errorf("error recording notification run: %w", err)
	}
	return nil
}

func (r *PostgresLedgerRepository) ListRecent(ctx context.Context, limit int) ([]*notification.Run, error) {
	query := `SELECT id, target_date, sent_to, birthday_people, created_at
               FROM notification_runs ORDER BY target_date DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing notification runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*notification.Run, 0)
	for rows.Next() {
		run := &notification.Run{}
		if err := rows.Scan(&run.ID, &run.TargetDate, pq.Array(&run.SentTo), pq.Array(&run.BirthdayPeople), &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning notification run: %w", err)
		}
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification runs: %w", err)
	}
	return runs, nil
}

// nonNil keeps NOT NULL array columns from receiving a SQL NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
