package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"birthday_notifier/internal/domain/notification"
)

// SQLiteLedgerRepository stores the string lists as JSON arrays.
type SQLiteLedgerRepository struct {
	db *sql.DB
}

func NewSQLiteLedgerRepository(db *sql.DB) *SQLiteLedgerRepository {
	return &SQLiteLedgerRepository{db: db}
}

func (r *SQLiteLedgerRepository) FindByDate(ctx context.Context, date string) (*notification.Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, target_date, sent_to, birthday_people, created_at
		 FROM notification_runs WHERE target_date = ?`, date)
	run, err := scanSQLiteRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notification.ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting notification run by date: %w", err)
	}
	return run, nil
}

func (r *SQLiteLedgerRepository) RecordRun(ctx context.Context, run *notification.Run) error {
	sentTo, err := json.Marshal(nonNil(run.SentTo))
	if err != nil {
		return fmt.Errorf("error encoding sent_to: %w", err)
	}
	people, err := json.Marshal(nonNil(run.BirthdayPeople))
	if err != nil {
		return fmt.Errorf("error encoding birthday_people: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_runs (target_date, sent_to, birthday_people, created_at)
		 VALUES (?, ?, ?, ?)`,
		run.TargetDate, string(sentTo), string(people), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return notification.ErrRunAlreadyRecorded
		}
		return fmt.Errorf("error recording notification run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading notification run id: %w", err)
	}
	run.ID = id
	run.CreatedAt = now
	return nil
}

func (r *SQLiteLedgerRepository) ListRecent(ctx context.Context, limit int) ([]*notification.Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, target_date, sent_to, birthday_people, created_at
		 FROM notification_runs ORDER BY target_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing notification runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*notification.Run, 0)
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification runs: %w", err)
	}
	return runs, nil
}

func scanSQLiteRun(s rowScanner) (*notification.Run, error) {
	run := &notification.Run{}
	var sentTo, people string
	if err := s.Scan(&run.ID, &run.TargetDate, &sentTo, &people, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sentTo), &run.SentTo); err != nil {
		return nil, fmt.Errorf("error decoding sent_to: %w", err)
	}
	if err := json.Unmarshal([]byte(people), &run.BirthdayPeople); err != nil {
		return nil, fmt.Errorf("error decoding birthday_people: %w", err)
	}
	return run, nil
}
