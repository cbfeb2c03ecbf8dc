package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"birthday_notifier/internal/domain/user"
)

type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, date_of_birth, created_at) VALUES (?, ?, ?, ?)`,
		u.Name, u.Email, u.DateOfBirth.Format(user.DateLayout), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrDuplicateEmail
		}
		return fmt.Errorf("error creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading user id: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	return nil
}

func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, date_of_birth, created_at
		 FROM users WHERE lower(email) = lower(?) ORDER BY id LIMIT 1`, email)
	u, err := scanSQLiteUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteUserRepository) ListAll(ctx context.Context) ([]*user.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, date_of_birth, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(s rowScanner) (*user.User, error) {
	u := &user.User{}
	var dob string
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &dob, &u.CreatedAt); err != nil {
		return nil, err
	}
	// Unparseable dates are left zero so the user never matches a birthday.
	if d, err := time.Parse(user.DateLayout, dob); err == nil {
		u.DateOfBirth = d
	}
	return u, nil
}
