package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birthday_notifier/internal/domain/notification"
	"birthday_notifier/internal/domain/user"
	"birthday_notifier/internal/infra/config"
	"birthday_notifier/internal/infra/database"
)

func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	cfg := &config.AppConfig{
		DatabaseDriver: config.DriverSQLite,
		SQLitePath:     filepath.Join(t.TempDir(), "test.db"),
	}
	store, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(store.DB, store.Driver, "up", nil))
	t.Cleanup(func() { store.Close() })
	return store
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(user.DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestSQLiteUserRepository_CreateAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := &user.User{Name: "Alice", Email: "alice@x.com", DateOfBirth: mustDate(t, "1990-03-05")}
	bob := &user.User{Name: "Bob", Email: "bob@x.com", DateOfBirth: mustDate(t, "1985-03-06")}
	require.NoError(t, store.Users.Create(ctx, alice))
	require.NoError(t, store.Users.Create(ctx, bob))
	assert.NotZero(t, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())

	users, err := store.Users.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)
	assert.Equal(t, "1990-03-05", users[0].DateOfBirth.Format(user.DateLayout))
	assert.Equal(t, "bob@x.com", users[1].Email)
}

func TestSQLiteUserRepository_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Users.Create(ctx, &user.User{Name: "A", Email: "dup@x.com", DateOfBirth: mustDate(t, "1990-01-01")}))
	err := store.Users.Create(ctx, &user.User{Name: "B", Email: "dup@x.com", DateOfBirth: mustDate(t, "1990-01-02")})
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestSQLiteUserRepository_GetByEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Users.Create(ctx, &user.User{Name: "Carol", Email: "carol@x.com", DateOfBirth: mustDate(t, "2000-03-06")}))

	u, err := store.Users.GetByEmail(ctx, "CAROL@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Carol", u.Name)

	_, err = store.Users.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestSQLiteUserRepository_UnparseableDateOfBirth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, date_of_birth, created_at) VALUES (?, ?, ?, ?)`,
		"Legacy", "legacy@x.com", "someday", time.Now().UTC())
	require.NoError(t, err)

	users, err := store.Users.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].DateOfBirth.IsZero())
}

func TestSQLiteLedgerRepository_RecordAndFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Ledger.FindByDate(ctx, "2024-03-06")
	assert.ErrorIs(t, err, notification.ErrRunNotFound)

	run := &notification.Run{
		TargetDate:     "2024-03-06",
		SentTo:         []string{"alice@x.com"},
		BirthdayPeople: []string{"Bob", "Carol"},
	}
	require.NoError(t, store.Ledger.RecordRun(ctx, run))
	assert.NotZero(t, run.ID)

	got, err := store.Ledger.FindByDate(ctx, "2024-03-06")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@x.com"}, got.SentTo)
	assert.Equal(t, []string{"Bob", "Carol"}, got.BirthdayPeople)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteLedgerRepository_DuplicateDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ledger.RecordRun(ctx, &notification.Run{TargetDate: "2024-03-06"}))
	err := store.Ledger.RecordRun(ctx, &notification.Run{TargetDate: "2024-03-06", SentTo: []string{"x@y.com"}})
	assert.ErrorIs(t, err, notification.ErrRunAlreadyRecorded)

	got, err := store.Ledger.FindByDate(ctx, "2024-03-06")
	require.NoError(t, err)
	assert.Empty(t, got.SentTo)
}

func TestSQLiteLedgerRepository_ListRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2024-03-05", "2024-03-07", "2024-03-06"} {
		require.NoError(t, store.Ledger.RecordRun(ctx, &notification.Run{TargetDate: d}))
	}

	runs, err := store.Ledger.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "2024-03-07", runs[0].TargetDate)
	assert.Equal(t, "2024-03-06", runs[1].TargetDate)
}

func TestMigrate_UnknownCommand(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, database.Migrate(store.DB, store.Driver, "sideways", nil))
	assert.Error(t, database.Migrate(store.DB, "oracle", "up", nil))
}
