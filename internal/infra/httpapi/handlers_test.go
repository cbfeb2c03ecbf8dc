package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"birthday_notifier/internal/app"
	"birthday_notifier/internal/domain/notification"
	"birthday_notifier/internal/domain/user"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	users  []*user.User
	runs   map[string]*notification.Run
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{runs: map[string]*notification.Run{}}
}

func (m *memStore) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.users = append(m.users, u)
	return nil
}

func (m *memStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memStore) ListAll(ctx context.Context) ([]*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*user.User(nil), m.users...), nil
}

func (m *memStore) FindByDate(ctx context.Context, date string) (*notification.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[date]; ok {
		return r, nil
	}
	return nil, notification.ErrRunNotFound
}

func (m *memStore) RecordRun(ctx context.Context, r *notification.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.TargetDate] = r
	return nil
}

func (m *memStore) ListRecent(ctx context.Context, limit int) ([]*notification.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*notification.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetDate > out[j].TargetDate })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, ping error) (*echo.Echo, *memStore) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	logger := logrus.NewEntry(l)

	store := newMemStore()
	svc := app.NewUserService(store, store)
	e := New(NewController(svc, logger), pingerFunc(func(context.Context) error { return ping }), logger)
	return e, store
}

func doJSON(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateUser(t *testing.T) {
	e, store := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Alice", "email": "Alice@X.com", "date_of_birth": "1990-03-06",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice@x.com", got.Email)
	assert.Equal(t, "1990-03-06", got.DateOfBirth)
	assert.Len(t, store.users, 1)

	rec = doJSON(e, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Alice 2", "email": "alice@x.com", "date_of_birth": "1991-01-01",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateUser_Validation(t *testing.T) {
	e, store := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Bob", "email": "not-an-email", "date_of_birth": "03/06/1990",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "validation failed", got.Error)
	assert.Equal(t, "email", got.Fields["email"])
	assert.Equal(t, "datetime", got.Fields["date_of_birth"])
	assert.Empty(t, store.users)

	rec = doJSON(e, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Kid", "email": "kid@x.com", "date_of_birth": "2999-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	raw := httptest.NewRecorder()
	e.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestListUsers(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := doJSON(e, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	doJSON(e, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Alice", "email": "alice@x.com", "date_of_birth": "1990-03-06",
	})
	rec = doJSON(e, http.MethodGet, "/api/v1/users", nil)
	var got []userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Name)
}

func TestRuns(t *testing.T) {
	e, store := newTestServer(t, nil)
	store.runs["2024-03-06"] = &notification.Run{TargetDate: "2024-03-06", SentTo: []string{"bob@x.com"}, BirthdayPeople: []string{"Alice"}}
	store.runs["2024-03-07"] = &notification.Run{TargetDate: "2024-03-07"}

	rec := doJSON(e, http.MethodGet, "/api/v1/runs/2024-03-06", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var run runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, []string{"bob@x.com"}, run.SentTo)
	assert.Equal(t, []string{"Alice"}, run.BirthdayPeople)

	assert.Equal(t, http.StatusNotFound, doJSON(e, http.MethodGet, "/api/v1/runs/2024-03-08", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(e, http.MethodGet, "/api/v1/runs/tomorrow", nil).Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/runs?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "2024-03-07", runs[0].TargetDate)
	assert.Equal(t, []string{}, runs[0].SentTo)

	assert.Equal(t, http.StatusBadRequest, doJSON(e, http.MethodGet, "/api/v1/runs?limit=zero", nil).Code)
}

func TestHealthz(t *testing.T) {
	e, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, doJSON(e, http.MethodGet, "/healthz", nil).Code)

	down, _ := newTestServer(t, errors.New("db gone"))
	rec := doJSON(down, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db":"down"`)
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newTestServer(t, nil)
	doJSON(e, http.MethodGet, "/api/v1/users", nil)

	rec := doJSON(e, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "birthday_http_requests_total")
}

func TestCreateUser_NormalizesBeforeValidating(t *testing.T) {
	e, store := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/v1/users", map[string]string{
		"name": " Dana ", "email": " Dana@X.com ", "date_of_birth": " 1992-04-01 ",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, store.users, 1)
	assert.Equal(t, "dana@x.com", store.users[0].Email)
	assert.Equal(t, "Dana", store.users[0].Name)
}
