package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"birthday_notifier/internal/domain/birthday"
	"birthday_notifier/internal/domain/notification"
	"birthday_notifier/internal/domain/user"

	"github.com/go-playground/validator/v10"
)

// Custom application-level errors for the user service
var (
	ErrUserAlreadyExists = errors.New("user with this email already exists")
	ErrFutureBirthDate   = errors.New("date of birth is in the future")
	ErrInvalidDate       = errors.New("date must be in YYYY-MM-DD format")
)

const defaultRecentRuns = 30

// UserService backs the admin surfaces: directory writes and ledger reads.
type UserService struct {
	userRepo user.Repository
	ledger   notification.Ledger
	validate *validator.Validate
	now      func() time.Time
}

func NewUserService(ur user.Repository, ledger notification.Ledger) *UserService {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &UserService{
		userRepo: ur,
		ledger:   ledger,
		validate: v,
		now:      time.Now,
	}
}

// Validate checks a NewUser against its struct tags. The returned error is a
// validator.ValidationErrors when the record is malformed.
func (s *UserService) Validate(in user.NewUser) error {
	return s.validate.Struct(in)
}

// AddUser validates the record, rejects duplicate emails and stores the user.
func (s *UserService) AddUser(ctx context.Context, in user.NewUser) (*user.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = birthday.NormalizeEmail(in.Email)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)

	if err := s.Validate(in); err != nil {
		return nil, err
	}

	dob, err := time.Parse(user.DateLayout, in.DateOfBirth)
	if err != nil {
		return nil, ErrInvalidDate
	}
	now := s.now()
	if dob.After(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)) {
		return nil, ErrFutureBirthDate
	}

	_, err = s.userRepo.GetByEmail(ctx, in.Email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	u := &user.User{
		Name:        in.Name,
		Email:       in.Email,
		DateOfBirth: dob,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user in repository: %w", err)
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*user.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// RunStatus returns the recorded run for date, or notification.ErrRunNotFound.
func (s *UserService) RunStatus(ctx context.Context, date string) (*notification.Run, error) {
	if _, err := time.Parse(notification.DateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}
	return s.ledger.FindByDate(ctx, date)
}

func (s *UserService) RecentRuns(ctx context.Context, limit int) ([]*notification.Run, error) {
	if limit <= 0 || limit > 365 {
		limit = defaultRecentRuns
	}
	runs, err := s.ledger.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent runs: %w", err)
	}
	return runs, nil
}

// NextTargetDate is the date the next run will concern.
func (s *UserService) NextTargetDate() string {
	_, date := TargetDate(s.now())
	return date
}
