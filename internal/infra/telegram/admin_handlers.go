package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"birthday_notifier/internal/app"
	"birthday_notifier/internal/domain/notification"
	"birthday_notifier/internal/domain/user"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const unauthorizedText = "Error: you are not allowed to run this command."

// UserAdmin is the part of app.UserService the bot needs.
type UserAdmin interface {
	AddUser(ctx context.Context, in user.NewUser) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
	RunStatus(ctx context.Context, date string) (*notification.Run, error)
	NextTargetDate() string
}

// AdminCommands builds replies for admin commands.
type AdminCommands struct {
	svc    UserAdmin
	logger *logrus.Entry
}

func NewAdminCommands(svc UserAdmin, logger *logrus.Entry) *AdminCommands {
	return &AdminCommands{svc: svc, logger: logger}
}

// RegisterAdminHandlers registers handlers for admin commands.
// Only adminTelegramID may run them.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, cmds *AdminCommands, adminTelegramID int64) {
	handle := func(command string, reply func(ctx context.Context, args []string, logCtx *logrus.Entry) string) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := cmds.logger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")

			if c.Sender().ID != adminTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send(unauthorizedText)
			}
			return c.Send(reply(ctx, c.Args(), handlerLogger))
		})
	}

	handle("/add_user", cmds.AddUser)
	handle("/list_users", cmds.ListUsers)
	handle("/run_status", cmds.RunStatus)
}

// AddUser handles /add_user <email> <YYYY-MM-DD> <name...>.
func (a *AdminCommands) AddUser(ctx context.Context, args []string, logCtx *logrus.Entry) string {
	if len(args) < 3 {
		logCtx.WithField("args_count", len(args)).Warn("Invalid command format")
		return "Invalid format. Use: /add_user <email> <YYYY-MM-DD> <name>"
	}
	in := user.NewUser{
		Email:       args[0],
		DateOfBirth: args[1],
		Name:        strings.Join(args[2:], " "),
	}
	logCtx = logCtx.WithField("email", in.Email)

	u, err := a.svc.AddUser(ctx, in)
	if err != nil {
		logWithError := logCtx.WithError(err)
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			logWithError.Warn("Invalid user data")
			return "Error: " + describeValidation(verrs)
		case errors.Is(err, app.ErrUserAlreadyExists):
			logWithError.Warn("User already exists")
			return fmt.Sprintf("Error: a user with email %s already exists.", in.Email)
		case errors.Is(err, app.ErrFutureBirthDate), errors.Is(err, app.ErrInvalidDate):
			logWithError.Warn("Invalid date of birth")
			return "Error: " + err.Error() + "."
		default:
			logWithError.Error("Failed to add user")
			return "Failed to add user. Check the logs."
		}
	}

	logCtx.WithField("user_id", u.ID).Info("User added successfully")
	return fmt.Sprintf("Added %s <%s>, born %s.", u.Name, u.Email, u.DateOfBirth.Format(user.DateLayout))
}

// ListUsers handles /list_users.
func (a *AdminCommands) ListUsers(ctx context.Context, _ []string, logCtx *logrus.Entry) string {
	users, err := a.svc.ListUsers(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to get list of users")
		return "Failed to list users. Check the logs."
	}
	if len(users) == 0 {
		return "The directory is empty."
	}

	logCtx.WithField("users_count", len(users)).Info("Successfully retrieved user list")
	var response strings.Builder
	fmt.Fprintf(&response, "Users (%d):\n", len(users))
	for i, u := range users {
		dob := "unknown"
		if !u.DateOfBirth.IsZero() {
			dob = u.DateOfBirth.Format(user.DateLayout)
		}
		fmt.Fprintf(&response, "%d. %s <%s> %s\n", i+1, u.Name, u.Email, dob)
	}
	return response.String()
}

// RunStatus handles /run_status [YYYY-MM-DD].
func (a *AdminCommands) RunStatus(ctx context.Context, args []string, logCtx *logrus.Entry) string {
	date := a.svc.NextTargetDate()
	if len(args) > 0 {
		date = args[0]
	}
	logCtx = logCtx.WithField("target_date", date)

	run, err := a.svc.RunStatus(ctx, date)
	switch {
	case errors.Is(err, app.ErrInvalidDate):
		return "Error: date must be in YYYY-MM-DD format."
	case errors.Is(err, notification.ErrRunNotFound):
		return fmt.Sprintf("No reminders recorded for %s yet.", date)
	case err != nil:
		logCtx.WithError(err).Error("Failed to read run status")
		return "Failed to read run status. Check the logs."
	}

	var response strings.Builder
	fmt.Fprintf(&response, "Reminders for %s sent at %s.\n", run.TargetDate, run.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(&response, "Birthdays: %s\n", joinOrNone(run.BirthdayPeople))
	fmt.Fprintf(&response, "Delivered to %d recipient(s).", len(run.SentTo))
	return response.String()
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, strings.ToLower(fe.Field())+" is required")
		case "email":
			parts = append(parts, "email is not valid")
		case "datetime":
			parts = append(parts, "date of birth must be YYYY-MM-DD")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
