package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"birthday_notifier/internal/app"
	"birthday_notifier/internal/domain/notification"
	"birthday_notifier/internal/domain/user"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// UserAdmin is the part of app.UserService exposed over HTTP.
type UserAdmin interface {
	AddUser(ctx context.Context, in user.NewUser) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
	RunStatus(ctx context.Context, date string) (*notification.Run, error)
	RecentRuns(ctx context.Context, limit int) ([]*notification.Run, error)
}

type Controller struct {
	svc    UserAdmin
	logger *logrus.Entry
}

func NewController(svc UserAdmin, logger *logrus.Entry) *Controller {
	return &Controller{svc: svc, logger: logger}
}

// Register mounts the API routes on e.
func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/users", h.createUser)
	g.GET("/users", h.listUsers)
	g.GET("/runs", h.listRuns)
	g.GET("/runs/:date", h.getRun)
}

type userResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserResponse(u *user.User) userResponse {
	resp := userResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
	if !u.DateOfBirth.IsZero() {
		resp.DateOfBirth = u.DateOfBirth.Format(user.DateLayout)
	}
	return resp
}

type runResponse struct {
	TargetDate     string    `json:"target_date"`
	BirthdayPeople []string  `json:"birthday_people"`
	SentTo         []string  `json:"sent_to"`
	CreatedAt      time.Time `json:"created_at"`
}

func toRunResponse(r *notification.Run) runResponse {
	resp := runResponse{
		TargetDate:     r.TargetDate,
		BirthdayPeople: r.BirthdayPeople,
		SentTo:         r.SentTo,
		CreatedAt:      r.CreatedAt,
	}
	if resp.BirthdayPeople == nil {
		resp.BirthdayPeople = []string{}
	}
	if resp.SentTo == nil {
		resp.SentTo = []string{}
	}
	return resp
}

func (h *Controller) createUser(c echo.Context) error {
	var req user.NewUser
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
	}
	// AddUser normalizes before validating.
	u, err := h.svc.AddUser(c.Request().Context(), req)
	if err != nil {
		return h.writeUserError(c, err)
	}
	h.logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("User created via API")
	return c.JSON(http.StatusCreated, toUserResponse(u))
}

func (h *Controller) writeUserError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.JSON(http.StatusBadRequest, validationResponse(verrs))
	case errors.Is(err, app.ErrUserAlreadyExists):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, app.ErrFutureBirthDate), errors.Is(err, app.ErrInvalidDate):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.logger.WithError(err).Error("Failed to create user")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func (h *Controller) listUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list users")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Controller) listRuns(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = n
	}
	runs, err := h.svc.RecentRuns(c.Request().Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, toRunResponse(r))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Controller) getRun(c echo.Context) error {
	run, err := h.svc.RunStatus(c.Request().Context(), c.Param("date"))
	switch {
	case errors.Is(err, app.ErrInvalidDate):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, notification.ErrRunNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no run recorded for this date"})
	case err != nil:
		h.logger.WithError(err).Error("Failed to read run")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(http.StatusOK, toRunResponse(run))
}
