package httpapi

import (
	"context"
	"net/http"
	"time"

	"birthday_notifier/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// Pinger reports storage health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// New builds the echo instance with middlewares, API routes, health and metrics.
func New(ctrl *Controller, db Pinger, logger *logrus.Entry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middlewares
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			}).Debug("HTTP request")
			return nil
		},
	}))

	ctrl.Register(e)

	// Health endpoint pings the database
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		status, code := "ok", http.StatusOK
		dbStatus := "ok"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "down"
			status, code = "degraded", http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]any{
			"status": status,
			"time":   time.Now().UTC().Format(time.RFC3339),
			"db":     dbStatus,
		})
	})
	e.GET("/metrics", metrics.Handler())

	return e
}
