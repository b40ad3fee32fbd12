package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	servermiddleware "github.com/j4b6ski/oioioi/cmd/server/internal/middleware"
	"github.com/j4b6ski/oioioi/internal/validator"
)

// `now` may be nil to use the wall clock
func BuildEcho(logger *slog.Logger, now func() time.Time) (*echo.Echo, error) {
	e := echo.New()

	validate := validator.Create()
	e.Validator = &validate

	e.Pre(middleware.AddTrailingSlash())

	e.Use(
		otelecho.Middleware("contest-engine"),
		slogecho.NewWithConfig(logger, slogecho.Config{}),
		servermiddleware.Time(servermiddleware.TimeKey, now),
	)

	e.GET("/health/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	return e, nil
}
