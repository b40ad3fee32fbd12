package middleware

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
	"github.com/j4b6ski/oioioi/internal/logger"
)

// Requirement a route places on the authenticated user. Contest level roles
// are decided by the contest service, not here.
type Requirement struct {
	Superuser bool
}

// Checks that the user satisfies everything `needed` asks for
func hasPermission(
	ctx context.Context,
	needed Requirement,
	user *models.User,
	l *slog.Logger,
) bool {
	_, span := tracer.Start(ctx, "hasPermission")
	defer span.End()

	if user == nil {
		l.DebugContext(ctx, "anonymous request")
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "anonymous")
		return false
	}

	l.DebugContext(ctx, "comparing permissions", "needed", needed, "user", user.ID.String())

	if needed.Superuser && !user.Superuser {
		l.DebugContext(ctx, "missing superuser")
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "missing permission")
		return false
	}

	l.DebugContext(ctx, "granting access")
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "granting access")
	return true
}

// The user stored under `userKey` must exist and satisfy `needed`
func HasPermissions(userKey string, needed Requirement) echo.MiddlewareFunc {
	l := logger.Logger.With("userKey", userKey, "needed", needed)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "HasPermissions", trace.WithAttributes(
				attribute.String("userKey", userKey),
			))
			defer span.End()

			user, _ := c.Get(userKey).(*models.User)
			if user == nil {
				span.RecordError(nil)
				span.SetStatus(codes.Ok, "unauthenticated")
				return response.UnauthorizedError
			}

			if !hasPermission(ctx, needed, user, l) {
				span.RecordError(nil)
				span.SetStatus(codes.Ok, "not permitted")
				return response.NotPermittedError
			}

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "checked permissions")
			return next(c)
		}
	}
}
