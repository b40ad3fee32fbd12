package middleware

import (
	"context"
	"errors"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
	"github.com/j4b6ski/oioioi/internal/logger"
)

// Used when doing a fake compare in the error case of BasicAuthValidator
var defaultHashForError string

const name string = "github.com/j4b6ski/oioioi/cmd/server/internal/middleware"

var tracer = otel.Tracer(name)

// Context key holding the authenticated *models.User
const UserKey = "user"

// Generate a hash
func init() {
	var err error

	defaultHashForError, err = argon2id.CreateHash(
		"bnZSraUCS+nZh3MI8F3iiXbKFBcAyJhvAB6u/GBJzhC00ZPAQlyYVpQ+aryw7QvE2ZI=",
		argon2id.DefaultParams,
	)
	if err != nil {
		logger.Logger.Error("error creating default hash", "error", err)
		os.Exit(1)
	}
}

// Does a fake hash and compare for a hard coded password. Used when BasicAuthValidator hits an error or a nonexistent user.
func fakePasswordHash(ctx context.Context) {
	_, span := tracer.Start(ctx, "fakePasswordHash")
	defer span.End()

	_, err := argon2id.ComparePasswordAndHash("i am a very real password", defaultHashForError)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compare fake password with default hash for error")
		return
	}

	span.AddEvent("compared fake password and default hash for error")
}

// Queries a nonexistent user from the database. Used when BasicAuthValidator is provided an invalid UUID.
func fakeDBQuery(ctx context.Context, db *gorm.DB) {
	ctx, span := tracer.Start(ctx, "fakeDBQuery")
	defer span.End()

	db = db.WithContext(ctx)

	fakeID := uuid.New()
	_, err := models.ByID[models.User](ctx, db, fakeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make fake db query")
		return
	}

	span.AddEvent("completed database query for fake id")
}

// Validates a basic auth against the database
func (h *Handler) BasicAuthValidator(rawID, token string, c echo.Context) (bool, error) {
	ctx, span := tracer.Start(c.Request().Context(), "BasicAuthValidator")
	defer span.End()

	db := h.DB.WithContext(ctx)

	span.SetAttributes(
		attribute.String("id.raw", rawID),
	)

	span.AddEvent("parsing rawID as uuid")

	id, err := uuid.Parse(rawID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse rawID as a uuid")
		// Waste time for invalid UUID
		fakeDBQuery(ctx, db)
		fakePasswordHash(ctx)
		return false, nil
	}

	span.SetAttributes(attribute.String("id.parsed", id.String()))

	span.AddEvent("authenticating user")
	user, err := models.Authenticate(ctx, db, id, token)
	switch {
	case errors.Is(err, models.ErrUnknownUser):
		fakePasswordHash(ctx)
		// ok because Ok > Error
		span.SetStatus(codes.Ok, "user not found")
		return false, nil
	case errors.Is(err, models.ErrInvalidCredentials):
		span.AddEvent("failed login attempt")
		span.SetStatus(codes.Ok, "invalid credentials")
		return false, nil
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to authenticate user")
		return false, response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("user.name", user.Name),
		attribute.Bool("user.superuser", user.Superuser),
	)
	span.AddEvent("successful login attempt")
	c.Set(UserKey, user)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "authenticated")
	return true, nil
}

// Basic auth that lets requests without credentials through as anonymous.
// Supplied credentials must still be valid.
func (h *Handler) OptionalBasicAuth() echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get(echo.HeaderAuthorization) == ""
		},
		Validator: h.BasicAuthValidator,
	})
}

// The authenticated user or nil for an anonymous request
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(UserKey).(*models.User)
	return user
}
