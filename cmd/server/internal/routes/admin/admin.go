package admin

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/j4b6ski/oioioi/cmd/server/internal/aggregate"
	"github.com/j4b6ski/oioioi/cmd/server/internal/contests"
	servermiddleware "github.com/j4b6ski/oioioi/cmd/server/internal/middleware"
	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
	"github.com/j4b6ski/oioioi/cmd/server/internal/srverr"
)

var tracer = otel.Tracer("github.com/j4b6ski/oioioi/cmd/server/internal/routes/admin")

// Contest administration. Every action checks that the caller administers
// the contest it touches.
type Handler struct {
	service    *contests.Service
	aggregator *aggregate.Aggregator
}

func NewHandler(service *contests.Service, aggregator *aggregate.Aggregator) Handler {
	return Handler{service: service, aggregator: aggregator}
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	adminGroup := e.Group(
		"/admin",
		middleware.BasicAuth(middlewareHandler.BasicAuthValidator),
		servermiddleware.HasPermissions(servermiddleware.UserKey, servermiddleware.Requirement{}),
	)

	contestGroup := adminGroup.Group(
		"/contest/:contest_id",
		servermiddleware.ParseIDParam("contest_id", "contest_id"),
	)
	contestGroup.POST("/rejudge/", h.Rejudge)
	contestGroup.PUT("/needs-rejudge/", h.NeedsRejudge)
	contestGroup.POST("/recompute/", h.Recompute)

	adminGroup.PUT(
		"/submission/:submission_id/kind/",
		h.ChangeKind,
		servermiddleware.PopulateFromIDParam[models.Submission](
			middlewareHandler,
			"submission_id",
			"submission",
		),
	)
	adminGroup.PUT(
		"/round/:round_id/extension/",
		h.TimeExtension,
		servermiddleware.ParseIDParam("round_id", "round_id"),
	)
}

// Authenticated admin and request time
func requestState(c echo.Context, span trace.Span) (*models.User, time.Time, error) {
	user := servermiddleware.CurrentUser(c)
	if user == nil {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("user: %s", srverr.ErrTypeAssertMismatch))
		return nil, time.Time{}, response.InternalServerError
	}

	requestTime, ok := servermiddleware.RequestTime(c, servermiddleware.TimeKey)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("time: %s", srverr.ErrTypeAssertMismatch))
		return nil, time.Time{}, response.InternalServerError
	}
	return user, requestTime, nil
}

func contextID(c echo.Context, span trace.Span, key string) (uuid.UUID, error) {
	id, ok := servermiddleware.ContextID(c, key)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("%s: %s", key, srverr.ErrTypeAssertMismatch))
		return uuid.Nil, response.InternalServerError
	}
	return id, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse submission id %q: %w", r, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
