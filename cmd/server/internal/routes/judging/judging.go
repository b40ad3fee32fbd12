package judging

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/j4b6ski/oioioi/cmd/server/internal/jobs"
	servermiddleware "github.com/j4b6ski/oioioi/cmd/server/internal/middleware"
	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
	"github.com/j4b6ski/oioioi/internal/types"
)

var tracer = otel.Tracer("github.com/j4b6ski/oioioi/cmd/server/internal/routes/judging")

// Callback surface for judging backends that report over HTTP instead of the queue
type Handler struct {
	judged jobs.JudgedHandler
}

func NewHandler(judged jobs.JudgedHandler) Handler {
	return Handler{judged: judged}
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	judgingGroup := e.Group(
		"/judging",
		middleware.BasicAuth(middlewareHandler.BasicAuthValidator),
		servermiddleware.HasPermissions(
			servermiddleware.UserKey,
			servermiddleware.Requirement{Superuser: true},
		),
	)

	judgingGroup.POST("/judged/", h.Judged)
}

// Safe to deliver more than once
func (h *Handler) Judged(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Judged")
	defer span.End()

	var rdata types.SubmissionJudgedMsg

	span.AddEvent("parsing request body")
	err := c.Bind(&rdata)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating request body")
	err = c.Validate(rdata)
	if err != nil {
		span.SetStatus(codes.Error, "failed to validate request data")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	// validated as uuids above
	submissionID := uuid.MustParse(rdata.SubmissionID)
	reportID := uuid.MustParse(rdata.ReportID)

	span.SetAttributes(
		attribute.String("submission.id", submissionID.String()),
		attribute.String("report.id", reportID.String()),
	)

	if err = h.judged.HandleSubmissionJudged(ctx, submissionID, reportID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to handle judged submission")
		return response.FromError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "handled judged submission")
	return c.NoContent(http.StatusNoContent)
}
