package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	servermiddleware "github.com/j4b6ski/oioioi/cmd/server/internal/middleware"
	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
	"github.com/j4b6ski/oioioi/cmd/server/internal/srverr"
)

// Rounds the caller can see, most relevant first
func (h *Handler) Rounds(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Rounds")
	defer span.End()

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}

	contestID, ok := servermiddleware.ContextID(c, "contest_id")
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("contest_id: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("contest.id", contestID.String()),
		attribute.Bool("anonymous", user == nil),
		attribute.Int64("request.timestamp_ms", requestTime.UnixMilli()),
	)

	rounds, err := h.service.Rounds(ctx, contestID, user, requestTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list rounds")
		return response.FromError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed rounds")
	return c.JSON(http.StatusOK, rounds)
}

// Problems visible to the caller with their per viewer flags
func (h *Handler) Problems(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Problems")
	defer span.End()

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}

	contestID, ok := servermiddleware.ContextID(c, "contest_id")
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("contest_id: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("contest.id", contestID.String()),
		attribute.Bool("anonymous", user == nil),
	)

	problems, err := h.service.Problems(ctx, contestID, user, requestTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list problems")
		return response.FromError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed problems")
	return c.JSON(http.StatusOK, problems)
}
