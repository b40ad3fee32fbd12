package admin

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
	"github.com/j4b6ski/oioioi/internal/types"
)

func (h *Handler) TimeExtension(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "TimeExtension")
	defer span.End()

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}
	roundID, err := contextID(c, span, "round_id")
	if err != nil {
		return err
	}

	var rdata types.TimeExtensionRequest

	span.AddEvent("parsing request body")
	if err = c.Bind(&rdata); err != nil {
		span.SetStatus(codes.Ok, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating request body")
	if err = c.Validate(rdata); err != nil {
		span.SetStatus(codes.Ok, "failed to validate request data")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	// validated as a uuid above
	userID := uuid.MustParse(rdata.UserID)

	span.SetAttributes(
		attribute.String("round.id", roundID.String()),
		attribute.String("extension.user.id", userID.String()),
		attribute.Int("extension.minutes", rdata.ExtraMinutes),
	)

	_, err = h.service.SetTimeExtension(ctx, user, roundID, userID, rdata.ExtraMinutes, requestTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set time extension")
		return response.FromError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "set time extension")
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Recompute(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Recompute")
	defer span.End()

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}
	contestID, err := contextID(c, span, "contest_id")
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.String("contest.id", contestID.String()))

	if _, err = h.service.RequireAdmin(ctx, contestID, user, requestTime); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "caller does not administer contest")
		return response.FromError(err)
	}

	pairs, err := h.aggregator.RecomputeContest(ctx, contestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to recompute contest")
		return response.FromError(err)
	}

	span.SetAttributes(attribute.Int("recompute.pairs", pairs))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "recomputed contest")
	return c.JSON(http.StatusOK, types.RecomputeResponse{Pairs: pairs})
}
