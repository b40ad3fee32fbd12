package admin

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/cmd/server/internal/response"
	"github.com/j4b6ski/oioioi/cmd/server/internal/srverr"
	"github.com/j4b6ski/oioioi/internal/types"
)

func (h *Handler) Rejudge(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Rejudge")
	defer span.End()

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}
	contestID, err := contextID(c, span, "contest_id")
	if err != nil {
		return err
	}

	var rdata types.RejudgeRequest

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

	ids, err := parseIDs(rdata.SubmissionIDs)
	if err != nil {
		span.SetStatus(codes.Ok, "invalid submission id")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	span.SetAttributes(
		attribute.String("contest.id", contestID.String()),
		attribute.String("rejudge.scope", string(rdata.Scope)),
		attribute.Int("rejudge.count", len(ids)),
	)

	if _, err = h.service.RequireAdmin(ctx, contestID, user, requestTime); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "caller does not administer contest")
		return response.FromError(err)
	}

	rejudged, err := h.aggregator.Rejudge(ctx, user.ID, contestID, ids, rdata.Scope, rdata.Tests)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to rejudge")
		return response.FromError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "rejudged submissions")
	return c.JSON(http.StatusOK, types.RejudgeResponse{Rejudged: idStrings(rejudged)})
}

func (h *Handler) NeedsRejudge(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "NeedsRejudge")
	defer span.End()

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}
	contestID, err := contextID(c, span, "contest_id")
	if err != nil {
		return err
	}

	var rdata types.NeedsRejudgeRequest

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

	ids, err := parseIDs(rdata.SubmissionIDs)
	if err != nil {
		span.SetStatus(codes.Ok, "invalid submission id")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	if _, err = h.service.RequireAdmin(ctx, contestID, user, requestTime); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "caller does not administer contest")
		return response.FromError(err)
	}

	if err = h.aggregator.SetNeedsRejudge(ctx, user.ID, contestID, ids, rdata.NeedsRejudge); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set needs rejudge")
		return response.FromError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "set needs rejudge")
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ChangeKind(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "ChangeKind")
	defer span.End()

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}

	sub, ok := c.Get("submission").(*models.Submission)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	var rdata types.ChangeKindRequest

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

	span.SetAttributes(
		attribute.String("submission.id", sub.ID.String()),
		attribute.String("submission.kind.from", string(sub.Kind)),
		attribute.String("submission.kind.to", string(rdata.Kind)),
	)

	_, pi, err := h.service.ContestOfSubmission(ctx, sub.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve contest of submission")
		return response.FromError(err)
	}

	if _, err = h.service.RequireAdmin(ctx, pi.ContestID, user, requestTime); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "caller does not administer contest")
		return response.FromError(err)
	}

	if err = h.aggregator.ChangeSubmissionKind(ctx, user.ID, sub.ID, rdata.Kind); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to change submission kind")
		return response.FromError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "changed submission kind")
	return c.NoContent(http.StatusNoContent)
}
