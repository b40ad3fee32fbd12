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
	"github.com/j4b6ski/oioioi/internal/types"
)

func (h *Handler) Submit(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Submit")
	defer span.End()

	span.AddEvent("received submission request")

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}
	if user == nil {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("user: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	contestID, ok := servermiddleware.ContextID(c, "contest_id")
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("contest_id: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}
	problemInstanceID, ok := servermiddleware.ContextID(c, "problem_instance_id")
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("problem_instance_id: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("user.id", user.ID.String()),
		attribute.String("contest.id", contestID.String()),
		attribute.String("problem_instance.id", problemInstanceID.String()),
		attribute.Int64("request.timestamp_ms", requestTime.UnixMilli()),
	)

	var rdata types.SubmitRequest

	span.AddEvent("parsing request body")
	err = c.Bind(&rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating request body")
	err = c.Validate(rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to validate request data")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	sub, err := h.service.Submit(ctx, contestID, problemInstanceID, user, rdata.Source, requestTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit")
		return response.FromError(err)
	}

	span.SetAttributes(attribute.String("submission.id", sub.ID.String()))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "accepted submission")
	return c.JSON(http.StatusOK, types.SubmitResponse{
		SubmissionID: sub.ID.String(),
		Kind:         sub.Kind,
		Status:       sub.Status,
	})
}

// Reports of a submission the caller may see
func (h *Handler) Reports(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Reports")
	defer span.End()

	user, requestTime, err := requestState(c, span)
	if err != nil {
		return err
	}

	submissionID, ok := servermiddleware.ContextID(c, "submission_id")
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission_id: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("submission.id", submissionID.String()))

	reports, err := h.service.Reports(ctx, submissionID, user, requestTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list reports")
		return response.FromError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed reports")
	return c.JSON(http.StatusOK, reports)
}
