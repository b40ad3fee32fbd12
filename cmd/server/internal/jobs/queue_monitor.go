package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/j4b6ski/oioioi/cmd/server/internal/aggregate"
	"github.com/j4b6ski/oioioi/internal/queue"
	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
	"github.com/j4b6ski/oioioi/internal/validator"
)

//go:generate mockgen -destination ./mock/mock.go -package mock . JudgedHandler

type JudgedHandler interface {
	HandleSubmissionJudged(ctx context.Context, submissionID, reportID uuid.UUID) error
}

var _ JudgedHandler = (*aggregate.Aggregator)(nil)

// Errors that redelivery cannot fix
var poisonErrors = []error{
	aggregate.ErrSubmissionNotFound,
	aggregate.ErrReportNotFound,
	score.ErrInvalidScoreValue,
}

func isPoison(err error) bool {
	for _, p := range poisonErrors {
		if errors.Is(err, p) {
			return true
		}
	}
	return false
}

type JudgedMsgHandler struct {
	handler   JudgedHandler
	validator validator.CustomValidator
}

var _ queue.MessageHandler = (*JudgedMsgHandler)(nil)

func NewJudgedMsgHandler(handler JudgedHandler) *JudgedMsgHandler {
	return &JudgedMsgHandler{handler: handler, validator: validator.Create()}
}

func (h *JudgedMsgHandler) Handle(
	ctx context.Context,
	message []byte,
) error {
	ctx, span := tracer.Start(ctx, "JudgedMsgHandler.Handle", trace.WithNewRoot())
	defer span.End()

	var msg types.SubmissionJudgedMsg
	if err := json.Unmarshal(message, &msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal judged message")
		return queue.WrapPoisonError(err)
	}

	if err := h.validator.Validate(&msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "judged message failed validation")
		return queue.WrapPoisonError(err)
	}

	span.SetAttributes(
		attribute.String("msg.submission.id", msg.SubmissionID),
		attribute.String("msg.report.id", msg.ReportID),
	)

	submissionID, err := uuid.Parse(msg.SubmissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid submission id")
		return queue.WrapPoisonError(err)
	}
	reportID, err := uuid.Parse(msg.ReportID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid report id")
		return queue.WrapPoisonError(err)
	}

	if err := h.handler.HandleSubmissionJudged(ctx, submissionID, reportID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to handle")
		if isPoison(err) {
			return queue.WrapPoisonError(err)
		}
		return fmt.Errorf("failed to handle judged submission: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "handled")
	return nil
}

// Monitors judged events and handles them until `ctx` is cancelled
func MonitorJudgedQueue(
	ctx context.Context,
	qr queue.Queuer,
	handler queue.MessageHandler,
	timeout time.Duration,
) {
	ctx, span := tracer.Start(ctx, "MonitorJudgedQueue")
	defer span.End()
OUTER:
	for {
		func() {
			//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
			ctx, span := tracer.Start(ctx, "MonitorJudgedQueue.Loop")
			defer span.End()

			if err := qr.Dequeue(ctx, timeout, handler); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to dequeue and handle message")
				return
			}
		}()

		select {
		case <-ctx.Done():
			break OUTER
		default:
			continue
		}
	}
}
