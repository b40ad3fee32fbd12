package judging

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/j4b6ski/oioioi/internal/queue"
)

// QueueBackend publishes judge requests on a queue read by the judging workers
type QueueBackend struct {
	q   queue.Queuer
	now func() time.Time
}

var _ Backend = (*QueueBackend)(nil)

func NewQueueBackend(q queue.Queuer) *QueueBackend {
	return &QueueBackend{q: q, now: time.Now}
}

func (b *QueueBackend) Judge(ctx context.Context, req Request) error {
	ctx, span := tracer.Start(ctx, "QueueBackend.Judge")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", req.SubmissionID.String()),
		attribute.Bool("rejudge", req.IsRejudge),
		attribute.String("rejudge.type", string(req.ExtraArgs.RejudgeType)),
	)

	if err := b.q.Enqueue(ctx, req.message(b.now())); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue judge request")
		return fmt.Errorf("failed to enqueue judge request: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "enqueued judge request")
	return nil
}
