package judging

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/j4b6ski/oioioi/internal/blobstore"
)

var _ Backend = (*SourceBackend)(nil)

// SourceBackend uploads the submission source and hands the judging backend
// a presigned link to it instead of the source itself
type SourceBackend struct {
	next  Backend
	store blobstore.Store
	ttl   time.Duration
}

// `ttl` bounds how long the judging backend may take to fetch a source
func NewSourceBackend(next Backend, store blobstore.Store, ttl time.Duration) *SourceBackend {
	return &SourceBackend{next: next, store: store, ttl: ttl}
}

func (b *SourceBackend) Judge(ctx context.Context, req Request) error {
	ctx, span := tracer.Start(ctx, "SourceBackend.Judge")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", req.SubmissionID.String()))

	if req.Source != "" {
		stored, err := blobstore.PutSource(ctx, b.store, []byte(req.Source))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to store source")
			return fmt.Errorf("failed to store source: %w", err)
		}

		url, err := b.store.ReadURL(ctx, stored.Key, b.ttl)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to sign source url")
			return fmt.Errorf("failed to sign source url: %w", err)
		}

		req.SourceURL = url
		req.SourceSHA256 = stored.SHA256
		span.SetAttributes(attribute.String("source.sha256", stored.SHA256))
	}
	req.Source = ""

	if err := b.next.Judge(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to hand submission to judging")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "handed submission to judging")
	return nil
}
