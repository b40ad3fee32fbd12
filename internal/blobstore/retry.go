package blobstore

import (
	"context"
	"io"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"
)

var _ Store = (*RetryStore)(nil)

// Wraps every store call in a backoff loop. Submit waits on these, keep the
// schedule short.
type RetryStore struct {
	store   Store
	backoff func() retry.Backoff
}

func NewRetryStore(store Store, backoff func() retry.Backoff) *RetryStore {
	if backoff == nil {
		backoff = func() retry.Backoff {
			b := retry.NewExponential(100 * time.Millisecond)
			b = retry.WithMaxDuration(5*time.Second, b)
			return b
		}
	}
	return &RetryStore{store: store, backoff: backoff}
}

// do retries `op` and records the outcome on a span named `operation`
func (r *RetryStore) do(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "RetryStore."+operation)
	defer span.End()

	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			span.AddEvent("retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, operation+" failed")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, operation+" succeeded")
	return nil
}

func (r *RetryStore) Put(ctx context.Context, key string, reader io.ReadSeeker, length int64) error {
	return r.do(ctx, "Put", func(ctx context.Context) error {
		if _, err := reader.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return r.store.Put(ctx, key, reader, length)
	})
}

func (r *RetryStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.do(ctx, "Exists", func(ctx context.Context) error {
		var err error
		exists, err = r.store.Exists(ctx, key)
		return err
	})
	return exists, err
}

func (r *RetryStore) ReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	var url string
	err := r.do(ctx, "ReadURL", func(ctx context.Context) error {
		var err error
		url, err = r.store.ReadURL(ctx, key, ttl)
		return err
	})
	return url, err
}

func (r *RetryStore) Name() string {
	return r.store.Name()
}
