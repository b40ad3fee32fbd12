// Package blobstore keeps submission sources in object storage where the
// judging backend can fetch them.
package blobstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/j4b6ski/oioioi/internal/hash"
)

var tracer = otel.Tracer("github.com/j4b6ski/oioioi/internal/blobstore")

const sourcePrefix = "sources/"

//go:generate mockgen -destination ./mock/mock.go -package mock . Store

type Store interface {
	// Create or overwrite the object at `key`
	Put(ctx context.Context, key string, reader io.ReadSeeker, length int64) error
	// Only used to skip duplicate uploads, may always return false
	Exists(ctx context.Context, key string) (bool, error)
	// Anonymous readonly url, valid for `ttl`
	ReadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Container or bucket name, for logs
	Name() string
}

// Stored is where a source ended up
type Stored struct {
	Key    string
	SHA256 string
}

// PutSource stores a submission source under its sha256. Identical sources
// are uploaded once.
func PutSource(ctx context.Context, s Store, source []byte) (Stored, error) {
	ctx, span := tracer.Start(ctx, "PutSource", trace.WithAttributes(
		attribute.Int("length", len(source)),
		attribute.String("store", s.Name()),
	))
	defer span.End()

	sum := hash.Buffer(source)
	stored := Stored{Key: sourcePrefix + sum, SHA256: sum}
	span.SetAttributes(attribute.String("key", stored.Key))

	exists, err := s.Exists(ctx, stored.Key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check if source exists")
		return Stored{}, err
	}

	if exists {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "found existing source")
		return stored, nil
	}

	err = s.Put(ctx, stored.Key, bytes.NewReader(source), int64(len(source)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload source")
		return Stored{}, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "uploaded source")
	return stored, nil
}
