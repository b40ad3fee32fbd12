package blobstore

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Store = (*MinioStore)(nil)

// S3 compatible store
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, ssl bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: ssl,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, reader io.ReadSeeker, length int64) error {
	ctx, span := tracer.Start(ctx, "MinioStore.Put", trace.WithAttributes(
		attribute.String("key", key),
		attribute.Int64("length", length),
	))
	defer span.End()

	_, err := s.client.PutObject(ctx, s.bucket, key, reader, length, minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put object")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "put object")
	return nil
}

func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "MinioStore.Exists", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "did not find object")
			return false, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat object")
		return false, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "found object")
	return true, nil
}

func (s *MinioStore) ReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "MinioStore.ReadURL", trace.WithAttributes(
		attribute.String("key", key),
		attribute.String("ttl", ttl.String()),
	))
	defer span.End()

	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to presign object")
		return "", err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "presigned object")
	return url.String(), nil
}

func (s *MinioStore) Name() string {
	return s.bucket
}
