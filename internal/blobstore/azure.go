package blobstore

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Store = (*AzureStore)(nil)

// Azure Blob backed store
type AzureStore struct {
	client    *azblob.Client
	container string
}

// `container` must be part of the storage account unless [AzureStore.EnsureExists] is called
func NewAzureStore(accountName, accountKey, serviceURL, container string) (*AzureStore, error) {
	if container == "" {
		return nil, errors.New("container is required")
	}

	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, err
	}

	return &AzureStore{client: client, container: container}, nil
}

// EnsureExists creates the container, used for development storage accounts
func (s *AzureStore) EnsureExists(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "AzureStore.EnsureExists")
	defer span.End()

	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create container")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "container exists")
	return nil
}

func (s *AzureStore) Put(ctx context.Context, key string, reader io.ReadSeeker, length int64) error {
	ctx, span := tracer.Start(ctx, "AzureStore.Put", trace.WithAttributes(
		attribute.String("key", key),
		attribute.Int64("length", length),
	))
	defer span.End()

	_, err := s.client.UploadStream(ctx, s.container, key, reader, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload blob")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "uploaded blob")
	return nil
}

func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := tracer.Start(ctx, "AzureStore.Exists", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	_, err := s.client.ServiceClient().
		NewContainerClient(s.container).
		NewBlobClient(key).
		GetProperties(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(bloberror.BlobNotFound) {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "did not find blob")
			return false, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check blob exists")
		return false, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "found blob")
	return true, nil
}

func (s *AzureStore) ReadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_, span := tracer.Start(ctx, "AzureStore.ReadURL", trace.WithAttributes(
		attribute.String("key", key),
		attribute.String("ttl", ttl.String()),
	))
	defer span.End()

	url, err := s.client.ServiceClient().
		NewContainerClient(s.container).
		NewBlobClient(key).
		GetSASURL(sas.BlobPermissions{Read: true}, time.Now().Add(ttl), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to sign read url")
		return "", err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "signed read url")
	return url, nil
}

func (s *AzureStore) Name() string {
	return s.container
}
