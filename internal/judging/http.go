package judging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/j4b6ski/oioioi/internal/logger"
)

// HTTPBackend posts judge requests to the judging service API
type HTTPBackend struct {
	client  *retryablehttp.Client
	baseURL *url.URL
	token   string
	now     func() time.Time
}

var _ Backend = (*HTTPBackend)(nil)

func NewHTTPBackend(baseURL string, token string, maxRetries int) (*HTTPBackend, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid judging url: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = maxRetries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = logger.Logger

	return &HTTPBackend{client: client, baseURL: u, token: token, now: time.Now}, nil
}

func (b *HTTPBackend) Judge(ctx context.Context, req Request) error {
	ctx, span := tracer.Start(ctx, "HTTPBackend.Judge")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", req.SubmissionID.String()),
		attribute.Bool("rejudge", req.IsRejudge),
	)

	body, err := json.Marshal(req.message(b.now()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal judge request")
		return fmt.Errorf("failed to marshal judge request: %w", err)
	}

	endpoint := b.baseURL.JoinPath("judge")
	httpReq, err := retryablehttp.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint.String(),
		bytes.NewReader(body),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build judge request")
		return fmt.Errorf("failed to build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send judge request")
		return fmt.Errorf("failed to send judge request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err = fmt.Errorf("judging service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		span.RecordError(err)
		span.SetStatus(codes.Error, "judging service rejected request")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "sent judge request")
	return nil
}
