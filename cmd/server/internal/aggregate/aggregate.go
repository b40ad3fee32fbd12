// Package aggregate derives problem, round and contest results from the
// current submission state and runs the rejudge workflow.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/internal/config"
	"github.com/j4b6ski/oioioi/internal/judging"
	"github.com/j4b6ski/oioioi/internal/policy"
)

const name = "github.com/j4b6ski/oioioi/cmd/server/internal/aggregate"

var (
	tracer = otel.Tracer(name)
	meter  = otel.Meter(name)
)

var (
	// ErrConcurrentAggregationConflict is a lock timeout, deadlock or
	// serialization failure that outlived every retry
	ErrConcurrentAggregationConflict = errors.New("concurrent aggregation conflict")
	ErrRejudgeRefused                = errors.New("rejudge refused")
	ErrSubmissionNotFound            = errors.New("submission not found")
	ErrReportNotFound                = errors.New("report not found")
	ErrInvalidKindTransition         = errors.New("invalid submission kind transition")
)

// RejudgeRefusedError explains why a rejudge request was turned down
type RejudgeRefusedError struct {
	Scope string
	// Submissions without an ACTIVE report
	Missing []uuid.UUID
	Reason  string
}

func (e *RejudgeRefusedError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("rejudge refused: %s", e.Reason)
	}

	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = id.String()
	}
	return fmt.Sprintf(
		"rejudge refused: %s scope requires an active report, missing for %s",
		e.Scope,
		strings.Join(ids, ", "),
	)
}

func (e *RejudgeRefusedError) Unwrap() error {
	return ErrRejudgeRefused
}

type Aggregator struct {
	db          *gorm.DB
	policies    *policy.Registry
	judge       judging.Backend
	backoff     func() retry.Backoff
	lockTimeout time.Duration
	concurrency int
	flight      singleflight.Group
	now         func() time.Time

	recomputes metric.Int64Counter
	duration   metric.Float64Histogram
}

type Option func(*Aggregator)

// WithBackoff sets the retry schedule used on lock conflicts
func WithBackoff(factory func() retry.Backoff) Option {
	return func(a *Aggregator) {
		a.backoff = factory
	}
}

func WithLockTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.lockTimeout = d
	}
}

// WithConcurrency bounds the workers of RecomputeContest
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		a.concurrency = max(n, 1)
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// OptionsFromConfig maps the aggregation and lock settings onto options
func OptionsFromConfig(cfg *config.Config) []Option {
	backoff := func() retry.Backoff {
		b := retry.NewFibonacci(cfg.Aggregation.Backoff)
		b = retry.WithMaxRetries(cfg.Aggregation.MaxRetries, b)
		return b
	}
	return []Option{
		WithBackoff(backoff),
		WithLockTimeout(cfg.Postgres.LockTimeout),
		WithConcurrency(cfg.Aggregation.RecomputeConcurrency),
	}
}

func New(
	db *gorm.DB,
	policies *policy.Registry,
	judge judging.Backend,
	opts ...Option,
) (*Aggregator, error) {
	a := &Aggregator{
		db:       db,
		policies: policies,
		judge:    judge,
		backoff: func() retry.Backoff {
			b := retry.NewFibonacci(time.Millisecond * 25)
			b = retry.WithMaxRetries(5, b)
			return b
		},
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	a.recomputes, err = meter.Int64Counter(
		"contest_engine.aggregation.recomputes",
		metric.WithDescription("Result recomputations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recompute counter: %w", err)
	}

	a.duration, err = meter.Float64Histogram(
		"contest_engine.aggregation.duration",
		metric.WithDescription("Time spent recomputing the results of one user and problem"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recompute histogram: %w", err)
	}

	return a, nil
}

func (a *Aggregator) record(ctx context.Context, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrConcurrentAggregationConflict):
		outcome = "conflict"
	case isInvalidScore(err):
		outcome = "invalid_score"
	default:
		outcome = "error"
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	a.recomputes.Add(ctx, 1, attrs)
	a.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}

var conflictCodes = []string{
	"40001", // serialization_failure
	"40P01", // deadlock_detected
	"55P03", // lock_not_available
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return slices.Contains(conflictCodes, pgErr.Code)
	}
	return false
}

// transact runs fn in its own transaction, retrying lock conflicts
func (a *Aggregator) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return retry.Do(ctx, a.backoff(), func(ctx context.Context) error {
		err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if a.lockTimeout > 0 {
				err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", a.lockTimeout.Milliseconds())).Error
				if err != nil {
					return fmt.Errorf("failed to set lock timeout: %w", err)
				}
			}
			return fn(tx)
		})
		if isConflict(err) {
			return retry.RetryableError(fmt.Errorf("%w: %w", ErrConcurrentAggregationConflict, err))
		}
		return err
	})
}
