package aggregate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
)

type pair struct {
	UserID            uuid.UUID
	ProblemInstanceID uuid.UUID
}

// RecomputeContest re-derives the results of every user that submitted to
// the contest. Returns the number of (user, problem instance) pairs handled.
func (a *Aggregator) RecomputeContest(ctx context.Context, contestID uuid.UUID) (int, error) {
	ctx, span := tracer.Start(ctx, "RecomputeContest")
	defer span.End()

	span.SetAttributes(attribute.String("contest.id", contestID.String()))

	var pairs []pair
	err := a.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("DISTINCT submission.user_id, submission.problem_instance_id").
		Joins("JOIN problem_instance ON problem_instance.id = submission.problem_instance_id").
		Where("problem_instance.contest_id = ? AND submission.user_id IS NOT NULL", contestID).
		Order("submission.user_id, submission.problem_instance_id").
		Scan(&pairs).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list submitters")
		return 0, fmt.Errorf("failed to list submitters: %w", err)
	}

	span.SetAttributes(attribute.Int("pairs", len(pairs)))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.concurrency)
	for _, p := range pairs {
		eg.Go(func() error {
			return a.recomputeShared(egctx, p.UserID, p.ProblemInstanceID)
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to recompute contest")
		return 0, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "recomputed contest")
	return len(pairs), nil
}

// recomputeShared collapses concurrent recomputes of the same key into one
func (a *Aggregator) recomputeShared(ctx context.Context, userID, problemInstanceID uuid.UUID) error {
	key := userID.String() + "/" + problemInstanceID.String()
	_, err, _ := a.flight.Do(key, func() (any, error) {
		return nil, a.RecomputeResults(ctx, userID, problemInstanceID)
	})
	return err
}
