package contests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/audit"
	"github.com/j4b6ski/oioioi/internal/judging"
	"github.com/j4b6ski/oioioi/internal/logger"
	"github.com/j4b6ski/oioioi/internal/types"
)

// Submit records a new submission and hands it to judging. Kinds that count
// toward the submissions limit are everything but the ignored ones.
func (s *Service) Submit(
	ctx context.Context,
	contestID uuid.UUID,
	problemInstanceID uuid.UUID,
	user *models.User,
	source string,
	now time.Time,
) (*models.Submission, error) {
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()

	span.SetAttributes(
		attribute.String("contest.id", contestID.String()),
		attribute.String("problem_instance.id", problemInstanceID.String()),
	)

	if user == nil {
		span.RecordError(ErrNotPermitted)
		span.SetStatus(codes.Error, "anonymous submit")
		return nil, ErrNotPermitted
	}

	v, err := s.View(ctx, contestID, user, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build contest view")
		return nil, err
	}

	pi, err := models.ByID[models.ProblemInstance](ctx, s.db, problemInstanceID)
	if err != nil || pi.ContestID != contestID {
		span.RecordError(ErrNotFound)
		span.SetStatus(codes.Error, "problem instance not in contest")
		return nil, ErrNotFound
	}

	p := v.Problem(pi)
	if !v.Decider.CanSeeProblem(v.Context, p) || !v.Decider.CanSubmit(v.Context, p) {
		span.RecordError(ErrNotPermitted)
		span.SetStatus(codes.Error, "viewer may not submit")
		return nil, ErrNotPermitted
	}

	kind := v.Decider.DefaultKind(v.Context)
	limit := v.Decider.SubmissionsLimit(v.Context, p)
	span.SetAttributes(
		attribute.String("kind", string(kind)),
		attribute.Int("limit", limit),
	)

	sub := &models.Submission{
		ProblemInstanceID: pi.ID,
		UserID:            models.NewNullFromData(user.ID),
		Date:              now,
		Kind:              kind,
		Status:            types.SubmissionStatusPending,
		Source:            source,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// serializes concurrent submits of one user
		if _, err := models.ForUpdate[models.User](ctx, tx, user.ID); err != nil {
			return err
		}
		// keeps the contest policy fixed while the submission lands
		if _, err := models.ForShare[models.Contest](ctx, tx, contestID); err != nil {
			return err
		}

		if limit > 0 {
			var used int64
			err := tx.Model(&models.Submission{}).
				Where("user_id = ? AND problem_instance_id = ? AND kind NOT IN ?",
					user.ID, pi.ID,
					[]types.SubmissionKind{types.SubmissionKindIgnored, types.SubmissionKindIgnoredHidden}).
				Count(&used).Error
			if err != nil {
				return fmt.Errorf("failed to count submissions: %w", err)
			}
			if used >= int64(limit) {
				return ErrSubmissionsLimitExceeded
			}
		}

		return tx.Create(sub).Error
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create submission")
		if errors.Is(err, ErrSubmissionsLimitExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	userID := user.ID.String()
	audit.LogSubmissionCreated(
		audit.Context{UserID: &userID, ContestID: contestID.String()},
		sub.ID.String(),
		pi.ID.String(),
		kind,
	)

	if kind == types.SubmissionKindSuspected {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "suspected submission awaits approval")
		return sub, nil
	}

	err = s.judge.Judge(ctx, judging.Request{
		SubmissionID:    sub.ID,
		ContestID:       contestID,
		ExtraArgs:       types.JudgeExtraArgs{RejudgeType: types.RejudgeScopeFull},
		JudgingPriority: v.Contest.JudgingPriority,
		JudgingWeight:   v.Contest.JudgingWeight,
		Source:          sub.Source,
	})
	if err != nil {
		// the submission is stored, an admin rejudge picks it up later
		logger.Logger.ErrorContext(ctx, "failed to hand submission to judging",
			"submission_id", sub.ID.String(),
			"error", err,
		)
		span.RecordError(err)
		if ferr := s.db.WithContext(ctx).Model(sub).Update("needs_rejudge", true).Error; ferr != nil {
			logger.Logger.ErrorContext(ctx, "failed to flag submission for rejudge",
				"submission_id", sub.ID.String(),
				"error", ferr,
				"operator_attention", true,
			)
			span.RecordError(ferr)
		} else {
			sub.NeedsRejudge = true
			audit.LogNeedsRejudgeChanged(
				audit.Context{UserID: &userID, ContestID: contestID.String()},
				[]string{sub.ID.String()},
				true,
			)
		}
		span.SetStatus(codes.Ok, "created submission, judging deferred")
		return sub, nil
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created submission")
	return sub, nil
}

// SetTimeExtension grants a user extra minutes in a round. Admins only.
func (s *Service) SetTimeExtension(
	ctx context.Context,
	actor *models.User,
	roundID uuid.UUID,
	userID uuid.UUID,
	minutes int,
	now time.Time,
) (*models.RoundTimeExtension, error) {
	ctx, span := tracer.Start(ctx, "SetTimeExtension")
	defer span.End()

	round, err := s.ContestOfRound(ctx, roundID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load round")
		return nil, err
	}

	if _, err := s.RequireAdmin(ctx, round.ContestID, actor, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "not an admin")
		return nil, err
	}

	exists, err := models.Exists[models.User](ctx, s.db, "id = ?", userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up user")
		return nil, err
	}
	if !exists {
		span.RecordError(ErrNotFound)
		span.SetStatus(codes.Error, "unknown user")
		return nil, ErrNotFound
	}

	extension, err := models.UpsertTimeExtension(ctx, s.db, userID, roundID, max(minutes, 0))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store time extension")
		return nil, err
	}

	actorID := actor.ID.String()
	target := userID.String()
	audit.LogTimeExtensionSet(
		audit.Context{ActorID: &actorID, UserID: &target, ContestID: round.ContestID.String()},
		roundID.String(),
		extension.ExtraTime,
	)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "set time extension")
	return extension, nil
}
