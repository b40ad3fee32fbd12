package aggregate

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/audit"
	"github.com/j4b6ski/oioioi/internal/judging"
	"github.com/j4b6ski/oioioi/internal/types"
)

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func actorContext(actorID uuid.UUID, contestID uuid.UUID) audit.Context {
	actor := actorID.String()
	return audit.Context{ActorID: &actor, ContestID: contestID.String()}
}

// loadSubmissions returns the submissions in request order, failing on any unknown id
func (a *Aggregator) loadSubmissions(
	ctx context.Context,
	contestID uuid.UUID,
	ids []uuid.UUID,
) ([]models.Submission, error) {
	var found []models.Submission
	err := a.db.WithContext(ctx).
		Joins("JOIN problem_instance ON problem_instance.id = submission.problem_instance_id").
		Where("submission.id IN ? AND problem_instance.contest_id = ?", ids, contestID).
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	byID := make(map[uuid.UUID]models.Submission, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	out := make([]models.Submission, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		s, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
		}
		out = append(out, s)
	}
	return out, nil
}

// Rejudge starts a new judging cycle for the given submissions of a contest.
// FULL is always allowed. NEW and JUDGED need an ACTIVE report on every
// submission, and JUDGED is limited to a single problem instance.
func (a *Aggregator) Rejudge(
	ctx context.Context,
	actorID uuid.UUID,
	contestID uuid.UUID,
	submissionIDs []uuid.UUID,
	scope types.RejudgeScope,
	tests []string,
) ([]uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "Rejudge")
	defer span.End()

	span.SetAttributes(
		attribute.String("contest.id", contestID.String()),
		attribute.String("scope", string(scope)),
		attribute.Int("submissions", len(submissionIDs)),
	)

	auditCtx := actorContext(actorID, contestID)

	if !scope.Valid() {
		err := &RejudgeRefusedError{Scope: string(scope), Reason: fmt.Sprintf("unknown scope %q", scope)}
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown rejudge scope")
		return nil, err
	}

	contest, err := models.ByID[models.Contest](ctx, a.db, contestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load contest")
		return nil, fmt.Errorf("failed to load contest: %w", err)
	}

	submissions, err := a.loadSubmissions(ctx, contestID, submissionIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submissions")
		return nil, err
	}

	if scope != types.RejudgeScopeFull {
		if err := a.checkRejudgeAllowed(ctx, scope, submissions); err != nil {
			var refused *RejudgeRefusedError
			if errors.As(err, &refused) {
				audit.LogRejudgeRefused(auditCtx, scope, idStrings(refused.Missing))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "rejudge refused")
			return nil, err
		}
	}

	ids := make([]uuid.UUID, len(submissions))
	for i, s := range submissions {
		ids[i] = s.ID
	}
	audit.LogRejudgeRequested(auditCtx, idStrings(ids), scope, tests)

	rejudged := make([]uuid.UUID, 0, len(submissions))
	for _, s := range submissions {
		err := a.resetForJudging(ctx, s.ID, false)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to reset submission")
			return rejudged, err
		}

		err = a.judge.Judge(ctx, judging.Request{
			SubmissionID: s.ID,
			ContestID:    contestID,
			ExtraArgs: types.JudgeExtraArgs{
				TestsToJudge: tests,
				RejudgeType:  scope,
			},
			IsRejudge:       true,
			JudgingPriority: contest.JudgingPriority,
			JudgingWeight:   contest.JudgingWeight,
			Source:          s.Source,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to hand submission to judging")
			return rejudged, fmt.Errorf("failed to hand submission to judging: %w", err)
		}
		rejudged = append(rejudged, s.ID)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "rejudge requested")
	return rejudged, nil
}

func (a *Aggregator) checkRejudgeAllowed(
	ctx context.Context,
	scope types.RejudgeScope,
	submissions []models.Submission,
) error {
	if len(submissions) == 0 {
		return nil
	}

	if scope == types.RejudgeScopeJudged {
		for _, s := range submissions[1:] {
			if s.ProblemInstanceID != submissions[0].ProblemInstanceID {
				return &RejudgeRefusedError{
					Scope:  string(scope),
					Reason: "JUDGED scope requires submissions of a single problem instance",
				}
			}
		}
	}

	reports, err := activeReports(a.db.WithContext(ctx), submissions)
	if err != nil {
		return err
	}

	var missing []uuid.UUID
	for _, s := range submissions {
		if _, ok := reports[s.ID]; !ok {
			missing = append(missing, s.ID)
		}
	}
	if len(missing) > 0 {
		return &RejudgeRefusedError{
			Scope:   string(scope),
			Missing: missing,
			Reason:  "missing active reports",
		}
	}
	return nil
}

// resetForJudging puts a submission back to pending under its row lock
func (a *Aggregator) resetForJudging(ctx context.Context, submissionID uuid.UUID, countAuto bool) error {
	return a.transact(ctx, func(tx *gorm.DB) error {
		sub, err := models.ForUpdate[models.Submission](ctx, tx, submissionID)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"status":        types.SubmissionStatusPending,
			"needs_rejudge": false,
		}
		if countAuto {
			updates["auto_rejudges"] = sub.AutoRejudges + 1
		}
		if err := tx.Model(sub).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to reset submission: %w", err)
		}
		return nil
	})
}

// ChangeSubmissionKind moves a submission to another kind and re-derives the
// owner's results. Leaving SUSPECTED sends the submission to judging.
func (a *Aggregator) ChangeSubmissionKind(
	ctx context.Context,
	actorID uuid.UUID,
	submissionID uuid.UUID,
	kind types.SubmissionKind,
) error {
	ctx, span := tracer.Start(ctx, "ChangeSubmissionKind")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", submissionID.String()),
		attribute.String("kind", string(kind)),
	)

	var before models.Submission
	err := a.transact(ctx, func(tx *gorm.DB) error {
		sub, err := models.ForUpdate[models.Submission](ctx, tx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		before = *sub

		if sub.Kind == kind {
			return nil
		}
		if !kind.Valid() || !slices.Contains(sub.Kind.ValidTransitions(), kind) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidKindTransition, sub.Kind, kind)
		}

		return tx.Model(sub).Update("kind", kind).Error
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to change submission kind")
		return fmt.Errorf("failed to change submission kind: %w", err)
	}

	if before.Kind == kind {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "kind unchanged")
		return nil
	}

	pi, err := models.ByID[models.ProblemInstance](ctx, a.db, before.ProblemInstanceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load problem instance")
		return fmt.Errorf("failed to load problem instance: %w", err)
	}
	audit.LogSubmissionKindChanged(actorContext(actorID, pi.ContestID), submissionID.String(), before.Kind, kind)

	if before.Kind == types.SubmissionKindSuspected {
		contest, err := models.ByID[models.Contest](ctx, a.db, pi.ContestID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load contest")
			return fmt.Errorf("failed to load contest: %w", err)
		}

		if err := a.resetForJudging(ctx, submissionID, true); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to reset submission")
			return err
		}

		err = a.judge.Judge(ctx, judging.Request{
			SubmissionID:    submissionID,
			ContestID:       pi.ContestID,
			ExtraArgs:       types.JudgeExtraArgs{RejudgeType: types.RejudgeScopeFull},
			JudgingPriority: contest.JudgingPriority,
			JudgingWeight:   contest.JudgingWeight,
			Source:          before.Source,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to hand submission to judging")
			return fmt.Errorf("failed to hand submission to judging: %w", err)
		}
	}

	if before.UserID.Valid {
		if err := a.RecomputeResults(ctx, before.UserID.V, before.ProblemInstanceID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to recompute results")
			return err
		}
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "changed submission kind")
	return nil
}

// SetNeedsRejudge flags submissions for a later rejudge. Each update takes
// the submission's row lock so it cannot interleave with judging.
func (a *Aggregator) SetNeedsRejudge(
	ctx context.Context,
	actorID uuid.UUID,
	contestID uuid.UUID,
	submissionIDs []uuid.UUID,
	needsRejudge bool,
) error {
	ctx, span := tracer.Start(ctx, "SetNeedsRejudge")
	defer span.End()

	span.SetAttributes(
		attribute.String("contest.id", contestID.String()),
		attribute.Bool("needs_rejudge", needsRejudge),
	)

	submissions, err := a.loadSubmissions(ctx, contestID, submissionIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submissions")
		return err
	}

	ids := make([]uuid.UUID, len(submissions))
	for i, s := range submissions {
		ids[i] = s.ID
		err := a.transact(ctx, func(tx *gorm.DB) error {
			sub, err := models.ForUpdate[models.Submission](ctx, tx, s.ID)
			if err != nil {
				return err
			}
			if sub.NeedsRejudge == needsRejudge {
				return nil
			}
			return tx.Model(sub).Update("needs_rejudge", needsRejudge).Error
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to set needs rejudge")
			return fmt.Errorf("failed to set needs rejudge: %w", err)
		}
	}

	audit.LogNeedsRejudgeChanged(actorContext(actorID, contestID), idStrings(ids), needsRejudge)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "set needs rejudge")
	return nil
}
