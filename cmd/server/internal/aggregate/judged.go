package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/audit"
	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

// Report kinds that carry the submission's verdict
var scoredReportKinds = []types.ReportKind{types.ReportKindNormal, types.ReportKindFailure}

// HandleSubmissionJudged reacts to the judging backend finishing a report.
// Deliveries may repeat or arrive out of order: the newest report always wins.
func (a *Aggregator) HandleSubmissionJudged(ctx context.Context, submissionID, reportID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "HandleSubmissionJudged")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", submissionID.String()),
		attribute.String("report.id", reportID.String()),
	)

	var sub *models.Submission
	err := a.transact(ctx, func(tx *gorm.DB) error {
		var err error
		sub, err = models.ForUpdate[models.Submission](ctx, tx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}

		var count int64
		err = tx.Model(&models.SubmissionReport{}).
			Where("id = ? AND submission_id = ?", reportID, submissionID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to look up report: %w", err)
		}
		if count == 0 {
			return ErrReportNotFound
		}

		if err := activateNewest(tx, submissionID, []types.ReportKind{types.ReportKindInitial}); err != nil {
			return err
		}
		if err := activateNewest(tx, submissionID, scoredReportKinds); err != nil {
			return err
		}

		return copyVerdict(ctx, tx, sub)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to apply judging report")
		return fmt.Errorf("failed to apply judging report: %w", err)
	}

	pi, err := models.ByID[models.ProblemInstance](ctx, a.db, sub.ProblemInstanceID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load problem instance")
		return fmt.Errorf("failed to load problem instance: %w", err)
	}

	auditCtx := audit.Context{ContestID: pi.ContestID.String()}
	if sub.UserID.Valid {
		u := sub.UserID.V.String()
		auditCtx.UserID = &u
	}
	audit.LogSubmissionJudged(auditCtx, submissionID.String(), reportID.String(), sub.Status, optionalString(sub.Score))

	if !sub.UserID.Valid {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "judged submission without an owner")
		return nil
	}

	if err := a.RecomputeResults(ctx, sub.UserID.V, sub.ProblemInstanceID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to recompute results")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "handled judged submission")
	return nil
}

// activateNewest makes the newest not yet superseded report of the given
// kinds ACTIVE and supersedes any other ACTIVE one
func activateNewest(tx *gorm.DB, submissionID uuid.UUID, kinds []types.ReportKind) error {
	var newest models.SubmissionReport
	result := tx.
		Where("submission_id = ? AND kind IN ? AND status IN ?",
			submissionID, kinds,
			[]types.ReportStatus{types.ReportStatusInactive, types.ReportStatusActive}).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&newest)
	if result.Error != nil {
		return fmt.Errorf("failed to find newest report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	if newest.Status == types.ReportStatusInactive {
		err := tx.Model(&newest).Update("status", types.ReportStatusActive).Error
		if err != nil {
			return fmt.Errorf("failed to activate report: %w", err)
		}
	}

	err := tx.Model(&models.SubmissionReport{}).
		Where("submission_id = ? AND kind IN ? AND status = ? AND id <> ?",
			submissionID, kinds, types.ReportStatusActive, newest.ID).
		Update("status", types.ReportStatusSuperseded).Error
	if err != nil {
		return fmt.Errorf("failed to supersede reports: %w", err)
	}
	return nil
}

// copyVerdict sets the submission status and score from its ACTIVE report
func copyVerdict(ctx context.Context, tx *gorm.DB, sub *models.Submission) error {
	var active models.SubmissionReport
	result := tx.
		Where("submission_id = ? AND status = ? AND kind IN ?",
			sub.ID, types.ReportStatusActive, scoredReportKinds).
		Limit(1).
		Find(&active)
	if result.Error != nil {
		return fmt.Errorf("failed to load active report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	status := types.SubmissionStatusSystemError
	var value score.Field
	if active.Kind == types.ReportKindNormal {
		sr, err := models.ScoreReportFor(ctx, tx, active.ID)
		if err != nil {
			return err
		}
		if sr != nil {
			status = sr.Status
			value = sr.Score
		}
	}

	if sub.Status == status && sub.Score.String() == value.String() {
		return nil
	}

	err := tx.Model(sub).Updates(map[string]any{"status": status, "score": value}).Error
	if err != nil {
		return fmt.Errorf("failed to update submission verdict: %w", err)
	}
	sub.Status = status
	sub.Score = value
	return nil
}
