package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/audit"
	"github.com/j4b6ski/oioioi/internal/logger"
	"github.com/j4b6ski/oioioi/internal/policy"
	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

const (
	stepProblem = "problem"
	stepRound   = "round"
	stepContest = "contest"
)

func isInvalidScore(err error) bool {
	return errors.Is(err, score.ErrInvalidScoreValue)
}

// scope is everything a recompute needs about one problem instance
type scope struct {
	problem *models.ProblemInstance
	round   *models.Round
	contest *models.Contest
	rules   policy.RuleSet
}

func (a *Aggregator) scopeOf(ctx context.Context, problemInstanceID uuid.UUID) (*scope, error) {
	problem, err := models.ByID[models.ProblemInstance](ctx, a.db, problemInstanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load problem instance: %w", err)
	}

	contest, err := models.ByID[models.Contest](ctx, a.db, problem.ContestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contest: %w", err)
	}

	rules, err := a.policies.Resolve(contest.PolicyName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contest policy: %w", err)
	}

	s := &scope{problem: problem, contest: contest, rules: rules}
	if problem.RoundID.Valid {
		s.round, err = models.ByID[models.Round](ctx, a.db, problem.RoundID.V)
		if err != nil {
			return nil, fmt.Errorf("failed to load round: %w", err)
		}
	}
	return s, nil
}

// RecomputeResults re-derives the problem, round and contest results of one
// user from scratch. Each level commits in its own transaction so the next
// level reads the committed value of the previous one.
func (a *Aggregator) RecomputeResults(ctx context.Context, userID, problemInstanceID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "RecomputeResults")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("problem_instance.id", problemInstanceID.String()),
	)

	start := time.Now()
	err := a.recomputeResults(ctx, userID, problemInstanceID)
	a.record(ctx, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to recompute results")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "recomputed results")
	return nil
}

func (a *Aggregator) recomputeResults(ctx context.Context, userID, problemInstanceID uuid.UUID) error {
	s, err := a.scopeOf(ctx, problemInstanceID)
	if err != nil {
		return err
	}

	userStr := userID.String()
	auditCtx := audit.Context{UserID: &userStr, ContestID: s.contest.ID.String()}
	event := audit.ResultsRecomputedEvent{ProblemInstanceID: problemInstanceID.String()}

	err = a.step(ctx, auditCtx, s, stepProblem, func(tx *gorm.DB) error {
		v, err := a.recomputeProblem(ctx, tx, s, userID)
		event.ProblemScore = v
		return err
	})
	if err != nil {
		return err
	}

	if s.round == nil {
		audit.LogResultsRecomputed(auditCtx, event)
		return nil
	}
	roundID := s.round.ID.String()
	event.RoundID = &roundID

	err = a.step(ctx, auditCtx, s, stepRound, func(tx *gorm.DB) error {
		v, err := a.recomputeRound(ctx, tx, s, userID)
		event.RoundScore = v
		return err
	})
	if err != nil {
		return err
	}

	err = a.step(ctx, auditCtx, s, stepContest, func(tx *gorm.DB) error {
		v, err := a.recomputeContest(ctx, tx, s, userID)
		event.ContestScore = v
		return err
	})
	if err != nil {
		return err
	}

	audit.LogResultsRecomputed(auditCtx, event)
	return nil
}

// step commits one level. An invalid score value aborts the level with its
// result row untouched and is flagged for an operator.
func (a *Aggregator) step(
	ctx context.Context,
	auditCtx audit.Context,
	s *scope,
	step string,
	fn func(tx *gorm.DB) error,
) error {
	err := a.transact(ctx, fn)
	if err == nil {
		return nil
	}

	if isInvalidScore(err) {
		logger.Logger.ErrorContext(ctx, "aggregation aborted on invalid score value",
			logger.OperatorAttention(),
			"step", step,
			"contest_id", s.contest.ID.String(),
			"problem_instance_id", s.problem.ID.String(),
			"user_id", derefString(auditCtx.UserID),
			"error", err,
		)
		audit.LogAggregationAborted(auditCtx, s.problem.ID.String(), step, err.Error())
	}

	return fmt.Errorf("failed to recompute %s result: %w", step, err)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// lockRow makes sure the result row exists and holds its lock. Reports
// whether this call inserted it.
func lockRow[T models.EngineModel](
	tx *gorm.DB,
	row *T,
	conflict []string,
	where string,
	args ...any,
) (bool, error) {
	columns := make([]clause.Column, len(conflict))
	for i, c := range conflict {
		columns[i] = clause.Column{Name: c}
	}

	result := tx.Clauses(clause.OnConflict{Columns: columns, DoNothing: true}).Create(row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create result row: %w", result.Error)
	}

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(where, args...).First(row).Error
	if err != nil {
		return false, fmt.Errorf("failed to lock result row: %w", err)
	}
	return result.RowsAffected > 0, nil
}

func (a *Aggregator) recomputeProblem(
	ctx context.Context,
	tx *gorm.DB,
	s *scope,
	userID uuid.UUID,
) (*string, error) {
	ctx, span := tracer.Start(ctx, "RecomputeResults/Problem")
	defer span.End()

	tx = tx.WithContext(ctx)

	row := models.ResultForProblem{
		UserID:            userID,
		ProblemInstanceID: s.problem.ID,
		Status:            types.SubmissionStatusPending,
	}
	created, err := lockRow(tx, &row,
		[]string{"user_id", "problem_instance_id"},
		"user_id = ? AND problem_instance_id = ?", userID, s.problem.ID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to lock problem result")
		return nil, err
	}

	var submissions []models.Submission
	err = tx.
		Where("user_id = ? AND problem_instance_id = ? AND kind = ?",
			userID, s.problem.ID, types.SubmissionKindNormal).
		Order("date, id").
		Find(&submissions).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submissions")
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	reports, err := activeReports(tx, submissions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load active reports")
		return nil, err
	}

	in := policy.ProblemInput{
		Submissions: make([]policy.ProblemSubmission, len(submissions)),
		ScoreWeight: s.problem.ScoreWeight,
	}
	if s.round != nil {
		in.RoundStart = &s.round.StartDate
	}
	for i, sub := range submissions {
		in.Submissions[i] = policy.ProblemSubmission{
			ID:     sub.ID,
			Date:   sub.Date,
			Status: sub.Status,
			Score:  sub.Score.Score,
		}
		if id, ok := reports[sub.ID]; ok {
			in.Submissions[i].ReportID = &id
		}
	}

	outcome, err := s.rules.Scoring.ProblemResult(in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring strategy failed")
		return nil, fmt.Errorf("scoring strategy failed: %w", err)
	}

	if outcome == nil {
		if err := tx.Delete(&row).Error; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete problem result")
			return nil, fmt.Errorf("failed to delete problem result: %w", err)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "no problem result")
		return nil, nil
	}

	next := models.ResultForProblem{
		Score:              score.NewField(outcome.Score),
		Status:             outcome.Status,
		SubmissionReportID: models.NewNull(outcome.ReportID),
	}
	if !created &&
		next.Score.String() == row.Score.String() &&
		next.Status == row.Status &&
		next.SubmissionReportID == row.SubmissionReportID {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "problem result unchanged")
		return optionalString(next.Score), nil
	}

	err = tx.Model(&row).Updates(map[string]any{
		"score":                next.Score,
		"status":               next.Status,
		"submission_report_id": next.SubmissionReportID,
	}).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update problem result")
		return nil, fmt.Errorf("failed to update problem result: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "updated problem result")
	return optionalString(next.Score), nil
}

func activeReports(tx *gorm.DB, submissions []models.Submission) (map[uuid.UUID]uuid.UUID, error) {
	reports := make(map[uuid.UUID]uuid.UUID, len(submissions))
	if len(submissions) == 0 {
		return reports, nil
	}

	ids := make([]uuid.UUID, len(submissions))
	for i, s := range submissions {
		ids[i] = s.ID
	}

	var rows []models.SubmissionReport
	err := tx.
		Where("submission_id IN ? AND status = ? AND kind IN ?",
			ids, types.ReportStatusActive, scoredReportKinds).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active reports: %w", err)
	}

	for _, r := range rows {
		reports[r.SubmissionID] = r.ID
	}
	return reports, nil
}

func (a *Aggregator) recomputeRound(
	ctx context.Context,
	tx *gorm.DB,
	s *scope,
	userID uuid.UUID,
) (*string, error) {
	ctx, span := tracer.Start(ctx, "RecomputeResults/Round")
	defer span.End()

	tx = tx.WithContext(ctx)

	row := models.ResultForRound{UserID: userID, RoundID: s.round.ID}
	_, err := lockRow(tx, &row,
		[]string{"user_id", "round_id"},
		"user_id = ? AND round_id = ?", userID, s.round.ID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to lock round result")
		return nil, err
	}

	var fields []score.Field
	err = tx.Model(&models.ResultForProblem{}).
		Joins("JOIN problem_instance ON problem_instance.id = result_for_problem.problem_instance_id").
		Where("result_for_problem.user_id = ? AND problem_instance.round_id = ?", userID, s.round.ID).
		Order("problem_instance.id").
		Pluck("result_for_problem.score", &fields).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load problem results")
		return nil, fmt.Errorf("failed to load problem results: %w", err)
	}

	total, err := s.rules.Scoring.RoundScore(values(fields))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to sum problem results")
		return nil, fmt.Errorf("failed to sum problem results: %w", err)
	}

	next := score.NewField(total)
	if err := updateScore(tx, &row, row.Score, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update round result")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "updated round result")
	return optionalString(next), nil
}

func (a *Aggregator) recomputeContest(
	ctx context.Context,
	tx *gorm.DB,
	s *scope,
	userID uuid.UUID,
) (*string, error) {
	ctx, span := tracer.Start(ctx, "RecomputeResults/Contest")
	defer span.End()

	tx = tx.WithContext(ctx)

	row := models.ResultForContest{UserID: userID, ContestID: s.contest.ID}
	_, err := lockRow(tx, &row,
		[]string{"user_id", "contest_id"},
		"user_id = ? AND contest_id = ?", userID, s.contest.ID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to lock contest result")
		return nil, err
	}

	var fields []score.Field
	err = tx.Model(&models.ResultForRound{}).
		Joins("JOIN round ON round.id = result_for_round.round_id").
		Where("result_for_round.user_id = ? AND round.contest_id = ? AND NOT round.is_trial",
			userID, s.contest.ID).
		Order("round.start_date, round.id").
		Pluck("result_for_round.score", &fields).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load round results")
		return nil, fmt.Errorf("failed to load round results: %w", err)
	}

	total, err := s.rules.Scoring.ContestScore(values(fields))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to sum round results")
		return nil, fmt.Errorf("failed to sum round results: %w", err)
	}

	next := score.NewField(total)
	if err := updateScore(tx, &row, row.Score, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update contest result")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "updated contest result")
	return optionalString(next), nil
}

// updateScore writes only on change so a replay leaves the row untouched
func updateScore(tx *gorm.DB, row any, prev, next score.Field) error {
	if prev.String() == next.String() {
		return nil
	}
	if err := tx.Model(row).Update("score", next).Error; err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	return nil
}

func values(fields []score.Field) []score.Value {
	out := make([]score.Value, len(fields))
	for i, f := range fields {
		out[i] = f.Score
	}
	return out
}

func optionalString(f score.Field) *string {
	if !f.Valid() {
		return nil
	}
	s := f.String()
	return &s
}
