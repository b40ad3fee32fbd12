package contests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/focus"
	"github.com/j4b6ski/oioioi/internal/policy"
	"github.com/j4b6ski/oioioi/internal/roundclock"
	"github.com/j4b6ski/oioioi/internal/types"
	"github.com/j4b6ski/oioioi/internal/visibility"
)

func optionalMilli(t *time.Time) *types.UnixMilli {
	if t == nil {
		return nil
	}
	m := types.NewUnixMilli(*t)
	return &m
}

// Rounds lists the rounds the viewer may see, most relevant first
func (s *Service) Rounds(
	ctx context.Context,
	contestID uuid.UUID,
	user *models.User,
	now time.Time,
) ([]types.Round, error) {
	ctx, span := tracer.Start(ctx, "Rounds")
	defer span.End()

	v, err := s.View(ctx, contestID, user, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build contest view")
		return nil, err
	}
	if !v.Decider.CanEnterContest(v.Context) {
		span.RecordError(ErrNotPermitted)
		span.SetStatus(codes.Error, "viewer may not enter contest")
		return nil, ErrNotPermitted
	}

	visible := v.Decider.VisibleRounds(v.Context)
	ordered := focus.Order(visible, func(r policy.Round) roundclock.Times { return r.Times }, now)

	out := make([]types.Round, len(ordered))
	for i, r := range ordered {
		id := r.ID
		out[i] = types.Round{
			ID:      r.ID.String(),
			Name:    v.Rounds[r.ID].Name,
			State:   r.Times.StateOf(now).String(),
			IsTrial: r.IsTrial,
			Times: types.RoundTimes{
				Start:             types.NewUnixMilli(r.Times.Start),
				End:               optionalMilli(r.Times.EffectiveEnd()),
				ResultsDate:       optionalMilli(r.Times.ResultsDate),
				PublicResultsDate: optionalMilli(r.Times.PublicResultsDate),
			},
			Submittable:    v.Decider.CanSubmit(v.Context, visibility.Problem{RoundID: &id}),
			ResultsVisible: v.Decider.ResultsVisibleTo(v.Context, visibility.Submission{RoundID: &id}),
		}
	}

	span.SetAttributes(attribute.Int("rounds", len(out)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed rounds")
	return out, nil
}

// Problems lists the problem instances the viewer may see
func (s *Service) Problems(
	ctx context.Context,
	contestID uuid.UUID,
	user *models.User,
	now time.Time,
) ([]types.ProblemInstance, error) {
	ctx, span := tracer.Start(ctx, "Problems")
	defer span.End()

	v, err := s.View(ctx, contestID, user, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build contest view")
		return nil, err
	}
	if !v.Decider.CanEnterContest(v.Context) {
		span.RecordError(ErrNotPermitted)
		span.SetStatus(codes.Error, "viewer may not enter contest")
		return nil, ErrNotPermitted
	}

	var instances []models.ProblemInstance
	err = s.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("short_name").
		Find(&instances).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load problem instances")
		return nil, fmt.Errorf("failed to load problem instances: %w", err)
	}

	out := make([]types.ProblemInstance, 0, len(instances))
	for i := range instances {
		pi := &instances[i]
		p := v.Problem(pi)
		if !v.Decider.CanSeeProblem(v.Context, p) {
			continue
		}

		item := types.ProblemInstance{
			ID:               pi.ID.String(),
			ShortName:        pi.ShortName,
			SubmissionsLimit: v.Decider.SubmissionsLimit(v.Context, p),
			CanSeeStatement:  v.Decider.CanSeeStatement(v.Context, p),
			CanSubmit:        v.Decider.CanSubmit(v.Context, p),
		}
		if p.RoundID != nil {
			rid := p.RoundID.String()
			item.RoundID = &rid
		}
		out = append(out, item)
	}

	span.SetAttributes(attribute.Int("problems", len(out)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed problems")
	return out, nil
}

// Reports lists the reports of a submission the viewer may see
func (s *Service) Reports(
	ctx context.Context,
	submissionID uuid.UUID,
	user *models.User,
	now time.Time,
) ([]types.Report, error) {
	ctx, span := tracer.Start(ctx, "Reports")
	defer span.End()

	span.SetAttributes(attribute.String("submission.id", submissionID.String()))

	sub, pi, err := s.ContestOfSubmission(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submission")
		return nil, err
	}

	v, err := s.View(ctx, pi.ContestID, user, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build contest view")
		return nil, err
	}

	vs := v.Submission(sub, pi)
	if !v.Decider.CanSeeSubmission(v.Context, vs) {
		span.RecordError(ErrNotPermitted)
		span.SetStatus(codes.Error, "viewer may not see submission")
		return nil, ErrNotPermitted
	}

	stored, err := models.ReportsOf(ctx, s.db, sub.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load reports")
		return nil, err
	}

	candidates := make([]visibility.Report, len(stored))
	byID := make(map[uuid.UUID]models.SubmissionReport, len(stored))
	for i, r := range stored {
		candidates[i] = visibility.Report{ID: r.ID, Kind: r.Kind, Status: r.Status}
		byID[r.ID] = r
	}

	visible := v.Decider.FilterVisibleReports(v.Context, vs, candidates)
	out := make([]types.Report, 0, len(visible))
	for _, r := range visible {
		row := byID[r.ID]
		item := types.Report{
			ID:        r.ID.String(),
			Kind:      r.Kind,
			Status:    r.Status,
			CreatedAt: types.NewUnixMilli(row.CreatedAt),
		}

		sr, err := models.ScoreReportFor(ctx, s.db, r.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load score report")
			return nil, err
		}
		if sr != nil && sr.Score.Valid() {
			value := sr.Score.String()
			item.Score = &value
		}
		out = append(out, item)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "listed reports")
	return out, nil
}
