// Package contests loads contest state from storage and answers requests
// through the visibility decider.
package contests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/models"
	"github.com/j4b6ski/oioioi/internal/judging"
	"github.com/j4b6ski/oioioi/internal/policy"
	"github.com/j4b6ski/oioioi/internal/roundclock"
	"github.com/j4b6ski/oioioi/internal/visibility"
)

var tracer = otel.Tracer("github.com/j4b6ski/oioioi/cmd/server/internal/contests")

var (
	ErrNotPermitted             = errors.New("not permitted")
	ErrNotFound                 = errors.New("not found")
	ErrSubmissionsLimitExceeded = errors.New("submissions limit exceeded")
)

type Service struct {
	db       *gorm.DB
	policies *policy.Registry
	judge    judging.Backend
}

func NewService(db *gorm.DB, policies *policy.Registry, judge judging.Backend) *Service {
	return &Service{db: db, policies: policies, judge: judge}
}

// View is one viewer's picture of one contest at one instant
type View struct {
	Contest *models.Contest
	Rounds  map[uuid.UUID]models.Round
	Context policy.Context
	Decider visibility.Decider
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// View builds the decision context for a viewer. A nil user is anonymous.
func (s *Service) View(
	ctx context.Context,
	contestID uuid.UUID,
	user *models.User,
	now time.Time,
) (*View, error) {
	ctx, span := tracer.Start(ctx, "View")
	defer span.End()

	span.SetAttributes(attribute.String("contest.id", contestID.String()))

	contest, err := models.ByID[models.Contest](ctx, s.db, contestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load contest")
		return nil, notFound(err)
	}

	rules, err := s.policies.Resolve(contest.PolicyName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve contest policy")
		return nil, fmt.Errorf("failed to resolve contest policy: %w", err)
	}

	role, participant, err := models.ContestRole(ctx, s.db, contestID, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve viewer role")
		return nil, err
	}

	rounds, err := models.RoundsOf(ctx, s.db, contestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load rounds")
		return nil, err
	}

	extensions := map[uuid.UUID]int{}
	viewer := policy.Viewer{Role: role, Participant: participant}
	if user != nil {
		id := user.ID
		viewer.ID = &id

		roundIDs := make([]uuid.UUID, len(rounds))
		for i, r := range rounds {
			roundIDs[i] = r.ID
		}
		extensions, err = models.ExtensionsFor(ctx, s.db, user.ID, roundIDs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load time extensions")
			return nil, err
		}
	}

	statements, err := models.StatementVisibilityOf(ctx, s.db, contestID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load statement config")
		return nil, err
	}

	separatePublic := rules.Results.SeparatePublicResults()
	v := &View{
		Contest: contest,
		Rounds:  make(map[uuid.UUID]models.Round, len(rounds)),
		Context: policy.Context{
			ContestID:           contestID,
			Viewer:              viewer,
			Now:                 now,
			Rounds:              make([]policy.Round, len(rounds)),
			StatementVisibility: statements,
		},
		Decider: visibility.New(rules),
	}
	for i, r := range rounds {
		v.Rounds[r.ID] = r
		v.Context.Rounds[i] = policy.Round{
			ID:      r.ID,
			Times:   roundclock.New(r.Dates(), extensions[r.ID], separatePublic),
			IsTrial: r.IsTrial,
		}
	}

	span.SetAttributes(attribute.String("role", string(role)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "built contest view")
	return v, nil
}

// Problem maps a stored problem instance for the decider. A zero problem
// limit falls back to the contest default.
func (v *View) Problem(pi *models.ProblemInstance) visibility.Problem {
	p := visibility.Problem{ID: pi.ID, SubmissionsLimit: pi.SubmissionsLimit}
	if p.SubmissionsLimit == 0 {
		p.SubmissionsLimit = v.Contest.DefaultSubmissionsLimit
	}
	if pi.RoundID.Valid {
		id := pi.RoundID.V
		p.RoundID = &id
	}
	return p
}

func (v *View) Submission(sub *models.Submission, pi *models.ProblemInstance) visibility.Submission {
	vs := visibility.Submission{
		ID:        sub.ID,
		UserID:    models.PtrFromNull(sub.UserID),
		Date:      sub.Date,
		Kind:      sub.Kind,
		ProblemID: pi.ID,
	}
	if pi.RoundID.Valid {
		id := pi.RoundID.V
		vs.RoundID = &id
	}
	return vs
}

// RequireAdmin fails with ErrNotPermitted unless the user administers the contest
func (s *Service) RequireAdmin(
	ctx context.Context,
	contestID uuid.UUID,
	user *models.User,
	now time.Time,
) (*View, error) {
	v, err := s.View(ctx, contestID, user, now)
	if err != nil {
		return nil, err
	}
	if !v.Context.IsAdmin() {
		return nil, ErrNotPermitted
	}
	return v, nil
}

// ContestOfSubmission resolves which contest a submission was made in
func (s *Service) ContestOfSubmission(
	ctx context.Context,
	submissionID uuid.UUID,
) (*models.Submission, *models.ProblemInstance, error) {
	sub, err := models.ByID[models.Submission](ctx, s.db, submissionID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	pi, err := models.ByID[models.ProblemInstance](ctx, s.db, sub.ProblemInstanceID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	return sub, pi, nil
}

// ContestOfRound resolves which contest a round belongs to
func (s *Service) ContestOfRound(ctx context.Context, roundID uuid.UUID) (*models.Round, error) {
	round, err := models.ByID[models.Round](ctx, s.db, roundID)
	if err != nil {
		return nil, notFound(err)
	}
	return round, nil
}
