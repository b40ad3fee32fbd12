// Package visibility answers who may see or submit what. Every decision is a
// pure function of the rule-set and the passed policy.Context.
package visibility

import (
	"time"

	"github.com/google/uuid"

	"github.com/j4b6ski/oioioi/internal/policy"
	"github.com/j4b6ski/oioioi/internal/types"
)

type Problem struct {
	ID               uuid.UUID
	RoundID          *uuid.UUID
	SubmissionsLimit int
}

type Submission struct {
	ID        uuid.UUID
	UserID    *uuid.UUID
	RoundID   *uuid.UUID
	Date      time.Time
	Kind      types.SubmissionKind
	ProblemID uuid.UUID
}

type Report struct {
	ID     uuid.UUID
	Kind   types.ReportKind
	Status types.ReportStatus
}

type Decider struct {
	rules policy.RuleSet
}

func New(rules policy.RuleSet) Decider {
	return Decider{rules: rules}
}

func (d Decider) RuleSet() policy.RuleSet {
	return d.rules
}

func (d Decider) round(c policy.Context, id *uuid.UUID) (policy.Round, bool) {
	if id == nil {
		return policy.Round{}, false
	}
	return c.RoundByID(*id)
}

func (d Decider) CanEnterContest(c policy.Context) bool {
	if c.IsAdmin() {
		return true
	}
	return d.rules.Participants.CanEnterContest(c)
}

func (d Decider) CanSeeRound(c policy.Context, r policy.Round) bool {
	if c.IsAdmin() {
		return true
	}
	return d.rules.Rounds.CanSeeRound(c, r)
}

func (d Decider) CanSeeProblem(c policy.Context, p Problem) bool {
	if c.IsAdmin() {
		return true
	}
	r, ok := d.round(c, p.RoundID)
	if !ok {
		return false
	}
	return d.CanSeeRound(c, r)
}

func (d Decider) CanSeeStatement(c policy.Context, p Problem) bool {
	if c.IsAdmin() {
		return true
	}

	switch c.StatementVisibility {
	case types.StatementVisibilityYes:
		return true
	case types.StatementVisibilityNo:
		return false
	default:
		r, _ := d.round(c, p.RoundID)
		return d.rules.Statements.DefaultCanSeeStatement(c, r)
	}
}

func (d Decider) CanSubmit(c policy.Context, p Problem) bool {
	if c.Viewer.Role == types.RoleAnonymous || c.Viewer.ID == nil {
		return false
	}
	r, ok := d.round(c, p.RoundID)
	if !ok {
		return false
	}
	if c.IsAdmin() {
		return true
	}
	if !d.rules.Participants.CanEnterContest(c) {
		return false
	}
	return d.rules.Acceptance.CanSubmit(c, r)
}

// ResultsVisibleTo reports whether the viewer may see the score of the submission
func (d Decider) ResultsVisibleTo(c policy.Context, s Submission) bool {
	if c.IsPrivileged() {
		return true
	}
	r, ok := d.round(c, s.RoundID)
	if !ok {
		return false
	}
	return d.rules.Results.ResultsVisible(c, r)
}

func (d Decider) PublicResultsVisible(c policy.Context, r policy.Round) bool {
	return d.rules.Results.PublicResultsVisible(c, r)
}

func (d Decider) FilterVisibleReports(c policy.Context, s Submission, reports []Report) []Report {
	if c.IsPrivileged() {
		return reports
	}
	if !d.ResultsVisibleTo(c, s) {
		return []Report{}
	}

	visible := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.Status == types.ReportStatusActive && r.Kind == types.ReportKindNormal {
			visible = append(visible, r)
		}
	}
	return visible
}

// CanSeeSubmission allows non-privileged viewers only their own submissions
// of visible problems
func (d Decider) CanSeeSubmission(c policy.Context, s Submission) bool {
	if c.IsPrivileged() {
		return true
	}
	if c.Viewer.ID == nil || s.UserID == nil || *c.Viewer.ID != *s.UserID {
		return false
	}
	if s.Kind == types.SubmissionKindIgnoredHidden || s.Date.After(c.Now) {
		return false
	}
	return d.CanSeeProblem(c, Problem{ID: s.ProblemID, RoundID: s.RoundID})
}

func (d Decider) VisibleRounds(c policy.Context) []policy.Round {
	rounds := make([]policy.Round, 0, len(c.Rounds))
	for _, r := range c.Rounds {
		if d.CanSeeRound(c, r) {
			rounds = append(rounds, r)
		}
	}
	return rounds
}

func (d Decider) VisibleProblems(c policy.Context, problems []Problem) []Problem {
	visible := make([]Problem, 0, len(problems))
	for _, p := range problems {
		if d.CanSeeProblem(c, p) {
			visible = append(visible, p)
		}
	}
	return visible
}

func (d Decider) SubmittableProblems(c policy.Context, problems []Problem) []Problem {
	submittable := make([]Problem, 0, len(problems))
	for _, p := range problems {
		if d.CanSeeProblem(c, p) && d.CanSubmit(c, p) {
			submittable = append(submittable, p)
		}
	}
	return submittable
}

// SubmissionsLimit is zero when unlimited
func (d Decider) SubmissionsLimit(c policy.Context, p Problem) int {
	return d.rules.Acceptance.SubmissionsLimit(c, p.SubmissionsLimit)
}

func (d Decider) DefaultKind(c policy.Context) types.SubmissionKind {
	return d.rules.Acceptance.DefaultKind(c)
}
