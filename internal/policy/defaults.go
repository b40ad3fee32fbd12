package policy

import (
	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

type openParticipants struct{}

func (openParticipants) CanEnterContest(Context) bool {
	return true
}

type registeredParticipants struct{}

func (registeredParticipants) CanEnterContest(c Context) bool {
	return c.IsPrivileged() || c.Viewer.Participant
}

type defaultRounds struct{}

func (defaultRounds) CanSeeRound(c Context, r Round) bool {
	if c.IsAdmin() {
		return true
	}
	return !r.Times.IsFuture(c.Now)
}

type visibleStatements struct{}

func (visibleStatements) DefaultCanSeeStatement(Context, Round) bool {
	return true
}

type defaultAcceptance struct{}

func (defaultAcceptance) CanSubmit(c Context, r Round) bool {
	switch c.Viewer.Role {
	case types.RoleAnonymous, "":
		return false
	case types.RoleAdmin:
		return true
	default:
		return r.Times.Submittable(c.Now)
	}
}

func (defaultAcceptance) DefaultKind(c Context) types.SubmissionKind {
	if c.IsPrivileged() {
		return types.SubmissionKindIgnored
	}
	return types.SubmissionKindNormal
}

func (defaultAcceptance) SubmissionsLimit(c Context, problemLimit int) int {
	if c.IsAdmin() || problemLimit < 0 {
		return 0
	}
	return problemLimit
}

type defaultResults struct{}

func (defaultResults) ResultsVisible(c Context, r Round) bool {
	return r.Times.ResultsVisible(c.Now)
}

func (defaultResults) PublicResultsVisible(c Context, r Round) bool {
	return r.Times.PublicResultsVisible(c.Now)
}

func (defaultResults) SeparatePublicResults() bool {
	return false
}

// Latest scored submission wins
type defaultScoring struct{}

func (defaultScoring) ProblemResult(in ProblemInput) (*ProblemOutcome, error) {
	for i := len(in.Submissions) - 1; i >= 0; i-- {
		s := in.Submissions[i]
		if s.Score == nil {
			continue
		}
		return &ProblemOutcome{Score: s.Score, Status: s.Status, ReportID: s.ReportID}, nil
	}
	return nil, nil
}

func (defaultScoring) RoundScore(problemScores []score.Value) (score.Value, error) {
	return score.Sum(problemScores...)
}

func (defaultScoring) ContestScore(roundScores []score.Value) (score.Value, error) {
	return score.Sum(roundScores...)
}

func withDefaults(rs RuleSet) RuleSet {
	if rs.Participants == nil {
		rs.Participants = openParticipants{}
	}
	if rs.Rounds == nil {
		rs.Rounds = defaultRounds{}
	}
	if rs.Statements == nil {
		rs.Statements = visibleStatements{}
	}
	if rs.Acceptance == nil {
		rs.Acceptance = defaultAcceptance{}
	}
	if rs.Scoring == nil {
		rs.Scoring = defaultScoring{}
	}
	if rs.Results == nil {
		rs.Results = defaultResults{}
	}
	return rs
}
