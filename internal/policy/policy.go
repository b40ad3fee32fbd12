// Package policy holds the per-contest rule-sets and the registry that
// composes them with their mixins.
package policy

import (
	"time"

	"github.com/google/uuid"

	"github.com/j4b6ski/oioioi/internal/roundclock"
	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

// Behavior names one overridable part of a rule-set
type Behavior string

const (
	BehaviorParticipants Behavior = "participants"
	BehaviorScoring      Behavior = "scoring"
	BehaviorAcceptance   Behavior = "acceptance"
	BehaviorStatements   Behavior = "statements"
	BehaviorRounds       Behavior = "rounds"
	BehaviorResults      Behavior = "results"
)

type Viewer struct {
	ID   *uuid.UUID
	Role types.Role
	// Registered as a participant of the contest
	Participant bool
}

type Round struct {
	ID      uuid.UUID
	Times   roundclock.Times
	IsTrial bool
}

// Context carries everything a decision may depend on. There is no other
// source of contest, viewer or time.
type Context struct {
	ContestID           uuid.UUID
	Viewer              Viewer
	Now                 time.Time
	Rounds              []Round
	StatementVisibility types.StatementVisibility
}

func (c Context) IsAdmin() bool {
	return c.Viewer.Role == types.RoleAdmin
}

func (c Context) IsPrivileged() bool {
	return c.Viewer.Role.IsPrivileged()
}

func (c Context) RoundByID(id uuid.UUID) (Round, bool) {
	for _, r := range c.Rounds {
		if r.ID == id {
			return r, true
		}
	}
	return Round{}, false
}

func (c Context) HasActiveRound() bool {
	for _, r := range c.Rounds {
		if r.Times.IsActive(c.Now) {
			return true
		}
	}
	return false
}

// LastBreak returns the latest end of a past round and the earliest start of
// a future round. Either may be nil.
func (c Context) LastBreak() (left, right *time.Time) {
	for _, r := range c.Rounds {
		switch r.Times.StateOf(c.Now) {
		case roundclock.Past:
			end := r.Times.EffectiveEnd()
			if end != nil && (left == nil || end.After(*left)) {
				left = end
			}
		case roundclock.Future:
			start := r.Times.Start
			if right == nil || start.Before(*right) {
				right = &start
			}
		}
	}
	return left, right
}

type ParticipantPolicy interface {
	CanEnterContest(c Context) bool
}

type RoundVisibility interface {
	CanSeeRound(c Context, r Round) bool
}

type StatementPolicy interface {
	// Consulted when the contest statement override is AUTO
	DefaultCanSeeStatement(c Context, r Round) bool
}

type SubmissionAcceptance interface {
	CanSubmit(c Context, r Round) bool
	DefaultKind(c Context) types.SubmissionKind
	// Zero means unlimited
	SubmissionsLimit(c Context, problemLimit int) int
}

type ResultsPolicy interface {
	ResultsVisible(c Context, r Round) bool
	PublicResultsVisible(c Context, r Round) bool
	// Round times should be built with a separate public results date
	SeparatePublicResults() bool
}

// ProblemSubmission is a judged NORMAL submission considered for a problem result
type ProblemSubmission struct {
	ID       uuid.UUID
	Date     time.Time
	Status   types.SubmissionStatus
	Score    score.Value
	ReportID *uuid.UUID
}

type ProblemInput struct {
	// Oldest first
	Submissions []ProblemSubmission
	RoundStart  *time.Time
	ScoreWeight float64
}

type ProblemOutcome struct {
	Score    score.Value
	Status   types.SubmissionStatus
	ReportID *uuid.UUID
}

type ScoringStrategy interface {
	// Nil outcome means the user has no result for the problem
	ProblemResult(in ProblemInput) (*ProblemOutcome, error)
	RoundScore(problemScores []score.Value) (score.Value, error)
	// Receives non-trial rounds only
	ContestScore(roundScores []score.Value) (score.Value, error)
}

// RuleSet is a fully composed set of behaviors
type RuleSet struct {
	Name         string
	Participants ParticipantPolicy
	Rounds       RoundVisibility
	Statements   StatementPolicy
	Acceptance   SubmissionAcceptance
	Scoring      ScoringStrategy
	Results      ResultsPolicy
}
