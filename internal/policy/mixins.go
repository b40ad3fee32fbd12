package policy

import (
	"fmt"
	"time"

	"github.com/j4b6ski/oioioi/internal/score"
)

const (
	MixinPreparationWindow     = "preparation-window"
	MixinSeparatePublicResults = "separate-public-results"
	MixinBestSubmission        = "best-submission"
	MixinWeightedScores        = "weighted-scores"
	MixinStatementsHidden      = "statements-hidden"
)

const maxPreparationTime = 30 * time.Minute

// preparationWindow hides every round shortly before the next one starts.
// While any round is active only active rounds are shown.
type preparationWindow struct {
	next RoundVisibility
}

func (p preparationWindow) CanSeeRound(c Context, r Round) bool {
	if c.IsAdmin() {
		return true
	}
	if c.HasActiveRound() {
		return r.Times.IsActive(c.Now)
	}

	left, right := c.LastBreak()
	if left != nil && right != nil {
		prep := min(maxPreparationTime, right.Sub(*left)/2)
		if c.Now.After(right.Add(-prep)) && c.Now.Before(*right) {
			return false
		}
	}
	return p.next.CanSeeRound(c, r)
}

type separatePublicResults struct {
	ResultsPolicy
}

func (separatePublicResults) SeparatePublicResults() bool {
	return true
}

// Best scored submission wins, the later one on ties
type bestSubmission struct {
	ScoringStrategy
}

func (b bestSubmission) ProblemResult(in ProblemInput) (*ProblemOutcome, error) {
	var best *ProblemSubmission
	for i := range in.Submissions {
		s := &in.Submissions[i]
		if s.Score == nil {
			continue
		}
		if best == nil {
			best = s
			continue
		}
		c, err := s.Score.Compare(best.Score)
		if err != nil {
			return nil, err
		}
		if c >= 0 {
			best = s
		}
	}

	if best == nil {
		return nil, nil
	}
	return &ProblemOutcome{Score: best.Score, Status: best.Status, ReportID: best.ReportID}, nil
}

// Scales integer problem scores by the problem instance weight
type weightedScores struct {
	ScoringStrategy
}

func (w weightedScores) ProblemResult(in ProblemInput) (*ProblemOutcome, error) {
	out, err := w.ScoringStrategy.ProblemResult(in)
	if err != nil || out == nil || out.Score == nil || in.ScoreWeight == 1 {
		return out, err
	}

	s, ok := out.Score.(score.IntegerScore)
	if !ok {
		return nil, fmt.Errorf("%w: cannot weight %s score", score.ErrInvalidScoreValue, out.Score.Kind())
	}
	weighted := *out
	weighted.Score = s.Weighted(in.ScoreWeight)
	return &weighted, nil
}

type hiddenStatements struct{}

func (hiddenStatements) DefaultCanSeeStatement(Context, Round) bool {
	return false
}

func builtinMixins() []Mixin {
	return []Mixin{
		{
			Name:     MixinPreparationWindow,
			Provides: []Behavior{BehaviorRounds},
			Apply: func(rs RuleSet) RuleSet {
				rs.Rounds = preparationWindow{next: rs.Rounds}
				return rs
			},
		},
		{
			Name:     MixinSeparatePublicResults,
			Provides: []Behavior{BehaviorResults},
			Apply: func(rs RuleSet) RuleSet {
				rs.Results = separatePublicResults{rs.Results}
				return rs
			},
		},
		{
			Name:     MixinBestSubmission,
			Provides: []Behavior{BehaviorScoring},
			Apply: func(rs RuleSet) RuleSet {
				rs.Scoring = bestSubmission{rs.Scoring}
				return rs
			},
		},
		{
			Name:       MixinWeightedScores,
			Provides:   []Behavior{BehaviorScoring},
			Supersedes: []string{MixinBestSubmission},
			Apply: func(rs RuleSet) RuleSet {
				rs.Scoring = weightedScores{rs.Scoring}
				return rs
			},
		},
		{
			Name:     MixinStatementsHidden,
			Provides: []Behavior{BehaviorStatements},
			Apply: func(rs RuleSet) RuleSet {
				rs.Statements = hiddenStatements{}
				return rs
			},
		},
	}
}
