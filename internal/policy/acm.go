package policy

import (
	"time"

	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

const acmPenaltyMinutes = 20

// First accepted submission solves the problem. Every earlier rejected
// attempt adds a fixed penalty to the minutes elapsed since the round start.
type acmScoring struct{}

func (acmScoring) ProblemResult(in ProblemInput) (*ProblemOutcome, error) {
	if len(in.Submissions) == 0 {
		return nil, nil
	}

	var failed int64
	for _, s := range in.Submissions {
		if s.Status != types.SubmissionStatusOK {
			if !s.Status.IsPenaltyFree() {
				failed++
			}
			continue
		}

		var elapsed int64
		if in.RoundStart != nil && s.Date.After(*in.RoundStart) {
			elapsed = int64(s.Date.Sub(*in.RoundStart) / time.Minute)
		}
		return &ProblemOutcome{
			Score:    score.NewACM(1, elapsed+failed*acmPenaltyMinutes),
			Status:   s.Status,
			ReportID: s.ReportID,
		}, nil
	}

	last := in.Submissions[len(in.Submissions)-1]
	return &ProblemOutcome{
		Score:    score.NewACM(0, 0),
		Status:   last.Status,
		ReportID: last.ReportID,
	}, nil
}

func (acmScoring) RoundScore(problemScores []score.Value) (score.Value, error) {
	return score.Sum(problemScores...)
}

func (acmScoring) ContestScore(roundScores []score.Value) (score.Value, error) {
	return score.Sum(roundScores...)
}
