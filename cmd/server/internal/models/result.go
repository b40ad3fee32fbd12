package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

// ResultForProblem is the score of one user on one problem instance
type ResultForProblem struct {
	Score              score.Field            `gorm:"type:text"`
	Status             types.SubmissionStatus `gorm:"type:text"`
	SubmissionReportID datatypes.Null[uuid.UUID]
	Model
	UserID            uuid.UUID
	ProblemInstanceID uuid.UUID
}

func (ResultForProblem) TableName() string {
	return "result_for_problem"
}

func (r ResultForProblem) GetID() uuid.UUID {
	return r.ID
}

type ResultForRound struct {
	Score score.Field `gorm:"type:text"`
	Model
	UserID  uuid.UUID
	RoundID uuid.UUID
}

func (ResultForRound) TableName() string {
	return "result_for_round"
}

func (r ResultForRound) GetID() uuid.UUID {
	return r.ID
}

type ResultForContest struct {
	Score score.Field `gorm:"type:text"`
	Model
	UserID    uuid.UUID
	ContestID uuid.UUID
}

func (ResultForContest) TableName() string {
	return "result_for_contest"
}

func (r ResultForContest) GetID() uuid.UUID {
	return r.ID
}
