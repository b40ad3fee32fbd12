package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProblemInstance struct {
	ShortName string
	RoundID   datatypes.Null[uuid.UUID]
	Model
	ContestID        uuid.UUID
	SubmissionsLimit int
	ScoreWeight      float64 `gorm:"default:1"`
}

func (ProblemInstance) TableName() string {
	return "problem_instance"
}

func (p ProblemInstance) GetID() uuid.UUID {
	return p.ID
}
