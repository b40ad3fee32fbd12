package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/internal/score"
	"github.com/j4b6ski/oioioi/internal/types"
)

type Submission struct {
	Date    time.Time
	Kind    types.SubmissionKind   `gorm:"type:text"`
	Status  types.SubmissionStatus `gorm:"type:text"`
	Score   score.Field            `gorm:"type:text"`
	Comment string
	Source  string
	UserID  datatypes.Null[uuid.UUID]
	Model
	ProblemInstanceID uuid.UUID
	NeedsRejudge      bool
	AutoRejudges      int
}

func (Submission) TableName() string {
	return "submission"
}

func (s Submission) GetID() uuid.UUID {
	return s.ID
}

type SubmissionReport struct {
	Kind   types.ReportKind   `gorm:"type:text"`
	Status types.ReportStatus `gorm:"type:text"`
	Model
	SubmissionID uuid.UUID
}

func (SubmissionReport) TableName() string {
	return "submission_report"
}

func (r SubmissionReport) GetID() uuid.UUID {
	return r.ID
}

type ScoreReport struct {
	Status   types.SubmissionStatus `gorm:"type:text"`
	Score    score.Field            `gorm:"type:text"`
	MaxScore score.Field            `gorm:"type:text"`
	Comment  string
	Model
	SubmissionReportID uuid.UUID
}

func (ScoreReport) TableName() string {
	return "score_report"
}

func (r ScoreReport) GetID() uuid.UUID {
	return r.ID
}

// ActiveReport returns the ACTIVE report of a submission, nil when there is none
func ActiveReport(ctx context.Context, db *gorm.DB, submissionID uuid.UUID) (*SubmissionReport, error) {
	var report SubmissionReport
	result := db.WithContext(ctx).
		Where("submission_id = ? AND status = ?", submissionID, types.ReportStatusActive).
		Order("created_at DESC").
		Limit(1).
		Find(&report)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load active report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &report, nil
}

// ReportsOf lists every report of a submission, newest first
func ReportsOf(ctx context.Context, db *gorm.DB, submissionID uuid.UUID) ([]SubmissionReport, error) {
	var reports []SubmissionReport
	err := db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC, id DESC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}
	return reports, nil
}

// ScoreReportFor returns the score report attached to a submission report,
// nil when the judge did not produce one
func ScoreReportFor(ctx context.Context, db *gorm.DB, reportID uuid.UUID) (*ScoreReport, error) {
	var sr ScoreReport
	result := db.WithContext(ctx).
		Where("submission_report_id = ?", reportID).
		Limit(1).
		Find(&sr)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load score report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &sr, nil
}
