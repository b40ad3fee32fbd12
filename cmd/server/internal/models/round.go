package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/j4b6ski/oioioi/internal/roundclock"
)

type Round struct {
	StartDate         time.Time
	Name              string
	EndDate           datatypes.Null[time.Time]
	ResultsDate       datatypes.Null[time.Time]
	PublicResultsDate datatypes.Null[time.Time]
	Model
	ContestID         uuid.UUID
	CanSubmitAfterEnd bool
	IsTrial           bool
}

func (Round) TableName() string {
	return "round"
}

func (r Round) GetID() uuid.UUID {
	return r.ID
}

func (r Round) Dates() roundclock.Dates {
	return roundclock.Dates{
		Start:             r.StartDate,
		End:               PtrFromNull(r.EndDate),
		ResultsDate:       PtrFromNull(r.ResultsDate),
		PublicResultsDate: PtrFromNull(r.PublicResultsDate),
		CanSubmitAfterEnd: r.CanSubmitAfterEnd,
	}
}

func (r *Round) BeforeSave(*gorm.DB) error {
	return r.Dates().Validate()
}

// RoundsOf lists the rounds of a contest by start date
func RoundsOf(ctx context.Context, db *gorm.DB, contestID uuid.UUID) ([]Round, error) {
	var rounds []Round
	err := db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("start_date, id").
		Find(&rounds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}
	return rounds, nil
}

type RoundTimeExtension struct {
	Model
	UserID    uuid.UUID
	RoundID   uuid.UUID
	ExtraTime int
}

func (RoundTimeExtension) TableName() string {
	return "round_time_extension"
}

func (e RoundTimeExtension) GetID() uuid.UUID {
	return e.ID
}

// ExtensionsFor maps round id to the extra minutes granted to a user
func ExtensionsFor(
	ctx context.Context,
	db *gorm.DB,
	userID uuid.UUID,
	roundIDs []uuid.UUID,
) (map[uuid.UUID]int, error) {
	extensions := make(map[uuid.UUID]int, len(roundIDs))
	if len(roundIDs) == 0 {
		return extensions, nil
	}

	var rows []RoundTimeExtension
	err := db.WithContext(ctx).
		Where("user_id = ? AND round_id IN ?", userID, roundIDs).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load time extensions: %w", err)
	}

	for _, row := range rows {
		extensions[row.RoundID] = row.ExtraTime
	}
	return extensions, nil
}

// UpsertTimeExtension sets the extra minutes of one user in one round
func UpsertTimeExtension(
	ctx context.Context,
	db *gorm.DB,
	userID uuid.UUID,
	roundID uuid.UUID,
	minutes int,
) (*RoundTimeExtension, error) {
	ctx, span := tracer.Start(ctx, "UpsertTimeExtension")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("round.id", roundID.String()),
		attribute.Int("minutes", minutes),
	)

	extension := RoundTimeExtension{
		UserID:    userID,
		RoundID:   roundID,
		ExtraTime: minutes,
	}
	err := db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "round_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"extra_time"}),
		},
		clause.Returning{},
	).Create(&extension).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upsert time extension")
		return nil, fmt.Errorf("failed to upsert time extension: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "upserted time extension")
	return &extension, nil
}
