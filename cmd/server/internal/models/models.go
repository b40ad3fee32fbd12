package models

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const name string = "github.com/j4b6ski/oioioi/cmd/server/internal/models"

var tracer = otel.Tracer(name)

// Derived from gorm.Model
type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        uuid.UUID `gorm:"primaryKey;default:uuidv7_sub_ms()"`
}

type EngineModel interface {
	GetID() uuid.UUID
}

// gets an object by id from the db
func ByID[T EngineModel](ctx context.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	var data T

	ctx, span := tracer.Start(ctx, "ByID")
	defer span.End()

	db = db.WithContext(ctx)

	span.SetAttributes(
		attribute.String("id", id.String()),
		attribute.String("type", reflect.TypeOf(data).String()),
	)

	span.AddEvent("getting object by id")
	err := db.First(&data, "id = ?", id).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get object by id")
		return nil, err
	}

	return &data, nil
}

// checks if an object exists in the db
func Exists[T EngineModel](
	ctx context.Context,
	db *gorm.DB,
	query any,
	args ...any,
) (bool, error) {
	ctx, span := tracer.Start(ctx, "Exists")
	defer span.End()

	argStrings := make([]string, 0, len(args))
	for _, arg := range args {
		argStrings = append(argStrings, fmt.Sprint(arg))
	}

	span.SetAttributes(
		attribute.String("query", fmt.Sprint(query)),
		attribute.StringSlice("args", argStrings),
		attribute.String("type", reflect.TypeOf((*T)(nil)).Elem().String()),
	)

	db = db.WithContext(ctx)

	var data T
	var exists bool

	span.AddEvent("checking if element matching conditions exists")
	result := db.Model(&data).Select("1").Where(query, args...).Limit(1).Scan(&exists)
	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, "failed to fetch from the db")
		return false, fmt.Errorf("failed to fetch from the db: %w", result.Error)
	}

	return exists && result.RowsAffected > 0, nil
}

// ForUpdate selects a row by id holding its row lock until tx ends
func ForUpdate[T EngineModel](ctx context.Context, tx *gorm.DB, id uuid.UUID) (*T, error) {
	var data T

	ctx, span := tracer.Start(ctx, "ForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", id.String()),
		attribute.String("type", reflect.TypeOf(data).String()),
	)

	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&data, "id = ?", id).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to lock object by id")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "locked object")
	return &data, nil
}

// ForShare takes a share lock on a row so it cannot be updated until the
// transaction ends. Concurrent share locks do not block each other.
func ForShare[T EngineModel](ctx context.Context, tx *gorm.DB, id uuid.UUID) (*T, error) {
	var data T

	ctx, span := tracer.Start(ctx, "ForShare")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", id.String()),
		attribute.String("type", reflect.TypeOf(data).String()),
	)

	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		First(&data, "id = ?", id).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to share lock object by id")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "share locked object")
	return &data, nil
}

// Transmutes a pointer into a [datatypes.Null]
func NewNull[T any](d *T) datatypes.Null[T] {
	if d != nil {
		return datatypes.NewNull(*d)
	}

	return datatypes.Null[T]{}
}

// Transmutes data into valid [datatypes.Null]
func NewNullFromData[T any](d T) datatypes.Null[T] {
	return datatypes.NewNull(d)
}

// Maps a [datatypes.Null] back into a pointer
func PtrFromNull[T any](d datatypes.Null[T]) *T {
	if !d.Valid {
		return nil
	}

	return &d.V
}
