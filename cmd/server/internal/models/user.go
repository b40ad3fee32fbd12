package models

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/j4b6ski/oioioi/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// Wraps ErrInvalidCredentials; no hash comparison was made
	ErrUnknownUser = fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
)

type User struct {
	Token string // argon2id hash
	Name  string // nonsensitive, shows up in logs
	Model
	Superuser bool
	Active    datatypes.Null[bool]
}

func (User) TableName() string {
	return "users"
}

func (u User) GetID() uuid.UUID {
	return u.ID
}

func (u User) IsActive() bool {
	return u.Active.Valid && u.Active.V
}

// Authenticate checks token against the stored hash of an active user.
// Hashes made with outdated argon2id params are upgraded on success.
func Authenticate(ctx context.Context, db *gorm.DB, id uuid.UUID, token string) (*User, error) {
	ctx, span := tracer.Start(ctx, "Authenticate")
	defer span.End()

	db = db.WithContext(ctx)

	span.SetAttributes(attribute.String("user.id", id.String()))

	user, err := ByID[User](ctx, db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(ErrUnknownUser)
			span.SetStatus(codes.Error, "user not found")
			return nil, ErrUnknownUser
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load user")
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	match, oldParams, err := argon2id.CheckHash(token, user.Token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compare token hash")
		return nil, fmt.Errorf("failed to compare token hash: %w", err)
	}

	// All expensive ops have been performed that may result in a rejection
	if !user.IsActive() {
		span.RecordError(ErrInvalidCredentials)
		span.SetStatus(codes.Error, "user inactive")
		return nil, ErrInvalidCredentials
	}
	if !match {
		span.RecordError(ErrInvalidCredentials)
		span.SetStatus(codes.Error, "token mismatch")
		return nil, ErrInvalidCredentials
	}

	if !reflect.DeepEqual(oldParams, argon2id.DefaultParams) {
		span.AddEvent("upgrading token hash params")
		newHash, err := argon2id.CreateHash(token, argon2id.DefaultParams)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create new hash for token")
			return nil, fmt.Errorf("failed to create new hash for token: %w", err)
		}

		err = db.Model(user).Update("token", newHash).Error
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to save new hash")
			return nil, fmt.Errorf("failed to save new hash: %w", err)
		}
		user.Token = newHash
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "authenticated")
	return user, nil
}

// Config is the authoritative user list
//
// 1. Upsert user data
// 2. Deactivate users not currently contained in the config
func LoadUsersFromConfig(ctx context.Context, db *gorm.DB, users []config.User) error {
	ctx, span := tracer.Start(ctx, "LoadUsersFromConfig")
	defer span.End()

	db = db.WithContext(ctx)

	usersToUpsert := make([]*User, len(users))
	usersInConfig := make([]uuid.UUID, len(users))
	for i, u := range users {
		hash, err := argon2id.CreateHash(u.Token, argon2id.DefaultParams)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "error creating hash for user token")
			span.SetAttributes(attribute.String("failedUser", u.ID))
			return err
		}

		userID, err := uuid.Parse(u.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "error parsing user id")
			span.SetAttributes(attribute.String("failedUser", u.ID))
			return err
		}

		usersToUpsert[i] = &User{
			Model:     Model{ID: userID},
			Token:     hash,
			Name:      u.Name,
			Superuser: u.Superuser,
			Active:    NewNull(u.Active),
		}
		usersInConfig[i] = userID
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
		ctx, span := tracer.Start(ctx, "LoadUsersFromConfig/Transaction")
		defer span.End()

		tx = tx.WithContext(ctx)

		if len(usersToUpsert) != 0 {
			span.AddEvent("upserting configured users")
			result := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(usersToUpsert)
			if result.Error != nil {
				span.RecordError(result.Error)
				span.SetStatus(codes.Error, "failed to upsert configured users")
				return fmt.Errorf("failed to upsert configured users: %w", result.Error)
			}
		} else {
			span.AddEvent("no configured users to upsert")
		}

		span.AddEvent("deactivating users missing from config")
		query := tx.Model(&User{})
		if len(usersInConfig) != 0 {
			query = query.Where("id NOT IN ?", usersInConfig)
		} else {
			query = query.Where("1 = 1")
		}
		result := query.Updates(&User{Active: NewNullFromData(false)})
		if result.Error != nil {
			span.RecordError(result.Error)
			span.SetStatus(codes.Error, "failed to deactivate users missing from config")
			return fmt.Errorf("failed to deactivate users missing from config: %w", result.Error)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "updated users")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update users")
		return fmt.Errorf("failed to update users: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "updated users")
	return nil
}
