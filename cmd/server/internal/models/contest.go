package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/internal/types"
)

// ErrPolicyLocked is returned when changing the rule-set of a contest that
// already has submissions
var ErrPolicyLocked = errors.New("contest policy is locked once submissions exist")

type Contest struct {
	Name         string
	PolicyName   string
	ContactEmail datatypes.Null[string]
	Model
	JudgingPriority         int
	JudgingWeight           int
	DefaultSubmissionsLimit int
}

func (Contest) TableName() string {
	return "contest"
}

func (c Contest) GetID() uuid.UUID {
	return c.ID
}

type ContestPermission struct {
	Permission types.Role `gorm:"type:text"`
	Model
	UserID    uuid.UUID
	ContestID uuid.UUID
}

func (ContestPermission) TableName() string {
	return "contest_permission"
}

func (p ContestPermission) GetID() uuid.UUID {
	return p.ID
}

type ContestParticipant struct {
	Model
	UserID    uuid.UUID
	ContestID uuid.UUID
}

func (ContestParticipant) TableName() string {
	return "contest_participant"
}

func (p ContestParticipant) GetID() uuid.UUID {
	return p.ID
}

type ProblemStatementConfig struct {
	Visible types.StatementVisibility `gorm:"type:text"`
	Model
	ContestID uuid.UUID
}

func (ProblemStatementConfig) TableName() string {
	return "problem_statement_config"
}

func (p ProblemStatementConfig) GetID() uuid.UUID {
	return p.ID
}

// StatementVisibilityOf returns the override for a contest, AUTO when unset
func StatementVisibilityOf(
	ctx context.Context,
	db *gorm.DB,
	contestID uuid.UUID,
) (types.StatementVisibility, error) {
	var cfg ProblemStatementConfig
	result := db.WithContext(ctx).Where("contest_id = ?", contestID).Limit(1).Find(&cfg)
	if result.Error != nil {
		return "", fmt.Errorf("failed to load statement config: %w", result.Error)
	}
	if result.RowsAffected == 0 || cfg.Visible == "" {
		return types.StatementVisibilityAuto, nil
	}
	return cfg.Visible, nil
}

// ContestRole resolves what a user is with regard to one contest. A nil user
// is anonymous. Superusers are admins everywhere.
func ContestRole(
	ctx context.Context,
	db *gorm.DB,
	contestID uuid.UUID,
	user *User,
) (role types.Role, participant bool, err error) {
	ctx, span := tracer.Start(ctx, "ContestRole")
	defer span.End()

	if user == nil {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "anonymous viewer")
		return types.RoleAnonymous, false, nil
	}

	span.SetAttributes(
		attribute.String("contest.id", contestID.String()),
		attribute.String("user.id", user.ID.String()),
	)

	db = db.WithContext(ctx)

	participant, err = Exists[ContestParticipant](
		ctx, db, "contest_id = ? AND user_id = ?", contestID, user.ID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check participant registration")
		return "", false, fmt.Errorf("failed to check participant registration: %w", err)
	}

	if user.Superuser {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "superuser")
		return types.RoleAdmin, participant, nil
	}

	var permissions []types.Role
	err = db.Model(&ContestPermission{}).
		Where("contest_id = ? AND user_id = ?", contestID, user.ID).
		Pluck("permission", &permissions).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load contest permissions")
		return "", false, fmt.Errorf("failed to load contest permissions: %w", err)
	}

	role = types.RoleParticipant
	for _, p := range permissions {
		if p == types.RoleAdmin {
			role = types.RoleAdmin
			break
		}
		if p == types.RoleObserver {
			role = types.RoleObserver
		}
	}

	span.SetAttributes(attribute.String("role", string(role)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "resolved contest role")
	return role, participant, nil
}

// UpdateContestPolicy switches the rule-set of a contest. Refused with
// ErrPolicyLocked once anything was submitted to the contest.
func UpdateContestPolicy(
	ctx context.Context,
	db *gorm.DB,
	contestID uuid.UUID,
	policyName string,
) error {
	ctx, span := tracer.Start(ctx, "UpdateContestPolicy")
	defer span.End()

	span.SetAttributes(
		attribute.String("contest.id", contestID.String()),
		attribute.String("policy", policyName),
	)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contest, err := ForUpdate[Contest](ctx, tx, contestID)
		if err != nil {
			return err
		}
		if contest.PolicyName == policyName {
			return nil
		}

		var submissions int64
		err = tx.Model(&Submission{}).
			Joins("JOIN problem_instance ON problem_instance.id = submission.problem_instance_id").
			Where("problem_instance.contest_id = ?", contestID).
			Count(&submissions).Error
		if err != nil {
			return fmt.Errorf("failed to count submissions: %w", err)
		}
		if submissions > 0 {
			return ErrPolicyLocked
		}

		return tx.Model(contest).Update("policy_name", policyName).Error
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update contest policy")
		return fmt.Errorf("failed to update contest policy: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "updated contest policy")
	return nil
}
