package types

import "time"

// Milliseconds since the unix epoch
type UnixMilli int64

func NewUnixMilli(t time.Time) UnixMilli {
	return UnixMilli(t.UTC().UnixMilli())
}

func (u UnixMilli) Time() time.Time {
	return time.UnixMilli(int64(u)).UTC()
}

// Role of a viewer with regard to a single contest
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleObserver    Role = "observer"
	RoleParticipant Role = "participant"
	RoleAnonymous   Role = "anonymous"
)

// Admins and observers see every report and result regardless of round times
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleObserver
}

// Per-contest override of statement visibility
type StatementVisibility string

const (
	StatementVisibilityYes  StatementVisibility = "YES"
	StatementVisibilityNo   StatementVisibility = "NO"
	StatementVisibilityAuto StatementVisibility = "AUTO"
)
