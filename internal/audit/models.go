package audit

import (
	"github.com/j4b6ski/oioioi/internal/types"
)

var schemaVersion = "0.1.0"
var logContext = "audit"

type Disposition string

const (
	DispositionNeutral Disposition = "neutral"
	DispositionGood    Disposition = "good"
	DispositionBad     Disposition = "bad"
)

type EventType string

const (
	EvtSubmissionCreated     EventType = "submission_created"
	EvtSubmissionJudged      EventType = "submission_judged"
	EvtRejudgeRequested      EventType = "rejudge_requested"
	EvtRejudgeRefused        EventType = "rejudge_refused"
	EvtSubmissionKindChanged EventType = "submission_kind_changed"
	EvtNeedsRejudgeChanged   EventType = "needs_rejudge_changed"
	EvtResultsRecomputed     EventType = "results_recomputed"
	EvtAggregationAborted    EventType = "aggregation_aborted"
	EvtTimeExtensionSet      EventType = "time_extension_set"
)

type Message struct {
	ActorID       *string     `json:"actor_id"`
	UserID        *string     `json:"user_id"`
	LogContext    string      `json:"log_context" validate:"required"`
	SchemaVersion string      `json:"version"     validate:"required"`
	ContestID     string      `json:"contest_id"  validate:"required"`
	Disposition   Disposition `json:"disposition" validate:"required"`
	Type          EventType   `json:"event_type"  validate:"required"`

	Timestamp types.UnixMilli `json:"timestamp" validate:"required"`
}

type SubmissionCreatedEvent struct {
	SubmissionID      string               `json:"submission_id"       validate:"required"`
	ProblemInstanceID string               `json:"problem_instance_id" validate:"required"`
	Kind              types.SubmissionKind `json:"kind"                validate:"required"`
}

type SubmissionCreated struct {
	Event SubmissionCreatedEvent `json:"event" validate:"required"`
	Message
}

type SubmissionJudgedEvent struct {
	SubmissionID string                 `json:"submission_id" validate:"required"`
	ReportID     string                 `json:"report_id"     validate:"required"`
	Status       types.SubmissionStatus `json:"status"        validate:"required"`
	Score        *string                `json:"score"`
}

type SubmissionJudged struct {
	Event SubmissionJudgedEvent `json:"event" validate:"required"`
	Message
}

type RejudgeRequestedEvent struct {
	SubmissionIDs []string           `json:"submission_ids" validate:"required"`
	Scope         types.RejudgeScope `json:"scope"          validate:"required"`
	Tests         []string           `json:"tests"`
}

type RejudgeRequested struct {
	Event RejudgeRequestedEvent `json:"event" validate:"required"`
	Message
}

type RejudgeRefusedEvent struct {
	Scope                types.RejudgeScope `json:"scope"                  validate:"required"`
	MissingActiveReports []string           `json:"missing_active_reports" validate:"required"`
}

type RejudgeRefused struct {
	Event RejudgeRefusedEvent `json:"event" validate:"required"`
	Message
}

type SubmissionKindChangedEvent struct {
	SubmissionID string               `json:"submission_id" validate:"required"`
	From         types.SubmissionKind `json:"from"          validate:"required"`
	To           types.SubmissionKind `json:"to"            validate:"required"`
}

type SubmissionKindChanged struct {
	Event SubmissionKindChangedEvent `json:"event" validate:"required"`
	Message
}

type NeedsRejudgeChangedEvent struct {
	SubmissionIDs []string `json:"submission_ids" validate:"required"`
	NeedsRejudge  bool     `json:"needs_rejudge"`
}

type NeedsRejudgeChanged struct {
	Event NeedsRejudgeChangedEvent `json:"event" validate:"required"`
	Message
}

type ResultsRecomputedEvent struct {
	ProblemInstanceID string  `json:"problem_instance_id" validate:"required"`
	RoundID           *string `json:"round_id"`
	ProblemScore      *string `json:"problem_score"`
	RoundScore        *string `json:"round_score"`
	ContestScore      *string `json:"contest_score"`
}

type ResultsRecomputed struct {
	Event ResultsRecomputedEvent `json:"event" validate:"required"`
	Message
}

type AggregationAbortedEvent struct {
	ProblemInstanceID string `json:"problem_instance_id" validate:"required"`
	Step              string `json:"step"                validate:"required"`
	Reason            string `json:"reason"              validate:"required"`
}

type AggregationAborted struct {
	Event AggregationAbortedEvent `json:"event" validate:"required"`
	Message
}

type TimeExtensionSetEvent struct {
	RoundID      string `json:"round_id"      validate:"required"`
	ExtraMinutes int    `json:"extra_minutes"`
}

type TimeExtensionSet struct {
	Event TimeExtensionSetEvent `json:"event" validate:"required"`
	Message
}
