package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/j4b6ski/oioioi/internal/logger"
	"github.com/j4b6ski/oioioi/internal/types"
)

type Context struct {
	ActorID   *string
	UserID    *string
	ContestID string
}

func dispForStatus(status types.SubmissionStatus) Disposition {
	switch status {
	case types.SubmissionStatusOK:
		return DispositionGood
	case types.SubmissionStatusPending:
		return DispositionNeutral
	case types.SubmissionStatusSystemError, types.SubmissionStatusError:
		return DispositionBad
	default:
		return DispositionNeutral
	}
}

func message(c Context, evt EventType, disp Disposition) Message {
	return Message{
		ActorID:       c.ActorID,
		UserID:        c.UserID,
		LogContext:    logContext,
		SchemaVersion: schemaVersion,
		ContestID:     c.ContestID,
		Disposition:   disp,
		Type:          evt,
		Timestamp:     types.NewUnixMilli(time.Now()),
	}
}

func emit(evt EventType, event any) {
	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error("could not serialize audit event", "event_type", evt, "error", err)
		return
	}

	fmt.Println(string(evtStr))
}

func LogSubmissionCreated(c Context, submissionID, problemInstanceID string, kind types.SubmissionKind) {
	event := SubmissionCreated{Message: message(c, EvtSubmissionCreated, DispositionNeutral)}
	event.Event = SubmissionCreatedEvent{
		SubmissionID:      submissionID,
		ProblemInstanceID: problemInstanceID,
		Kind:              kind,
	}
	emit(EvtSubmissionCreated, event)
}

func LogSubmissionJudged(
	c Context,
	submissionID string,
	reportID string,
	status types.SubmissionStatus,
	score *string,
) {
	event := SubmissionJudged{Message: message(c, EvtSubmissionJudged, dispForStatus(status))}
	event.Event = SubmissionJudgedEvent{
		SubmissionID: submissionID,
		ReportID:     reportID,
		Status:       status,
		Score:        score,
	}
	emit(EvtSubmissionJudged, event)
}

func LogRejudgeRequested(c Context, submissionIDs []string, scope types.RejudgeScope, tests []string) {
	event := RejudgeRequested{Message: message(c, EvtRejudgeRequested, DispositionNeutral)}
	event.Event = RejudgeRequestedEvent{SubmissionIDs: submissionIDs, Scope: scope, Tests: tests}
	emit(EvtRejudgeRequested, event)
}

func LogRejudgeRefused(c Context, scope types.RejudgeScope, missing []string) {
	event := RejudgeRefused{Message: message(c, EvtRejudgeRefused, DispositionBad)}
	event.Event = RejudgeRefusedEvent{Scope: scope, MissingActiveReports: missing}
	emit(EvtRejudgeRefused, event)
}

func LogSubmissionKindChanged(c Context, submissionID string, from, to types.SubmissionKind) {
	event := SubmissionKindChanged{Message: message(c, EvtSubmissionKindChanged, DispositionNeutral)}
	event.Event = SubmissionKindChangedEvent{SubmissionID: submissionID, From: from, To: to}
	emit(EvtSubmissionKindChanged, event)
}

func LogNeedsRejudgeChanged(c Context, submissionIDs []string, needsRejudge bool) {
	event := NeedsRejudgeChanged{Message: message(c, EvtNeedsRejudgeChanged, DispositionNeutral)}
	event.Event = NeedsRejudgeChangedEvent{SubmissionIDs: submissionIDs, NeedsRejudge: needsRejudge}
	emit(EvtNeedsRejudgeChanged, event)
}

func LogResultsRecomputed(c Context, e ResultsRecomputedEvent) {
	event := ResultsRecomputed{Message: message(c, EvtResultsRecomputed, DispositionNeutral), Event: e}
	emit(EvtResultsRecomputed, event)
}

func LogAggregationAborted(c Context, problemInstanceID, step, reason string) {
	event := AggregationAborted{Message: message(c, EvtAggregationAborted, DispositionBad)}
	event.Event = AggregationAbortedEvent{ProblemInstanceID: problemInstanceID, Step: step, Reason: reason}
	emit(EvtAggregationAborted, event)
}

func LogTimeExtensionSet(c Context, roundID string, extraMinutes int) {
	event := TimeExtensionSet{Message: message(c, EvtTimeExtensionSet, DispositionNeutral)}
	event.Event = TimeExtensionSetEvent{RoundID: roundID, ExtraMinutes: extraMinutes}
	emit(EvtTimeExtensionSet, event)
}
