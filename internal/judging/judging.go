// Package judging hands submissions to the external judging backend.
// Completion comes back separately as a types.SubmissionJudgedMsg.
package judging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/j4b6ski/oioioi/internal/types"
)

var tracer = otel.Tracer("github.com/j4b6ski/oioioi/internal/judging")

//go:generate mockgen -destination ./mock/mock.go -package mock . Backend

type Backend interface {
	Judge(ctx context.Context, req Request) error
}

type Request struct {
	SubmissionID    uuid.UUID
	ContestID       uuid.UUID
	ExtraArgs       types.JudgeExtraArgs
	IsRejudge       bool
	JudgingPriority int
	JudgingWeight   int
	// Never sent as is. [SourceBackend] turns it into SourceURL.
	Source       string
	SourceURL    string
	SourceSHA256 string
}

func (r Request) message(now time.Time) types.JudgeRequestMsg {
	msg := types.JudgeRequestMsg{
		SubmissionID:    r.SubmissionID.String(),
		ExtraArgs:       r.ExtraArgs,
		IsRejudge:       r.IsRejudge,
		JudgingPriority: r.JudgingPriority,
		JudgingWeight:   max(r.JudgingWeight, 1),
		SourceURL:       r.SourceURL,
		SourceSHA256:    r.SourceSHA256,
		Timestamp:       types.NewUnixMilli(now),
	}
	if r.ContestID != uuid.Nil {
		msg.ContestID = r.ContestID.String()
	}
	return msg
}
