package types

type SubmissionKind string

const (
	SubmissionKindNormal SubmissionKind = "NORMAL"
	// Like NORMAL, but the score has no effect on anything
	SubmissionKindIgnored SubmissionKind = "IGNORED"
	// Won't be graded unless approved by an admin
	SubmissionKindSuspected SubmissionKind = "SUSPECTED"
	// Like IGNORED, but the author does not see it anymore
	SubmissionKindIgnoredHidden SubmissionKind = "IGNORED_HIDDEN"
)

func (k SubmissionKind) Valid() bool {
	switch k {
	case SubmissionKindNormal,
		SubmissionKindIgnored,
		SubmissionKindSuspected,
		SubmissionKindIgnoredHidden:
		return true
	default:
		return false
	}
}

// Kinds a submission of kind `k` may be changed to, including `k` itself.
// SUSPECTED can only be left, never entered.
func (k SubmissionKind) ValidTransitions() []SubmissionKind {
	if k == SubmissionKindSuspected {
		return []SubmissionKind{
			SubmissionKindNormal,
			SubmissionKindIgnored,
			SubmissionKindSuspected,
			SubmissionKindIgnoredHidden,
		}
	}
	if !k.Valid() {
		return nil
	}

	return []SubmissionKind{
		SubmissionKindNormal,
		SubmissionKindIgnored,
		SubmissionKindIgnoredHidden,
	}
}

type SubmissionStatus string

const (
	SubmissionStatusPending           SubmissionStatus = "?"
	SubmissionStatusOK                SubmissionStatus = "OK"
	SubmissionStatusError             SubmissionStatus = "ERR"
	SubmissionStatusCompilationError  SubmissionStatus = "CE"
	SubmissionStatusWrongAnswer       SubmissionStatus = "WA"
	SubmissionStatusTimeLimitExceeded SubmissionStatus = "TLE"
	SubmissionStatusRuntimeError      SubmissionStatus = "RE"
	SubmissionStatusMemoryExceeded    SubmissionStatus = "MLE"
	// Judging infrastructure failed, the submission is not at fault
	SubmissionStatusSystemError SubmissionStatus = "SE"
)

func (s SubmissionStatus) IsPending() bool {
	return s == SubmissionStatusPending || s == ""
}

// Statuses that should not cost a contestant anything in penalty based scoring
func (s SubmissionStatus) IsPenaltyFree() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusCompilationError, SubmissionStatusSystemError:
		return true
	default:
		return false
	}
}

type ReportKind string

const (
	ReportKindNormal  ReportKind = "NORMAL"
	ReportKindFailure ReportKind = "FAILURE"
	ReportKindInitial ReportKind = "INITIAL"
)

type ReportStatus string

const (
	ReportStatusInactive   ReportStatus = "INACTIVE"
	ReportStatusActive     ReportStatus = "ACTIVE"
	ReportStatusSuperseded ReportStatus = "SUPERSEDED"
)

type RejudgeScope string

const (
	// All currently active tests
	RejudgeScopeFull RejudgeScope = "FULL"
	// Only tests which were not judged yet
	RejudgeScopeNew RejudgeScope = "NEW"
	// An explicit subset of tests of a single problem instance
	RejudgeScopeJudged RejudgeScope = "JUDGED"
)

func (s RejudgeScope) Valid() bool {
	return s == RejudgeScopeFull || s == RejudgeScopeNew || s == RejudgeScopeJudged
}
