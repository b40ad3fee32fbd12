package types

type (
	// Arguments forwarded to the judging backend alongside a judge request
	JudgeExtraArgs struct {
		TestsToJudge []string     `json:"tests_to_judge,omitempty"`
		RejudgeType  RejudgeScope `json:"rejudge_type,omitempty"`
	}

	// Sent to the judging backend
	JudgeRequestMsg struct {
		SubmissionID    string         `json:"submission_id"    validate:"required,uuid"`
		ContestID       string         `json:"contest_id"       validate:"omitempty,uuid"`
		ExtraArgs       JudgeExtraArgs `json:"extra_args"`
		IsRejudge       bool           `json:"is_rejudge"`
		JudgingPriority int            `json:"judging_priority"`
		JudgingWeight   int            `json:"judging_weight"`
		// Presigned, set when a source store is configured
		SourceURL    string    `json:"source_url,omitempty"    validate:"omitempty,url"`
		SourceSHA256 string    `json:"source_sha256,omitempty" validate:"omitempty,sha256"`
		Timestamp    UnixMilli `json:"timestamp"               validate:"required"`
	}

	// Emitted by the judging backend once the report has been written. Delivered at least once.
	SubmissionJudgedMsg struct {
		SubmissionID string `json:"submission_id" validate:"required,uuid"`
		ReportID     string `json:"report_id"     validate:"required,uuid"`
	}
)
