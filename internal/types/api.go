package types

type (
	RoundTimes struct {
		Start             UnixMilli  `json:"start"`
		End               *UnixMilli `json:"end,omitempty"`
		ResultsDate       *UnixMilli `json:"results_date,omitempty"`
		PublicResultsDate *UnixMilli `json:"public_results_date,omitempty"`
	}

	Round struct {
		ID             string     `json:"id"`
		Name           string     `json:"name"`
		State          string     `json:"state"`
		Times          RoundTimes `json:"times"`
		IsTrial        bool       `json:"is_trial"`
		Submittable    bool       `json:"submittable"`
		ResultsVisible bool       `json:"results_visible"`
	}

	ProblemInstance struct {
		RoundID          *string `json:"round_id"`
		ID               string  `json:"id"`
		ShortName        string  `json:"short_name"`
		SubmissionsLimit int     `json:"submissions_limit"`
		CanSeeStatement  bool    `json:"can_see_statement"`
		CanSubmit        bool    `json:"can_submit"`
	}

	Report struct {
		ID        string       `json:"id"`
		Kind      ReportKind   `json:"kind"`
		Status    ReportStatus `json:"status"`
		Score     *string      `json:"score,omitempty"`
		CreatedAt UnixMilli    `json:"created_at"`
	}

	SubmitRequest struct {
		Source string `json:"source" validate:"required,source_size"`
	}

	SubmitResponse struct {
		SubmissionID string           `json:"submission_id"`
		Kind         SubmissionKind   `json:"kind"`
		Status       SubmissionStatus `json:"status"`
	}

	RejudgeRequest struct {
		Scope         RejudgeScope `json:"rejudge_type"   validate:"required,oneof=FULL NEW JUDGED"`
		SubmissionIDs []string     `json:"submissions"    validate:"required,min=1,dive,uuid"`
		Tests         []string     `json:"tests,omitempty"`
	}

	RejudgeResponse struct {
		Rejudged []string `json:"rejudged"`
	}

	ChangeKindRequest struct {
		Kind SubmissionKind `json:"kind" validate:"required,oneof=NORMAL IGNORED SUSPECTED IGNORED_HIDDEN"`
	}

	TimeExtensionRequest struct {
		UserID       string `json:"user_id"    validate:"required,uuid"`
		ExtraMinutes int    `json:"extra_time" validate:"gte=0"`
	}

	NeedsRejudgeRequest struct {
		SubmissionIDs []string `json:"submissions"   validate:"required,min=1,dive,uuid"`
		NeedsRejudge  bool     `json:"needs_rejudge"`
	}

	RecomputeResponse struct {
		Pairs int `json:"pairs"`
	}
)
