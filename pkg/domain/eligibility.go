package domain

import "time"

// CheckResponse is the JSON body returned by GET /check.
// Pointer fields distinguish absent keys from zero values.
type CheckResponse struct {
	SubmissionApproved   *bool   `json:"submission_approved"`
	RequiredFormat       *string `json:"required_format"`
	RemainingAttempts    *int    `json:"remaining_attempts"`
	LastSubmissionByUser *int64  `json:"last_submission_by_user"`
	CompetitionName      *string `json:"competition_name"`
}

// EligibilityDecision is the interpreted /check verdict for one run.
type EligibilityDecision struct {
	Approved          bool
	RequiredFormat    string
	RemainingAttempts int
	LastSubmission    *time.Time
	CompetitionName   string
}

// Allowed gates a submission: the server must approve it and report at least
// one remaining attempt.
func (d EligibilityDecision) Allowed() bool {
	return d.Approved && d.RemainingAttempts > 0
}

// SinceLast returns the time elapsed since the last submission. The second
// value is false when the server reported none.
func (d EligibilityDecision) SinceLast(now time.Time) (time.Duration, bool) {
	if d.LastSubmission == nil {
		return 0, false
	}
	elapsed := now.Sub(*d.LastSubmission)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, true
}
