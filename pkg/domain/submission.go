package domain

import "time"

// SubmissionRecord is what the reference server keeps for each accepted upload.
type SubmissionRecord struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	CompetitionID string    `json:"competitionId,omitempty"`
	FileName      string    `json:"fileName"`
	Bytes         int64     `json:"bytes"`
	Digest        string    `json:"digest"`
	ArtifactURL   string    `json:"artifactUrl"`
	RequestID     string    `json:"requestId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SubmitResponse is the JSON confirmation returned by POST /submit.
type SubmitResponse struct {
	ID                string `json:"id"`
	Message           string `json:"message"`
	RemainingAttempts int    `json:"remaining_attempts"`
	Digest            string `json:"digest"`
}
