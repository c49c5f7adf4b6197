package models

import (
	"time"
)

// PollReport summarizes one poll loop iteration for diagnostics
type PollReport struct {
	RunID         string        `json:"run_id"`
	Feed          string        `json:"feed"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Records       int           `json:"records"`   // Legs parsed successfully
	Skipped       int           `json:"skipped"`   // Legs dropped as malformed
	Scheduled     int           `json:"scheduled"` // Timers created or replaced
	Finalized     int           `json:"finalized"` // Legs finalized during this poll
	Error         string        `json:"error,omitempty"`
}

// Failed reports whether the whole poll was skipped
func (r *PollReport) Failed() bool {
	return r.Error != ""
}
