package model

import "time"

// ArchivedRun is a summary row from the run archive.
type ArchivedRun struct {
	RunID            string     `json:"run_id"`
	ServiceDirectory string     `json:"service_directory,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      time.Time  `json:"completed_at"`
	Summary          RunSummary `json:"summary"`
}
