package model

import "time"

// Lead is a prospective customer organization discovered via search.
type Lead struct {
	CompanyName string `json:"company_name"`
	Website     string `json:"website"`
	Description string `json:"description"`
	RawContent  string `json:"raw_content,omitempty"`
	Location    string `json:"location,omitempty"`
	Source      string `json:"source,omitempty"`
}

// LeadProfile is the enrichment output for a single lead: a site summary,
// a derived sales persona, and a suggested messaging angle.
type LeadProfile struct {
	Summary    string   `json:"summary"`
	Persona    string   `json:"persona"`
	Messaging  string   `json:"messaging"`
	Contacts   []string `json:"contacts,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
}

// JobStatus tracks pipeline job lifecycle in the store.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusFailed   JobStatus = "failed"
)

// Job is a persisted pipeline run.
type Job struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Context   BusinessContext `json:"context"`
	Query     string          `json:"query,omitempty"`
	Strategy  Strategy        `json:"strategy,omitempty"`
	Status    JobStatus       `json:"status"`
	Leads     int             `json:"leads"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
