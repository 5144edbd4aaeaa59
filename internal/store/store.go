// Package store persists pipeline jobs, harvested leads, and query
// performance records behind a driver-agnostic interface.
package store

import (
	"context"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	UserID string          `json:"user_id,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// JobLead is a lead persisted for a job, with its enrichment profile when
// enrichment succeeded.
type JobLead struct {
	LeadNumber int                `json:"lead_number"`
	Lead       model.Lead         `json:"lead"`
	Profile    *model.LeadProfile `json:"profile,omitempty"`
}

// Store defines the persistence interface for the lead-generation pipeline.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, userID string, bc model.BusinessContext) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	UpdateJobQuery(ctx context.Context, jobID string, query string, strategy model.Strategy) error
	CompleteJob(ctx context.Context, jobID string, leads int, errMsg string) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)

	// Leads
	SaveLead(ctx context.Context, jobID string, leadNumber int, lead model.Lead, profile *model.LeadProfile) error
	ListLeads(ctx context.Context, jobID string) ([]JobLead, error)

	// Performance records
	SavePerformanceRecord(ctx context.Context, rec model.PerformanceRecord) error
	ListPerformanceRecords(ctx context.Context) ([]model.PerformanceRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
