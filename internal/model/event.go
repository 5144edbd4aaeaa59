package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// EventType discriminates the pipeline event union.
type EventType string

const (
	EventPipelineStart       EventType = "pipeline_start"
	EventStatusUpdate        EventType = "status_update"
	EventLeadEnrichmentStart EventType = "lead_enrichment_start"
	EventLeadGenerated       EventType = "lead_generated"
	EventLeadEnrichmentEnd   EventType = "lead_enrichment_end"
	EventPipelineEnd         EventType = "pipeline_end"
	EventPipelineError       EventType = "pipeline_error"
)

// PipelineStartPayload announces the selected query and lead bound.
type PipelineStartPayload struct {
	Query    string   `json:"query"`
	Strategy Strategy `json:"strategy"`
	MaxLeads int      `json:"max_leads"`
}

// StatusUpdatePayload reports coarse pipeline progress.
type StatusUpdatePayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

// LeadEnrichmentStartPayload marks the start of enrichment for one lead.
type LeadEnrichmentStartPayload struct {
	LeadNumber  int    `json:"lead_number"`
	CompanyName string `json:"company_name"`
	Website     string `json:"website,omitempty"`
}

// LeadGeneratedPayload carries a successfully enriched lead.
type LeadGeneratedPayload struct {
	LeadNumber int          `json:"lead_number"`
	Lead       Lead         `json:"lead"`
	Profile    *LeadProfile `json:"profile,omitempty"`
}

// LeadEnrichmentEndPayload closes an enrichment attempt, success or not.
type LeadEnrichmentEndPayload struct {
	LeadNumber int    `json:"lead_number"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// PipelineEndPayload summarizes a completed run. TotalLeadsGenerated counts
// enrichment successes only; LeadsAttempted counts every lead the pipeline
// tried to enrich.
type PipelineEndPayload struct {
	TotalLeadsGenerated int     `json:"total_leads_generated"`
	LeadsAttempted      int     `json:"leads_attempted"`
	Query               string  `json:"query"`
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
}

// PipelineErrorPayload terminates a run that hit an unrecoverable error.
type PipelineErrorPayload struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// Event is the tagged union of pipeline events. Exactly one payload pointer
// is non-nil, matching Type.
type Event struct {
	Type      EventType
	JobID     string
	UserID    string
	Timestamp time.Time

	Start           *PipelineStartPayload
	Status          *StatusUpdatePayload
	EnrichmentStart *LeadEnrichmentStartPayload
	Lead            *LeadGeneratedPayload
	EnrichmentEnd   *LeadEnrichmentEndPayload
	End             *PipelineEndPayload
	Error           *PipelineErrorPayload
}

// Terminal reports whether the event ends a pipeline run.
func (e Event) Terminal() bool {
	return e.Type == EventPipelineEnd || e.Type == EventPipelineError
}

func (e Event) payload() any {
	switch e.Type {
	case EventPipelineStart:
		return e.Start
	case EventStatusUpdate:
		return e.Status
	case EventLeadEnrichmentStart:
		return e.EnrichmentStart
	case EventLeadGenerated:
		return e.Lead
	case EventLeadEnrichmentEnd:
		return e.EnrichmentEnd
	case EventPipelineEnd:
		return e.End
	case EventPipelineError:
		return e.Error
	}
	return nil
}

// MarshalJSON flattens the envelope and the kind-specific payload into a
// single object: {"event_type", "job_id", "user_id", "timestamp", ...}.
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"event_type": string(e.Type),
		"job_id":     e.JobID,
		"user_id":    e.UserID,
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339),
	}

	if p := e.payload(); p != nil {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal %s payload", e.Type)
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, eris.Wrapf(err, "model: flatten %s payload", e.Type)
		}
		for k, v := range fields {
			out[k] = v
		}
	}

	return json.Marshal(out)
}
