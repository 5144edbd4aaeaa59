// Package pipeline orchestrates a lead-generation run: classify the
// business, generate and select a search query, harvest leads, enrich each
// one, and stream progress as events.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prospect-labs/prospect-cli/internal/classify"
	"github.com/prospect-labs/prospect-cli/internal/enrich"
	"github.com/prospect-labs/prospect-cli/internal/model"
	"github.com/prospect-labs/prospect-cli/internal/query"
	"github.com/prospect-labs/prospect-cli/internal/store"
	"github.com/prospect-labs/prospect-cli/internal/tracker"
	"github.com/prospect-labs/prospect-cli/pkg/webhook"
)

const defaultMaxLeads = 5

// eventBufferSlack covers the fixed events around the per-lead triple.
const eventBufferSlack = 8

// Config tunes a pipeline instance.
type Config struct {
	// MaxLeads bounds how many leads one run attempts to enrich.
	MaxLeads int
	// EnrichInterval paces enrichment calls. Zero disables pacing.
	EnrichInterval time.Duration
}

// Pipeline wires the classifier, query generation, search, and enrichment
// into a streaming run. All collaborators are injected; none are global.
type Pipeline struct {
	cfg        Config
	classifier *classify.Classifier
	generator  *query.Generator
	selector   *query.Selector
	tracker    *tracker.Tracker
	harvester  Harvester
	enricher   enrich.Enricher
	store      store.Store    // optional
	webhook    webhook.Sender // optional
	limiter    *rate.Limiter
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithStore enables job and lead persistence.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) {
		p.store = st
	}
}

// WithWebhook mirrors every event to a webhook endpoint.
func WithWebhook(s webhook.Sender) Option {
	return func(p *Pipeline) {
		p.webhook = s
	}
}

// WithClassifier overrides the default keyword classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(p *Pipeline) {
		p.classifier = c
	}
}

// New creates a Pipeline.
func New(cfg Config, harvester Harvester, enricher enrich.Enricher, trk *tracker.Tracker, opts ...Option) *Pipeline {
	if cfg.MaxLeads <= 0 {
		cfg.MaxLeads = defaultMaxLeads
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.EnrichInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.EnrichInterval), 1)
	}

	var perf query.PerformanceSource
	if trk != nil {
		perf = trk
	}

	p := &Pipeline{
		cfg:        cfg,
		classifier: classify.New(),
		generator:  query.NewGenerator(),
		selector:   query.NewSelector(perf),
		tracker:    trk,
		harvester:  harvester,
		enricher:   enricher,
		limiter:    limiter,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Stream runs the pipeline for job and returns a channel of events. The
// channel is closed after exactly one terminal event (pipeline_end or
// pipeline_error). Cancel ctx to stop the run between stages.
func (p *Pipeline) Stream(ctx context.Context, job *model.Job) <-chan model.Event {
	events := make(chan model.Event, 3*p.cfg.MaxLeads+eventBufferSlack)
	go func() {
		defer close(events)
		p.run(ctx, job, events)
	}()
	return events
}

type emitter struct {
	jobID   string
	userID  string
	events  chan<- model.Event
	webhook webhook.Sender
}

func (e *emitter) emit(ctx context.Context, ev model.Event) bool {
	ev.JobID = e.jobID
	ev.UserID = e.userID
	ev.Timestamp = time.Now().UTC()

	if e.webhook != nil {
		e.webhook.Send(ctx, ev)
	}

	if ev.Terminal() {
		// The terminal event must land even when ctx is already canceled;
		// the channel buffer makes this non-blocking in practice.
		select {
		case e.events <- ev:
		default:
			zap.L().Warn("pipeline: dropped terminal event, consumer gone",
				zap.String("job_id", e.jobID),
			)
		}
		return false
	}

	select {
	case e.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) run(ctx context.Context, job *model.Job, events chan<- model.Event) {
	start := time.Now()
	em := &emitter{jobID: job.ID, userID: job.UserID, events: events, webhook: p.webhook}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline: run panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
			)
			p.fail(ctx, em, job, fmt.Sprintf("internal error: %v", r), "pipeline")
		}
	}()

	p.setStatus(ctx, job.ID, model.JobStatusRunning)

	// Stage 1: classify and pick the search query.
	if !em.emit(ctx, model.Event{
		Type:   model.EventStatusUpdate,
		Status: &model.StatusUpdatePayload{Stage: "classification", Message: "analyzing business context"},
	}) {
		p.fail(ctx, em, job, "run canceled", "classification")
		return
	}

	cls := p.classifier.Classify(job.Context)

	cands, err := p.generator.All(ctx, job.Context)
	if err != nil {
		p.fail(ctx, em, job, err.Error(), "query_generation")
		return
	}
	selected := p.selector.SelectOptimal(cands, cls)

	job.Query = selected.Query
	job.Strategy = selected.Strategy
	if p.store != nil {
		if err := p.store.UpdateJobQuery(ctx, job.ID, selected.Query, selected.Strategy); err != nil {
			zap.L().Warn("pipeline: failed to persist query", zap.Error(err))
		}
	}

	if !em.emit(ctx, model.Event{
		Type: model.EventPipelineStart,
		Start: &model.PipelineStartPayload{
			Query:    selected.Query,
			Strategy: selected.Strategy,
			MaxLeads: p.cfg.MaxLeads,
		},
	}) {
		p.fail(ctx, em, job, "run canceled", "search")
		return
	}

	// Stage 2: harvest raw leads.
	if !em.emit(ctx, model.Event{
		Type:   model.EventStatusUpdate,
		Status: &model.StatusUpdatePayload{Stage: "search", Message: "searching for prospects"},
	}) {
		p.fail(ctx, em, job, "run canceled", "search")
		return
	}

	leads, err := p.harvester.Harvest(ctx, selected.Query, p.cfg.MaxLeads)
	if err != nil {
		p.fail(ctx, em, job, err.Error(), "search")
		return
	}
	if len(leads) > p.cfg.MaxLeads {
		leads = leads[:p.cfg.MaxLeads]
	}

	// Stage 3: enrich each lead, continuing past individual failures.
	successes := 0
	var qualitySum float64
	for i, lead := range leads {
		leadNumber := i + 1

		if err := p.limiter.Wait(ctx); err != nil {
			p.fail(ctx, em, job, "run canceled", "enrichment")
			return
		}

		if !em.emit(ctx, model.Event{
			Type: model.EventLeadEnrichmentStart,
			EnrichmentStart: &model.LeadEnrichmentStartPayload{
				LeadNumber:  leadNumber,
				CompanyName: lead.CompanyName,
				Website:     lead.Website,
			},
		}) {
			p.fail(ctx, em, job, "run canceled", "enrichment")
			return
		}

		profile, err := p.enricher.Enrich(ctx, job.Context, lead)
		if err != nil {
			if ctx.Err() != nil {
				p.fail(ctx, em, job, "run canceled", "enrichment")
				return
			}
			zap.L().Warn("pipeline: enrichment failed",
				zap.String("company", lead.CompanyName),
				zap.Error(err),
			)
			if !em.emit(ctx, model.Event{
				Type: model.EventLeadEnrichmentEnd,
				EnrichmentEnd: &model.LeadEnrichmentEndPayload{
					LeadNumber: leadNumber,
					Success:    false,
					Error:      err.Error(),
				},
			}) {
				p.fail(ctx, em, job, "run canceled", "enrichment")
				return
			}
			continue
		}

		successes++
		qualitySum += confidenceScore(profile.Confidence)

		if p.store != nil {
			if err := p.store.SaveLead(ctx, job.ID, leadNumber, lead, profile); err != nil {
				zap.L().Warn("pipeline: failed to persist lead", zap.Error(err))
			}
		}

		if !em.emit(ctx, model.Event{
			Type: model.EventLeadGenerated,
			Lead: &model.LeadGeneratedPayload{
				LeadNumber: leadNumber,
				Lead:       lead,
				Profile:    profile,
			},
		}) {
			p.fail(ctx, em, job, "run canceled", "enrichment")
			return
		}
		if !em.emit(ctx, model.Event{
			Type: model.EventLeadEnrichmentEnd,
			EnrichmentEnd: &model.LeadEnrichmentEndPayload{
				LeadNumber: leadNumber,
				Success:    true,
			},
		}) {
			p.fail(ctx, em, job, "run canceled", "enrichment")
			return
		}
	}

	// Stage 4: record performance and finish.
	p.trackRun(ctx, selected, cls.PrimaryCategory, len(leads), successes, qualitySum)

	if p.store != nil {
		if err := p.store.CompleteJob(ctx, job.ID, successes, ""); err != nil {
			zap.L().Warn("pipeline: failed to complete job", zap.Error(err))
		}
	}

	em.emit(ctx, model.Event{
		Type: model.EventPipelineEnd,
		End: &model.PipelineEndPayload{
			TotalLeadsGenerated: successes,
			LeadsAttempted:      len(leads),
			Query:               selected.Query,
			ElapsedSeconds:      time.Since(start).Seconds(),
		},
	})
}

// fail emits the terminal pipeline_error event and marks the job failed.
func (p *Pipeline) fail(ctx context.Context, em *emitter, job *model.Job, msg, stage string) {
	if p.store != nil {
		// The run context may already be canceled; persistence still matters.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.store.CompleteJob(dctx, job.ID, 0, msg); err != nil {
			zap.L().Warn("pipeline: failed to mark job failed", zap.Error(err))
		}
	}

	em.emit(ctx, model.Event{
		Type:  model.EventPipelineError,
		Error: &model.PipelineErrorPayload{Error: msg, Stage: stage},
	})
}

func (p *Pipeline) setStatus(ctx context.Context, jobID string, status model.JobStatus) {
	if p.store == nil {
		return
	}
	if err := p.store.UpdateJobStatus(ctx, jobID, status); err != nil {
		zap.L().Warn("pipeline: failed to update job status",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) trackRun(ctx context.Context, selected model.QueryCandidate, category model.Category, attempted, successes int, qualitySum float64) {
	if p.tracker == nil {
		return
	}

	rec := model.PerformanceRecord{
		Query:    selected.Query,
		Strategy: selected.Strategy,
		Category: category,
	}
	rec.LeadsFound = successes
	if successes > 0 {
		rec.AvgQuality = qualitySum / float64(successes)
	}
	if attempted > 0 {
		rec.SuccessRate = float64(successes) / float64(attempted)
	}

	p.tracker.Track(context.WithoutCancel(ctx), rec)
}

// confidenceScore maps the profile confidence label to a quality score used
// in performance aggregation.
func confidenceScore(confidence string) float64 {
	switch confidence {
	case "high":
		return 1.0
	case "medium":
		return 0.6
	case "low":
		return 0.3
	default:
		return 0.5
	}
}
