package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospect-labs/prospect-cli/internal/model"
	"github.com/prospect-labs/prospect-cli/internal/store"
	"github.com/prospect-labs/prospect-cli/internal/tracker"
)

type fakeHarvester struct {
	leads []model.Lead
	err   error
	query string
}

func (f *fakeHarvester) Harvest(_ context.Context, query string, _ int) ([]model.Lead, error) {
	f.query = query
	return f.leads, f.err
}

// fakeEnricher fails or panics on specific lead numbers (1-based call order).
type fakeEnricher struct {
	calls   int
	failOn  map[int]bool
	panicOn int
	block   chan struct{}
}

func (f *fakeEnricher) Enrich(ctx context.Context, _ model.BusinessContext, lead model.Lead) (*model.LeadProfile, error) {
	f.calls++
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.calls == f.panicOn {
		panic("enricher exploded")
	}
	if f.failOn[f.calls] {
		return nil, errors.New("enrichment failed")
	}
	return &model.LeadProfile{
		Summary:    lead.CompanyName + " summary",
		Persona:    "Head of Operations",
		Messaging:  "outreach angle",
		Confidence: "high",
	}, nil
}

func threeLeads() []model.Lead {
	return []model.Lead{
		{CompanyName: "Acme Corp", Website: "https://acme.example.com"},
		{CompanyName: "Globex", Website: "https://globex.example.com"},
		{CompanyName: "Initech", Website: "https://initech.example.com"},
	}
}

func testJob() *model.Job {
	return &model.Job{
		ID:     uuid.New().String(),
		UserID: "user-1",
		Context: model.BusinessContext{
			Description:   "AI consulting and automation solutions for traditional businesses",
			PainPoints:    []string{"manual processes"},
			IndustryFocus: []string{"manufacturing"},
		},
	}
}

func collect(t *testing.T, events <-chan model.Event) []model.Event {
	t.Helper()
	var out []model.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func eventTypes(events []model.Event) []model.EventType {
	types := make([]model.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestStreamHappyPath(t *testing.T) {
	trk := tracker.New(nil)
	harvester := &fakeHarvester{leads: threeLeads()}
	p := New(Config{MaxLeads: 5}, harvester, &fakeEnricher{}, trk)

	job := testJob()
	events := collect(t, p.Stream(context.Background(), job))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, model.EventPipelineEnd, last.Type)
	assert.Equal(t, 3, last.End.TotalLeadsGenerated)
	assert.Equal(t, 3, last.End.LeadsAttempted)
	assert.NotEmpty(t, last.End.Query)
	assert.Equal(t, harvester.query, last.End.Query)

	for _, ev := range events {
		assert.Equal(t, job.ID, ev.JobID)
		assert.Equal(t, "user-1", ev.UserID)
		assert.False(t, ev.Timestamp.IsZero())
	}

	terminals := 0
	for _, ev := range events {
		if ev.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)

	generated := 0
	for _, ev := range events {
		if ev.Type == model.EventLeadGenerated {
			generated++
			require.NotNil(t, ev.Lead.Profile)
		}
	}
	assert.Equal(t, 3, generated)

	// The run records its performance for future query selection.
	analytics := trk.Analytics()
	assert.Equal(t, 1, analytics.TotalQueriesTracked)
	assert.Equal(t, 3.0, analytics.AvgLeadsPerQuery)
}

func TestStreamContinuesPastEnrichmentFailure(t *testing.T) {
	p := New(Config{MaxLeads: 5},
		&fakeHarvester{leads: threeLeads()},
		&fakeEnricher{failOn: map[int]bool{2: true}},
		tracker.New(nil),
	)

	events := collect(t, p.Stream(context.Background(), testJob()))

	var ends []model.LeadEnrichmentEndPayload
	for _, ev := range events {
		if ev.Type == model.EventLeadEnrichmentEnd {
			ends = append(ends, *ev.EnrichmentEnd)
		}
	}
	require.Len(t, ends, 3)
	assert.True(t, ends[0].Success)
	assert.False(t, ends[1].Success)
	assert.Equal(t, 2, ends[1].LeadNumber)
	assert.NotEmpty(t, ends[1].Error)
	assert.True(t, ends[2].Success)

	last := events[len(events)-1]
	require.Equal(t, model.EventPipelineEnd, last.Type)
	assert.Equal(t, 2, last.End.TotalLeadsGenerated)
	assert.Equal(t, 3, last.End.LeadsAttempted)
}

func TestStreamHarvestFailure(t *testing.T) {
	p := New(Config{MaxLeads: 5},
		&fakeHarvester{err: errors.New("search unavailable")},
		&fakeEnricher{},
		tracker.New(nil),
	)

	events := collect(t, p.Stream(context.Background(), testJob()))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, model.EventPipelineError, last.Type)
	assert.Equal(t, "search", last.Error.Stage)
	assert.Contains(t, last.Error.Error, "search unavailable")
}

func TestStreamRecoversFromPanic(t *testing.T) {
	p := New(Config{MaxLeads: 5},
		&fakeHarvester{leads: threeLeads()},
		&fakeEnricher{panicOn: 1},
		tracker.New(nil),
	)

	events := collect(t, p.Stream(context.Background(), testJob()))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, model.EventPipelineError, last.Type)
	assert.Contains(t, last.Error.Error, "enricher exploded")
}

func TestStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	block := make(chan struct{})

	p := New(Config{MaxLeads: 5},
		&fakeHarvester{leads: threeLeads()},
		&fakeEnricher{block: block},
		tracker.New(nil),
	)

	events := p.Stream(ctx, testJob())

	var got []model.Event
	for ev := range events {
		got = append(got, ev)
		if ev.Type == model.EventLeadEnrichmentStart {
			cancel()
		}
	}

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, model.EventPipelineError, last.Type)
}

func TestStreamNoLeadsFound(t *testing.T) {
	p := New(Config{MaxLeads: 5},
		&fakeHarvester{leads: nil},
		&fakeEnricher{},
		tracker.New(nil),
	)

	events := collect(t, p.Stream(context.Background(), testJob()))

	last := events[len(events)-1]
	require.Equal(t, model.EventPipelineEnd, last.Type)
	assert.Equal(t, 0, last.End.TotalLeadsGenerated)
	assert.Equal(t, 0, last.End.LeadsAttempted)
}

func TestStreamPersistsJobAndLeads(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(context.Background()))

	job, err := st.CreateJob(context.Background(), "user-1", testJob().Context)
	require.NoError(t, err)

	p := New(Config{MaxLeads: 5},
		&fakeHarvester{leads: threeLeads()},
		&fakeEnricher{failOn: map[int]bool{2: true}},
		tracker.New(st),
		WithStore(st),
	)

	collect(t, p.Stream(context.Background(), job))

	stored, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, stored.Status)
	assert.Equal(t, 2, stored.Leads)
	assert.NotEmpty(t, stored.Query)

	leads, err := st.ListLeads(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	recs, err := st.ListPerformanceRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].LeadsFound)
	assert.InDelta(t, 2.0/3.0, recs[0].SuccessRate, 1e-9)
}

func TestCompanyNameFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Acme Corp | Home", "Acme Corp"},
		{"About Us - Acme Corp", "Acme Corp"},
		{"Globex", "Globex"},
		{"Home | Initech", "Initech"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, companyNameFromTitle(tt.title), tt.title)
	}
}
