// Package tracker records how executed prospect queries performed and
// answers aggregate questions used to adapt future query selection.
package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prospect-labs/prospect-cli/internal/model"
	"github.com/prospect-labs/prospect-cli/internal/store"
)

// Tracker is an append-only log of performance records. It is owned by its
// constructor (never a package-level singleton) and safe for concurrent
// pipeline runs. When a store is supplied, records are also persisted
// best-effort so history survives restarts.
type Tracker struct {
	mu      sync.Mutex
	records []model.PerformanceRecord
	store   store.Store // optional
}

// New creates a Tracker. st may be nil for purely in-memory tracking.
func New(st store.Store) *Tracker {
	return &Tracker{store: st}
}

// LoadFromStore warm-starts the in-memory log from persisted records.
// A nil store is a no-op.
func (t *Tracker) LoadFromStore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	recs, err := t.store.ListPerformanceRecords(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.records = append(recs, t.records...)
	t.mu.Unlock()

	zap.L().Info("tracker: loaded performance history", zap.Int("records", len(recs)))
	return nil
}

// Track appends a performance record. Persistence failures are logged and
// swallowed; tracking never fails a pipeline run.
func (t *Tracker) Track(ctx context.Context, rec model.PerformanceRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.SavePerformanceRecord(ctx, rec); err != nil {
			zap.L().Warn("tracker: failed to persist record",
				zap.String("query", rec.Query),
				zap.Error(err),
			)
		}
	}
}

// snapshot copies the record log so aggregation runs without holding the lock.
func (t *Tracker) snapshot() []model.PerformanceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.PerformanceRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Analytics aggregates all tracked records. An empty tracker returns zero
// values rather than an error.
func (t *Tracker) Analytics() model.Analytics {
	recs := t.snapshot()

	analytics := model.Analytics{
		TotalQueriesTracked: len(recs),
		StrategyPerformance: aggregate(recs),
	}

	var totalLeads int
	for _, r := range recs {
		totalLeads += r.LeadsFound
	}
	if len(recs) > 0 {
		analytics.AvgLeadsPerQuery = float64(totalLeads) / float64(len(recs))
	}

	analytics.BestPerformingStrategy = bestStrategy(analytics.StrategyPerformance)
	return analytics
}

// BestStrategyForCategory returns the highest-composite strategy among
// records tagged with the category, or "" when no history exists for it.
func (t *Tracker) BestStrategyForCategory(category model.Category) model.Strategy {
	recs := t.snapshot()

	filtered := recs[:0:0]
	for _, r := range recs {
		if r.Category == category {
			filtered = append(filtered, r)
		}
	}
	return bestStrategy(aggregate(filtered))
}

func aggregate(recs []model.PerformanceRecord) map[model.Strategy]model.StrategyStats {
	type acc struct {
		leads   int
		quality float64
		success float64
		queries int
	}
	accs := make(map[model.Strategy]*acc)
	for _, r := range recs {
		a := accs[r.Strategy]
		if a == nil {
			a = &acc{}
			accs[r.Strategy] = a
		}
		a.leads += r.LeadsFound
		a.quality += r.AvgQuality
		a.success += r.SuccessRate
		a.queries++
	}

	stats := make(map[model.Strategy]model.StrategyStats, len(accs))
	for strategy, a := range accs {
		stats[strategy] = model.StrategyStats{
			LeadsFound:     a.leads,
			QualityScore:   a.quality / float64(a.queries),
			ConversionRate: a.success / float64(a.queries),
			Queries:        a.queries,
		}
	}
	return stats
}

// bestStrategy picks the strategy with the highest composite score.
// Ties break on lexicographically smaller strategy name so the result is
// stable across runs.
func bestStrategy(stats map[model.Strategy]model.StrategyStats) model.Strategy {
	if len(stats) == 0 {
		return ""
	}

	strategies := make([]model.Strategy, 0, len(stats))
	for s := range stats {
		strategies = append(strategies, s)
	}
	sort.Slice(strategies, func(i, j int) bool { return strategies[i] < strategies[j] })

	best := strategies[0]
	bestScore := stats[best].Composite()
	for _, s := range strategies[1:] {
		if score := stats[s].Composite(); score > bestScore {
			best = s
			bestScore = score
		}
	}
	return best
}
