package query

import (
	"go.uber.org/zap"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// PerformanceSource answers which strategy has historically performed best
// for a business category. Implemented by the tracker.
type PerformanceSource interface {
	BestStrategyForCategory(category model.Category) model.Strategy
}

// DefaultCandidate is returned when no candidates are available at all.
var DefaultCandidate = model.QueryCandidate{
	Query:    "companies seeking business solutions",
	Strategy: model.StrategyProblemSeeking,
}

// Selector picks one candidate query for a run.
type Selector struct {
	perf PerformanceSource // optional
}

// NewSelector creates a Selector. perf may be nil when no history exists.
func NewSelector(perf PerformanceSource) *Selector {
	return &Selector{perf: perf}
}

// SelectOptimal chooses the first candidate matching the highest-priority
// strategy, walking down the priority list, then the historically best
// strategy for the category, then the first candidate. Deterministic given
// identical candidates, classification, and tracker state.
func (s *Selector) SelectOptimal(cands []model.QueryCandidate, cls model.Classification) model.QueryCandidate {
	if len(cands) == 0 {
		zap.L().Warn("query: no candidates, using default query")
		return DefaultCandidate
	}

	for _, strategy := range cls.PriorityStrategies {
		if c, ok := firstWithStrategy(cands, strategy); ok {
			return c
		}
	}

	if s.perf != nil {
		if best := s.perf.BestStrategyForCategory(cls.PrimaryCategory); best != "" {
			if c, ok := firstWithStrategy(cands, best); ok {
				zap.L().Debug("query: selected by historical performance",
					zap.String("strategy", string(best)),
				)
				return c
			}
		}
	}

	return cands[0]
}

func firstWithStrategy(cands []model.QueryCandidate, strategy model.Strategy) (model.QueryCandidate, bool) {
	for _, c := range cands {
		if c.Strategy == strategy {
			return c, true
		}
	}
	return model.QueryCandidate{}, false
}
