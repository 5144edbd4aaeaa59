package model

import "time"

// PerformanceRecord captures how a single executed query performed.
// Records are append-only; aggregation happens on demand.
type PerformanceRecord struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Strategy    Strategy  `json:"strategy"`
	Category    Category  `json:"category"`
	LeadsFound  int       `json:"leads_found"`
	AvgQuality  float64   `json:"avg_quality"`
	SuccessRate float64   `json:"success_rate"`
	CreatedAt   time.Time `json:"created_at"`
}

// StrategyStats aggregates performance records for one strategy.
type StrategyStats struct {
	LeadsFound     int     `json:"leads_found"`
	QualityScore   float64 `json:"quality_score"`
	ConversionRate float64 `json:"conversion_rate"`
	Queries        int     `json:"queries"`
}

// Composite is the ranking score used to pick a best strategy: total leads
// weighted by average quality. Ties are broken by the caller on strategy name.
func (s StrategyStats) Composite() float64 {
	return float64(s.LeadsFound) * s.QualityScore
}

// Analytics is the on-demand aggregate view over all tracked records.
type Analytics struct {
	TotalQueriesTracked    int                        `json:"total_queries_tracked"`
	BestPerformingStrategy Strategy                   `json:"best_performing_strategy"`
	AvgLeadsPerQuery       float64                    `json:"avg_leads_per_query"`
	StrategyPerformance    map[Strategy]StrategyStats `json:"strategy_performance"`
}
