package model

// BusinessContext describes the using company's own offering. It is supplied
// once per pipeline run and treated as immutable for that run.
type BusinessContext struct {
	Description     string   `json:"business_description" yaml:"business_description" mapstructure:"business_description"`
	ProductService  string   `json:"product_service" yaml:"product_service" mapstructure:"product_service"`
	TargetMarket    string   `json:"target_market" yaml:"target_market" mapstructure:"target_market"`
	IndustryFocus   []string `json:"industry_focus" yaml:"industry_focus" mapstructure:"industry_focus"`
	GeographicFocus []string `json:"geographic_focus" yaml:"geographic_focus" mapstructure:"geographic_focus"`
	PainPoints      []string `json:"pain_points" yaml:"pain_points" mapstructure:"pain_points"`
	IdealCustomer   string   `json:"ideal_customer" yaml:"ideal_customer" mapstructure:"ideal_customer"`
	Competitors     []string `json:"competitors" yaml:"competitors" mapstructure:"competitors"`
}

// Category is a fixed business category assigned by the classifier.
type Category string

const (
	CategoryAITechnology        Category = "ai_technology"
	CategoryMarketingServices   Category = "marketing_services"
	CategorySoftwareDevelopment Category = "software_development"
	CategoryConsulting          Category = "consulting"
	CategoryEcommerce           Category = "ecommerce"
	CategoryGeneral             Category = "general"
)

// Strategy identifies a prospect query template family.
type Strategy string

const (
	StrategyProblemSeeking          Strategy = "problem_seeking"
	StrategyIndustryGrowth          Strategy = "industry_growth"
	StrategyBuyingIntent            Strategy = "buying_intent"
	StrategyCompetitiveDisplacement Strategy = "competitive_displacement"
)

// Strategies lists every known strategy in canonical order.
func Strategies() []Strategy {
	return []Strategy{
		StrategyProblemSeeking,
		StrategyIndustryGrowth,
		StrategyBuyingIntent,
		StrategyCompetitiveDisplacement,
	}
}

// Classification is the classifier's verdict for a BusinessContext.
// Derived purely from the context; recomputed each run, never persisted.
type Classification struct {
	PrimaryCategory    Category             `json:"primary_category"`
	Confidence         float64              `json:"confidence"`
	PriorityStrategies []Strategy           `json:"priority_strategies"`
	AllScores          map[Category]float64 `json:"all_scores"`
}

// QueryCandidate pairs a generated search query with the strategy that
// produced it, so selection never has to re-infer the strategy from the
// query text.
type QueryCandidate struct {
	Query    string   `json:"query"`
	Strategy Strategy `json:"strategy"`
}
