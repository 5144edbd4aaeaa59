package classify

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// defaultKeywords associates each category with the terms that signal it.
// Matching is case-insensitive substring occurrence counting.
var defaultKeywords = map[model.Category][]string{
	model.CategoryAITechnology: {
		"ai", "artificial intelligence", "machine learning", "automation",
		"llm", "data science", "intelligent", "chatbot", "predictive",
	},
	model.CategoryMarketingServices: {
		"marketing", "seo", "advertising", "branding", "social media",
		"lead generation", "content", "campaigns", "outreach",
	},
	model.CategorySoftwareDevelopment: {
		"software", "development", "web development", "app", "engineering",
		"saas", "platform", "api", "integration",
	},
	model.CategoryConsulting: {
		"consulting", "advisory", "strategy", "professional services",
		"coaching", "transformation",
	},
	model.CategoryEcommerce: {
		"ecommerce", "e-commerce", "online store", "retail", "shopify",
		"marketplace", "dropshipping", "fulfillment",
	},
}

// defaultPriorities maps a primary category to its ordered query strategies.
var defaultPriorities = map[model.Category][]model.Strategy{
	model.CategoryAITechnology: {
		model.StrategyBuyingIntent,
		model.StrategyProblemSeeking,
		model.StrategyIndustryGrowth,
	},
	model.CategoryMarketingServices: {
		model.StrategyProblemSeeking,
		model.StrategyCompetitiveDisplacement,
		model.StrategyBuyingIntent,
	},
	model.CategorySoftwareDevelopment: {
		model.StrategyProblemSeeking,
		model.StrategyBuyingIntent,
		model.StrategyIndustryGrowth,
	},
	model.CategoryConsulting: {
		model.StrategyProblemSeeking,
		model.StrategyIndustryGrowth,
		model.StrategyBuyingIntent,
	},
	model.CategoryEcommerce: {
		model.StrategyBuyingIntent,
		model.StrategyCompetitiveDisplacement,
		model.StrategyIndustryGrowth,
	},
	model.CategoryGeneral: {
		model.StrategyProblemSeeking,
		model.StrategyIndustryGrowth,
		model.StrategyBuyingIntent,
	},
}

type keywordFile struct {
	Keywords map[string][]string `yaml:"keywords"`
}

// LoadKeywords reads a category→keywords override table from a YAML file.
// Categories absent from the file keep their defaults.
func LoadKeywords(path string) (map[model.Category][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read keywords %s", path)
	}

	var kf keywordFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, eris.Wrapf(err, "classify: parse keywords %s", path)
	}

	merged := make(map[model.Category][]string, len(defaultKeywords))
	for cat, kws := range defaultKeywords {
		merged[cat] = kws
	}
	for cat, kws := range kf.Keywords {
		if len(kws) > 0 {
			merged[model.Category(cat)] = kws
		}
	}
	return merged, nil
}
