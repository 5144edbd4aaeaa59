// Package classify maps a free-text business context to a fixed category
// using weighted keyword overlap, and derives the ordered list of query
// strategies the pipeline should favor for that category.
package classify

import (
	"strings"

	"go.uber.org/zap"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// Classifier scores a BusinessContext against per-category keyword tables.
// The zero-cost default tables can be overridden via LoadKeywords.
type Classifier struct {
	keywords   map[model.Category][]string
	priorities map[model.Category][]model.Strategy
}

// New creates a Classifier with the built-in keyword tables.
func New() *Classifier {
	return &Classifier{
		keywords:   defaultKeywords,
		priorities: defaultPriorities,
	}
}

// NewWithKeywords creates a Classifier with a custom keyword table,
// typically loaded from a YAML override file.
func NewWithKeywords(keywords map[model.Category][]string) *Classifier {
	return &Classifier{
		keywords:   keywords,
		priorities: defaultPriorities,
	}
}

// weightedField pairs a context field with its scoring weight. The core
// offering fields count double.
type weightedField struct {
	text   string
	weight float64
}

func contextFields(bc model.BusinessContext) []weightedField {
	return []weightedField{
		{bc.Description, 2},
		{bc.ProductService, 2},
		{bc.TargetMarket, 1},
		{bc.IdealCustomer, 1},
		{strings.Join(bc.IndustryFocus, " "), 1},
		{strings.Join(bc.PainPoints, " "), 1},
	}
}

// Classify scores the context against every category and returns the
// winner with a normalized confidence. It never fails: an empty or
// unmatched context yields CategoryGeneral with confidence 0 and the
// generic strategy ordering.
func (c *Classifier) Classify(bc model.BusinessContext) model.Classification {
	fields := contextFields(bc)

	scores := make(map[model.Category]float64, len(c.keywords))
	var total float64
	for cat, kws := range c.keywords {
		var score float64
		for _, f := range fields {
			if f.text == "" {
				continue
			}
			lower := strings.ToLower(f.text)
			for _, kw := range kws {
				score += float64(strings.Count(lower, kw)) * f.weight
			}
		}
		scores[cat] = score
		total += score
	}

	best := model.CategoryGeneral
	var bestScore float64
	for cat, score := range scores {
		if score > bestScore || (score == bestScore && score > 0 && cat < best) {
			best = cat
			bestScore = score
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = bestScore / total
		if confidence > 1 {
			confidence = 1
		}
	}

	priorities := c.priorities[best]
	if len(priorities) == 0 {
		priorities = c.priorities[model.CategoryGeneral]
	}

	zap.L().Debug("classify: business categorized",
		zap.String("category", string(best)),
		zap.Float64("confidence", confidence),
	)

	return model.Classification{
		PrimaryCategory:    best,
		Confidence:         confidence,
		PriorityStrategies: priorities,
		AllScores:          scores,
	}
}
