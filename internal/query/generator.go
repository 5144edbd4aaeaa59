// Package query generates prospect search queries from a business context
// across four strategy template families, and selects the best candidate
// using the classifier's priorities and historical performance.
package query

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

// Generator produces template-filled query candidates. Every candidate
// carries its strategy tag so downstream selection never has to guess.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

const (
	genericIndustry = "businesses"
	genericProduct  = "business solutions"
	genericPain     = "operational inefficiencies"
)

func firstOr(values []string, fallback string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return fallback
}

// joinQuery assembles template fragments, dropping empties and collapsing
// whitespace so no query ever carries an unresolved placeholder gap.
func joinQuery(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func candidates(strategy model.Strategy, queries ...string) []model.QueryCandidate {
	out := make([]model.QueryCandidate, 0, len(queries))
	for _, q := range queries {
		if q == "" {
			continue
		}
		out = append(out, model.QueryCandidate{Query: q, Strategy: strategy})
	}
	return out
}

// ProblemSeeking finds companies that exhibit the pain the offering solves.
func (g *Generator) ProblemSeeking(bc model.BusinessContext, location string) []model.QueryCandidate {
	pain := firstOr(bc.PainPoints, genericPain)
	industry := firstOr(bc.IndustryFocus, genericIndustry)

	return candidates(model.StrategyProblemSeeking,
		joinQuery("companies struggling with", pain, location),
		joinQuery(industry, "facing", pain),
		joinQuery("businesses looking to fix", pain, location),
	)
}

// IndustryGrowth finds companies in an expansion phase.
func (g *Generator) IndustryGrowth(bc model.BusinessContext, location string) []model.QueryCandidate {
	industry := firstOr(bc.IndustryFocus, genericIndustry)

	return candidates(model.StrategyIndustryGrowth,
		joinQuery("fast growing", industry, "companies", location),
		joinQuery(industry, "startups expanding", location),
		joinQuery("recently funded", industry, "companies"),
	)
}

// BuyingIntent finds companies actively shopping for the offering.
func (g *Generator) BuyingIntent(bc model.BusinessContext, location string) []model.QueryCandidate {
	industry := firstOr(bc.IndustryFocus, genericIndustry)
	product := bc.ProductService
	if strings.TrimSpace(product) == "" {
		product = genericProduct
	}

	return candidates(model.StrategyBuyingIntent,
		joinQuery(industry, "companies looking for", product, location),
		joinQuery("companies requesting proposals for", product),
		joinQuery(industry, "evaluating", product, "providers"),
	)
}

// CompetitiveDisplacement finds companies tied to a named competitor, or
// generically dissatisfied with their current provider.
func (g *Generator) CompetitiveDisplacement(bc model.BusinessContext, location string) []model.QueryCandidate {
	product := bc.ProductService
	if strings.TrimSpace(product) == "" {
		product = genericProduct
	}

	competitor := firstOr(bc.Competitors, "")
	if competitor == "" {
		return candidates(model.StrategyCompetitiveDisplacement,
			joinQuery("companies switching", product, "providers", location),
			joinQuery("companies comparing", product, "vendors"),
		)
	}

	return candidates(model.StrategyCompetitiveDisplacement,
		joinQuery("companies using", competitor, "alternatives", location),
		joinQuery("businesses unhappy with", competitor),
		joinQuery("companies comparing", product, "vendors"),
	)
}

// All generates candidates for every strategy, fanning the four template
// families out concurrently and preserving canonical strategy order.
func (g *Generator) All(ctx context.Context, bc model.BusinessContext) ([]model.QueryCandidate, error) {
	location := firstOr(bc.GeographicFocus, "")

	generators := []func(model.BusinessContext, string) []model.QueryCandidate{
		g.ProblemSeeking,
		g.IndustryGrowth,
		g.BuyingIntent,
		g.CompetitiveDisplacement,
	}

	results := make([][]model.QueryCandidate, len(generators))
	eg, _ := errgroup.WithContext(ctx)
	for i, gen := range generators {
		eg.Go(func() error {
			results[i] = gen(bc, location)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []model.QueryCandidate
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
