// Package enrich turns a raw search hit into a qualified lead profile by
// combining scraped site content with an LLM analysis pass.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prospect-labs/prospect-cli/internal/model"
	"github.com/prospect-labs/prospect-cli/internal/resilience"
	"github.com/prospect-labs/prospect-cli/pkg/llm"
	"github.com/prospect-labs/prospect-cli/pkg/scrape"
)

const systemPrompt = `You are a B2B sales research analyst. Given information about a company, produce a JSON object with exactly these fields:
  "summary": 2-3 sentence overview of what the company does,
  "persona": the likely buyer persona at this company (role and priorities),
  "messaging": a 2-3 sentence personalized outreach angle,
  "contacts": a list of named contacts or roles found in the content (may be empty),
  "confidence": one of "high", "medium", "low" for how confident you are this is a real, reachable company.
Respond with the JSON object only, no surrounding prose.`

// Enricher produces a LeadProfile for a raw lead.
type Enricher interface {
	Enrich(ctx context.Context, bc model.BusinessContext, lead model.Lead) (*model.LeadProfile, error)
}

// Option configures the enricher.
type Option func(*llmEnricher)

// WithFetcher overrides the page fetcher.
func WithFetcher(f scrape.Fetcher) Option {
	return func(e *llmEnricher) {
		e.fetcher = f
	}
}

// WithRetry overrides the retry configuration for the LLM call.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *llmEnricher) {
		e.retry = cfg
	}
}

type llmEnricher struct {
	provider llm.Provider
	fetcher  scrape.Fetcher
	retry    resilience.RetryConfig
}

// New creates an enricher backed by the given LLM provider.
func New(provider llm.Provider, opts ...Option) Enricher {
	e := &llmEnricher{
		provider: provider,
		fetcher:  scrape.NewFetcher(),
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.retry.OnRetry == nil {
		e.retry.OnRetry = resilience.RetryLogger("enrich", "complete")
	}
	return e
}

// profileResponse is the JSON shape requested from the model.
type profileResponse struct {
	Summary    string   `json:"summary"`
	Persona    string   `json:"persona"`
	Messaging  string   `json:"messaging"`
	Contacts   []string `json:"contacts"`
	Confidence string   `json:"confidence"`
}

func (e *llmEnricher) Enrich(ctx context.Context, bc model.BusinessContext, lead model.Lead) (*model.LeadProfile, error) {
	siteText := lead.RawContent
	if siteText == "" && lead.Website != "" {
		text, err := e.fetcher.FetchText(ctx, lead.Website)
		if err != nil {
			zap.L().Debug("enrich: site fetch failed, using search snippet only",
				zap.String("company", lead.CompanyName),
				zap.Error(err),
			)
		} else {
			siteText = text
		}
	}

	temp := 0.3
	req := llm.Request{
		System:       systemPrompt,
		Prompt:       buildPrompt(bc, lead, siteText),
		MaxTokens:    1024,
		Temperature:  &temp,
		JSONResponse: true,
	}

	completion, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*llm.Completion, error) {
		return e.provider.Complete(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: analyze %s", lead.CompanyName)
	}

	profile, err := parseProfile(completion.Text)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: parse profile for %s", lead.CompanyName)
	}
	return profile, nil
}

func buildPrompt(bc model.BusinessContext, lead model.Lead, siteText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Our business: %s\n", bc.Description)
	if bc.ProductService != "" {
		fmt.Fprintf(&b, "Our product/service: %s\n", bc.ProductService)
	}
	if bc.IdealCustomer != "" {
		fmt.Fprintf(&b, "Our ideal customer: %s\n", bc.IdealCustomer)
	}
	fmt.Fprintf(&b, "\nProspect company: %s\n", lead.CompanyName)
	if lead.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", lead.Website)
	}
	if lead.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", lead.Location)
	}
	if lead.Description != "" {
		fmt.Fprintf(&b, "Search snippet: %s\n", lead.Description)
	}
	if siteText != "" {
		fmt.Fprintf(&b, "\nWebsite content:\n%s\n", siteText)
	}
	return b.String()
}

// parseProfile decodes the model response, tolerating markdown code fences.
func parseProfile(text string) (*model.LeadProfile, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Tolerate leading or trailing prose around the JSON object.
	if start := strings.Index(text, "{"); start > 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var resp profileResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, eris.Wrap(err, "unmarshal profile")
	}
	if resp.Summary == "" {
		return nil, eris.New("profile missing summary")
	}

	confidence := strings.ToLower(strings.TrimSpace(resp.Confidence))
	switch confidence {
	case "high", "medium", "low":
	default:
		confidence = "medium"
	}

	return &model.LeadProfile{
		Summary:    resp.Summary,
		Persona:    resp.Persona,
		Messaging:  resp.Messaging,
		Contacts:   resp.Contacts,
		Confidence: confidence,
	}, nil
}
