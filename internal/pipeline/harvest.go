package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/prospect-labs/prospect-cli/internal/model"
	"github.com/prospect-labs/prospect-cli/pkg/tavily"
)

// Harvester turns a search query into raw leads.
type Harvester interface {
	Harvest(ctx context.Context, query string, maxLeads int) ([]model.Lead, error)
}

type searchHarvester struct {
	client tavily.Client
}

// NewSearchHarvester creates a Harvester backed by the Tavily search API.
func NewSearchHarvester(client tavily.Client) Harvester {
	return &searchHarvester{client: client}
}

func (h *searchHarvester) Harvest(ctx context.Context, query string, maxLeads int) ([]model.Lead, error) {
	resp, err := h.client.Search(ctx, tavily.SearchRequest{
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  maxLeads,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: search for leads")
	}

	leads := make([]model.Lead, 0, len(resp.Results))
	for _, r := range resp.Results {
		name := companyNameFromTitle(r.Title)
		if name == "" {
			continue
		}
		leads = append(leads, model.Lead{
			CompanyName: name,
			Website:     r.URL,
			Description: r.Content,
			RawContent:  r.RawContent,
			Source:      "tavily",
		})
	}
	return leads, nil
}

// companyNameFromTitle strips common page-title decorations like
// "Acme Corp | Home" or "About Us - Acme Corp" down to a company name.
func companyNameFromTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range []string{" | ", " — ", " – ", " - ", " :: "} {
		if i := strings.Index(title, sep); i > 0 {
			left := strings.TrimSpace(title[:i])
			right := strings.TrimSpace(title[i+len(sep):])
			if isBoilerplate(left) {
				title = right
			} else {
				title = left
			}
			break
		}
	}
	return strings.TrimSpace(title)
}

func isBoilerplate(s string) bool {
	switch strings.ToLower(s) {
	case "home", "about", "about us", "welcome", "contact", "contact us":
		return true
	default:
		return false
	}
}
