// Package scrape fetches a web page and extracts its visible text for
// downstream enrichment prompts.
package scrape

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const (
	// maxBodyBytes caps how much of a page body is read.
	maxBodyBytes = 512 * 1024
	// maxTextRunes caps the extracted text fed into prompts.
	maxTextRunes = 8000

	userAgent = "Mozilla/5.0 (compatible; prospect-cli/1.0)"
)

// Fetcher retrieves the visible text of a web page.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Option configures the fetcher.
type Option func(*httpFetcher)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *httpFetcher) {
		f.http = hc
	}
}

type httpFetcher struct {
	http *http.Client
}

// NewFetcher creates a page text fetcher.
func NewFetcher(opts ...Option) Fetcher {
	f := &httpFetcher{
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *httpFetcher) FetchText(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "scrape: fetch page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("scrape: unexpected status %d for %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "scrape: parse html")
	}

	return ExtractText(doc), nil
}

// ExtractText pulls the visible text out of a parsed document, dropping
// non-content elements and collapsing whitespace.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, iframe, svg, nav, footer, header").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	fields := strings.Fields(text)
	text = strings.Join(fields, " ")

	runes := []rune(text)
	if len(runes) > maxTextRunes {
		text = string(runes[:maxTextRunes])
	}
	return text
}
