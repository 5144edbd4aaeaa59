package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospect-labs/prospect-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestSearchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "saas companies hiring sales teams", req.Query)
		assert.Equal(t, 5, req.MaxResults)

		json.NewEncoder(w).Encode(SearchResponse{
			Query: req.Query,
			Results: []Result{
				{Title: "Acme Corp", URL: "https://acme.example.com", Content: "Acme builds sales tools", Score: 0.92},
				{Title: "Globex", URL: "https://globex.example.com", Content: "Globex is scaling sales", Score: 0.81},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetry(fastRetry()))

	resp, err := client.Search(context.Background(), SearchRequest{
		Query:      "saas companies hiring sales teams",
		MaxResults: 5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Acme Corp", resp.Results[0].Title)
	assert.Equal(t, "https://globex.example.com", resp.Results[1].URL)
}

func TestSearchRetriesOnServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(SearchResponse{Results: []Result{{Title: "Acme"}}})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL), WithRetry(fastRetry()))

	resp, err := client.Search(context.Background(), SearchRequest{Query: "test"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, resp.Results, 1)
}

func TestSearchDoesNotRetryClientError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", WithBaseURL(server.URL), WithRetry(fastRetry()))

	_, err := client.Search(context.Background(), SearchRequest{Query: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, 1, calls)
}

func TestSearchRequiresQuery(t *testing.T) {
	client := NewClient("test-key")

	_, err := client.Search(context.Background(), SearchRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}
