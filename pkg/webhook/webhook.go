// Package webhook delivers pipeline events to a configured callback URL.
// Delivery is best effort: failures are logged and never interrupt the
// pipeline.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prospect-labs/prospect-cli/internal/resilience"
)

// Sender posts JSON payloads to a webhook endpoint.
type Sender interface {
	Send(ctx context.Context, payload any)
}

// Option configures the sender.
type Option func(*httpSender)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *httpSender) {
		s.http = hc
	}
}

// WithRetry overrides the default retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *httpSender) {
		s.retry = cfg
	}
}

type httpSender struct {
	url   string
	http  *http.Client
	retry resilience.RetryConfig
}

// NewSender creates a webhook sender targeting url.
func NewSender(url string, opts ...Option) Sender {
	s := &httpSender{
		url: url,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     time.Second,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send delivers payload to the webhook URL. Errors are logged, not returned,
// so a dead endpoint never stalls event streaming.
func (s *httpSender) Send(ctx context.Context, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Warn("webhook: marshal payload", zap.Error(err))
		return
	}

	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.post(ctx, body)
	})
	if err != nil {
		zap.L().Warn("webhook: delivery failed",
			zap.String("url", s.url),
			zap.Error(err),
		)
	}
}

func (s *httpSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "webhook: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "webhook: send request")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		err := eris.Errorf("webhook: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}
