package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prospect-labs/prospect-cli/internal/classify"
	"github.com/prospect-labs/prospect-cli/internal/enrich"
	"github.com/prospect-labs/prospect-cli/internal/pipeline"
	"github.com/prospect-labs/prospect-cli/internal/store"
	"github.com/prospect-labs/prospect-cli/internal/tracker"
	anthropicpkg "github.com/prospect-labs/prospect-cli/pkg/anthropic"
	"github.com/prospect-labs/prospect-cli/pkg/gemini"
	"github.com/prospect-labs/prospect-cli/pkg/llm"
	"github.com/prospect-labs/prospect-cli/pkg/tavily"
	"github.com/prospect-labs/prospect-cli/pkg/webhook"
)

// pipelineEnv holds the initialized store, tracker, and pipeline shared by
// the run and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Tracker  *tracker.Tracker
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv validates config for mode, opens the store, builds the API
// clients, and assembles the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	trk := tracker.New(st)
	if err := trk.LoadFromStore(ctx); err != nil {
		zap.L().Warn("failed to load performance history", zap.Error(err))
	}

	provider, err := initProvider(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	tavilyClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	harvester := pipeline.NewSearchHarvester(tavilyClient)
	enricher := enrich.New(provider)

	classifier, err := initClassifier()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithStore(st),
		pipeline.WithClassifier(classifier),
	}
	if cfg.Webhook.URL != "" {
		opts = append(opts, pipeline.WithWebhook(webhook.NewSender(cfg.Webhook.URL)))
		zap.L().Info("webhook delivery enabled", zap.String("url", cfg.Webhook.URL))
	}

	p := pipeline.New(pipeline.Config{
		MaxLeads:       cfg.Pipeline.MaxLeads,
		EnrichInterval: time.Duration(cfg.Pipeline.EnrichIntervalSecs) * time.Second,
	}, harvester, enricher, trk, opts...)

	return &pipelineEnv{Store: st, Tracker: trk, Pipeline: p}, nil
}

// initProvider builds the enrichment LLM client selected in config.
func initProvider(ctx context.Context) (llm.Provider, error) {
	switch cfg.Pipeline.Provider {
	case "gemini":
		return gemini.New(ctx, gemini.Config{
			APIKey:  cfg.Gemini.Key,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
	case "anthropic":
		return anthropicpkg.NewClient(cfg.Anthropic.Key, anthropicpkg.WithModel(cfg.Anthropic.Model)), nil
	default:
		return nil, eris.Errorf("unknown llm provider %q", cfg.Pipeline.Provider)
	}
}

// initClassifier builds the keyword classifier, applying the optional
// keyword override file.
func initClassifier() (*classify.Classifier, error) {
	if cfg.Classify.KeywordsPath == "" {
		return classify.New(), nil
	}
	keywords, err := classify.LoadKeywords(cfg.Classify.KeywordsPath)
	if err != nil {
		return nil, eris.Wrap(err, "load classifier keywords")
	}
	return classify.NewWithKeywords(keywords), nil
}
