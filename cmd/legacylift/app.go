package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"legacylift/internal/config"
	"legacylift/internal/ingest"
	"legacylift/internal/llm"
	"legacylift/internal/pipeline"
	"legacylift/internal/store"
	"legacylift/internal/synth"
)

// app holds everything a front end needs to run migrations.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	pipeline *pipeline.Pipeline
	closers  []func() error
}

// buildApp wires the Gemini-backed pipeline from configuration.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := llm.NewGeminiProvider(ctx, cfg.APIKey, synth.SystemInstruction, llm.WithBaseURL(cfg.LLM.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("init gemini: %w", err)
	}

	var selector llm.Selector = &llm.CatalogSelector{Catalog: provider, Marker: cfg.LLM.Marker}
	if cfg.LLM.Model != "" {
		selector = llm.StaticSelector(cfg.LLM.Model)
	}
	factory := llm.Factory(provider.NewClient).With(llm.RateLimitFromEnv("LLM", "GEMINI"))
	client := llm.Wrap(
		llm.NewDispatchClient(selector, factory),
		llm.WithLogging(log),
		llm.WithTimeout(cfg.LLM.Timeout),
	)

	cloner := &ingest.Cloner{
		Dir:     cfg.Clone.Dir,
		Depth:   cfg.Clone.Depth,
		Timeout: cfg.Clone.Timeout,
		Logger:  log,
	}
	a := newApp(cfg, log, client, cloner)
	a.closers = append(a.closers, client.Close)
	return a, nil
}

// newApp assembles the pipeline around an already built model client.
func newApp(cfg *config.Config, log *zap.Logger, client llm.Client, cloner pipeline.Cloner) *app {
	var opts []synth.Option
	if cfg.LLM.Sequential {
		opts = append(opts, synth.Sequential())
	}
	opts = append(opts, synth.WithLogger(log))
	return &app{
		cfg:      cfg,
		log:      log,
		pipeline: pipeline.New(cloner, synth.New(client, opts...), pipeline.WithLogger(log)),
	}
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// openStore builds the download backend and checks its settings. The memory
// backend keeps at most maxRuns runs. Remote backends sit behind an
// in-memory cache unless disabled.
func openStore(ctx context.Context, cfg config.ArtifactConfig, maxRuns int) (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.BackendMemory, "":
		return store.NewMemoryStore(maxRuns, store.DefaultMemoryTTL), noop, nil
	case config.BackendDisk:
		return store.NewDiskStore(cfg.DiskRoot), noop, nil
	case config.BackendS3:
		if cfg.S3.Endpoint == "" {
			return nil, nil, errors.New("artifact backend s3 requires ARTIFACT_S3_ENDPOINT")
		}
		s3, err := store.NewS3Store(store.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return cached(s3, cfg.Cache), noop, nil
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("artifact backend postgres requires DATABASE_URL")
		}
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return cached(pg, cfg.Cache), pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}

func cached(s store.Store, enabled bool) store.Store {
	if !enabled {
		return s
	}
	return store.NewCachedStore(s, store.DefaultCacheConfig())
}
