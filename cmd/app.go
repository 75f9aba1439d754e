package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/kdeps/kxlate/pkg/cache"
	"github.com/kdeps/kxlate/pkg/environment"
	"github.com/kdeps/kxlate/pkg/history"
	"github.com/kdeps/kxlate/pkg/language"
	"github.com/kdeps/kxlate/pkg/llm"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/metrics"
	"github.com/kdeps/kxlate/pkg/pipeline"
	"github.com/kdeps/kxlate/pkg/translate"
)

// App holds the process-wide handles every command shares.
type App struct {
	Env          *environment.Environment
	Orchestrator *pipeline.Orchestrator
	History      *history.Store
	Metrics      *metrics.JobMetrics
	closers      []func() error
}

// NewApp wires storage, the translation backend and the orchestrator from env.
func NewApp(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) (*App, error) {
	app := &App{Env: env, Metrics: metrics.NewJobMetrics()}

	store, closeStore, err := OpenStoreFn(ctx, fs, env, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	app.closers = append(app.closers, closeStore)

	model, err := NewModelFn(llm.Config{
		Backend: env.LLMBackend,
		BaseURL: env.LLMBaseURL,
		APIKey:  env.LLMAPIKey,
		Model:   env.LLMModel,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("create translation backend: %w", err)
	}

	opts := translate.Options{
		MaxTokens:   env.LLMMaxTokens,
		Timeout:     env.LLMTimeout(),
		Concurrency: env.SegmentConcurrency,
		Logger:      logger,
	}
	if env.CacheSize > 0 {
		opts.Cache = cache.NewTranslationCache(env.CacheSize, env.CacheTTL())
	}

	deps := pipeline.Deps{
		Store:    store,
		Detector: language.NewDetector(nil),
		Strategies: map[translate.Mode]translate.Strategy{
			translate.ModeAccuracy:    translate.NewDirect(model, opts),
			translate.ModeRealignment: translate.NewAlignment(model, opts),
		},
		Fs:                  fs,
		ScratchDir:          env.ScratchDir,
		DefaultOutputBucket: env.OutputBucket,
		Metrics:             app.Metrics,
		Logger:              logger,
	}

	if env.HistoryDB != "" {
		hist, err := OpenHistoryFn(env.HistoryDB)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("open job history: %w", err)
		}
		logger.Info("job history enabled", "db", hist.Path())
		app.History = hist
		app.closers = append(app.closers, hist.Close)
		deps.History = hist
	}

	app.Orchestrator, err = pipeline.New(deps)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// Mode returns the configured default translation mode.
func (a *App) Mode() translate.Mode {
	mode, err := translate.ParseMode(a.Env.Mode)
	if err != nil {
		return translate.ModeAccuracy
	}
	return mode
}

// Close releases every handle opened by NewApp.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
