// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-doc-generator/internal/config"
	"ai-doc-generator/internal/domain/ports/adapter"
	aiAdapters "ai-doc-generator/internal/infra/adapters/ai"
	"ai-doc-generator/internal/infra/api"
	"ai-doc-generator/internal/infra/api/apiv1"
	"ai-doc-generator/internal/infra/db/memory"
	"ai-doc-generator/internal/infra/extract"
	"ai-doc-generator/internal/infra/logging"
	"ai-doc-generator/internal/infra/metrics"
	red "ai-doc-generator/internal/infra/redis"
	"ai-doc-generator/internal/infra/render"
	"ai-doc-generator/internal/infra/sched"
	"ai-doc-generator/internal/infra/worker"
	"ai-doc-generator/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

const shutdownGrace = 15 * time.Second

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, fake AI allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("exited with error")
	}
	logger.Info().Msg("bye")
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.AI.Provider)

	// ---- AI adapter ----
	ai, err := newAI(ctx, cfg.AI, logger)
	if err != nil {
		return err
	}
	describer := aiAdapters.NewBatchDescriber(ai, cfg.AI.DefaultModel, cfg.AI.CallTimeout, aiAdapters.RetryConfig{
		MaxAttempts:  cfg.AI.MaxAttempts,
		InitialDelay: cfg.AI.InitialBackoff,
		MaxDelay:     cfg.AI.MaxBackoff,
		Multiplier:   cfg.AI.BackoffMultiplier,
	}, logger, aiAdapters.WithTokenCounter(aiAdapters.TiktokenCounter))

	// ---- Storage and rendering ----
	store := memory.NewJobStore()
	renderer, err := render.NewHTMLRenderer(cfg.Generation.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	// ---- Rate limiting (optional Redis) ----
	var limiter red.Limiter = red.NoopLimiter{}
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		limiter = red.NewRateLimiter(rc, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		logger.Info().Str("redis", cfg.Redis.URL).Int("requests", cfg.RateLimit.Requests).
			Dur("window", cfg.RateLimit.Window).Msg("rate limiting enabled")
	}

	// ---- Use cases ----
	g := cfg.Generation
	ctrl := usecase.NewGenerationController(store, extract.NewRegistry(), describer, renderer, usecase.ControllerConfig{
		Limits:   usecase.BatchLimits{Min: g.MinBatch, Max: g.MaxBatch, Default: g.DefaultBatch},
		Cooldown: g.Cooldown,
	}, logger)

	// jobs get their own lifetime so a signal stops intake before in-flight work
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	pool := worker.NewPool(g.Workers, g.QueueSize, logger)
	pool.Start(jobCtx)

	genUC := usecase.NewGenerationUseCase(store, ctrl, pool, logger)

	reaper, err := sched.NewReaper(g.ReapSchedule, g.Retention, store, renderer, logger)
	if err != nil {
		return err
	}

	// ---- HTTP ----
	v1 := apiv1.NewServer(genUC, render.XLSXExporter{}, apiv1.Intake{
		AllowedExtensions: g.AllowedExtensions,
		MaxFileBytes:      g.MaxFileBytes,
		MaxUploadBytes:    cfg.Server.MaxUploadMB << 20,
	}, api.RateLimitGuard(limiter, logger), logger)
	server := api.NewHTTPServer(cfg.Server, api.NewRouter(cfg.Server, v1, renderer.Dir(), logger))

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error { return reaper.Run(gctx) })
	grp.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err := server.Shutdown(shCtx)
		cancelJobs()
		pool.Stop()
		return err
	})
	return grp.Wait()
}

// newAI builds the provider set and wraps it with the global concurrency limit.
func newAI(ctx context.Context, c config.AIConfig, logger *zerolog.Logger) (adapter.AIServiceAdapter, error) {
	providers := map[string]adapter.AIServiceAdapter{}
	if c.GeminiKey != "" {
		a, err := aiAdapters.NewGeminiAdapter(ctx, c.GeminiKey, c.GeminiURL, c.DefaultModel, c.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		providers["gemini"] = a
	}
	if c.OpenAIKey != "" {
		a, err := aiAdapters.NewOpenAIAdapter(c.OpenAIKey, c.OpenAIBaseURL, c.DefaultModel, c.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		providers["openai"] = a
	}
	if c.MetisKey != "" {
		base := c.MetisBaseURL
		if base == "" {
			base = aiAdapters.DefaultMetisBase
		}
		a, err := aiAdapters.NewOpenAIAdapter(c.MetisKey, base, c.DefaultModel, c.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("metis adapter: %w", err)
		}
		providers["metis"] = a
	}
	if c.Provider == "fake" {
		providers["fake"] = aiAdapters.NewFakeAIAdapter(200 * time.Millisecond)
	}
	logger.Info().Str("provider", c.Provider).Str("model", c.DefaultModel).
		Int("providers", len(providers)).Int("concurrent_limit", c.ConcurrentLimit).Msg("AI adapter configured")

	router := aiAdapters.NewProviderRouter(c.Provider, providers)
	if c.Provider != "fake" {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		// gateways may hide /models, so a miss only warns
		if err := aiAdapters.CheckModel(checkCtx, router, c.DefaultModel); err != nil {
			logger.Warn().Err(err).Str("model", c.DefaultModel).Msg("default model not confirmed by providers")
		}
	}
	return aiAdapters.NewLimitedAI(router, c.ConcurrentLimit), nil
}
