// Package main wires together the reader service binary.
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

	"go.uber.org/zap"

	"github.com/pagelens/reader/internal/api"
	"github.com/pagelens/reader/internal/cache"
	"github.com/pagelens/reader/internal/config"
	"github.com/pagelens/reader/internal/extract"
	"github.com/pagelens/reader/internal/fetch"
	"github.com/pagelens/reader/internal/guard"
	"github.com/pagelens/reader/internal/logging"
	"github.com/pagelens/reader/internal/pipeline"
	"github.com/pagelens/reader/internal/policy/ratelimit"
	"github.com/pagelens/reader/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, kv, err := buildService(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("service init failed", zap.Error(err))
	}
	defer func() {
		if kv != nil {
			if closeErr := kv.Close(); closeErr != nil {
				logger.Error("close store failed", zap.Error(closeErr))
			}
		}
	}()

	limiter := ratelimit.New(ratelimit.Config{
		Limit:  cfg.Guard.RateLimit,
		Window: time.Duration(cfg.Guard.RateWindowSeconds) * time.Second,
	})
	apiServer := api.NewServer(svc, limiter, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildService constructs the extraction pipeline from configuration.
func buildService(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pipeline.Service, *cache.RedisKV, error) {
	sizeCap := func(rt http.RoundTripper) http.RoundTripper {
		return guard.NewSizeCapTransport(rt, cfg.Guard.MaxResponseBytes)
	}
	fetchTimeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second

	directFetcher, err := fetch.New(fetch.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      fetchTimeout,
		MaxBodyBytes: cfg.Guard.MaxResponseBytes,
	}, sizeCap)
	if err != nil {
		return nil, nil, fmt.Errorf("build fetcher: %w", err)
	}

	// The proxied fetcher exists only when the archived path can work at all.
	var proxiedFetcher *fetch.Fetcher
	if cfg.Proxy.URL != "" {
		proxiedFetcher, err = fetch.New(fetch.Config{
			UserAgent:    cfg.HTTP.UserAgent,
			Timeout:      fetchTimeout,
			MaxBodyBytes: cfg.Guard.MaxResponseBytes,
			ProxyURL:     cfg.Proxy.URL,
		}, sizeCap)
		if err != nil {
			return nil, nil, fmt.Errorf("build proxied fetcher: %w", err)
		}
	} else {
		logger.Warn("no outbound proxy configured; archived source will fail hard")
	}

	diffbot := extract.NewDiffbotClient(extract.DiffbotConfig{
		Token:    cfg.Diffbot.Token,
		Endpoint: cfg.Diffbot.Endpoint,
		Timeout:  time.Duration(cfg.Diffbot.TimeoutSeconds) * time.Second,
	})
	if diffbot == nil {
		logger.Warn("no diffbot token configured; managed source degrades to local fallbacks")
	}

	kv, err := cache.NewRedisKV(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect store: %w", err)
	}
	store := cache.NewStore(kv, cache.StoreConfig{
		MinFreshLength:        cfg.Cache.MinFreshLength,
		LegacyTruncationBytes: cfg.Cache.LegacyTruncationBytes,
	}, logger.Named("cache"))

	extractors := []extract.Extractor{
		extract.NewDirect(directFetcher, logger.Named("direct")),
		extract.NewManaged(diffbot, directFetcher, logger.Named("managed")),
		extract.NewArchived(diffbot, proxiedFetcher, cfg.Archive.SnapshotTemplate, logger.Named("archived")),
	}

	svc := pipeline.NewService(extractors, store, guard.NewBlocklist(), pipeline.Config{
		QualityLength:    cfg.Pipeline.QualityLength,
		EnhancementRatio: cfg.Pipeline.EnhancementRatio,
		ExtractTimeout:   time.Duration(cfg.Pipeline.ExtractTimeoutSeconds) * time.Second,
	}, logger.Named("pipeline"))
	return svc, kv, nil
}
