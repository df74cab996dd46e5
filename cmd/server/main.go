package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sagoresarker/edge-speed-compare/internal/config"
	"github.com/sagoresarker/edge-speed-compare/internal/counter"
	"github.com/sagoresarker/edge-speed-compare/internal/handlers"
	"github.com/sagoresarker/edge-speed-compare/internal/logger"
	"github.com/sagoresarker/edge-speed-compare/internal/metadata"
	"github.com/sagoresarker/edge-speed-compare/internal/metrics"
	"github.com/sagoresarker/edge-speed-compare/internal/probe"
	"github.com/sagoresarker/edge-speed-compare/internal/ratelimit"
)

func main() {
	cfg := config.Load()
	log := logger.New("edgespeed-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := counter.OpenStore(ctx, cfg.CounterOptions())
	if err != nil {
		log.Error("failed to open counter store", "backend", cfg.CounterBackend, "error", err)
		os.Exit(1)
	}
	stats := counter.NewService(store)
	defer stats.Close()

	m := metrics.New()
	resolver := metadata.NewResolver(cfg.MetadataConfig(), log)
	prober := probe.NewProber(resolver, probe.ProberConfig{
		Timeout:         cfg.ProbeTimeout,
		MetadataTimeout: cfg.MetadataTimeout,
	}, log)
	comparer := probe.NewComparer(prober, stats, m, probe.CompareConfig{
		DefaultEdgeTarget:   cfg.DefaultEdgeTarget,
		DefaultOriginTarget: cfg.DefaultOriginTarget,
		NotifyTimeout:       cfg.NotifyTimeout,
	}, log)

	limiter := ratelimit.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitRequests)
	defer limiter.Close()

	mux := handlers.NewMux(handlers.Deps{
		Resolver:    resolver,
		Counter:     stats,
		Comparer:    comparer,
		RateLimiter: limiter,
		Metrics:     m,
		Logger:      log,
		TrustProxy:  cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Info("server is running", "addr", cfg.Addr, "env", cfg.Environment, "counter", cfg.CounterBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
