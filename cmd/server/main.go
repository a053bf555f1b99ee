package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hls-compositor/internal/compositor"
	"hls-compositor/internal/platform/config"
	"hls-compositor/internal/platform/logger"
	"hls-compositor/internal/platform/metrics"
	"hls-compositor/internal/platform/ratelimit"
	"hls-compositor/internal/timeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	validator, err := timeline.DefaultValidator()
	if err != nil {
		log.Error("event schema", "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	normalizer := &timeline.Normalizer{
		Validator: validator,
		OnIgnore: func(index int, eventType string) {
			met.IncEventsIgnored(eventType)
			log.Debug("event ignored", slog.Int("index", index), slog.String("type", eventType))
		},
	}

	repo := compositor.NewInMemoryRepository()
	svc := compositor.NewService(repo, normalizer)
	h := compositor.NewHandler(svc, log, met, int64(cfg.MaxBodyBytes))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetOpenTimelines(repo.OpenTimelineCount()) }).ServeHTTP(w, r)
	})
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.PerMinute(cfg.RateLimitPerMinute))
		h.Routes(r)
	})

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"max_body_bytes", cfg.MaxBodyBytes,
		"rate_limit_per_minute", cfg.RateLimitPerMinute,
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
