package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"corpsite/internal/app"
	"corpsite/internal/contact/handler"
	"corpsite/internal/platform/config"
	"corpsite/internal/platform/httpserver"
	"corpsite/internal/platform/logger"
	"corpsite/internal/platform/middleware"
	"corpsite/pkg/platform/middleware/metadata"
	"corpsite/pkg/platform/middleware/requesttime"
)

// main serves the function host's custom handler protocol. The host owns the
// schedule, so the retention sweep only runs when the timer route is called.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.Error("function host stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Retention.SweepInterval = 0

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close backends", "error", err)
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(a.Metrics))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	h := handler.New(a.Contact, log,
		handler.WithNotifier(a.Notifier),
		handler.WithLimiterStatus(a.Limiter),
		handler.WithDSRThrottle(middleware.NewThrottle(cfg.RateLimit.DSRRatePerMinute, cfg.RateLimit.DSRBurst).Middleware),
	)
	h.RegisterFunction(r)
	r.Post("/cleanup_expired_data", handler.TimerHandler(a.Sweeper, log))

	srv := httpserver.New(cfg.Addr, r)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(ctx, srv, log)
	})
	g.Go(func() error {
		return a.RunBackground(ctx)
	})
	return g.Wait()
}
