package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

// main wires the contact intake behind the public web server. Business
// logic lives in internal/contact.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

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
	r.Use(middleware.SecureHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	h := handler.New(a.Contact, log,
		handler.WithNotifier(a.Notifier),
		handler.WithLimiterStatus(a.Limiter),
		handler.WithDSRThrottle(middleware.NewThrottle(cfg.RateLimit.DSRRatePerMinute, cfg.RateLimit.DSRBurst).Middleware),
	)
	h.RegisterServer(r)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	if cfg.StaticDir != "" {
		r.NotFound(httpserver.Static(cfg.StaticDir).ServeHTTP)
	}

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
