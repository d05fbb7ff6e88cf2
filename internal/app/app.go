// Package app wires the contact intake from configuration. Both binaries
// build the same App and differ only in routing.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"corpsite/internal/contact/notify"
	"corpsite/internal/contact/privacy"
	contactservice "corpsite/internal/contact/service"
	contactmemory "corpsite/internal/contact/store/memory"
	contactsqlite "corpsite/internal/contact/store/sqlite"
	"corpsite/internal/platform/config"
	"corpsite/internal/platform/kafka"
	"corpsite/internal/platform/metrics"
	"corpsite/internal/platform/redis"
	sqlitedb "corpsite/internal/platform/sqlite"
	"corpsite/internal/ratelimit/ports"
	ratelimit "corpsite/internal/ratelimit/service"
	"corpsite/internal/ratelimit/store/bucket"
	"corpsite/internal/retention"
	"corpsite/pkg/platform/audit"
	"corpsite/pkg/platform/audit/consumer"
	auditfile "corpsite/pkg/platform/audit/store/file"
	auditkafka "corpsite/pkg/platform/audit/store/kafka"
	auditsqlite "corpsite/pkg/platform/audit/store/sqlite"
)

type submissionStore interface {
	contactservice.Store
	retention.Purger
}

type App struct {
	Config   config.Server
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Contact  *contactservice.Service
	Notifier *notify.Notifier
	Limiter  *ratelimit.Service
	Sweeper  *retention.Sweeper
	Auditor  *audit.Logger

	// Archiver is nil unless KAFKA_ARCHIVE_GROUP is set.
	Archiver *consumer.Archiver

	closers []func() error
}

// New opens every backend cfg enables. On error, whatever was opened is
// closed again.
func New(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *App, err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  metrics.New(reg),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var db *sql.DB
	var submissions submissionStore
	switch cfg.Storage.Driver {
	case "memory":
		submissions = contactmemory.New()
	default:
		db, err = sqlitedb.Open(ctx, sqlitedb.Config{Path: cfg.Storage.DBPath})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		submissions = contactsqlite.New(db)
	}

	auditor, auditDB, err := a.buildAudit(ctx, db)
	if err != nil {
		return nil, err
	}
	a.Auditor = auditor

	a.Limiter, err = a.buildLimiter(ctx)
	if err != nil {
		return nil, err
	}

	a.Contact, err = contactservice.New(submissions, a.Limiter, auditor,
		privacy.NewHasher(cfg.Privacy.IPHashSalt),
		contactservice.WithLogger(logger),
		contactservice.WithMetrics(a.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("contact service: %w", err)
	}

	a.Notifier, err = notify.New(auditor, cfg.Notify.Recipient, cfg.Notify.Sender, notify.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	sweepOpts := []retention.Option{
		retention.WithPurger(retention.ContactForms, submissions),
		retention.WithAuditor(auditor),
		retention.WithLogger(logger),
		retention.WithMetrics(a.Metrics),
	}
	if auditDB != nil {
		sweepOpts = append(sweepOpts, retention.WithPurger(retention.AuditLogs, auditDB))
	}
	a.Sweeper = retention.NewSweeper(sweepOpts...)

	return a, nil
}

// buildAudit assembles the sink fan-out. The SQLite audit store is returned
// separately so the sweeper can purge it.
func (a *App) buildAudit(ctx context.Context, db *sql.DB) (*audit.Logger, *auditsqlite.Store, error) {
	cfg := a.Config
	var sinks []audit.Sink

	if cfg.Audit.FilePath != "" {
		fileSink, err := auditfile.Open(cfg.Audit.FilePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, fileSink.Close)
		sinks = append(sinks, fileSink)
	}

	var auditDB *auditsqlite.Store
	if db != nil && cfg.Audit.ToSQLite {
		auditDB = auditsqlite.New(db)
	}

	var producer *kgo.Client
	if cfg.Audit.KafkaSink {
		var err error
		producer, err = kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
	}
	if producer != nil {
		a.closers = append(a.closers, closeKafka(producer))
		if err := kafka.EnsureTopic(ctx, producer, cfg.Kafka); err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, auditkafka.New(producer, cfg.Kafka.AuditTopic))
	}

	switch {
	case auditDB != nil && producer != nil && cfg.Kafka.ArchiveGroup != "":
		client, err := kafka.NewConsumer(cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, closeKafka(client))
		a.Archiver = consumer.NewArchiver(client, auditDB, consumer.WithLogger(a.Logger))
	case auditDB != nil:
		sinks = append(sinks, auditDB)
	}

	multi := audit.NewMulti(sinks...)
	a.Logger.InfoContext(ctx, "audit sinks configured",
		"sinks", multi.Sinks(),
		"archiver", a.Archiver != nil,
	)
	auditor, err := audit.New(multi, audit.WithLogger(a.Logger), audit.WithMetrics(a.Metrics))
	if err != nil {
		return nil, nil, fmt.Errorf("audit logger: %w", err)
	}
	return auditor, auditDB, nil
}

func (a *App) buildLimiter(ctx context.Context) (*ratelimit.Service, error) {
	cfg := a.Config
	local := bucket.NewInMemoryBucketStore(bucket.WithMaxKeys(cfg.RateLimit.MaxKeys))
	var buckets ports.BucketStore = local

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		// The in-memory window keeps single-node semantics without Redis.
		a.Logger.WarnContext(ctx, "redis unavailable, using in-memory rate limiter", "error", err)
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
		buckets = bucket.NewFailoverBucketStore(bucket.NewRedisBucketStore(rc), local,
			bucket.WithFailoverLogger(a.Logger),
		)
	}

	limiter, err := ratelimit.New(buckets,
		ratelimit.WithConfig(ratelimit.Config{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		}),
		ratelimit.WithLogger(a.Logger),
		ratelimit.WithMetrics(a.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return limiter, nil
}

// RunBackground runs idle eviction, the retention sweep and, when
// configured, the audit archiver until ctx is done or one of them fails.
func (a *App) RunBackground(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Limiter.RunEviction(ctx, a.Config.RateLimit.SweepInterval)
	})
	g.Go(func() error {
		return a.Sweeper.Start(ctx, a.Config.Retention.SweepInterval)
	})
	if a.Archiver != nil {
		g.Go(func() error {
			return a.Archiver.Run(ctx)
		})
	}
	return g.Wait()
}

// Close releases backends in reverse order of opening.
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

func closeKafka(client *kgo.Client) func() error {
	return func() error {
		client.Close()
		return nil
	}
}
