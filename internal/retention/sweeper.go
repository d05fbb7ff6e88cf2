package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corpsite/pkg/platform/audit"
	"corpsite/pkg/requestcontext"
)

// Purger deletes rows of one data class created at or before cutoff.
type Purger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// Counter is implemented by purgers that can report how many rows they
// still hold after a sweep.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Auditor interface {
	Log(ctx context.Context, eventType audit.EventType, payload map[string]any, opts ...audit.EventOption) audit.Event
}

type PurgeRecorder interface {
	AddPurged(class string, n int)
}

type target struct {
	class  Class
	purger Purger
}

// Sweeper applies the retention table to the registered stores.
type Sweeper struct {
	targets []target
	auditor Auditor
	logger  *slog.Logger
	metrics PurgeRecorder
}

type Option func(*Sweeper)

// WithPurger registers the store holding data of class.
func WithPurger(class Class, p Purger) Option {
	return func(s *Sweeper) {
		if p != nil {
			s.targets = append(s.targets, target{class: class, purger: p})
		}
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Sweeper) {
		s.auditor = a
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithMetrics(m PurgeRecorder) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func NewSweeper(opts ...Option) *Sweeper {
	s := &Sweeper{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report summarizes one sweep.
type Report struct {
	RanAt     time.Time        `json:"ran_at"`
	Purged    map[Class]int    `json:"purged"`
	Remaining map[Class]int    `json:"remaining,omitempty"`
	Failed    map[Class]string `json:"failed,omitempty"`
}

// Total is the number of rows deleted across classes.
func (r Report) Total() int {
	total := 0
	for _, n := range r.Purged {
		total += n
	}
	return total
}

// RunOnce purges every registered class as of the request context time.
// A failing class does not stop the others; failures are joined.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	now := requestcontext.Now(ctx).UTC()
	report := Report{RanAt: now, Purged: make(map[Class]int)}

	var errs []error
	for _, t := range s.targets {
		cutoff, ok := Cutoff(t.class, now)
		if !ok {
			errs = append(errs, s.fail(&report, t.class, fmt.Errorf("unknown retention class %q", t.class)))
			continue
		}
		n, err := t.purger.PurgeExpired(ctx, cutoff)
		if err != nil {
			errs = append(errs, s.fail(&report, t.class, fmt.Errorf("purge %s: %w", t.class, err)))
			continue
		}
		report.Purged[t.class] = n
		if s.metrics != nil {
			s.metrics.AddPurged(string(t.class), n)
		}
		s.countRemaining(ctx, &report, t)
	}

	s.logger.InfoContext(ctx, "retention sweep finished",
		"purged_total", report.Total(),
		"failed_classes", len(report.Failed),
	)
	if s.auditor != nil {
		payload := map[string]any{"purged": countsByName(report.Purged)}
		if len(report.Remaining) > 0 {
			payload["remaining"] = countsByName(report.Remaining)
		}
		if len(report.Failed) > 0 {
			failed := make([]string, 0, len(report.Failed))
			for class := range report.Failed {
				failed = append(failed, string(class))
			}
			payload["failed"] = failed
		}
		s.auditor.Log(ctx, audit.EventRetentionSweep, payload)
	}
	return report, errors.Join(errs...)
}

func (s *Sweeper) countRemaining(ctx context.Context, report *Report, t target) {
	counter, ok := t.purger.(Counter)
	if !ok {
		return
	}
	n, err := counter.Count(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "retention count failed", "class", string(t.class), "error", err)
		return
	}
	if report.Remaining == nil {
		report.Remaining = make(map[Class]int)
	}
	report.Remaining[t.class] = n
}

func (s *Sweeper) fail(report *Report, class Class, err error) error {
	if report.Failed == nil {
		report.Failed = make(map[Class]string)
	}
	report.Failed[class] = err.Error()
	return err
}

// Start runs a sweep every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || len(s.targets) == 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			runCtx := requestcontext.WithTime(ctx, time.Now().UTC())
			if _, err := s.RunOnce(runCtx); err != nil {
				s.logger.WarnContext(ctx, "retention sweep failed", "error", err)
			}
		}
	}
}

func countsByName(counts map[Class]int) map[string]int {
	out := make(map[string]int, len(counts))
	for class, n := range counts {
		out[string(class)] = n
	}
	return out
}
