package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/tide-notifier/internal/domain"
	"github.com/couchcryptid/tide-notifier/internal/observability"
	"github.com/robfig/cron/v3"
)

// ErrRunInProgress is returned by RunOnce while another run is still executing.
var ErrRunInProgress = errors.New("notification run already in progress")

// Notifier runs one notification cycle for a day. *Service implements it.
type Notifier interface {
	NotifyOn(ctx context.Context, day time.Time) (Report, error)
}

// SchedulerConfig controls when notification runs fire.
type SchedulerConfig struct {
	Spec     string         // standard 5-field cron expression or descriptor, e.g. "0 6 * * *"
	Location *time.Location // time zone for both the cron and "today"
	Timeout  time.Duration  // per-run deadline; zero disables it
}

// Scheduler triggers the Notifier on a cron schedule and records run metrics.
type Scheduler struct {
	notifier Notifier
	cfg      SchedulerConfig
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
	running  atomic.Bool
}

// NewScheduler creates a Scheduler. A nil location means UTC.
func NewScheduler(n Notifier, cfg SchedulerConfig, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		notifier: n,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a run has completed without error.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no notification run has completed yet")
	}
	return nil
}

// Run starts the cron loop and blocks until the context is cancelled.
// Overlapping ticks are skipped while a run is still in progress.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.cfg.Spec, func() {
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", s.cfg.Spec, err)
	}

	c.Start()
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)
	s.logger.Info("scheduler started", "spec", s.cfg.Spec, "tz", s.cfg.Location.String())

	<-ctx.Done()
	s.logger.Info("scheduler stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

// RunOnce performs a single notification run for today, applying the
// configured timeout and recording metrics. The error is returned unchanged.
// Overlapping calls, from cron or on demand, fail fast with ErrRunInProgress.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("notification run skipped, previous run still in progress")
		return Report{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	day := domain.Today(s.cfg.Location)
	report, err := s.notifier.NotifyOn(ctx, day)
	s.metrics.RunDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.Runs.WithLabelValues(outcomeError).Inc()
		s.logger.Error("notification run failed",
			"day", day.Format(domain.DateLayout),
			"kind", errorKind(err),
			"error", err,
		)
		return report, err
	}

	if report.Sent {
		s.metrics.Runs.WithLabelValues(outcomeSent).Inc()
		s.metrics.NotificationsSent.WithLabelValues(report.Severity.String()).Inc()
	} else {
		s.metrics.Runs.WithLabelValues(outcomeSkipped).Inc()
		s.metrics.RunsSkipped.WithLabelValues(report.SkipReason).Inc()
	}
	s.metrics.LastSuccess.SetToCurrentTime()
	s.ready.Store(true)
	return report, nil
}

const (
	outcomeSent    = "sent"
	outcomeSkipped = "skipped"
	outcomeError   = "error"
)

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, domain.ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unknown"
	}
}
