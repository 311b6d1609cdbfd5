package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/garyellow/quizbot-go/internal/config"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
)

// jobTimeout bounds a single scheduled run, including notifications.
const jobTimeout = 10 * time.Minute

// LinkCodeCleaner clears expired link codes.
type LinkCodeCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// AccountCounter feeds the account gauges.
type AccountCounter interface {
	CountAccounts(ctx context.Context) (permanent, temporary int, err error)
}

// Config configures the scheduler.
type Config struct {
	Publisher     *Publisher
	Cleaner       LinkCodeCleaner
	Counter       AccountCounter
	Location      *time.Location
	PublishHour   int
	PublishMinute int
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
}

// Scheduler owns the background loops.
type Scheduler struct {
	cfg    Config
	logger *logger.Logger
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg, logger: cfg.Logger.WithModule("scheduler")}
}

// Start launches the loops. They stop when ctx is canceled; Wait blocks
// until they have returned.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.Publisher != nil {
		s.wg.Go(func() { s.dailyPublish(ctx) })
	}
	if s.cfg.Cleaner != nil {
		s.wg.Go(func() { s.every(ctx, "link_code_cleanup", config.LinkCodeCleanupInterval, s.cleanupLinkCodes) })
	}
	if s.cfg.Counter != nil && s.cfg.Metrics != nil {
		s.wg.Go(func() { s.every(ctx, "account_metrics", config.MetricsUpdateInterval, s.updateAccountMetrics) })
	}
}

// Wait blocks until every loop has stopped.
func (s *Scheduler) Wait() { s.wg.Wait() }

// NextRun returns the next occurrence of hour:minute in loc strictly after now.
func NextRun(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// dailyPublish catches up on startup when today's time has passed, then
// runs once a day at the configured time.
func (s *Scheduler) dailyPublish(ctx context.Context) {
	s.logger.Debug("Daily publish job started")
	defer s.logger.Debug("Daily publish job stopped")

	p := s.cfg.Publisher
	now := p.now().In(s.cfg.Location)
	due := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.PublishHour, s.cfg.PublishMinute, 0, 0, s.cfg.Location)
	if !now.Before(due) {
		s.runPublish(ctx)
	}

	for {
		next := NextRun(p.now(), s.cfg.Location, s.cfg.PublishHour, s.cfg.PublishMinute)
		s.logger.WithField("next_run", next.Format(time.RFC3339)).Info("Scheduled next daily publish")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runPublish(ctx)
		}
	}
}

func (s *Scheduler) runPublish(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	result, err := s.cfg.Publisher.Publish(jobCtx)
	if err != nil {
		s.logger.WithError(err).ErrorContext(ctx, "Daily publish failed")
		return
	}
	entry := s.logger.WithField("date", result.Date).WithField("created", result.Created)
	if result.Notified != nil {
		entry = entry.WithField("sent", result.Notified.Sent).WithField("failed", result.Notified.Failed)
	}
	entry.InfoContext(ctx, "Daily publish completed")
}

func (s *Scheduler) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	s.logger.WithField("job", name).Debug("Periodic job started")
	defer s.logger.WithField("job", name).Debug("Periodic job stopped")

	fn(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (s *Scheduler) cleanupLinkCodes(ctx context.Context) {
	start := time.Now()
	n, err := s.cfg.Cleaner.CleanupExpired(ctx)
	status := "success"
	if err != nil {
		status = "error"
		s.logger.WithError(err).WarnContext(ctx, "Link code cleanup failed")
	} else if n > 0 {
		s.logger.WithField("cleared", n).InfoContext(ctx, "Expired link codes cleared")
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordJob("link_code_cleanup", status, time.Since(start).Seconds())
	}
}

func (s *Scheduler) updateAccountMetrics(ctx context.Context) {
	permanent, temporary, err := s.cfg.Counter.CountAccounts(ctx)
	if err != nil {
		s.logger.WithError(err).WarnContext(ctx, "Failed to count accounts")
		return
	}
	s.cfg.Metrics.SetAccounts(permanent, temporary)
}
