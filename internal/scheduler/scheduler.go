// Package scheduler runs the renewal sweep and reminder dispatch on cron
// schedules inside the server process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

// Config holds the job schedules in standard cron syntax or @every/@daily descriptors
type Config struct {
	RenewalSchedule  string
	ReminderSchedule string
	SweepBatchSize   int
	JobTimeout       time.Duration
}

// Scheduler owns the cron runner and the jobs registered on it
type Scheduler struct {
	cron          *cron.Cron
	subscriptions ports.SubscriptionService
	reminders     ports.ReminderService
	logger        *zap.Logger
	cfg           Config
}

// New registers both jobs. An empty schedule disables that job.
func New(
	subscriptions ports.SubscriptionService,
	reminders ports.ReminderService,
	cfg Config,
	logger *zap.Logger,
) (*Scheduler, error) {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}

	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		subscriptions: subscriptions,
		reminders:     reminders,
		logger:        logger,
		cfg:           cfg,
	}

	if cfg.RenewalSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.RenewalSchedule, s.job("renewal_sweep", s.RunRenewals)); err != nil {
			return nil, fmt.Errorf("schedule renewal sweep %q: %w", cfg.RenewalSchedule, err)
		}
	}
	if cfg.ReminderSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.ReminderSchedule, s.job("reminder_dispatch", s.RunReminders)); err != nil {
			return nil, fmt.Errorf("schedule reminder dispatch %q: %w", cfg.ReminderSchedule, err)
		}
	}

	return s, nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("renewal_schedule", s.cfg.RenewalSchedule),
		zap.String("reminder_schedule", s.cfg.ReminderSchedule),
	)
}

// Stop prevents new runs and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// RunRenewals performs one renewal sweep
func (s *Scheduler) RunRenewals(ctx context.Context) error {
	result, err := s.subscriptions.SweepRenewals(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		return err
	}
	s.logger.Info("Scheduled renewal sweep completed",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("renewed", result.RenewedCount),
		zap.Int("expired", result.ExpiredCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
	)
	return nil
}

// RunReminders performs one reminder dispatch
func (s *Scheduler) RunReminders(ctx context.Context) error {
	result, err := s.reminders.DispatchDueReminders(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("Scheduled reminder dispatch completed",
		zap.Int("sent", result.SentCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
	)
	return nil
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("Scheduled job failed",
				zap.String("job", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
		}
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
