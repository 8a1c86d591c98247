// Package scheduler runs the periodic background jobs: delivery fault
// redelivery and due-date reminders.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/heartmarshall/mangalend-backend/internal/config"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
)

// jobTimeout bounds a single job run.
const jobTimeout = time.Minute

type redeliverer interface {
	Redeliver(ctx context.Context, limit int) (notification.RedeliverResult, error)
}

type reminderSender interface {
	SendDueReminders(ctx context.Context) (int, error)
}

// Scheduler manages cron job scheduling.
type Scheduler struct {
	cron      *cron.Cron
	redeliver redeliverer
	reminders reminderSender
	cfg       config.SchedulerConfig
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler and registers its jobs. Specs use six fields
// (with seconds) and are evaluated in UTC.
func New(log *slog.Logger, cfg config.SchedulerConfig, r redeliverer, reminders reminderSender) (*Scheduler, error) {
	log = log.With("component", "scheduler")
	cl := cronLogger{log: log}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      c,
		redeliver: r,
		reminders: reminders,
		cfg:       cfg,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}

	if err := s.registerJobs(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	if _, err := s.cron.AddFunc(s.cfg.RedeliverSpec, s.runRedeliver); err != nil {
		return fmt.Errorf("register redeliver job %q: %w", s.cfg.RedeliverSpec, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ReminderSpec, s.runReminders); err != nil {
		return fmt.Errorf("register reminder job %q: %w", s.cfg.ReminderSpec, err)
	}
	s.log.Info("cron jobs registered", slog.Int("jobs", len(s.cron.Entries())))
	return nil
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop cancels running jobs and waits for them to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) runRedeliver() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	res, err := s.redeliver.Redeliver(ctx, s.cfg.RedeliverBatch)
	if err != nil {
		s.log.ErrorContext(ctx, "redeliver job failed", slog.String("error", err.Error()))
		return
	}
	if res.Resolved > 0 || res.Failed > 0 {
		s.log.InfoContext(ctx, "redeliver job done",
			slog.Int("resolved", res.Resolved),
			slog.Int("failed", res.Failed),
		)
	}
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	sent, err := s.reminders.SendDueReminders(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "reminder job failed", slog.String("error", err.Error()))
		return
	}
	s.log.InfoContext(ctx, "reminder job done", slog.Int("sent", sent))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
