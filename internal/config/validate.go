package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rate_limit_per_minute must be >= 0 (got %d)", c.Server.RateLimitPerMinute)
	}

	if err := c.Lending.validate(); err != nil {
		return fmt.Errorf("lending: %w", err)
	}

	if err := c.Notify.validate(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	if err := c.Scheduler.validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	if err := c.Events.validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}

	if c.Cleanup.NotificationRetentionDays <= 0 {
		return fmt.Errorf("cleanup.notification_retention_days must be > 0 (got %d)", c.Cleanup.NotificationRetentionDays)
	}

	return nil
}

func (l *LendingConfig) validate() error {
	if l.LoanPeriod <= 0 {
		return fmt.Errorf("loan_period must be > 0 (got %v)", l.LoanPeriod)
	}
	if l.StoreTimeout <= 0 {
		return fmt.Errorf("store_timeout must be > 0 (got %v)", l.StoreTimeout)
	}

	policy := domain.DrainPolicy(strings.ToLower(strings.TrimSpace(l.DrainPolicyRaw)))
	if !policy.IsValid() {
		return fmt.Errorf("waitlist_drain_policy must be %q or %q (got %q)", domain.DrainRetain, domain.DrainRetire, l.DrainPolicyRaw)
	}
	l.DrainPolicy = policy

	return nil
}

func (n NotifyConfig) validate() error {
	if n.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", n.MaxAttempts)
	}
	if n.InitialInterval <= 0 {
		return fmt.Errorf("initial_interval must be > 0 (got %v)", n.InitialInterval)
	}
	if n.MaxInterval < n.InitialInterval {
		return fmt.Errorf("max_interval (%v) must be >= initial_interval (%v)", n.MaxInterval, n.InitialInterval)
	}
	if n.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt_timeout must be > 0 (got %v)", n.AttemptTimeout)
	}
	return nil
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func (s SchedulerConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if _, err := cronParser.Parse(s.RedeliverSpec); err != nil {
		return fmt.Errorf("redeliver_spec %q: %w", s.RedeliverSpec, err)
	}
	if _, err := cronParser.Parse(s.ReminderSpec); err != nil {
		return fmt.Errorf("reminder_spec %q: %w", s.ReminderSpec, err)
	}
	if s.RedeliverBatch <= 0 {
		return fmt.Errorf("redeliver_batch must be > 0 (got %d)", s.RedeliverBatch)
	}
	return nil
}

func (e EventsConfig) validate() error {
	if !e.EventsEnabled() {
		return nil
	}
	if e.QueueSize < 1 {
		return fmt.Errorf("queue_size must be >= 1 (got %d)", e.QueueSize)
	}
	if e.PublishTimeout <= 0 {
		return fmt.Errorf("publish_timeout must be > 0 (got %v)", e.PublishTimeout)
	}
	return nil
}
