// Package notification turns lifecycle events into stored notifications and
// serves the notification inbox.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/config"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/metrics"
)

type notificationRepo interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
}

type faultRepo interface {
	Create(ctx context.Context, f *domain.DeliveryFault) error
	ListUnresolved(ctx context.Context, limit int) ([]domain.DeliveryFault, error)
	Resolve(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordAttempt(ctx context.Context, id uuid.UUID, cause error) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Dispatcher builds and stores notifications. It never deduplicates and
// never modifies stored notifications; callers dispatch each event once.
type Dispatcher struct {
	notifications notificationRepo
	faults        faultRepo
	tx            txManager
	metrics       *metrics.Metrics
	cfg           config.NotifyConfig
	now           func() time.Time
	log           *slog.Logger
}

// NewDispatcher creates a new Dispatcher. m may be nil.
func NewDispatcher(
	log *slog.Logger,
	notifications notificationRepo,
	faults faultRepo,
	tx txManager,
	m *metrics.Metrics,
	cfg config.NotifyConfig,
) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		notifications: notifications,
		faults:        faults,
		tx:            tx,
		metrics:       m,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log.With("service", "notification"),
	}
}

// DeliveryReport is the outcome of Deliver.
type DeliveryReport struct {
	Delivered []domain.Notification
	Faults    []domain.DeliveryFault
}

// Build returns the notifications for event, one per recipient in recipient order.
func (d *Dispatcher) Build(event Event) []domain.Notification {
	return event.build(d.now())
}

// Dispatch stores every notification of event with a single attempt each and
// returns the first error. Run it inside the transaction whose outcome it
// belongs to so that a failure rolls the whole unit back.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) ([]domain.Notification, error) {
	built := d.Build(event)
	created := make([]domain.Notification, 0, len(built))

	for i := range built {
		n, err := d.notifications.Create(ctx, &built[i])
		if err != nil {
			return nil, fmt.Errorf("create %s notification: %w", event.Kind(), err)
		}
		d.metrics.NotificationCreated(n.Kind)
		created = append(created, *n)
	}
	return created, nil
}

// Deliver stores every notification of event, retrying transient store
// failures per recipient with exponential backoff. A recipient whose attempts
// run out, or whose failure is permanent, gets a DeliveryFault and delivery
// moves on to the next recipient. Each store call is bounded by the attempt
// timeout. Deliver never fails the caller.
func (d *Dispatcher) Deliver(ctx context.Context, event Event) DeliveryReport {
	var report DeliveryReport

	for _, n := range d.Build(event) {
		created, attempts, err := d.deliverOne(ctx, n)
		if err == nil {
			d.metrics.NotificationCreated(created.Kind)
			report.Delivered = append(report.Delivered, *created)
			continue
		}

		fault := domain.NewDeliveryFault(n, attempts, err, d.now())
		d.metrics.NotificationFault(n.Kind)
		report.Faults = append(report.Faults, fault)

		d.log.WarnContext(ctx, "notification undelivered",
			slog.String("kind", string(n.Kind)),
			slog.String("receiver_id", n.ReceiverID.String()),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)

		fctx, cancel := d.attemptContext(ctx)
		ferr := d.faults.Create(fctx, &fault)
		cancel()
		if ferr != nil {
			d.log.ErrorContext(ctx, "record delivery fault",
				slog.String("kind", string(n.Kind)),
				slog.String("receiver_id", n.ReceiverID.String()),
				slog.String("error", ferr.Error()),
			)
		}
	}

	return report
}

func (d *Dispatcher) deliverOne(ctx context.Context, n domain.Notification) (*domain.Notification, int, error) {
	var (
		created  *domain.Notification
		attempts int
	)

	op := func() error {
		attempts++
		actx, cancel := d.attemptContext(ctx)
		defer cancel()

		c, err := d.notifications.Create(actx, &n)
		switch {
		case err == nil:
			created = c
			return nil
		case attempts > 1 && errors.Is(err, domain.ErrAlreadyExists):
			// An earlier attempt committed but its reply was lost.
			created = &n
			return nil
		case errors.Is(err, domain.ErrTransient):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialInterval
	b.MaxInterval = d.cfg.MaxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.cfg.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, attempts, err
	}
	return created, attempts, nil
}

// attemptContext bounds one store call by the configured attempt timeout.
func (d *Dispatcher) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.AttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.cfg.AttemptTimeout)
}

// RedeliverResult summarises a redelivery sweep.
type RedeliverResult struct {
	Resolved int
	Failed   int
}

// Redeliver retries up to limit unresolved faults, oldest first. Each
// successful notification and the fault's resolution commit together.
func (d *Dispatcher) Redeliver(ctx context.Context, limit int) (RedeliverResult, error) {
	var result RedeliverResult

	faults, err := d.faults.ListUnresolved(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("list unresolved faults: %w", err)
	}

	for _, f := range faults {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		now := d.now()
		n := f.Notification(now)

		err := d.tx.RunInTx(ctx, func(ctx context.Context) error {
			if _, err := d.notifications.Create(ctx, &n); err != nil {
				return fmt.Errorf("create notification: %w", err)
			}
			return d.faults.Resolve(ctx, f.ID, now)
		})
		if err != nil {
			result.Failed++
			if rerr := d.faults.RecordAttempt(ctx, f.ID, err); rerr != nil {
				d.log.ErrorContext(ctx, "record redelivery attempt",
					slog.String("fault_id", f.ID.String()),
					slog.String("error", rerr.Error()),
				)
			}
			continue
		}

		d.metrics.NotificationCreated(n.Kind)
		result.Resolved++
	}

	if len(faults) > 0 {
		d.log.InfoContext(ctx, "delivery faults redelivered",
			slog.Int("resolved", result.Resolved),
			slog.Int("failed", result.Failed),
		)
	}

	return result, nil
}
