package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/mangalend-backend/internal/adapter/amqp"
	"github.com/heartmarshall/mangalend-backend/internal/adapter/postgres"
	faultrepo "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/fault"
	itemrepo "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/item"
	loanrepo "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/loan"
	noterepo "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/notification"
	userrepo "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/user"
	waitrepo "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/waitlist"
	"github.com/heartmarshall/mangalend-backend/internal/auth"
	"github.com/heartmarshall/mangalend-backend/internal/config"
	"github.com/heartmarshall/mangalend-backend/internal/metrics"
	"github.com/heartmarshall/mangalend-backend/internal/scheduler"
	"github.com/heartmarshall/mangalend-backend/internal/service/authz"
	"github.com/heartmarshall/mangalend-backend/internal/service/lending"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
	"github.com/heartmarshall/mangalend-backend/internal/service/waitlist"
	"github.com/heartmarshall/mangalend-backend/internal/transport/middleware"
	"github.com/heartmarshall/mangalend-backend/internal/transport/rest"
)

const rateLimitCleanupInterval = time.Minute

// Run is the application entry point. It wires storage, services and the
// HTTP server, then blocks until ctx is cancelled or SIGINT/SIGTERM arrives.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		applied, err := postgres.Migrate(ctx, pool, cfg.Database.MigrationsDir)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", slog.Int("count", applied))
	}

	// Repositories
	loans := loanrepo.New(pool)
	items := itemrepo.New(pool)
	users := userrepo.New(pool)
	entries := waitrepo.New(pool)
	notes := noterepo.New(pool)
	faults := faultrepo.New(pool)
	txm := postgres.NewTxManager(pool)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	sink, closeSink, err := newEventSink(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer closeSink()
	events := amqp.NewQueue(sink, cfg.Events.QueueSize, cfg.Events.PublishTimeout, logger)

	// Services
	authorizer := authz.NewAuthorizer(logger, users, cfg.Lending.StoreTimeout)
	waitlistSvc := waitlist.NewService(logger, entries, items, cfg.Lending.DrainPolicy, cfg.Lending.StoreTimeout)
	dispatcher := notification.NewDispatcher(logger, notes, faults, txm, m, cfg.Notify)
	inboxSvc := notification.NewService(logger, notes, cfg.Lending.StoreTimeout)
	lendingSvc := lending.NewService(
		logger, loans, items, users, authorizer, waitlistSvc, dispatcher, events, txm, m, cfg.Lending,
	)

	// Transport
	limiter := middleware.NewRateLimiter(rateLimitCleanupInterval)
	defer limiter.Stop()

	deps := rest.RouterDeps{
		Loans:              rest.NewLoanHandler(lendingSvc, logger),
		Waitlist:           rest.NewWaitlistHandler(waitlistSvc, authorizer, logger),
		Notifications:      rest.NewNotificationHandler(inboxSvc, logger),
		Health:             rest.NewHealthHandler(pool, BuildVersion(), events),
		Tokens:             auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL),
		Limiter:            limiter,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		CORS:               cfg.CORS,
		Logger:             logger,
	}
	if m != nil {
		deps.Metrics = m.Handler()
		deps.MetricsPath = cfg.Metrics.Path
		deps.Observer = m
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      rest.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(logger, cfg.Scheduler, dispatcher, lendingSvc)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if sched != nil {
		sched.Start()
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
			}
		}
		if err := events.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("drain event queue: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("stopped with error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("stopped")
	return nil
}

// newEventSink connects to the broker when one is configured and falls back
// to a no-op sink otherwise.
func newEventSink(cfg config.EventsConfig, logger *slog.Logger) (amqp.Sink, func(), error) {
	if !cfg.EventsEnabled() {
		logger.Info("event publishing disabled")
		return amqp.Noop{}, func() {}, nil
	}

	pub, err := amqp.NewPublisher(cfg.AMQPURL, cfg.Exchange, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create event publisher: %w", err)
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Error("close event publisher", slog.String("error", err.Error()))
		}
	}, nil
}
