// Command cleanup removes read notifications and resolved delivery faults
// older than the configured retention period. It is intended to be invoked
// by an external cron job, not as an in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/mangalend-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/fault"
	"github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/notification"
	"github.com/heartmarshall/mangalend-backend/internal/app"
	"github.com/heartmarshall/mangalend-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	threshold := time.Now().UTC().AddDate(0, 0, -cfg.Cleanup.NotificationRetentionDays)

	notes, err := notification.New(pool).DeleteReadBefore(ctx, threshold)
	if err != nil {
		logger.Error("delete read notifications",
			slog.String("error", err.Error()),
			slog.Time("threshold", threshold),
		)
		os.Exit(1)
	}

	faults, err := fault.New(pool).DeleteResolvedBefore(ctx, threshold)
	if err != nil {
		logger.Error("delete resolved faults",
			slog.String("error", err.Error()),
			slog.Time("threshold", threshold),
		)
		os.Exit(1)
	}

	logger.Info("cleanup completed",
		slog.Int64("notifications", notes),
		slog.Int64("faults", faults),
		slog.Time("threshold", threshold),
	)
}
