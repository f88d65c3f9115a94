//go:build ignore

// ===========================================================================
// One-off subscription sweep, same job the server runs on a ticker
// Run: go run scripts/sweep/main.go
// ===========================================================================

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"uppypro/internal/billing"
	"uppypro/internal/config"
	"uppypro/internal/database"
	"uppypro/internal/notify"
	"uppypro/internal/realtime"
	"uppypro/internal/repositories"
	"uppypro/internal/services"
	"uppypro/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zapLog, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer zapLog.Sync()

	db, err := database.NewConnection(&cfg.Database, zapLog)
	if err != nil {
		zapLog.Fatal("connect database", zap.Error(err))
	}
	defer database.Close(db)

	repos := repositories.NewRepositories(db)
	notifications := services.NewNotificationService(repos, realtime.NewNoopPublisher(),
		notify.NewMailer(cfg.Resend, zapLog), cfg.App.FrontendURL, zapLog)
	subscriptions := services.NewSubscriptionService(
		repos,
		billing.NewIyzicoClient(cfg.Iyzico, zapLog),
		billing.NewPayTRClient(cfg.PayTR, zapLog),
		notifications,
		cfg.Billing.GracePeriod,
		cfg.Billing.MaxEventRetries,
		zapLog,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := subscriptions.SweepExpired(ctx, time.Now())
	if err != nil {
		zapLog.Fatal("sweep failed", zap.Error(err))
	}
	fmt.Printf("expired %d subscription(s)\n", n)
}
