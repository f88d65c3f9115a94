package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uppypro/internal/agent"
	"uppypro/internal/auth"
	"uppypro/internal/billing"
	"uppypro/internal/channel"
	"uppypro/internal/config"
	"uppypro/internal/database"
	"uppypro/internal/handlers"
	"uppypro/internal/metrics"
	"uppypro/internal/middleware"
	"uppypro/internal/notify"
	"uppypro/internal/realtime"
	"uppypro/internal/repositories"
	"uppypro/internal/services"
	"uppypro/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// =========================================================================
	// Load configuration
	// =========================================================================
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// Logger
	// =========================================================================
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
	)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// =========================================================================
	// Database
	// =========================================================================
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if cfg.App.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			log.Warn("auto migrate failed", zap.Error(err))
		} else {
			log.Info("database auto migration completed")
		}
	}

	repos := repositories.NewRepositories(db)

	// =========================================================================
	// Channels (WhatsApp Cloud API and Instagram Messaging share the Graph client)
	// =========================================================================
	graph := channel.NewGraphClient(cfg.Meta, log)
	whatsapp := channel.NewWhatsAppChannel(graph, log)
	instagram := channel.NewInstagramChannel(graph, cfg.Meta, log)
	channelRegistry := channel.NewRegistry(whatsapp, instagram)

	for _, t := range channelRegistry.Types() {
		log.Info("registered channel", zap.String("type", string(t)))
	}

	// =========================================================================
	// External clients
	// =========================================================================
	agentClient := agent.NewClient(cfg.Agent.Timeout, log)
	iyzico := billing.NewIyzicoClient(cfg.Iyzico, log)
	paytr := billing.NewPayTRClient(cfg.PayTR, log)
	mailer := notify.NewMailer(cfg.Resend, log)

	if cfg.Metrics.Enabled {
		metrics.Init(cfg.Metrics.Prefix)
	}

	publisher, hub := realtime.New(cfg.Realtime, cfg.CORS.AllowedOrigins, log)

	// =========================================================================
	// Services
	// =========================================================================
	notificationService := services.NewNotificationService(repos, publisher, mailer, cfg.App.FrontendURL, log)
	tenantService := services.NewTenantService(repos, notificationService, mailer, cfg.App.FrontendURL, log)
	messageService := services.NewMessageService(
		repos,
		channelRegistry,
		agentClient,
		notificationService,
		publisher,
		cfg.App.BaseURL,
		log,
	)
	conversationService := services.NewConversationService(repos, messageService, publisher, log)
	calendarService := services.NewCalendarService(repos, notificationService, log)
	agentService := services.NewAgentService(repos, agentClient, log)
	channelService := services.NewChannelService(repos, whatsapp, instagram, log)
	subscriptionService := services.NewSubscriptionService(
		repos,
		iyzico,
		paytr,
		notificationService,
		cfg.Billing.GracePeriod,
		cfg.Billing.MaxEventRetries,
		log,
	)
	pricingService := services.NewPricingService(repos, log)
	inboxService := services.NewInboxWebhookService(
		repos,
		channelRegistry,
		channelService,
		messageService,
		cfg.Billing.MaxEventRetries,
		log,
	)

	log.Info("services initialized")

	// =========================================================================
	// Handlers
	// =========================================================================
	handlers.RegisterValidators()

	jwtService := auth.NewJWTService(cfg.Auth)
	authMiddleware := middleware.AuthMiddleware(jwtService)

	authHandler := handlers.NewAuthHandler(cfg.App.IsProduction(), log)
	tenantHandler := handlers.NewTenantHandler(tenantService, log)
	conversationHandler := handlers.NewConversationHandler(conversationService, log)
	channelHandler := handlers.NewChannelHandler(channelService, cfg.App.FrontendURL, log)
	agentHandler := handlers.NewAgentHandler(agentService, log)
	calendarHandler := handlers.NewCalendarHandler(calendarService, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, log)
	billingHandler := handlers.NewBillingHandler(subscriptionService, pricingService, log)
	adminHandler := handlers.NewAdminHandler(tenantService, subscriptionService, pricingService, log)
	internalHandler := handlers.NewInternalHandler(messageService, agentService, calendarService, log)
	wsHandler := handlers.NewWSHandler(hub, log)
	webhookHandler := handlers.NewWebhookHandler(
		inboxService,
		subscriptionService,
		iyzico,
		paytr,
		handlers.WebhookConfig{
			MetaAppSecret:   cfg.Meta.AppSecret,
			MetaVerifyToken: cfg.Meta.VerifyToken,
			FrontendURL:     cfg.App.FrontendURL,
		},
		log,
	)

	log.Info("handlers initialized")

	// =========================================================================
	// Gin Router
	// =========================================================================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}
	// Webhooks and the internal API are server-to-server, the OAuth callback is a redirect
	router.Use(middleware.CSRFMiddlewareWithExempt([]string{
		"/webhooks/",
		"/internal/",
		"/api/v1/channels/instagram/callback",
		"/health",
	}))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unreachable"
		}
		c.JSON(status, gin.H{
			"status":   dbStatus,
			"service":  cfg.App.Name,
			"channels": channelRegistry.Types(),
		})
	})
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// =========================================================================
	// Webhooks (Meta, Iyzico, PayTR, n8n)
	// =========================================================================
	webhooks := router.Group("/webhooks")
	webhookHandler.RegisterRoutes(webhooks)
	internalHandler.RegisterWebhookRoutes(webhooks, middleware.InternalAPIKey(cfg.Internal.APISecret))

	// =========================================================================
	// Internal API (n8n workflows)
	// =========================================================================
	internal := router.Group("/internal/v1")
	internal.Use(middleware.InternalAPIKey(cfg.Internal.APISecret))
	internalHandler.RegisterRoutes(internal)

	// =========================================================================
	// Dashboard API
	// =========================================================================
	api := router.Group("/api/v1")
	{
		billingHandler.RegisterPublicRoutes(api)
		channelHandler.RegisterPublicRoutes(api)
		authHandler.RegisterRoutes(api, authMiddleware)

		authed := api.Group("")
		authed.Use(authMiddleware)
		tenantHandler.RegisterAccountRoutes(authed)

		// Tenant scoped, reachable while the subscription is blocked so the owner can pay
		scoped := authed.Group("")
		scoped.Use(middleware.TenantContext(tenantService, log))
		tenantHandler.RegisterRoutes(scoped)
		billingHandler.RegisterRoutes(scoped)
		notificationHandler.RegisterRoutes(scoped)
		adminHandler.RegisterRoutes(scoped)
		wsHandler.RegisterRoutes(scoped)

		paid := scoped.Group("")
		paid.Use(middleware.RequireActiveSubscription(subscriptionService, log))
		conversationHandler.RegisterRoutes(paid)
		channelHandler.RegisterRoutes(paid)
		agentHandler.RegisterRoutes(paid)
		calendarHandler.RegisterRoutes(paid)

		if cfg.App.IsDevelopment() {
			handlers.NewDevHandler(channelService, messageService, log).RegisterRoutes(paid)
			log.Warn("dev inbound simulator enabled", zap.String("path", "/api/v1/dev/inbound"))
		}
	}

	// =========================================================================
	// Background: expire subscriptions whose grace period ended
	// =========================================================================
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		runSweeper(sweepCtx, subscriptionService, cfg.Billing.SweepInterval, log)
	}()

	// =========================================================================
	// HTTP Server
	// =========================================================================
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.Int("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// =========================================================================
	// Graceful Shutdown
	// =========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	stopSweep()
	<-sweepDone

	// agent forwards still running after the response was sent
	messageService.Wait()
	if hub != nil {
		hub.Close()
	}

	log.Info("server exited")
}

func runSweeper(ctx context.Context, subscriptions services.SubscriptionService, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := subscriptions.SweepExpired(ctx, now)
			if err != nil {
				log.Error("subscription sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("subscriptions expired", zap.Int("count", n))
			}
		}
	}
}
