//go:build ignore

// ===========================================================================
// Seed data for development
// Run: SEED_OWNER_ID=<identity provider user id> go run scripts/seed/main.go
// ===========================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"uppypro/internal/auth"
	"uppypro/internal/config"
	"uppypro/internal/database"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/repositories"
	"uppypro/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	fmt.Println("🌱 Seeding data...")
	ctx := context.Background()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLog, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database, zapLog)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	repos := repositories.NewRepositories(db)

	// =========================================================================
	// 1. Pricing plans
	// =========================================================================
	plans := []*models.PricingPlan{
		{Code: "starter", Name: "Başlangıç", Price: decimal.RequireFromString("499.00"), SortOrder: 1},
		{Code: "pro", Name: "Profesyonel", Price: decimal.RequireFromString("999.00"), SortOrder: 2},
	}
	plans[0].SetFeatures([]string{"WhatsApp", "1 kullanıcı", "Takvim"})
	plans[1].SetFeatures([]string{"WhatsApp", "Instagram", "5 kullanıcı", "Yapay zeka asistanı"})

	var pro *models.PricingPlan
	for _, plan := range plans {
		plan.Currency = "TRY"
		plan.Interval = models.IntervalMonthly
		plan.IsActive = true

		existing, err := repos.Plans.FindByCode(ctx, plan.Code)
		switch {
		case err == nil:
			fmt.Printf("⚠️  Plan '%s' already exists\n", plan.Code)
			plan = existing
		case errors.Is(err, apperrors.ErrNotFound):
			if err := repos.Plans.Create(ctx, plan); err != nil {
				log.Fatalf("create plan %s: %v", plan.Code, err)
			}
			fmt.Printf("✅ Plan: %s (%s TRY)\n", plan.Name, plan.Price.StringFixed(2))
		default:
			log.Fatalf("find plan %s: %v", plan.Code, err)
		}
		if plan.Code == "pro" {
			pro = plan
		}
	}

	// =========================================================================
	// 2. Demo tenant with an active subscription
	// =========================================================================
	tenant, err := repos.Tenants.FindBySlug(ctx, "demo-kuafor")
	if errors.Is(err, apperrors.ErrNotFound) {
		tenant = &models.Tenant{
			Name:     "Demo Kuaför",
			Slug:     "demo-kuafor",
			IsActive: true,
			Settings: models.TenantSettings{Timezone: "Europe/Istanbul", Locale: "tr"},
		}
		if err := repos.Tenants.Create(ctx, tenant); err != nil {
			log.Fatalf("create tenant: %v", err)
		}
		now := time.Now().UTC()
		end := now.AddDate(0, 1, 0)
		sub := &models.Subscription{
			TenantID:           tenant.ID,
			PlanID:             &pro.ID,
			Status:             models.SubscriptionActive,
			CurrentPeriodStart: &now,
			CurrentPeriodEnd:   &end,
		}
		if err := repos.Subscriptions.Create(ctx, sub); err != nil {
			log.Fatalf("create subscription: %v", err)
		}
		fmt.Printf("✅ Tenant: %s (ID: %s)\n", tenant.Name, tenant.ID)
	} else if err != nil {
		log.Fatalf("find tenant: %v", err)
	} else {
		fmt.Println("⚠️  Tenant 'demo-kuafor' already exists")
	}

	// =========================================================================
	// 3. Owner membership for a real identity provider user
	// =========================================================================
	if raw := os.Getenv("SEED_OWNER_ID"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			log.Fatalf("SEED_OWNER_ID: %v", err)
		}
		if _, err := repos.Members.FindByTenantAndUser(ctx, tenant.ID, ownerID); errors.Is(err, apperrors.ErrNotFound) {
			member := &models.TenantMember{
				TenantID: tenant.ID,
				UserID:   ownerID,
				Email:    getenv("SEED_OWNER_EMAIL", "owner@demo.test"),
				FullName: "Demo Sahip",
				Role:     models.RoleTenantOwner,
			}
			if err := repos.Members.Create(ctx, member); err != nil {
				log.Fatalf("create member: %v", err)
			}
			fmt.Printf("✅ Owner: %s\n", member.Email)
		}

		claims := auth.Claims{UserID: ownerID, Email: getenv("SEED_OWNER_EMAIL", "owner@demo.test"), Role: "authenticated"}
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(24 * time.Hour))
		token, err := auth.NewJWTService(cfg.Auth).Sign(claims)
		if err != nil {
			zapLog.Warn("sign dev token failed", zap.Error(err))
		} else {
			fmt.Printf("🔑 Dev token (24h): %s\n", token)
		}
	} else {
		fmt.Println("ℹ️  SEED_OWNER_ID not set, skipping owner membership")
	}

	// =========================================================================
	// 4. Calendar: one location and two employees
	// =========================================================================
	locations, err := repos.Locations.ListByTenant(ctx, tenant.ID, false)
	if err != nil {
		log.Fatalf("list locations: %v", err)
	}
	if len(locations) == 0 {
		weekday := models.DayHours{Open: "09:00", Close: "19:00"}
		loc := &models.TenantLocation{
			TenantID: tenant.ID,
			Name:     "Kadıköy Şubesi",
			City:     "İstanbul",
			IsActive: true,
			WorkingHours: models.WorkingHours{
				"monday":    weekday,
				"tuesday":   weekday,
				"wednesday": weekday,
				"thursday":  weekday,
				"friday":    weekday,
				"saturday":  {Open: "10:00", Close: "17:00"},
				"sunday":    {Closed: true},
			},
		}
		if err := repos.Locations.Create(ctx, loc); err != nil {
			log.Fatalf("create location: %v", err)
		}
		for _, emp := range []*models.TenantEmployee{
			{FullName: "Ayşe Yıldız", Title: "Kuaför", Color: "#7c3aed"},
			{FullName: "Mehmet Kaya", Title: "Berber", Color: "#16a34a"},
		} {
			emp.TenantID = tenant.ID
			emp.LocationID = &loc.ID
			emp.IsActive = true
			if err := repos.Employees.Create(ctx, emp); err != nil {
				zapLog.Warn("create employee failed", zap.String("name", emp.FullName), zap.Error(err))
				continue
			}
			fmt.Printf("✅ Employee: %s\n", emp.FullName)
		}
	}

	// =========================================================================
	// 5. WhatsApp connection placeholder for the dev inbound simulator
	// =========================================================================
	conn, err := repos.Connections.FindByExternalID(ctx, models.ChannelWhatsApp, "dev-phone-number")
	if errors.Is(err, apperrors.ErrNotFound) {
		conn = &models.ChannelConnection{
			TenantID:    tenant.ID,
			Channel:     models.ChannelWhatsApp,
			Status:      models.ConnectionConnected,
			ExternalID:  "dev-phone-number",
			DisplayName: "Demo WhatsApp",
			Credentials: models.ChannelCredentials{AccessToken: "dev-token"},
		}
		if err := repos.Connections.Create(ctx, conn); err != nil {
			log.Fatalf("create connection: %v", err)
		}
	} else if err != nil {
		log.Fatalf("find connection: %v", err)
	}

	fmt.Println("")
	fmt.Println("========================================")
	fmt.Println("🎉 Seed complete")
	fmt.Println("========================================")
	fmt.Printf("Tenant ID:     %s\n", tenant.ID)
	fmt.Printf("Connection ID: %s\n", conn.ID)
	fmt.Println("")
	fmt.Println("Simulate an inbound message:")
	fmt.Println(`   curl -X POST http://localhost:8080/api/v1/dev/inbound \`)
	fmt.Println(`     -H "Authorization: Bearer $TOKEN" -H "X-Tenant-ID: ` + tenant.ID.String() + `" \`)
	fmt.Printf(`     -d '{"connection_id":"%s","sender_id":"905551112233","sender_name":"Ali","text":"Merhaba"}'`+"\n", conn.ID)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
