package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"uppypro/internal/agent"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// upcomingWindow appointments included in the AI context
const upcomingWindow = 14 * 24 * time.Hour

type agentService struct {
	repos     *repositories.Repositories
	forwarder AgentForwarder
	logger    *zap.Logger
}

// NewAgentService creates the AgentService
func NewAgentService(repos *repositories.Repositories, forwarder AgentForwarder, logger *zap.Logger) AgentService {
	return &agentService{
		repos:     repos,
		forwarder: forwarder,
		logger:    logger.Named("agent_settings"),
	}
}

func (s *agentService) Get(ctx context.Context, tenantID uuid.UUID) (*models.AgentSettings, error) {
	settings, err := s.repos.AgentSettings.FindByTenant(ctx, tenantID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.DefaultAgentSettings(tenantID), nil
	}
	return settings, err
}

func (s *agentService) Upsert(ctx context.Context, tenantID, userID uuid.UUID, in AgentSettingsInput) (*models.AgentSettings, error) {
	webhookURL := strings.TrimSpace(in.WebhookURL)
	if webhookURL != "" && !isHTTPURL(webhookURL) {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "webhook adresi http veya https olmalı")
	}
	if in.Enabled && webhookURL == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "yapay zekayı açmak için webhook adresi gerekli")
	}

	mode := in.ReplyMode
	if mode == "" {
		mode = models.ReplyAsync
	}
	if mode != models.ReplyAsync && mode != models.ReplySync {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz yanıt modu")
	}

	settings, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	settings.Enabled = in.Enabled
	settings.WebhookURL = webhookURL
	settings.ReplyMode = mode
	settings.BusinessContext = strings.TrimSpace(in.BusinessContext)
	settings.UpdatedBy = &userID

	if err := s.repos.AgentSettings.Save(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("agent settings updated",
		zap.String("tenant_id", tenantID.String()),
		zap.Bool("enabled", settings.Enabled),
		zap.String("reply_mode", string(settings.ReplyMode)),
	)
	return settings, nil
}

func (s *agentService) Test(ctx context.Context, tenantID uuid.UUID) (*TestResult, error) {
	settings, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if settings.WebhookURL == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "webhook adresi tanımlı değil")
	}

	started := time.Now()
	reply, err := s.forwarder.Forward(ctx, settings.WebhookURL, &agent.Request{
		Event:           "ping",
		TenantID:        tenantID,
		Text:            "ping",
		BusinessContext: settings.BusinessContext,
		ReplyMode:       string(settings.ReplyMode),
		SentAt:          timeNow(),
	})
	result := &TestResult{LatencyMs: time.Since(started).Milliseconds()}
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.OK = true
	if reply != nil {
		result.Reply = reply.Reply
	}
	return result, nil
}

func (s *agentService) Context(ctx context.Context, tenantID uuid.UUID) (*TenantContext, error) {
	out := &TenantContext{}
	now := timeNow()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tenant, err := s.repos.Tenants.FindByID(gctx, tenantID)
		out.Tenant = tenant
		return notFound(err, "işletme bulunamadı")
	})
	g.Go(func() error {
		locations, err := s.repos.Locations.ListByTenant(gctx, tenantID, true)
		out.Locations = locations
		return err
	})
	g.Go(func() error {
		employees, err := s.repos.Employees.ListByTenant(gctx, tenantID, nil, true)
		out.Employees = employees
		return err
	})
	g.Go(func() error {
		settings, err := s.Get(gctx, tenantID)
		if err == nil {
			out.BusinessContext = settings.BusinessContext
		}
		return err
	})
	g.Go(func() error {
		appts, err := s.repos.Appointments.List(gctx, tenantID, repositories.AppointmentFilter{
			From: now,
			To:   now.Add(upcomingWindow),
		})
		if err != nil {
			return err
		}
		upcoming := make([]models.Appointment, 0, len(appts))
		for _, a := range appts {
			if !a.IsCanceled() {
				upcoming = append(upcoming, a)
			}
		}
		out.UpcomingAppointments = upcoming
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
