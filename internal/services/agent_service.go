package services

import (
	"context"

	"uppypro/internal/agent"
	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Agent Service Interface
// Per-tenant n8n AI settings and the context served to workflows
// ===========================================================================

// AgentForwarder posts a request to an n8n webhook, implemented by agent.Client
type AgentForwarder interface {
	Forward(ctx context.Context, webhookURL string, req *agent.Request) (*agent.Reply, error)
}

// AgentSettingsInput settings submitted from the dashboard
type AgentSettingsInput struct {
	Enabled         bool
	WebhookURL      string
	ReplyMode       models.ReplyMode
	BusinessContext string
}

// TestResult outcome of a webhook ping
type TestResult struct {
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms"`
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TenantContext business profile served to the AI workflow
type TenantContext struct {
	Tenant               *models.Tenant          `json:"tenant"`
	Locations            []models.TenantLocation `json:"locations"`
	Employees            []models.TenantEmployee `json:"employees"`
	BusinessContext      string                  `json:"business_context"`
	UpcomingAppointments []models.Appointment    `json:"upcoming_appointments"`
}

// AgentService interface
type AgentService interface {
	// Get returns the tenant's settings, or disabled defaults when none are stored
	Get(ctx context.Context, tenantID uuid.UUID) (*models.AgentSettings, error)

	Upsert(ctx context.Context, tenantID, userID uuid.UUID, in AgentSettingsInput) (*models.AgentSettings, error)

	// Test sends a ping payload to the configured webhook
	Test(ctx context.Context, tenantID uuid.UUID) (*TestResult, error)

	// Context tenant profile for the internal API
	Context(ctx context.Context, tenantID uuid.UUID) (*TenantContext, error)
}
