package models

import (
	"github.com/google/uuid"
)

// ReplyMode how the AI answer reaches the customer
type ReplyMode string

const (
	// ReplyAsync n8n replies later through the internal API
	ReplyAsync ReplyMode = "async"

	// ReplySync the webhook response body carries the reply
	ReplySync ReplyMode = "sync"
)

// AgentSettings per-tenant AI automation, one row per tenant
type AgentSettings struct {
	BaseModel

	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`

	// WebhookURL n8n workflow that receives inbound messages
	WebhookURL string `gorm:"size:1000" json:"webhook_url"`

	Enabled   bool      `gorm:"default:false" json:"enabled"`
	ReplyMode ReplyMode `gorm:"size:10;not null;default:'async'" json:"reply_mode"`

	// BusinessContext free text sent with every request (services, prices, tone)
	BusinessContext string `gorm:"type:text" json:"business_context"`

	UpdatedBy *uuid.UUID `gorm:"type:uuid" json:"updated_by,omitempty"`
}

// TableName returns the table name
func (AgentSettings) TableName() string {
	return "agent_settings"
}

// DefaultAgentSettings disabled settings for a new tenant
func DefaultAgentSettings(tenantID uuid.UUID) *AgentSettings {
	return &AgentSettings{
		TenantID:  tenantID,
		ReplyMode: ReplyAsync,
	}
}

// IsActive AI forwarding is configured and on
func (s *AgentSettings) IsActive() bool {
	return s != nil && s.Enabled && s.WebhookURL != ""
}
