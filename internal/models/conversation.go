package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ===========================================================================
// Conversation
// A thread with one customer on one channel connection
// ===========================================================================

// ConversationStatus state of the thread
type ConversationStatus string

const (
	StatusOpen   ConversationStatus = "open"
	StatusClosed ConversationStatus = "closed"
)

// previewLength max runes kept in LastMessagePreview
const previewLength = 200

// Conversation customer thread
type Conversation struct {
	BaseModel

	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	ChannelConnectionID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_customer" json:"channel_connection_id"`
	Channel             ChannelType `gorm:"size:20;not null;index" json:"channel"`

	// CustomerHandle WhatsApp phone (wa_id) or Instagram scoped id
	CustomerHandle string `gorm:"size:100;not null;uniqueIndex:idx_conversation_customer" json:"customer_handle"`
	CustomerName   string `gorm:"size:255" json:"customer_name"`

	Status ConversationStatus `gorm:"size:20;not null;default:'open';index" json:"status"`

	// AIPaused human took over, messages are not forwarded to the agent
	AIPaused       bool    `gorm:"default:false" json:"ai_paused"`
	AIPausedReason *string `gorm:"size:500" json:"ai_paused_reason,omitempty"`

	// AssignedTo identity-provider user id of the assignee
	AssignedTo *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to,omitempty"`

	UnreadCount int `gorm:"default:0" json:"unread_count"`

	LastMessageAt      *time.Time `gorm:"index" json:"last_message_at,omitempty"`
	LastMessagePreview *string    `gorm:"size:1000" json:"last_message_preview,omitempty"`

	// Summary written by the n8n summary workflow
	Summary          *string    `gorm:"type:text" json:"summary,omitempty"`
	SummaryUpdatedAt *time.Time `json:"summary_updated_at,omitempty"`

	ChannelConnection *ChannelConnection `gorm:"foreignKey:ChannelConnectionID" json:"channel_connection,omitempty"`
}

// TableName returns the table name
func (Conversation) TableName() string {
	return "conversations"
}

// IsOpen thread accepts agent work
func (c *Conversation) IsOpen() bool { return c.Status == StatusOpen }

// IsClosed thread closed by an agent
func (c *Conversation) IsClosed() bool { return c.Status == StatusClosed }

// IsAssigned thread has an assignee
func (c *Conversation) IsAssigned() bool { return c.AssignedTo != nil }

// Assign sets the assignee, nil clears it
func (c *Conversation) Assign(userID *uuid.UUID) {
	c.AssignedTo = userID
}

// Close closes the thread
func (c *Conversation) Close() {
	c.Status = StatusClosed
}

// Reopen reopens a closed thread when the customer writes again
func (c *Conversation) Reopen() {
	c.Status = StatusOpen
}

// PauseAI stops forwarding to the AI agent
func (c *Conversation) PauseAI(reason string) {
	c.AIPaused = true
	if reason != "" {
		c.AIPausedReason = &reason
	} else {
		c.AIPausedReason = nil
	}
}

// ResumeAI resumes forwarding to the AI agent
func (c *Conversation) ResumeAI() {
	c.AIPaused = false
	c.AIPausedReason = nil
}

// UpdateLastMessage updates the inbox preview
func (c *Conversation) UpdateLastMessage(content string, at time.Time) {
	c.LastMessageAt = &at
	preview := Truncate(content, previewLength)
	c.LastMessagePreview = &preview
}

// SetSummary stores the AI summary
func (c *Conversation) SetSummary(summary string, at time.Time) {
	c.Summary = &summary
	c.SummaryUpdatedAt = &at
}

// Truncate cuts s to max runes, appending "..." when cut
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
