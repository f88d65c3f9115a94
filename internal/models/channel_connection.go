package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ===========================================================================
// ChannelConnection
// A tenant's WhatsApp number or Instagram account, connected through Meta
// ===========================================================================

// ChannelType messaging channel
type ChannelType string

const (
	// ChannelWhatsApp WhatsApp Cloud API
	ChannelWhatsApp ChannelType = "whatsapp"

	// ChannelInstagram Instagram messaging through a Facebook page
	ChannelInstagram ChannelType = "instagram"
)

// IsValid reports whether c is a known channel
func (c ChannelType) IsValid() bool {
	return c == ChannelWhatsApp || c == ChannelInstagram
}

// ConnectionStatus state of the connection
type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionError        ConnectionStatus = "error"
)

// ChannelCredentials secrets for the Graph API.
// Never exposed in JSON responses.
type ChannelCredentials struct {
	// AccessToken system user token (WhatsApp) or page token (Instagram)
	AccessToken string `json:"access_token,omitempty"`

	// PageID Facebook page linked to the Instagram account
	PageID string `json:"page_id,omitempty"`

	// WABAID WhatsApp business account id
	WABAID string `json:"waba_id,omitempty"`
}

// Value implements driver.Valuer
func (c ChannelCredentials) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *ChannelCredentials) Scan(value interface{}) error {
	if value == nil {
		*c = ChannelCredentials{}
		return nil
	}
	return scanJSON(value, c)
}

// ChannelConnection connected channel account
type ChannelConnection struct {
	BaseModel

	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Channel ChannelType      `gorm:"size:20;not null;uniqueIndex:idx_connection_external" json:"channel"`
	Status  ConnectionStatus `gorm:"size:20;not null;default:'connected'" json:"status"`

	// ExternalID phone_number_id (WhatsApp) or Instagram business account id
	ExternalID string `gorm:"size:100;not null;uniqueIndex:idx_connection_external" json:"external_id"`

	// DisplayName phone number or @username shown in the dashboard
	DisplayName string `gorm:"size:255" json:"display_name"`

	Credentials ChannelCredentials `gorm:"type:jsonb" json:"-"`

	LastError   *string    `gorm:"type:text" json:"last_error,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// TableName returns the table name
func (ChannelConnection) TableName() string {
	return "channel_connections"
}

// IsConnected reports whether the connection can send and receive
func (c *ChannelConnection) IsConnected() bool {
	return c.Status == ConnectionConnected && c.Credentials.AccessToken != ""
}

// SetConnected marks the connection live
func (c *ChannelConnection) SetConnected(at time.Time) {
	c.Status = ConnectionConnected
	c.ConnectedAt = &at
	c.LastError = nil
}

// Disconnect drops the credentials
func (c *ChannelConnection) Disconnect() {
	c.Status = ConnectionDisconnected
	c.Credentials = ChannelCredentials{}
}

// SetError records a Graph API failure that requires reconnecting
func (c *ChannelConnection) SetError(msg string) {
	c.Status = ConnectionError
	c.LastError = &msg
}
