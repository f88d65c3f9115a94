package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ===========================================================================
// Tenant
// A business account. Every other tenant table is scoped by tenant_id.
// ===========================================================================

// TenantSettings tenant level preferences (JSON column)
type TenantSettings struct {
	// Timezone IANA name, e.g. "Europe/Istanbul"
	Timezone string `json:"timezone"`

	// Locale dashboard and email language (tr, en)
	Locale string `json:"locale"`

	// NotifyEmail receives billing and system emails when set,
	// otherwise emails go to the tenant owners
	NotifyEmail string `json:"notify_email,omitempty"`
}

// Value implements driver.Valuer
func (s TenantSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *TenantSettings) Scan(value interface{}) error {
	if value == nil {
		*s = TenantSettings{}
		return nil
	}
	return scanJSON(value, s)
}

// Tenant business account
type Tenant struct {
	BaseModel

	// Name display name (e.g. "Güzellik Salonu Ayşe")
	Name string `gorm:"size:255;not null" json:"name"`

	// Slug URL friendly unique identifier
	Slug string `gorm:"size:100;uniqueIndex;not null" json:"slug"`

	Email *string `gorm:"size:255" json:"email,omitempty"`
	Phone *string `gorm:"size:50" json:"phone,omitempty"`

	Settings TenantSettings `gorm:"type:jsonb" json:"settings"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Members      []TenantMember `gorm:"foreignKey:TenantID" json:"members,omitempty"`
	Subscription *Subscription  `gorm:"foreignKey:TenantID" json:"subscription,omitempty"`
}

// TableName returns the table name
func (Tenant) TableName() string {
	return "tenants"
}

// Location returns the tenant time zone, falling back to Europe/Istanbul
func (t *Tenant) Location() *time.Location {
	name := t.Settings.Timezone
	if name == "" {
		name = "Europe/Istanbul"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
