package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ===========================================================================
// BaseModel
// Shared columns: ID, timestamps and soft delete
// ===========================================================================

// BaseModel is embedded by every tenant table
type BaseModel struct {
	// ID UUID primary key, generated in BeforeCreate when empty
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	// DeletedAt soft delete marker
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates the UUID if missing
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// GetID returns the primary key
func (b *BaseModel) GetID() uuid.UUID {
	return b.ID
}

// IsDeleted reports whether the row is soft deleted
func (b *BaseModel) IsDeleted() bool {
	return b.DeletedAt.Valid
}

// scanJSON decodes a JSON column. Postgres hands back []byte, SQLite may hand back string.
func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.New("unsupported type for json column")
	}
}
