package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ===========================================================================
// Calendar: locations, employees, appointments
// ===========================================================================

// DayHours opening hours of one weekday, "HH:MM" local time
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed,omitempty"`
}

// WorkingHours keyed by lowercase English weekday ("monday")
type WorkingHours map[string]DayHours

// Value implements driver.Valuer
func (w WorkingHours) Value() (driver.Value, error) {
	if w == nil {
		return json.Marshal(map[string]DayHours{})
	}
	return json.Marshal(w)
}

// Scan implements sql.Scanner
func (w *WorkingHours) Scan(value interface{}) error {
	if value == nil {
		*w = WorkingHours{}
		return nil
	}
	return scanJSON(value, w)
}

// Allows reports whether [start, end) lies inside the opening hours of start's weekday.
// Times are interpreted in loc. A weekday without an entry is not restricted, and a
// slot may end at the midnight that closes a "24:00" day.
func (w WorkingHours) Allows(start, end time.Time, loc *time.Location) bool {
	start = start.In(loc)
	end = end.In(loc)

	day, ok := w[strings.ToLower(start.Weekday().String())]
	if !ok {
		return true
	}
	if day.Closed {
		return false
	}

	open, err1 := ParseClock(day.Open)
	closing, err2 := ParseClock(day.Close)
	if err1 != nil || err2 != nil {
		return false
	}

	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	if start.YearDay() != end.YearDay() || start.Year() != end.Year() {
		midnight := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, loc)
		if !end.Equal(midnight) {
			return false
		}
		e = minutesPerDay
	}
	return s >= open && e <= closing
}

const minutesPerDay = 24 * 60

// ParseClock parses "HH:MM" into minutes since midnight. "24:00" is the end of the day.
func ParseClock(v string) (int, error) {
	if v == "24:00" {
		return minutesPerDay, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// TenantLocation branch of the business
type TenantLocation struct {
	BaseModel

	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Name    string `gorm:"size:255;not null" json:"name"`
	Address string `gorm:"size:500" json:"address"`
	City    string `gorm:"size:100" json:"city"`
	Phone   string `gorm:"size:50" json:"phone"`

	WorkingHours WorkingHours `gorm:"type:jsonb" json:"working_hours"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

// TableName returns the table name
func (TenantLocation) TableName() string {
	return "tenant_locations"
}

// TenantEmployee staff member that can be booked. Not necessarily a dashboard user.
type TenantEmployee struct {
	BaseModel

	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	LocationID *uuid.UUID `gorm:"type:uuid;index" json:"location_id,omitempty"`

	FullName string `gorm:"size:255;not null" json:"full_name"`
	Email    string `gorm:"size:255" json:"email"`
	Phone    string `gorm:"size:50" json:"phone"`
	Title    string `gorm:"size:100" json:"title"`

	// Color calendar color, e.g. "#7c3aed"
	Color string `gorm:"size:20" json:"color"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Location *TenantLocation `gorm:"foreignKey:LocationID" json:"location,omitempty"`
}

// TableName returns the table name
func (TenantEmployee) TableName() string {
	return "tenant_employees"
}

// AppointmentStatus state of a booking
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCanceled  AppointmentStatus = "canceled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// IsValid reports whether s is a known status
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentCompleted,
		AppointmentCanceled, AppointmentNoShow:
		return true
	}
	return false
}

// AppointmentSource who booked
type AppointmentSource string

const (
	SourceManual AppointmentSource = "manual"
	SourceAI     AppointmentSource = "ai"
)

// Appointment calendar booking
type Appointment struct {
	BaseModel

	TenantID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_appointment_tenant_start" json:"tenant_id"`
	EmployeeID     *uuid.UUID `gorm:"type:uuid;index" json:"employee_id,omitempty"`
	LocationID     *uuid.UUID `gorm:"type:uuid;index" json:"location_id,omitempty"`
	ConversationID *uuid.UUID `gorm:"type:uuid" json:"conversation_id,omitempty"`

	CustomerName  string `gorm:"size:255;not null" json:"customer_name"`
	CustomerPhone string `gorm:"size:50" json:"customer_phone"`

	Title string `gorm:"size:255" json:"title"`
	Notes string `gorm:"type:text" json:"notes"`

	StartsAt time.Time `gorm:"not null;index:idx_appointment_tenant_start" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`

	Status AppointmentStatus `gorm:"size:20;not null;default:'scheduled'" json:"status"`
	Source AppointmentSource `gorm:"size:10;not null;default:'manual'" json:"source"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`

	Employee *TenantEmployee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Location *TenantLocation `gorm:"foreignKey:LocationID" json:"location,omitempty"`
}

// TableName returns the table name
func (Appointment) TableName() string {
	return "appointments"
}

// IsCanceled canceled bookings free their slot
func (a *Appointment) IsCanceled() bool {
	return a.Status == AppointmentCanceled
}

// Overlaps reports whether [start, end) intersects the appointment
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return start.Before(a.EndsAt) && a.StartsAt.Before(end)
}

// Duration length of the appointment
func (a *Appointment) Duration() time.Duration {
	return a.EndsAt.Sub(a.StartsAt)
}
