package services

import (
	"context"
	"time"

	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Calendar Service Interface
// ===========================================================================

// LocationInput location fields, IsActive nil keeps the current value
type LocationInput struct {
	Name         string
	Address      string
	City         string
	Phone        string
	WorkingHours models.WorkingHours
	IsActive     *bool
}

// EmployeeInput employee fields, IsActive nil keeps the current value
type EmployeeInput struct {
	LocationID *uuid.UUID
	FullName   string
	Email      string
	Phone      string
	Title      string
	Color      string
	IsActive   *bool
}

// AppointmentInput new booking
type AppointmentInput struct {
	EmployeeID     *uuid.UUID
	LocationID     *uuid.UUID
	ConversationID *uuid.UUID

	CustomerName  string
	CustomerPhone string
	Title         string
	Notes         string

	StartsAt time.Time
	EndsAt   time.Time

	Source    models.AppointmentSource
	CreatedBy *uuid.UUID
}

// UpdateAppointmentInput partial update, nil fields are untouched
type UpdateAppointmentInput struct {
	EmployeeID    *uuid.UUID
	LocationID    *uuid.UUID
	CustomerName  *string
	CustomerPhone *string
	Title         *string
	Notes         *string
	StartsAt      *time.Time
	EndsAt        *time.Time
	Status        *models.AppointmentStatus
}

// AppointmentQuery list window and filters
type AppointmentQuery struct {
	From       time.Time
	To         time.Time
	EmployeeID *uuid.UUID
	LocationID *uuid.UUID
	Status     models.AppointmentStatus
}

// CalendarService interface
type CalendarService interface {
	// Locations
	ListLocations(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.TenantLocation, error)
	CreateLocation(ctx context.Context, tenantID uuid.UUID, in LocationInput) (*models.TenantLocation, error)
	UpdateLocation(ctx context.Context, tenantID, id uuid.UUID, in LocationInput) (*models.TenantLocation, error)
	DeleteLocation(ctx context.Context, tenantID, id uuid.UUID) error

	// Employees
	ListEmployees(ctx context.Context, tenantID uuid.UUID, locationID *uuid.UUID, activeOnly bool) ([]models.TenantEmployee, error)
	CreateEmployee(ctx context.Context, tenantID uuid.UUID, in EmployeeInput) (*models.TenantEmployee, error)
	UpdateEmployee(ctx context.Context, tenantID, id uuid.UUID, in EmployeeInput) (*models.TenantEmployee, error)
	DeleteEmployee(ctx context.Context, tenantID, id uuid.UUID) error

	// Appointments
	ListAppointments(ctx context.Context, tenantID uuid.UUID, q AppointmentQuery) ([]models.Appointment, error)
	GetAppointment(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error)

	// CreateAppointment books a slot. An overlapping booking of the same employee gives ErrConflict.
	CreateAppointment(ctx context.Context, tenantID uuid.UUID, in AppointmentInput) (*models.Appointment, error)

	UpdateAppointment(ctx context.Context, tenantID, id uuid.UUID, in UpdateAppointmentInput) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error)
}
