package repositories

import (
	"context"
	"time"

	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Location and Employee Repository Interfaces
// ===========================================================================

type LocationRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TenantLocation, error)

	ListByTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.TenantLocation, error)

	Create(ctx context.Context, location *models.TenantLocation) error

	Update(ctx context.Context, location *models.TenantLocation) error

	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type EmployeeRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TenantEmployee, error)

	// ListByTenant employees, optionally of one location
	ListByTenant(ctx context.Context, tenantID uuid.UUID, locationID *uuid.UUID, activeOnly bool) ([]models.TenantEmployee, error)

	Create(ctx context.Context, employee *models.TenantEmployee) error

	Update(ctx context.Context, employee *models.TenantEmployee) error

	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// ===========================================================================
// Appointment Repository Interface
// ===========================================================================

// AppointmentFilter list filter, zero values are ignored
type AppointmentFilter struct {
	From       time.Time
	To         time.Time
	EmployeeID *uuid.UUID
	LocationID *uuid.UUID
	Status     models.AppointmentStatus
}

type AppointmentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error)

	// List appointments starting inside [From, To), ordered by start
	List(ctx context.Context, tenantID uuid.UUID, filter AppointmentFilter) ([]models.Appointment, error)

	// HasOverlap reports whether employeeID has a non-canceled appointment
	// intersecting [start, end), ignoring excludeID
	HasOverlap(ctx context.Context, tenantID, employeeID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	// CountBetween non-canceled appointments starting inside [from, to)
	CountBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error)

	Create(ctx context.Context, appt *models.Appointment) error

	Update(ctx context.Context, appt *models.Appointment) error
}

// ===========================================================================
// Notification Repository Interface
// ===========================================================================

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error

	// ListForUser notifications addressed to userID or the whole tenant.
	// Filters: "unread" (bool)
	ListForUser(ctx context.Context, tenantID, userID uuid.UUID, opts FindOptions) ([]models.Notification, int64, error)

	CountUnread(ctx context.Context, tenantID, userID uuid.UUID) (int64, error)

	MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID, at time.Time) error

	// MarkAllRead returns the number of notifications marked
	MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID, at time.Time) (int64, error)
}
