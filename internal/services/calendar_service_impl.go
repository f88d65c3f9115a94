package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultListWindow used when an appointment query has no range
const defaultListWindow = 31 * 24 * time.Hour

type calendarService struct {
	repos         *repositories.Repositories
	notifications NotificationService
	logger        *zap.Logger
}

// NewCalendarService creates the CalendarService
func NewCalendarService(repos *repositories.Repositories, notifications NotificationService, logger *zap.Logger) CalendarService {
	return &calendarService{
		repos:         repos,
		notifications: notifications,
		logger:        logger.Named("calendar"),
	}
}

// ===========================================================================
// Locations
// ===========================================================================

func (s *calendarService) ListLocations(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.TenantLocation, error) {
	return s.repos.Locations.ListByTenant(ctx, tenantID, activeOnly)
}

func (s *calendarService) CreateLocation(ctx context.Context, tenantID uuid.UUID, in LocationInput) (*models.TenantLocation, error) {
	loc := &models.TenantLocation{TenantID: tenantID, IsActive: true}
	if err := applyLocation(loc, in); err != nil {
		return nil, err
	}
	if err := s.repos.Locations.Create(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *calendarService) UpdateLocation(ctx context.Context, tenantID, id uuid.UUID, in LocationInput) (*models.TenantLocation, error) {
	loc, err := s.repos.Locations.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "şube bulunamadı")
	}
	if err := applyLocation(loc, in); err != nil {
		return nil, err
	}
	if err := s.repos.Locations.Update(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *calendarService) DeleteLocation(ctx context.Context, tenantID, id uuid.UUID) error {
	return notFound(s.repos.Locations.Delete(ctx, tenantID, id), "şube bulunamadı")
}

func applyLocation(loc *models.TenantLocation, in LocationInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "şube adı gerekli")
	}
	if err := validateWorkingHours(in.WorkingHours); err != nil {
		return err
	}

	loc.Name = name
	loc.Address = strings.TrimSpace(in.Address)
	loc.City = strings.TrimSpace(in.City)
	loc.Phone = strings.TrimSpace(in.Phone)
	if in.WorkingHours != nil {
		loc.WorkingHours = in.WorkingHours
	}
	if in.IsActive != nil {
		loc.IsActive = *in.IsActive
	}
	return nil
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

func validateWorkingHours(hours models.WorkingHours) error {
	for day, h := range hours {
		if !weekdays[day] {
			return apperrors.Newf(apperrors.ErrInvalidInput, "geçersiz gün: %s", day)
		}
		if h.Closed {
			continue
		}
		open, err1 := models.ParseClock(h.Open)
		closing, err2 := models.ParseClock(h.Close)
		if err1 != nil || err2 != nil {
			return apperrors.Newf(apperrors.ErrInvalidInput, "%s için saatler SS:DD biçiminde olmalı", day)
		}
		if closing <= open {
			return apperrors.Newf(apperrors.ErrInvalidInput, "%s için kapanış saati açılıştan sonra olmalı", day)
		}
	}
	return nil
}

// ===========================================================================
// Employees
// ===========================================================================

func (s *calendarService) ListEmployees(ctx context.Context, tenantID uuid.UUID, locationID *uuid.UUID, activeOnly bool) ([]models.TenantEmployee, error) {
	return s.repos.Employees.ListByTenant(ctx, tenantID, locationID, activeOnly)
}

func (s *calendarService) CreateEmployee(ctx context.Context, tenantID uuid.UUID, in EmployeeInput) (*models.TenantEmployee, error) {
	emp := &models.TenantEmployee{TenantID: tenantID, IsActive: true}
	if err := s.applyEmployee(ctx, tenantID, emp, in); err != nil {
		return nil, err
	}
	if err := s.repos.Employees.Create(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *calendarService) UpdateEmployee(ctx context.Context, tenantID, id uuid.UUID, in EmployeeInput) (*models.TenantEmployee, error) {
	emp, err := s.repos.Employees.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "çalışan bulunamadı")
	}
	if err := s.applyEmployee(ctx, tenantID, emp, in); err != nil {
		return nil, err
	}
	// the preloaded relation would win over LocationID on save
	emp.Location = nil
	if err := s.repos.Employees.Update(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

func (s *calendarService) DeleteEmployee(ctx context.Context, tenantID, id uuid.UUID) error {
	return notFound(s.repos.Employees.Delete(ctx, tenantID, id), "çalışan bulunamadı")
}

func (s *calendarService) applyEmployee(ctx context.Context, tenantID uuid.UUID, emp *models.TenantEmployee, in EmployeeInput) error {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "çalışan adı gerekli")
	}
	if in.LocationID != nil {
		if _, err := s.repos.Locations.FindByID(ctx, tenantID, *in.LocationID); err != nil {
			return notFound(err, "şube bulunamadı")
		}
	}

	emp.FullName = name
	emp.LocationID = in.LocationID
	emp.Email = strings.TrimSpace(in.Email)
	emp.Phone = strings.TrimSpace(in.Phone)
	emp.Title = strings.TrimSpace(in.Title)
	emp.Color = strings.TrimSpace(in.Color)
	if in.IsActive != nil {
		emp.IsActive = *in.IsActive
	}
	return nil
}

// ===========================================================================
// Appointments
// ===========================================================================

func (s *calendarService) ListAppointments(ctx context.Context, tenantID uuid.UUID, q AppointmentQuery) ([]models.Appointment, error) {
	if q.From.IsZero() {
		q.From = timeNow().Truncate(24 * time.Hour)
	}
	if q.To.IsZero() {
		q.To = q.From.Add(defaultListWindow)
	}
	if !q.To.After(q.From) {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "bitiş tarihi başlangıçtan sonra olmalı")
	}
	if q.Status != "" && !q.Status.IsValid() {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz randevu durumu")
	}

	return s.repos.Appointments.List(ctx, tenantID, repositories.AppointmentFilter{
		From:       q.From,
		To:         q.To,
		EmployeeID: q.EmployeeID,
		LocationID: q.LocationID,
		Status:     q.Status,
	})
}

func (s *calendarService) GetAppointment(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error) {
	appt, err := s.repos.Appointments.FindByID(ctx, tenantID, id)
	return appt, notFound(err, "randevu bulunamadı")
}

func (s *calendarService) CreateAppointment(ctx context.Context, tenantID uuid.UUID, in AppointmentInput) (*models.Appointment, error) {
	source := in.Source
	if source == "" {
		source = models.SourceManual
	}
	appt := &models.Appointment{
		TenantID:       tenantID,
		EmployeeID:     in.EmployeeID,
		LocationID:     in.LocationID,
		ConversationID: in.ConversationID,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		CustomerPhone:  strings.TrimSpace(in.CustomerPhone),
		Title:          strings.TrimSpace(in.Title),
		Notes:          strings.TrimSpace(in.Notes),
		StartsAt:       in.StartsAt.UTC(),
		EndsAt:         in.EndsAt.UTC(),
		Status:         models.AppointmentScheduled,
		Source:         source,
		CreatedBy:      in.CreatedBy,
	}
	if appt.CustomerName == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "müşteri adı gerekli")
	}
	if in.ConversationID != nil {
		if _, err := s.repos.Conversations.FindByID(ctx, tenantID, *in.ConversationID); err != nil {
			return nil, notFound(err, "konuşma bulunamadı")
		}
	}

	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		if err := s.validateSlot(ctx, tx, appt); err != nil {
			return err
		}
		return tx.Appointments.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("appointment_id", appt.ID.String()),
		zap.String("source", string(appt.Source)),
	)

	if appt.Source == models.SourceAI {
		s.notifyBooked(ctx, appt)
	}
	return appt, nil
}

func (s *calendarService) UpdateAppointment(ctx context.Context, tenantID, id uuid.UUID, in UpdateAppointmentInput) (*models.Appointment, error) {
	var appt *models.Appointment
	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		var err error
		appt, err = tx.Appointments.FindByID(ctx, tenantID, id)
		if err != nil {
			return notFound(err, "randevu bulunamadı")
		}

		if in.Status != nil {
			if !in.Status.IsValid() {
				return apperrors.New(apperrors.ErrInvalidInput, "geçersiz randevu durumu")
			}
			appt.Status = *in.Status
		}
		if in.EmployeeID != nil {
			appt.EmployeeID = in.EmployeeID
		}
		if in.LocationID != nil {
			appt.LocationID = in.LocationID
		}
		if in.CustomerName != nil {
			name := strings.TrimSpace(*in.CustomerName)
			if name == "" {
				return apperrors.New(apperrors.ErrInvalidInput, "müşteri adı gerekli")
			}
			appt.CustomerName = name
		}
		if in.CustomerPhone != nil {
			appt.CustomerPhone = strings.TrimSpace(*in.CustomerPhone)
		}
		if in.Title != nil {
			appt.Title = strings.TrimSpace(*in.Title)
		}
		if in.Notes != nil {
			appt.Notes = strings.TrimSpace(*in.Notes)
		}
		if in.StartsAt != nil {
			appt.StartsAt = in.StartsAt.UTC()
		}
		if in.EndsAt != nil {
			appt.EndsAt = in.EndsAt.UTC()
		}

		if !appt.IsCanceled() {
			if err := s.validateSlot(ctx, tx, appt); err != nil {
				return err
			}
		}
		appt.Employee = nil
		appt.Location = nil
		return tx.Appointments.Update(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *calendarService) CancelAppointment(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error) {
	appt, err := s.GetAppointment(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if appt.IsCanceled() {
		return appt, nil
	}
	appt.Status = models.AppointmentCanceled
	appt.Employee = nil
	appt.Location = nil
	if err := s.repos.Appointments.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// validateSlot checks time range, ownership, working hours and overlaps.
// Runs inside the write transaction.
func (s *calendarService) validateSlot(ctx context.Context, tx *repositories.Repositories, appt *models.Appointment) error {
	if !appt.EndsAt.After(appt.StartsAt) {
		return apperrors.New(apperrors.ErrInvalidInput, "bitiş saati başlangıçtan sonra olmalı")
	}

	if appt.EmployeeID != nil {
		emp, err := tx.Employees.FindByID(ctx, appt.TenantID, *appt.EmployeeID)
		if err != nil {
			return notFound(err, "çalışan bulunamadı")
		}
		if !emp.IsActive {
			return apperrors.New(apperrors.ErrInvalidInput, "çalışan aktif değil")
		}
		if appt.LocationID == nil {
			appt.LocationID = emp.LocationID
		}
	}

	if appt.LocationID != nil {
		loc, err := tx.Locations.FindByID(ctx, appt.TenantID, *appt.LocationID)
		if err != nil {
			return notFound(err, "şube bulunamadı")
		}
		if len(loc.WorkingHours) > 0 {
			tenant, err := tx.Tenants.FindByID(ctx, appt.TenantID)
			if err != nil {
				return err
			}
			if !loc.WorkingHours.Allows(appt.StartsAt, appt.EndsAt, tenant.Location()) {
				return apperrors.New(apperrors.ErrInvalidInput, "randevu şubenin çalışma saatleri dışında")
			}
		}
	}

	if appt.EmployeeID != nil {
		var exclude *uuid.UUID
		if appt.ID != uuid.Nil {
			id := appt.ID
			exclude = &id
		}
		overlap, err := tx.Appointments.HasOverlap(ctx, appt.TenantID, *appt.EmployeeID, appt.StartsAt, appt.EndsAt, exclude)
		if err != nil {
			return err
		}
		if overlap {
			return apperrors.New(apperrors.ErrConflict, "çalışanın bu saatte başka bir randevusu var")
		}
	}
	return nil
}

func (s *calendarService) notifyBooked(ctx context.Context, appt *models.Appointment) {
	loc := time.UTC
	if tenant, err := s.repos.Tenants.FindByID(ctx, appt.TenantID); err == nil {
		loc = tenant.Location()
	}
	body := fmt.Sprintf("%s için %s tarihinde randevu oluşturuldu",
		appt.CustomerName, appt.StartsAt.In(loc).Format("02.01.2006 15:04"))

	if _, err := s.notifications.Notify(ctx, NotifyInput{
		TenantID: appt.TenantID,
		Type:     models.NotifyAppointmentBooked,
		Title:    "Yapay zeka randevu aldı",
		Body:     body,
		Link:     "/calendar?appointment=" + appt.ID.String(),
		Data:     map[string]interface{}{"appointment_id": appt.ID.String()},
	}); err != nil {
		s.logger.Warn("appointment notification failed", zap.Error(err))
	}
}
