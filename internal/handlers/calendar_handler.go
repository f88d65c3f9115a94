package handlers

import (
	"net/http"
	"time"

	"uppypro/internal/dto"
	"uppypro/internal/middleware"
	"uppypro/internal/models"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Calendar Handler
// Locations, employees and appointments
// ===========================================================================

// CalendarHandler calendar endpoints
type CalendarHandler struct {
	calendarService services.CalendarService
	logger          *zap.Logger
}

// NewCalendarHandler creates the handler
func NewCalendarHandler(calendarService services.CalendarService, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService, logger: logger}
}

// ===========================================================================
// Request DTOs
// ===========================================================================

// DayHoursRequest opening hours of one weekday
type DayHoursRequest struct {
	Open   string `json:"open" binding:"required_without=Closed,omitempty,hhmm"`
	Close  string `json:"close" binding:"required_without=Closed,omitempty,hhmm"`
	Closed bool   `json:"closed"`
}

// LocationRequest body of location create/update
type LocationRequest struct {
	Name         string                     `json:"name" binding:"required,max=255"`
	Address      string                     `json:"address" binding:"max=500"`
	City         string                     `json:"city" binding:"max=100"`
	Phone        string                     `json:"phone" binding:"max=50"`
	WorkingHours map[string]DayHoursRequest `json:"working_hours" binding:"omitempty,dive,keys,oneof=monday tuesday wednesday thursday friday saturday sunday,endkeys"`
	IsActive     *bool                      `json:"is_active"`
}

func (r LocationRequest) input() services.LocationInput {
	hours := make(models.WorkingHours, len(r.WorkingHours))
	for day, h := range r.WorkingHours {
		hours[day] = models.DayHours{Open: h.Open, Close: h.Close, Closed: h.Closed}
	}
	return services.LocationInput{
		Name:         r.Name,
		Address:      r.Address,
		City:         r.City,
		Phone:        r.Phone,
		WorkingHours: hours,
		IsActive:     r.IsActive,
	}
}

// EmployeeRequest body of employee create/update
type EmployeeRequest struct {
	LocationID *uuid.UUID `json:"location_id"`
	FullName   string     `json:"full_name" binding:"required,max=255"`
	Email      string     `json:"email" binding:"omitempty,email"`
	Phone      string     `json:"phone" binding:"max=50"`
	Title      string     `json:"title" binding:"max=100"`
	Color      string     `json:"color" binding:"omitempty,hexcolor"`
	IsActive   *bool      `json:"is_active"`
}

func (r EmployeeRequest) input() services.EmployeeInput {
	return services.EmployeeInput{
		LocationID: r.LocationID,
		FullName:   r.FullName,
		Email:      r.Email,
		Phone:      r.Phone,
		Title:      r.Title,
		Color:      r.Color,
		IsActive:   r.IsActive,
	}
}

// CreateAppointmentRequest body of POST /appointments
type CreateAppointmentRequest struct {
	EmployeeID     *uuid.UUID `json:"employee_id"`
	LocationID     *uuid.UUID `json:"location_id"`
	ConversationID *uuid.UUID `json:"conversation_id"`
	CustomerName   string     `json:"customer_name" binding:"required,max=255"`
	CustomerPhone  string     `json:"customer_phone" binding:"max=50"`
	Title          string     `json:"title" binding:"max=255"`
	Notes          string     `json:"notes" binding:"max=2000"`
	StartsAt       time.Time  `json:"starts_at" binding:"required"`
	EndsAt         time.Time  `json:"ends_at" binding:"required"`
}

// UpdateAppointmentRequest body of PATCH /appointments/:id
type UpdateAppointmentRequest struct {
	EmployeeID    *uuid.UUID `json:"employee_id"`
	LocationID    *uuid.UUID `json:"location_id"`
	CustomerName  *string    `json:"customer_name" binding:"omitempty,max=255"`
	CustomerPhone *string    `json:"customer_phone" binding:"omitempty,max=50"`
	Title         *string    `json:"title" binding:"omitempty,max=255"`
	Notes         *string    `json:"notes" binding:"omitempty,max=2000"`
	StartsAt      *time.Time `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at"`
	Status        *string    `json:"status" binding:"omitempty,oneof=scheduled confirmed completed canceled no_show"`
}

// ListAppointmentsQuery list window, RFC3339 timestamps
type ListAppointmentsQuery struct {
	From       time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	EmployeeID string    `form:"employee_id" binding:"omitempty,uuid"`
	LocationID string    `form:"location_id" binding:"omitempty,uuid"`
	Status     string    `form:"status" binding:"omitempty,oneof=scheduled confirmed completed canceled no_show"`
}

// ===========================================================================
// Locations
// ===========================================================================

// ListLocations GET /api/v1/locations?active=true
func (h *CalendarHandler) ListLocations(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	active := queryBool(c, "active")

	locations, err := h.calendarService.ListLocations(c.Request.Context(), tenantID, active != nil && *active)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(locations))
}

// CreateLocation POST /api/v1/locations
func (h *CalendarHandler) CreateLocation(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "şube adı gerekli, çalışma saatleri SS:DD biçiminde olmalı")
		return
	}

	location, err := h.calendarService.CreateLocation(c.Request.Context(), tenantID, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(location))
}

// UpdateLocation PUT /api/v1/locations/:id
func (h *CalendarHandler) UpdateLocation(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "şube adı gerekli, çalışma saatleri SS:DD biçiminde olmalı")
		return
	}

	location, err := h.calendarService.UpdateLocation(c.Request.Context(), tenantID, id, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(location))
}

// DeleteLocation DELETE /api/v1/locations/:id
func (h *CalendarHandler) DeleteLocation(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.calendarService.DeleteLocation(c.Request.Context(), tenantID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(gin.H{"deleted": true}))
}

// ===========================================================================
// Employees
// ===========================================================================

// ListEmployees GET /api/v1/employees?location_id=...&active=true
func (h *CalendarHandler) ListEmployees(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	var locationID *uuid.UUID
	if raw := c.Query("location_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "location_id geçersiz")
			return
		}
		locationID = &id
	}
	active := queryBool(c, "active")

	employees, err := h.calendarService.ListEmployees(c.Request.Context(), tenantID, locationID, active != nil && *active)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(employees))
}

// CreateEmployee POST /api/v1/employees
func (h *CalendarHandler) CreateEmployee(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	var req EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "çalışan adı gerekli")
		return
	}

	employee, err := h.calendarService.CreateEmployee(c.Request.Context(), tenantID, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(employee))
}

// UpdateEmployee PUT /api/v1/employees/:id
func (h *CalendarHandler) UpdateEmployee(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "çalışan adı gerekli")
		return
	}

	employee, err := h.calendarService.UpdateEmployee(c.Request.Context(), tenantID, id, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(employee))
}

// DeleteEmployee DELETE /api/v1/employees/:id
func (h *CalendarHandler) DeleteEmployee(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.calendarService.DeleteEmployee(c.Request.Context(), tenantID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(gin.H{"deleted": true}))
}

// ===========================================================================
// Appointments
// ===========================================================================

// ListAppointments GET /api/v1/appointments?from=...&to=...
func (h *CalendarHandler) ListAppointments(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	var query ListAppointmentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "from ve to RFC3339 biçiminde olmalı")
		return
	}

	q := services.AppointmentQuery{
		From:   query.From,
		To:     query.To,
		Status: models.AppointmentStatus(query.Status),
	}
	if query.EmployeeID != "" {
		id := uuid.MustParse(query.EmployeeID)
		q.EmployeeID = &id
	}
	if query.LocationID != "" {
		id := uuid.MustParse(query.LocationID)
		q.LocationID = &id
	}

	appointments, err := h.calendarService.ListAppointments(c.Request.Context(), tenantID, q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(appointments))
}

// GetAppointment GET /api/v1/appointments/:id
func (h *CalendarHandler) GetAppointment(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	appt, err := h.calendarService.GetAppointment(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(appt))
}

// CreateAppointment POST /api/v1/appointments
func (h *CalendarHandler) CreateAppointment(c *gin.Context) {
	tenantID, userID, ok := scope(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "müşteri adı, başlangıç ve bitiş zamanı gerekli")
		return
	}

	appt, err := h.calendarService.CreateAppointment(c.Request.Context(), tenantID, services.AppointmentInput{
		EmployeeID:     req.EmployeeID,
		LocationID:     req.LocationID,
		ConversationID: req.ConversationID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		Title:          req.Title,
		Notes:          req.Notes,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Source:         models.SourceManual,
		CreatedBy:      &userID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(appt))
}

// UpdateAppointment PATCH /api/v1/appointments/:id
func (h *CalendarHandler) UpdateAppointment(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "geçersiz randevu bilgileri")
		return
	}

	in := services.UpdateAppointmentInput{
		EmployeeID:    req.EmployeeID,
		LocationID:    req.LocationID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Title:         req.Title,
		Notes:         req.Notes,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
	}
	if req.Status != nil {
		status := models.AppointmentStatus(*req.Status)
		in.Status = &status
	}

	appt, err := h.calendarService.UpdateAppointment(c.Request.Context(), tenantID, id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(appt))
}

// CancelAppointment DELETE /api/v1/appointments/:id
func (h *CalendarHandler) CancelAppointment(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	appt, err := h.calendarService.CancelAppointment(c.Request.Context(), tenantID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(appt))
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes registers calendar routes. Locations and employees are
// managed by owners, appointments by every member.
func (h *CalendarHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/locations", h.ListLocations)
	rg.GET("/employees", h.ListEmployees)

	owner := rg.Group("")
	owner.Use(middleware.RequireOwner())
	{
		owner.POST("/locations", h.CreateLocation)
		owner.PUT("/locations/:id", h.UpdateLocation)
		owner.DELETE("/locations/:id", h.DeleteLocation)
		owner.POST("/employees", h.CreateEmployee)
		owner.PUT("/employees/:id", h.UpdateEmployee)
		owner.DELETE("/employees/:id", h.DeleteEmployee)
	}

	appointments := rg.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("", h.CreateAppointment)
		appointments.PATCH("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.CancelAppointment)
	}
}
