package dto

import "time"

// ===========================================================================
// Shared request DTOs
// ===========================================================================

// PaginationRequest page/limit query for list endpoints
type PaginationRequest struct {
	// Page starts at 1
	Page int `form:"page" binding:"min=0"`

	// Limit max 100
	Limit int `form:"limit" binding:"min=0,max=100"`
}

// SetDefaults fills page and limit
func (p *PaginationRequest) SetDefaults() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
}

// Offset for the database query
func (p *PaginationRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TimeRangeRequest from/to query used by calendar listings
type TimeRangeRequest struct {
	From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00" binding:"required,gtfield=From"`
}
