package services

import (
	"context"
	"errors"
	"time"

	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Shared service types
// ===========================================================================

// Actor authenticated user performing an operation
type Actor struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// timeNow service clock, replaced in tests
var timeNow = func() time.Time { return time.Now().UTC() }

// backgroundTimeout bounds work detached from the request context
const backgroundTimeout = 30 * time.Second

// findOptions converts a page request into repository options
func findOptions(page dto.PaginationRequest, orderBy string, filters map[string]interface{}) repositories.FindOptions {
	page.SetDefaults()
	return repositories.FindOptions{
		Offset:   page.Offset(),
		Limit:    page.Limit,
		OrderBy:  orderBy,
		OrderDir: "desc",
		Filters:  filters,
	}
}

// notFound replaces a bare ErrNotFound with a user facing message
func notFound(err error, message string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.New(apperrors.ErrNotFound, message)
	}
	return err
}

// detach runs fn in a goroutine with a fresh bounded context, logging its error
func detach(logger *zap.Logger, what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.Warn(what+" failed", zap.Error(err))
		}
	}()
}
