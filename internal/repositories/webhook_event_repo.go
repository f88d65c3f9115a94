package repositories

import (
	"context"
	"time"

	"uppypro/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===========================================================================
// Webhook Event Repository GORM Implementation
// ===========================================================================

// staleClaimAfter a processing row older than this is assumed abandoned
const staleClaimAfter = 10 * time.Minute

type webhookEventRepo struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepo{db: db}
}

func (r *webhookEventRepo) Claim(ctx context.Context, event *models.WebhookEvent, maxRetries int) (*models.WebhookEvent, ClaimResult, error) {
	event.Status = models.WebhookStatusProcessing

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "event_key"}},
			DoNothing: true,
		}).
		Create(event)
	if res.Error != nil {
		return nil, 0, res.Error
	}
	if res.RowsAffected == 1 {
		return event, ClaimNew, nil
	}

	var existing models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_key = ?", event.Provider, event.EventKey).
		First(&existing).Error
	if err != nil {
		return nil, 0, translateError(err)
	}

	switch {
	case existing.IsDone():
		return &existing, ClaimDuplicate, nil
	case existing.CanRetry(maxRetries):
		upd := r.db.WithContext(ctx).
			Model(&models.WebhookEvent{}).
			Where("id = ? AND status = ?", existing.ID, models.WebhookStatusFailed).
			Update("status", models.WebhookStatusProcessing)
		if upd.Error != nil {
			return nil, 0, upd.Error
		}
		if upd.RowsAffected == 0 {
			return &existing, ClaimInProgress, nil
		}
		existing.Status = models.WebhookStatusProcessing
		return &existing, ClaimRetry, nil
	case existing.Status == models.WebhookStatusFailed:
		return &existing, ClaimExhausted, nil
	case existing.Status == models.WebhookStatusProcessing && time.Since(existing.UpdatedAt) > staleClaimAfter:
		upd := r.db.WithContext(ctx).
			Model(&models.WebhookEvent{}).
			Where("id = ? AND status = ? AND updated_at < ?", existing.ID, models.WebhookStatusProcessing, time.Now().Add(-staleClaimAfter)).
			Update("retry_count", gorm.Expr("retry_count + 1"))
		if upd.Error != nil {
			return nil, 0, upd.Error
		}
		if upd.RowsAffected == 0 {
			return &existing, ClaimInProgress, nil
		}
		existing.RetryCount++
		return &existing, ClaimRetry, nil
	default:
		return &existing, ClaimInProgress, nil
	}
}

func (r *webhookEventRepo) Save(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}
