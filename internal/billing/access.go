package billing

import (
	"time"

	"uppypro/internal/models"
)

// Access evaluates dashboard access for sub at now. A nil subscription is blocked.
func Access(sub *models.Subscription, now time.Time, grace time.Duration) models.AccessState {
	return sub.Access(now, grace)
}
