package services

import (
	"context"
	"time"

	"askboyfriend_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSubscriptionStore implements SubscriptionStore on Postgres
type DefaultSubscriptionStore struct {
	db *gorm.DB
}

// NewSubscriptionServiceDB creates a new DefaultSubscriptionStore
func NewSubscriptionServiceDB(db *gorm.DB) SubscriptionStore {
	return &DefaultSubscriptionStore{db: db}
}

// GetSubscription returns the user's billing record, or (nil, nil) when none
// exists. Absence is the free tier, not an error.
func (s *DefaultSubscriptionStore) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &sub, nil
}

// UpsertActive marks the user subscribed after a completed checkout.
func (s *DefaultSubscriptionStore) UpsertActive(ctx context.Context, userID uuid.UUID, plan string, validUntil time.Time) error {
	sub := models.Subscription{
		UserID:     userID,
		Status:     models.SubscriptionStatusActive,
		Plan:       plan,
		ValidUntil: &validUntil,
	}
	return s.db.WithContext(ctx).
		Where(models.Subscription{UserID: userID}).
		Assign(map[string]interface{}{
			"status":      models.SubscriptionStatusActive,
			"plan":        plan,
			"valid_until": validUntil,
		}).
		FirstOrCreate(&sub).Error
}

// Deactivate flips the record to inactive when the provider cancels it.
func (s *DefaultSubscriptionStore) Deactivate(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"status":      models.SubscriptionStatusInactive,
			"valid_until": now,
		}).Error
}
