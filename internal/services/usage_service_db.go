package services

import (
	"context"
	"time"

	"askboyfriend_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateKeyUTC returns the stable per-day key for the canonical counter.
func DateKeyUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DefaultUsageStore implements UsageStore on Postgres
type DefaultUsageStore struct {
	db *gorm.DB
}

// NewUsageServiceDB creates a new DefaultUsageStore
func NewUsageServiceDB(db *gorm.DB) UsageStore {
	return &DefaultUsageStore{db: db}
}

// GetDailyCount returns today's stored count. A missing row is not an error;
// it means zero usage for that day.
func (s *DefaultUsageStore) GetDailyCount(ctx context.Context, userID uuid.UUID, dateKey string) (int, error) {
	var usage models.DailyUsage
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND date_key = ?", userID, dateKey).
		First(&usage)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, result.Error
	}
	return usage.Count, nil
}

// Increment atomically bumps the counter row, creating it at 1 if absent.
// With limit > 0 the update is conditional on count < limit, so concurrent
// sessions for the same user can never push the stored value past the limit.
func (s *DefaultUsageStore) Increment(ctx context.Context, userID uuid.UUID, dateKey string, limit int) (int, error) {
	var newCount int

	query := `
		INSERT INTO daily_usages (created_at, updated_at, user_id, date_key, count)
		VALUES (NOW(), NOW(), ?, ?, 1)
		ON CONFLICT (user_id, date_key)
		DO UPDATE SET count = daily_usages.count + 1, updated_at = NOW()
		RETURNING count`
	args := []interface{}{userID, dateKey}

	if limit > 0 {
		query = `
			INSERT INTO daily_usages (created_at, updated_at, user_id, date_key, count)
			VALUES (NOW(), NOW(), ?, ?, 1)
			ON CONFLICT (user_id, date_key)
			DO UPDATE SET count = daily_usages.count + 1, updated_at = NOW()
			WHERE daily_usages.count < ?
			RETURNING count`
		args = append(args, limit)
	}

	result := s.db.WithContext(ctx).Raw(query, args...).Scan(&newCount)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		// The conditional update refused: the row already sits at the limit.
		return 0, ErrQuotaExceeded
	}
	return newCount, nil
}

// Release gives back a reserved slot after a failed generation. Floors at
// zero; the counter must never go negative.
func (s *DefaultUsageStore) Release(ctx context.Context, userID uuid.UUID, dateKey string) error {
	return s.db.WithContext(ctx).Exec(`
		UPDATE daily_usages
		SET count = count - 1, updated_at = NOW()
		WHERE user_id = ? AND date_key = ? AND count > 0`,
		userID, dateKey,
	).Error
}
