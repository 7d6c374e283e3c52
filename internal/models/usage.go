package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyUsage is the canonical per-day question counter for a user. One row per
// (user, date key); the count never exceeds the free limit for unsubscribed
// users because the increment is conditional server-side.
type DailyUsage struct {
	gorm.Model
	UserID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_daily_usages_user_date"`
	DateKey string    `gorm:"type:varchar(10);uniqueIndex:idx_daily_usages_user_date"`
	Count   int       `gorm:"not null;default:0"`
}
