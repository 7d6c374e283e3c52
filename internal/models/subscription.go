package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"

	PlanFree    = "free"
	PlanPremium = "premium"
)

type Subscription struct {
	gorm.Model
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Status     string    `gorm:"not null;default:'inactive'"`
	Plan       string    `gorm:"not null;default:'free'"`
	ValidUntil *time.Time
}

// IsActive reports whether the record grants unmetered access. The gate only
// looks at Status; ValidUntil is informational and enforced by the billing
// provider, which flips Status through its webhook.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}
