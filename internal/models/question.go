package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Question is a generated conversation starter persisted for the user's history.
type Question struct {
	gorm.Model
	UserID    uuid.UUID `gorm:"type:uuid;index"`
	Category  string    `gorm:"index"`
	Content   string    `gorm:"type:text"`
	Timestamp time.Time
}
