package models

import (
	"time"

	"gorm.io/gorm"
)

// WebStory is the metadata row for a published AMP web story. The rendered HTML
// lives under public/stories/<slug>/.
type WebStory struct {
	gorm.Model
	Title       string
	Description string `gorm:"type:text"`
	Category    string `gorm:"index"`
	Slug        string `gorm:"uniqueIndex"`
	PublishedAt time.Time
}
