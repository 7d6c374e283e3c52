package services

import (
	"context"

	"askboyfriend_go_backend/internal/models"

	"gorm.io/gorm"
)

// DefaultWebStoryStore implements WebStoryStore on Postgres
type DefaultWebStoryStore struct {
	db *gorm.DB
}

// NewStoryServiceDB creates a new DefaultWebStoryStore
func NewStoryServiceDB(db *gorm.DB) WebStoryStore {
	return &DefaultWebStoryStore{db: db}
}

// SaveStory upserts the metadata row for a slug; regenerating a story for the
// same category on the same day overwrites its metadata.
func (s *DefaultWebStoryStore) SaveStory(ctx context.Context, story *models.WebStory) error {
	return s.db.WithContext(ctx).
		Where(models.WebStory{Slug: story.Slug}).
		Assign(map[string]interface{}{
			"title":        story.Title,
			"description":  story.Description,
			"category":     story.Category,
			"published_at": story.PublishedAt,
		}).
		FirstOrCreate(story).Error
}

// ListStories returns stories newest first, the order the index page renders.
func (s *DefaultWebStoryStore) ListStories(ctx context.Context) ([]models.WebStory, error) {
	var stories []models.WebStory
	result := s.db.WithContext(ctx).Order("published_at desc").Find(&stories)
	if result.Error != nil {
		return nil, result.Error
	}
	return stories, nil
}
