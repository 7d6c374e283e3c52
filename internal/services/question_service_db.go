package services

import (
	"context"
	"time"

	"askboyfriend_go_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultQuestionStore implements QuestionStore on Postgres
type DefaultQuestionStore struct {
	db *gorm.DB
}

// NewQuestionServiceDB creates a new DefaultQuestionStore
func NewQuestionServiceDB(db *gorm.DB) QuestionStore {
	return &DefaultQuestionStore{db: db}
}

// SaveQuestion appends a generated question to the user's archive.
func (s *DefaultQuestionStore) SaveQuestion(ctx context.Context, userID uuid.UUID, category, content string, timestamp time.Time) error {
	question := &models.Question{
		UserID:    userID,
		Category:  category,
		Content:   content,
		Timestamp: timestamp,
	}
	return s.db.WithContext(ctx).Create(question).Error
}

// GetQuestionsByUserID retrieves the archive in insertion order, oldest first.
func (s *DefaultQuestionStore) GetQuestionsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Question, error) {
	var questions []models.Question
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp asc").
		Find(&questions)
	if result.Error != nil {
		return nil, result.Error
	}
	return questions, nil
}
