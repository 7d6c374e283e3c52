package services

import (
	"context"
	"time"

	"askboyfriend_go_backend/internal/models"

	"github.com/google/uuid"
)

// QuestionGenerator produces one conversation-starter question for a category,
// optionally steered by free-text relationship context.
type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context, category, relationshipContext string) (string, error)
}

// UsageStore is the canonical per-day question counter. Increment is atomic
// server-side: with limit > 0 it refuses to move the stored count past the
// limit and returns ErrQuotaExceeded; with limit <= 0 it is unconditional
// (subscribed users). Release compensates a reservation whose generation
// failed.
type UsageStore interface {
	GetDailyCount(ctx context.Context, userID uuid.UUID, dateKey string) (int, error)
	Increment(ctx context.Context, userID uuid.UUID, dateKey string, limit int) (int, error)
	Release(ctx context.Context, userID uuid.UUID, dateKey string) error
}

// SubscriptionStore reads and mutates the billing record. GetSubscription
// returns (nil, nil) when the user has no record; absence means free tier.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	UpsertActive(ctx context.Context, userID uuid.UUID, plan string, validUntil time.Time) error
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

// QuestionStore persists generated questions for the user's archive.
type QuestionStore interface {
	SaveQuestion(ctx context.Context, userID uuid.UUID, category, content string, timestamp time.Time) error
	GetQuestionsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Question, error)
}

// WebStoryStore persists metadata rows for published web stories.
type WebStoryStore interface {
	SaveStory(ctx context.Context, story *models.WebStory) error
	ListStories(ctx context.Context) ([]models.WebStory, error)
}

// StoryContentGenerator asks the model for the structured content of one web
// story.
type StoryContentGenerator interface {
	GenerateStoryContent(ctx context.Context, category string) (*StoryContent, error)
}
