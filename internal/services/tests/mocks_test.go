package services_test

import (
	"context"
	"time"

	"askboyfriend_go_backend/internal/metrics"
	"askboyfriend_go_backend/internal/models"
	"askboyfriend_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

type MockUsageStore struct {
	mock.Mock
}

func (m *MockUsageStore) GetDailyCount(ctx context.Context, userID uuid.UUID, dateKey string) (int, error) {
	args := m.Called(ctx, userID, dateKey)
	return args.Int(0), args.Error(1)
}

func (m *MockUsageStore) Increment(ctx context.Context, userID uuid.UUID, dateKey string, limit int) (int, error) {
	args := m.Called(ctx, userID, dateKey, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockUsageStore) Release(ctx context.Context, userID uuid.UUID, dateKey string) error {
	args := m.Called(ctx, userID, dateKey)
	return args.Error(0)
}

type MockSubscriptionStore struct {
	mock.Mock
}

func (m *MockSubscriptionStore) GetSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionStore) UpsertActive(ctx context.Context, userID uuid.UUID, plan string, validUntil time.Time) error {
	args := m.Called(ctx, userID, plan, validUntil)
	return args.Error(0)
}

func (m *MockSubscriptionStore) Deactivate(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockQuestionStore struct {
	mock.Mock
}

func (m *MockQuestionStore) SaveQuestion(ctx context.Context, userID uuid.UUID, category, content string, timestamp time.Time) error {
	args := m.Called(ctx, userID, category, content, timestamp)
	return args.Error(0)
}

func (m *MockQuestionStore) GetQuestionsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Question, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

type MockQuestionGenerator struct {
	mock.Mock
}

func (m *MockQuestionGenerator) GenerateQuestion(ctx context.Context, category, relationshipContext string) (string, error) {
	args := m.Called(ctx, category, relationshipContext)
	return args.String(0), args.Error(1)
}

// newEntitlementService wires an EntitlementService around the given mocks.
func newEntitlementService(usage *MockUsageStore, subs *MockSubscriptionStore, questions *MockQuestionStore, gen *MockQuestionGenerator) *services.EntitlementService {
	return services.NewEntitlementService(usage, subs, questions, gen, newTestMetrics())
}
