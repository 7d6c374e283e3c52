package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"askboyfriend_go_backend/internal/models"
	"askboyfriend_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func hydratedSession(t *testing.T, es *services.EntitlementService, usage *MockUsageStore, subs *MockSubscriptionStore, userID uuid.UUID, count int, sub *models.Subscription) *services.UserSession {
	t.Helper()
	usage.On("GetDailyCount", mock.Anything, userID, mock.AnythingOfType("string")).Return(count, nil).Once()
	subs.On("GetSubscription", mock.Anything, userID).Return(sub, nil).Once()
	return es.HydrateSession(context.Background(), userID)
}

func TestEvaluate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name     string
		count    int
		sub      *models.Subscription
		expected services.Decision
	}{
		{"zero usage no subscription", 0, nil, services.Permit},
		{"one below limit no subscription", 2, nil, services.Permit},
		{"at limit no subscription", 3, nil, services.DenyUpsellRequired},
		{"over limit no subscription", 5, nil, services.DenyUpsellRequired},
		{"at limit inactive subscription", 3, &models.Subscription{Status: models.SubscriptionStatusInactive, Plan: models.PlanFree}, services.DenyUpsellRequired},
		{"zero usage active subscription", 0, &models.Subscription{Status: models.SubscriptionStatusActive, Plan: models.PlanPremium}, services.Permit},
		{"over limit active subscription", 5, &models.Subscription{Status: models.SubscriptionStatusActive, Plan: models.PlanPremium}, services.Permit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUsage := new(MockUsageStore)
			mockSubs := new(MockSubscriptionStore)
			es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), new(MockQuestionGenerator))

			sess := hydratedSession(t, es, mockUsage, mockSubs, userID, tt.count, tt.sub)
			assert.Equal(t, tt.expected, sess.Evaluate())
		})
	}
}

func TestHydrateSession(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("absent remote data yields zero usage and no subscription", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), new(MockQuestionGenerator))

		mockUsage.On("GetDailyCount", mock.Anything, userID, mock.AnythingOfType("string")).Return(0, nil).Once()
		mockSubs.On("GetSubscription", mock.Anything, userID).Return(nil, nil).Once()

		sess := es.HydrateSession(ctx, userID)

		assert.Equal(t, 0, sess.CurrentCount())
		assert.Nil(t, sess.CurrentSubscription())
		assert.Equal(t, services.Permit, sess.Evaluate())
	})

	t.Run("fetch failures fail open to the free tier", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), new(MockQuestionGenerator))

		mockUsage.On("GetDailyCount", mock.Anything, userID, mock.AnythingOfType("string")).Return(0, fmt.Errorf("store unreachable")).Once()
		mockSubs.On("GetSubscription", mock.Anything, userID).Return(nil, fmt.Errorf("store unreachable")).Once()

		sess := es.HydrateSession(ctx, userID)

		assert.Equal(t, 0, sess.CurrentCount())
		assert.Nil(t, sess.CurrentSubscription())
		assert.Equal(t, services.Permit, sess.Evaluate())
	})

	t.Run("hydrates the stored count and subscription", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), new(MockQuestionGenerator))

		sub := &models.Subscription{Status: models.SubscriptionStatusActive, Plan: models.PlanPremium}
		mockUsage.On("GetDailyCount", mock.Anything, userID, mock.AnythingOfType("string")).Return(2, nil).Once()
		mockSubs.On("GetSubscription", mock.Anything, userID).Return(sub, nil).Once()

		sess := es.HydrateSession(ctx, userID)

		assert.Equal(t, 2, sess.CurrentCount())
		assert.Equal(t, sub, sess.CurrentSubscription())
	})
}

func TestAskQuestion(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("successful cycle increments mirror and records history", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		mockQuestions := new(MockQuestionStore)
		mockGen := new(MockQuestionGenerator)
		es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 0, nil)

		mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), services.FreeDailyLimit).Return(1, nil).Once()
		mockGen.On("GenerateQuestion", mock.Anything, "Fun", "").Return("What made you laugh hardest this week?", nil).Once()
		mockQuestions.On("SaveQuestion", mock.Anything, userID, "Fun", "What made you laugh hardest this week?", mock.AnythingOfType("time.Time")).Return(nil).Once()

		msg, err := es.AskQuestion(ctx, sess, "Fun", "")

		assert.NoError(t, err)
		assert.Equal(t, "Fun", msg.Category)
		assert.Equal(t, "What made you laugh hardest this week?", msg.Content)
		assert.NotEqual(t, uuid.Nil, msg.ID)
		assert.Equal(t, 1, sess.CurrentCount())
		assert.Len(t, sess.History(), 1)

		mockUsage.AssertExpectations(t)
		mockGen.AssertExpectations(t)
		mockQuestions.AssertExpectations(t)
	})

	t.Run("unknown category is rejected before the gate", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		mockGen := new(MockQuestionGenerator)
		es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), mockGen)

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 0, nil)

		_, err := es.AskQuestion(ctx, sess, "Politics", "")

		assert.ErrorIs(t, err, services.ErrInvalidCategory)
		mockUsage.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockGen.AssertNotCalled(t, "GenerateQuestion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("deny at the limit performs no side effects", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		mockQuestions := new(MockQuestionStore)
		mockGen := new(MockQuestionGenerator)
		es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, services.FreeDailyLimit, nil)

		_, err := es.AskQuestion(ctx, sess, "Deep", "")

		assert.ErrorIs(t, err, services.ErrQuotaExceeded)
		assert.Equal(t, services.FreeDailyLimit, sess.CurrentCount())
		assert.Empty(t, sess.History())
		mockUsage.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockGen.AssertNotCalled(t, "GenerateQuestion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("active subscription bypasses the limit", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		mockQuestions := new(MockQuestionStore)
		mockGen := new(MockQuestionGenerator)
		es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

		sub := &models.Subscription{Status: models.SubscriptionStatusActive, Plan: models.PlanPremium}
		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 5, sub)

		// Unmetered users advance the counter unconditionally (limit 0).
		mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), 0).Return(6, nil).Once()
		mockGen.On("GenerateQuestion", mock.Anything, "Spicy", "long distance").Return("Question", nil).Once()
		mockQuestions.On("SaveQuestion", mock.Anything, userID, "Spicy", "Question", mock.AnythingOfType("time.Time")).Return(nil).Once()

		_, err := es.AskQuestion(ctx, sess, "Spicy", "long distance")

		assert.NoError(t, err)
		assert.Equal(t, 6, sess.CurrentCount())
		mockUsage.AssertExpectations(t)
	})

	t.Run("reservation lost to a concurrent session denies without generating", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		mockQuestions := new(MockQuestionStore)
		mockGen := new(MockQuestionGenerator)
		es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 2, nil)

		mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), services.FreeDailyLimit).Return(0, services.ErrQuotaExceeded).Once()

		_, err := es.AskQuestion(ctx, sess, "Cute", "")

		assert.ErrorIs(t, err, services.ErrQuotaExceeded)
		// The mirror adopts the denied state so the next pre-check denies fast.
		assert.Equal(t, services.FreeDailyLimit, sess.CurrentCount())
		assert.Empty(t, sess.History())
		mockGen.AssertNotCalled(t, "GenerateQuestion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reservation failure surfaces without generating", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		mockQuestions := new(MockQuestionStore)
		mockGen := new(MockQuestionGenerator)
		es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 1, nil)

		mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), services.FreeDailyLimit).Return(0, fmt.Errorf("store unreachable")).Once()

		_, err := es.AskQuestion(ctx, sess, "Fun", "")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, services.ErrQuotaExceeded)
		assert.Equal(t, 1, sess.CurrentCount())
		assert.Empty(t, sess.History())
		mockGen.AssertNotCalled(t, "GenerateQuestion", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("generation failure releases the reserved slot", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		mockQuestions := new(MockQuestionStore)
		mockGen := new(MockQuestionGenerator)
		es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 1, nil)

		mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), services.FreeDailyLimit).Return(2, nil).Once()
		mockGen.On("GenerateQuestion", mock.Anything, "Fun", "").Return("", fmt.Errorf("provider error")).Once()
		mockUsage.On("Release", mock.Anything, userID, mock.AnythingOfType("string")).Return(nil).Once()

		_, err := es.AskQuestion(ctx, sess, "Fun", "")

		assert.Error(t, err)
		assert.Equal(t, 1, sess.CurrentCount())
		assert.Empty(t, sess.History())
		mockUsage.AssertExpectations(t)
		mockQuestions.AssertNotCalled(t, "SaveQuestion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("archive failure does not fail the request", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		mockQuestions := new(MockQuestionStore)
		mockGen := new(MockQuestionGenerator)
		es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 0, nil)

		mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), services.FreeDailyLimit).Return(1, nil).Once()
		mockGen.On("GenerateQuestion", mock.Anything, "Fun", "").Return("Question", nil).Once()
		mockQuestions.On("SaveQuestion", mock.Anything, userID, "Fun", "Question", mock.AnythingOfType("time.Time")).Return(fmt.Errorf("db down")).Once()

		msg, err := es.AskQuestion(ctx, sess, "Fun", "")

		assert.NoError(t, err)
		assert.Equal(t, "Question", msg.Content)
		assert.Len(t, sess.History(), 1)
	})
}

func TestFullCycleExhaustsQuota(t *testing.T) {
	// Counter hydrated to 2: one more success, then denial.
	ctx := context.Background()
	userID := uuid.New()

	mockUsage := new(MockUsageStore)
	mockSubs := new(MockSubscriptionStore)
	mockQuestions := new(MockQuestionStore)
	mockGen := new(MockQuestionGenerator)
	es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

	sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 2, nil)
	assert.Equal(t, services.Permit, sess.Evaluate())

	mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), services.FreeDailyLimit).Return(3, nil).Once()
	mockGen.On("GenerateQuestion", mock.Anything, "Goals", "").Return("Question", nil).Once()
	mockQuestions.On("SaveQuestion", mock.Anything, userID, "Goals", "Question", mock.AnythingOfType("time.Time")).Return(nil).Once()

	_, err := es.AskQuestion(ctx, sess, "Goals", "")
	assert.NoError(t, err)
	assert.Equal(t, 3, sess.CurrentCount())

	assert.Equal(t, services.DenyUpsellRequired, sess.Evaluate())
	_, err = es.AskQuestion(ctx, sess, "Goals", "")
	assert.ErrorIs(t, err, services.ErrQuotaExceeded)
}

func TestHistoryOrderPreserved(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mockUsage := new(MockUsageStore)
	mockSubs := new(MockSubscriptionStore)
	mockQuestions := new(MockQuestionStore)
	mockGen := new(MockQuestionGenerator)
	es := newEntitlementService(mockUsage, mockSubs, mockQuestions, mockGen)

	sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 0, nil)

	mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), services.FreeDailyLimit).Return(1, nil).Once()
	mockUsage.On("Increment", mock.Anything, userID, mock.AnythingOfType("string"), services.FreeDailyLimit).Return(2, nil).Once()
	mockGen.On("GenerateQuestion", mock.Anything, "Fun", "").Return("Question A", nil).Once()
	mockGen.On("GenerateQuestion", mock.Anything, "Deep", "").Return("Question B", nil).Once()
	mockQuestions.On("SaveQuestion", mock.Anything, userID, mock.Anything, mock.Anything, mock.AnythingOfType("time.Time")).Return(nil).Twice()

	_, err := es.AskQuestion(ctx, sess, "Fun", "")
	assert.NoError(t, err)
	_, err = es.AskQuestion(ctx, sess, "Deep", "")
	assert.NoError(t, err)

	history := sess.History()
	assert.Len(t, history, 2)
	assert.Equal(t, "Question A", history[0].Content)
	assert.Equal(t, "Question B", history[1].Content)
	assert.Equal(t, 2, sess.CurrentCount())
}

func TestRemaining(t *testing.T) {
	userID := uuid.New()

	t.Run("free tier counts down", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), new(MockQuestionGenerator))

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 1, nil)
		remaining, unlimited := es.Remaining(sess)
		assert.Equal(t, 2, remaining)
		assert.False(t, unlimited)
	})

	t.Run("never negative", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), new(MockQuestionGenerator))

		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 7, nil)
		remaining, unlimited := es.Remaining(sess)
		assert.Equal(t, 0, remaining)
		assert.False(t, unlimited)
	})

	t.Run("unlimited for active subscription", func(t *testing.T) {
		mockUsage := new(MockUsageStore)
		mockSubs := new(MockSubscriptionStore)
		es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), new(MockQuestionGenerator))

		sub := &models.Subscription{Status: models.SubscriptionStatusActive, Plan: models.PlanPremium}
		sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 7, sub)
		_, unlimited := es.Remaining(sess)
		assert.True(t, unlimited)
	})
}

func TestRefreshSubscription(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	mockUsage := new(MockUsageStore)
	mockSubs := new(MockSubscriptionStore)
	es := newEntitlementService(mockUsage, mockSubs, new(MockQuestionStore), new(MockQuestionGenerator))

	sess := hydratedSession(t, es, mockUsage, mockSubs, userID, 3, nil)
	assert.Equal(t, services.DenyUpsellRequired, sess.Evaluate())

	// Payment webhook landed: the stored record is now active.
	validUntil := time.Now().Add(30 * 24 * time.Hour)
	mockSubs.On("GetSubscription", mock.Anything, userID).Return(&models.Subscription{
		Status:     models.SubscriptionStatusActive,
		Plan:       models.PlanPremium,
		ValidUntil: &validUntil,
	}, nil).Once()

	assert.NoError(t, es.RefreshSubscription(ctx, sess))
	assert.Equal(t, services.Permit, sess.Evaluate())
}
