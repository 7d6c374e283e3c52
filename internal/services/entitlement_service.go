package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"askboyfriend_go_backend/internal/metrics"
	"askboyfriend_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FreeDailyLimit is how many questions an unsubscribed user may generate per
// UTC day. The check is strict less-than: the fourth attempt of a day is
// denied.
const FreeDailyLimit = 3

// Decision is the outcome of the entitlement gate.
type Decision int

const (
	// Permit allows the generation request to proceed.
	Permit Decision = iota
	// DenyUpsellRequired means the free quota is spent and the UI should
	// present the subscription upsell. No side effects accompany a deny.
	DenyUpsellRequired
)

// GeneratedMessage is one successful generation outcome held in the session
// history.
type GeneratedMessage struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// UserSession is the session-scoped entitlement state for one principal: a
// local mirror of the daily counter, a snapshot of the subscription record and
// the history of questions generated this session. It is built at first
// authenticated touch and discarded at logout or after idling out.
//
// The mutex serializes the read-decide-act sequence so two concurrent requests
// cannot both observe count < limit and proceed. The stored counter is
// additionally protected by the conditional increment server-side; the mirror
// here exists for the synchronous pre-check and the UI.
type UserSession struct {
	UserID uuid.UUID

	mu           sync.Mutex
	dailyCount   int
	subscription *models.Subscription
	history      []GeneratedMessage
	lastAccessed time.Time
}

// Evaluate runs the entitlement gate against the session's current state.
func (s *UserSession) Evaluate() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluateLocked()
}

func (s *UserSession) evaluateLocked() Decision {
	if s.subscription.IsActive() {
		return Permit
	}
	if s.dailyCount < FreeDailyLimit {
		return Permit
	}
	return DenyUpsellRequired
}

// CurrentCount returns the local counter mirror.
func (s *UserSession) CurrentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyCount
}

// CurrentSubscription returns the cached billing record, nil when absent.
func (s *UserSession) CurrentSubscription() *models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscription
}

// History returns this session's generated messages in insertion order,
// oldest first.
func (s *UserSession) History() []GeneratedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GeneratedMessage, len(s.history))
	copy(out, s.history)
	return out
}

func (s *UserSession) recordLocked(msg GeneratedMessage) {
	s.history = append(s.history, msg)
}

// Touch marks the session as recently used so idle cleanup keeps it.
func (s *UserSession) Touch() {
	s.touch(time.Now())
}

func (s *UserSession) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = now
}

func (s *UserSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// EntitlementService gates and orchestrates the metered generation capability.
type EntitlementService struct {
	usageStore        UsageStore
	subscriptionStore SubscriptionStore
	questionStore     QuestionStore
	generator         QuestionGenerator
	metrics           *metrics.Metrics
	now               func() time.Time
}

func NewEntitlementService(
	usageStore UsageStore,
	subscriptionStore SubscriptionStore,
	questionStore QuestionStore,
	generator QuestionGenerator,
	m *metrics.Metrics,
) *EntitlementService {
	return &EntitlementService{
		usageStore:        usageStore,
		subscriptionStore: subscriptionStore,
		questionStore:     questionStore,
		generator:         generator,
		metrics:           m,
		now:               time.Now,
	}
}

// HydrateSession builds a fresh session for the user from the remote stores.
// Hydration fails open: if either fetch fails the session starts with zero
// usage and no subscription, showing the free tier rather than blocking the
// user.
func (es *EntitlementService) HydrateSession(ctx context.Context, userID uuid.UUID) *UserSession {
	now := es.now()
	sess := &UserSession{
		UserID:       userID,
		lastAccessed: now,
	}

	count, err := es.usageStore.GetDailyCount(ctx, userID, DateKeyUTC(now))
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to hydrate daily count, treating as zero usage")
		count = 0
	}
	sess.dailyCount = count

	sub, err := es.subscriptionStore.GetSubscription(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to hydrate subscription, treating as absent")
		sub = nil
	}
	sess.subscription = sub

	return sess
}

// RefreshSubscription replaces the session's cached billing record with the
// stored one. Called after a billing webhook lands so an open session observes
// the change without re-login.
func (es *EntitlementService) RefreshSubscription(ctx context.Context, sess *UserSession) error {
	sub, err := es.subscriptionStore.GetSubscription(ctx, sess.UserID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.subscription = sub
	sess.mu.Unlock()
	return nil
}

// AskQuestion runs the full metered cycle: gate, reserve a quota slot, invoke
// generation, then update the local mirror and history. The slot is reserved
// BEFORE generating and released if generation fails, so a provider failure
// never leaks free capability and a crash never hands out content past the
// stored limit.
func (es *EntitlementService) AskQuestion(ctx context.Context, sess *UserSession, category, relationshipContext string) (GeneratedMessage, error) {
	if !IsValidCategory(category) {
		return GeneratedMessage{}, ErrInvalidCategory
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.evaluateLocked() != Permit {
		es.metrics.QuestionsDenied.WithLabelValues("quota").Inc()
		return GeneratedMessage{}, ErrQuotaExceeded
	}

	now := es.now()
	dateKey := DateKeyUTC(now)

	limit := FreeDailyLimit
	if sess.subscription.IsActive() {
		// Unmetered: the counter still advances for reporting, unconditionally.
		limit = 0
	}

	newCount, err := es.usageStore.Increment(ctx, sess.UserID, dateKey, limit)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			// A concurrent session for the same user consumed the last slot.
			sess.dailyCount = FreeDailyLimit
			es.metrics.QuestionsDenied.WithLabelValues("quota").Inc()
			return GeneratedMessage{}, ErrQuotaExceeded
		}
		es.metrics.QuestionsDenied.WithLabelValues("counter_sync").Inc()
		return GeneratedMessage{}, fmt.Errorf("failed to reserve question slot: %w", err)
	}

	start := time.Now()
	content, err := es.generator.GenerateQuestion(ctx, category, relationshipContext)
	es.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if relErr := es.usageStore.Release(ctx, sess.UserID, dateKey); relErr != nil {
			log.Error().Err(relErr).Str("user_id", sess.UserID.String()).Msg("Failed to release reserved question slot")
		}
		es.metrics.QuestionsDenied.WithLabelValues("generation").Inc()
		return GeneratedMessage{}, fmt.Errorf("question generation failed: %w", err)
	}

	msg := GeneratedMessage{
		ID:        uuid.New(),
		Content:   content,
		Category:  category,
		Timestamp: es.now(),
	}

	sess.dailyCount++
	if newCount > sess.dailyCount {
		// Another session moved the canonical counter; adopt the higher value.
		sess.dailyCount = newCount
	}
	sess.recordLocked(msg)

	if err := es.questionStore.SaveQuestion(ctx, sess.UserID, category, content, msg.Timestamp); err != nil {
		// Archive persistence is best effort; the session history already has it.
		log.Error().Err(err).Str("user_id", sess.UserID.String()).Msg("Failed to archive generated question")
	}

	es.metrics.QuestionsGenerated.WithLabelValues(category).Inc()
	return msg, nil
}

// Remaining reports how many free questions the session has left today, and
// whether the user is unmetered.
func (es *EntitlementService) Remaining(sess *UserSession) (remaining int, unlimited bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.subscription.IsActive() {
		return 0, true
	}
	remaining = FreeDailyLimit - sess.dailyCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false
}
