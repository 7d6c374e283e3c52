package services

import (
	"context"
	"sync"
	"time"

	"askboyfriend_go_backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionService owns the live UserSession objects, one per authenticated
// user. Sessions are hydrated lazily on first touch and evicted after the idle
// timeout; logout drops them immediately.
type SessionService struct {
	sessions      sync.Map
	entitlement   *EntitlementService
	idleTimeout   time.Duration
	checkInterval time.Duration
	metrics       *metrics.Metrics
}

func NewSessionService(
	entitlement *EntitlementService,
	idleTimeout time.Duration,
	checkInterval time.Duration,
	m *metrics.Metrics,
) *SessionService {
	ss := &SessionService{
		entitlement:   entitlement,
		idleTimeout:   idleTimeout,
		checkInterval: checkInterval,
		metrics:       m,
	}
	go ss.periodicCleanup()
	return ss
}

// GetOrCreate returns the user's live session, hydrating a new one from the
// remote stores if none exists.
func (ss *SessionService) GetOrCreate(ctx context.Context, userID uuid.UUID) *UserSession {
	if sessionInterface, ok := ss.sessions.Load(userID); ok {
		sess := sessionInterface.(*UserSession)
		sess.touch(time.Now())
		return sess
	}

	sess := ss.entitlement.HydrateSession(ctx, userID)
	actual, loaded := ss.sessions.LoadOrStore(userID, sess)
	if loaded {
		// Lost the race; use the session the other request stored.
		return actual.(*UserSession)
	}
	ss.metrics.ActiveSessions.Inc()
	log.Info().Str("user_id", userID.String()).Int("daily_count", sess.CurrentCount()).Msg("Session hydrated")
	return sess
}

// Get returns the live session without creating one.
func (ss *SessionService) Get(userID uuid.UUID) (*UserSession, error) {
	sessionInterface, ok := ss.sessions.Load(userID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sessionInterface.(*UserSession), nil
}

// Drop discards the user's session, e.g. at logout.
func (ss *SessionService) Drop(userID uuid.UUID) {
	if _, ok := ss.sessions.LoadAndDelete(userID); ok {
		ss.metrics.ActiveSessions.Dec()
		log.Info().Str("user_id", userID.String()).Msg("Session dropped")
	}
}

// RefreshSubscription re-reads the billing record into the user's open
// session, if any. A user without a live session simply hydrates the new state
// on next login.
func (ss *SessionService) RefreshSubscription(ctx context.Context, userID uuid.UUID) {
	sess, err := ss.Get(userID)
	if err != nil {
		return
	}
	if err := ss.entitlement.RefreshSubscription(ctx, sess); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to refresh session subscription")
	}
}

func (ss *SessionService) periodicCleanup() {
	ticker := time.NewTicker(ss.checkInterval)
	for range ticker.C {
		ss.CleanupIdleSessions()
	}
}

// CleanupIdleSessions evicts sessions idle for longer than the timeout.
func (ss *SessionService) CleanupIdleSessions() {
	now := time.Now()
	ss.sessions.Range(func(key, value interface{}) bool {
		sess := value.(*UserSession)
		if now.Sub(sess.idleSince()) > ss.idleTimeout {
			ss.Drop(key.(uuid.UUID))
		}
		return true
	})
}
