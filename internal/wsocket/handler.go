package wsocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"askboyfriend_go_backend/internal/broker"
	"askboyfriend_go_backend/internal/models"
	"askboyfriend_go_backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler pushes entitlement state to connected clients: the current usage
// snapshot on a ticker and subscription changes the moment a billing webhook
// lands.
type Handler struct {
	sessionService     *services.SessionService
	entitlementService *services.EntitlementService
	upgrader           websocket.Upgrader
	statusInterval     time.Duration
}

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type usageStatus struct {
	DailyCount int  `json:"dailyCount"`
	DailyLimit int  `json:"dailyLimit"`
	Remaining  int  `json:"remaining"`
	Unlimited  bool `json:"unlimited"`
}

// wsWriter serializes frames onto one connection. The push goroutine and the
// read loop both send, and gorilla allows at most one concurrent writer.
type wsWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsWriter) writeJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func NewHandler(sessionService *services.SessionService, entitlementService *services.EntitlementService, upgrader websocket.Upgrader, statusInterval time.Duration) *Handler {
	return &Handler{
		sessionService:     sessionService,
		entitlementService: entitlementService,
		upgrader:           upgrader,
		statusInterval:     statusInterval,
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, user interface{}, messageBroker *broker.Broker) {
	userModel, ok := user.(*models.User)
	if !ok {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()
	writer := &wsWriter{conn: conn}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := h.sessionService.GetOrCreate(ctx, userModel.ID)

	ticker := time.NewTicker(h.statusInterval)
	defer ticker.Stop()

	topic := "subscription_update_" + userModel.ID.String()
	subscriptionChan := messageBroker.Subscribe(topic)
	defer messageBroker.Unsubscribe(topic, subscriptionChan)

	// Initial snapshot so the client can render without a REST round trip.
	if err := h.sendUsageStatus(writer, sess); err != nil {
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-subscriptionChan:
				if !ok {
					return
				}
				if err := writer.writeJSON(Message{
					Type:    evt.Type,
					Content: evt.Payload,
				}); err != nil {
					log.Error().Err(err).Msg("Failed to push subscription update")
					return
				}
				// Follow with the usage view, which the update may change.
				if err := h.sendUsageStatus(writer, sess); err != nil {
					return
				}
			case <-ticker.C:
				// An open socket counts as activity; keep the session out of
				// idle eviction so webhook refreshes still reach it.
				sess.Touch()
				if err := h.sendUsageStatus(writer, sess); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		sess.Touch()

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "get_usage":
			if err := h.sendUsageStatus(writer, sess); err != nil {
				return
			}
		case "ping":
			if err := writer.writeJSON(Message{Type: "pong"}); err != nil {
				return
			}
		default:
			log.Debug().Str("type", msg.Type).Msg("Unknown websocket message type")
		}
	}
}

func (h *Handler) sendUsageStatus(writer *wsWriter, sess *services.UserSession) error {
	remaining, unlimited := h.entitlementService.Remaining(sess)
	status, err := json.Marshal(usageStatus{
		DailyCount: sess.CurrentCount(),
		DailyLimit: services.FreeDailyLimit,
		Remaining:  remaining,
		Unlimited:  unlimited,
	})
	if err != nil {
		return err
	}
	return writer.writeJSON(Message{
		Type:    "usage_status",
		Content: string(status),
	})
}
