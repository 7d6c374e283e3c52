package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"askboyfriend_go_backend/internal/auth"
	"askboyfriend_go_backend/internal/broker"
	apperrors "askboyfriend_go_backend/internal/errors"
	"askboyfriend_go_backend/internal/metrics"
	"askboyfriend_go_backend/internal/models"
	"askboyfriend_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v79"
)

func SetupRoutes(
	r *gin.Engine,
	sessionService *services.SessionService,
	entitlementService *services.EntitlementService,
	subscriptionStore services.SubscriptionStore,
	questionStore services.QuestionStore,
	storyStore services.WebStoryStore,
	stripeService *services.StripeService,
	userService *services.UserService,
	messageBroker *broker.Broker,
	m *metrics.Metrics,
) {
	api := r.Group("/api")
	{
		api.POST("/question", auth.AuthMiddleware(userService), askQuestionHandler(sessionService, entitlementService))
		api.GET("/question/history", auth.AuthMiddleware(userService), questionHistoryHandler(sessionService))
		api.GET("/question/archive", auth.AuthMiddleware(userService), questionArchiveHandler(questionStore))
		api.GET("/usage", auth.AuthMiddleware(userService), usageHandler(sessionService, entitlementService))
		api.GET("/subscription", auth.AuthMiddleware(userService), subscriptionHandler(sessionService))
		api.POST("/create-checkout-session", auth.AuthMiddleware(userService), createCheckoutSessionHandler(stripeService))
		api.POST("/stripe/webhook", stripeWebhookHandler(stripeService, subscriptionStore, sessionService, messageBroker, m))
		api.GET("/stories", listStoriesHandler(storyStore))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func currentUser(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return nil, false
	}
	userModel, ok := user.(*models.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cast user to *models.User"})
		return nil, false
	}
	return userModel, true
}

func askQuestionHandler(sessionService *services.SessionService, entitlementService *services.EntitlementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Category string `json:"category" binding:"required"`
			Context  string `json:"context"`
		}

		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error(err.Error()))
			return
		}

		userModel, ok := currentUser(c)
		if !ok {
			return
		}

		sess := sessionService.GetOrCreate(c.Request.Context(), userModel.ID)

		msg, err := entitlementService.AskQuestion(c.Request.Context(), sess, request.Category, request.Context)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCategory) {
				apperrors.HandleError(c, apperrors.New400Error(fmt.Sprintf("Unknown category %q", request.Category)))
				return
			}
			if errors.Is(err, services.ErrQuotaExceeded) {
				apperrors.HandleError(c, apperrors.New402Error())
				return
			}
			apperrors.HandleError(c, apperrors.New502Error(err))
			return
		}

		remaining, unlimited := entitlementService.Remaining(sess)
		c.JSON(http.StatusOK, gin.H{
			"question":    msg,
			"daily_count": sess.CurrentCount(),
			"remaining":   remaining,
			"unlimited":   unlimited,
		})
	}
}

func questionHistoryHandler(sessionService *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userModel, ok := currentUser(c)
		if !ok {
			return
		}

		sess := sessionService.GetOrCreate(c.Request.Context(), userModel.ID)

		history := sess.History()
		messages := make([]gin.H, len(history))
		for i, msg := range history {
			messages[i] = gin.H{
				"id":        msg.ID,
				"content":   msg.Content,
				"category":  msg.Category,
				"timestamp": msg.Timestamp.Format(time.RFC3339),
			}
		}

		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}

func questionArchiveHandler(questionStore services.QuestionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userModel, ok := currentUser(c)
		if !ok {
			return
		}

		questions, err := questionStore.GetQuestionsByUserID(c.Request.Context(), userModel.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to retrieve question archive: %v", err)})
			return
		}

		archive := make([]gin.H, 0, len(questions))
		for _, q := range questions {
			archive = append(archive, gin.H{
				"content":   q.Content,
				"category":  q.Category,
				"timestamp": q.Timestamp.Format(time.RFC3339),
			})
		}

		c.JSON(http.StatusOK, gin.H{"questions": archive})
	}
}

func usageHandler(sessionService *services.SessionService, entitlementService *services.EntitlementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userModel, ok := currentUser(c)
		if !ok {
			return
		}

		sess := sessionService.GetOrCreate(c.Request.Context(), userModel.ID)
		remaining, unlimited := entitlementService.Remaining(sess)

		c.JSON(http.StatusOK, gin.H{
			"daily_count": sess.CurrentCount(),
			"daily_limit": services.FreeDailyLimit,
			"remaining":   remaining,
			"unlimited":   unlimited,
		})
	}
}

func subscriptionHandler(sessionService *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userModel, ok := currentUser(c)
		if !ok {
			return
		}

		sess := sessionService.GetOrCreate(c.Request.Context(), userModel.ID)
		sub := sess.CurrentSubscription()
		if sub == nil {
			c.JSON(http.StatusOK, gin.H{
				"status": models.SubscriptionStatusInactive,
				"plan":   models.PlanFree,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      sub.Status,
			"plan":        sub.Plan,
			"valid_until": sub.ValidUntil,
		})
	}
}

func createCheckoutSessionHandler(stripeService *services.StripeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userModel, ok := currentUser(c)
		if !ok {
			return
		}

		session, err := stripeService.CreateCheckoutSession(userModel.ID.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id": session.ID,
			"public_key": stripeService.PublicKey(),
		})
	}
}

func stripeWebhookHandler(
	stripeService *services.StripeService,
	subscriptionStore services.SubscriptionStore,
	sessionService *services.SessionService,
	messageBroker *broker.Broker,
	m *metrics.Metrics,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		const MaxBodyBytes = int64(65536)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
			return
		}

		signatureHeader := c.GetHeader("Stripe-Signature")
		event, err := stripeService.HandleWebhook(payload, signatureHeader)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to verify webhook signature"})
			return
		}

		m.WebhookEvents.WithLabelValues(string(event.Type)).Inc()

		switch event.Type {
		case "checkout.session.completed":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse checkout session"})
				return
			}

			userID, err := uuid.Parse(session.ClientReferenceID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user reference on checkout session"})
				return
			}

			validUntil := time.Now().Add(30 * 24 * time.Hour)
			if err := subscriptionStore.UpsertActive(c.Request.Context(), userID, models.PlanPremium, validUntil); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate subscription"})
				return
			}
			notifySubscriptionChange(c.Request.Context(), sessionService, messageBroker, userID, models.SubscriptionStatusActive)

		case "customer.subscription.deleted":
			var sub stripe.Subscription
			if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
				return
			}

			userID, err := uuid.Parse(sub.Metadata["userId"])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user reference on subscription"})
				return
			}

			if err := subscriptionStore.Deactivate(c.Request.Context(), userID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate subscription"})
				return
			}
			notifySubscriptionChange(c.Request.Context(), sessionService, messageBroker, userID, models.SubscriptionStatusInactive)
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// notifySubscriptionChange makes an already-open session observe the new
// billing state: the session cache is refreshed directly and connected
// websocket clients get a push.
func notifySubscriptionChange(ctx context.Context, sessionService *services.SessionService, messageBroker *broker.Broker, userID uuid.UUID, status string) {
	sessionService.RefreshSubscription(ctx, userID)
	messageBroker.Publish("subscription_update_"+userID.String(), broker.Event{
		Type:    "subscription_update",
		Payload: status,
	})
}

func listStoriesHandler(storyStore services.WebStoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		stories, err := storyStore.ListStories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stories"})
			return
		}

		out := make([]gin.H, 0, len(stories))
		for _, story := range stories {
			out = append(out, gin.H{
				"title":        story.Title,
				"description":  story.Description,
				"category":     story.Category,
				"slug":         story.Slug,
				"published_at": story.PublishedAt.Format(time.RFC3339),
			})
		}

		c.JSON(http.StatusOK, gin.H{"stories": out})
	}
}
