package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"askboyfriend_go_backend/cmd/api/config"
	"askboyfriend_go_backend/internal/api"
	"askboyfriend_go_backend/internal/auth"
	"askboyfriend_go_backend/internal/broker"
	"askboyfriend_go_backend/internal/database"
	"askboyfriend_go_backend/internal/metrics"
	"askboyfriend_go_backend/internal/services"
	"askboyfriend_go_backend/internal/wsocket"

	"github.com/gorilla/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	genaiAPIKey := os.Getenv("GOOGLE_AI_STUDIO_API_KEY")
	if genaiAPIKey == "" {
		log.Fatal("GOOGLE_AI_STUDIO_API_KEY is not set in the environment")
	}

	ctx := context.Background()
	cfg := config.NewConfig()

	database.InitDB()

	// Initialize external services clients
	stripePublicKey := os.Getenv("STRIPE_PUBLIC_KEY")
	stripeSecretKey := os.Getenv("STRIPE_SECRET_KEY")
	stripeService := services.NewStripeService(stripePublicKey, stripeSecretKey)

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(genaiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}
	defer genaiClient.Close()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	messageBroker := broker.NewBroker()

	// Canonical counter store: Postgres by default, Redis when configured.
	var usageStore services.UsageStore
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		usageStore = services.NewRedisUsageStore(redisClient)
		log.Printf("Using Redis usage store at %s", redisAddr)
	} else {
		usageStore = services.NewUsageServiceDB(database.DB)
	}

	// Initialize Internal services
	subscriptionStore := services.NewSubscriptionServiceDB(database.DB)
	questionStore := services.NewQuestionServiceDB(database.DB)
	storyStore := services.NewStoryServiceDB(database.DB)
	userService := services.NewUserService(database.DB)
	questionService := services.NewQuestionService(genaiClient, cfg.GenerationModel)

	entitlementService := services.NewEntitlementService(
		usageStore,
		subscriptionStore,
		questionStore,
		questionService,
		m,
	)

	sessionService := services.NewSessionService(
		entitlementService,
		cfg.SessionIdleTimeout,
		cfg.SessionCheckInterval,
		m,
	)

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173" // Default to your local frontend
	}

	// CORS middleware configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// WebSocket upgrader
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // TODO: Implement a more secure check in production
		},
	}

	// Create WebSocket handler
	wsHandler := wsocket.NewHandler(sessionService, entitlementService, upgrader, cfg.UsageStatusInterval)

	api.SetupRoutes(r, sessionService, entitlementService, subscriptionStore, questionStore, storyStore, stripeService, userService, messageBroker, m)
	auth.SetupRoutes(r, userService, sessionService)

	// Add WebSocket route
	r.GET("/ws", auth.AuthMiddleware(userService), func(c *gin.Context) {
		user, _ := c.Get("user")
		wsHandler.HandleWebSocket(c.Writer, c.Request, user, messageBroker)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
