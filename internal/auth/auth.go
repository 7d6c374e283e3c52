package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"askboyfriend_go_backend/internal/models"
	"askboyfriend_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func SetupRoutes(r *gin.Engine, userService *services.UserService, sessionService *services.SessionService) {
	auth := r.Group("/auth")
	{
		auth.GET("/user", AuthMiddleware(userService), getUser)
		auth.POST("/logout", AuthMiddleware(userService), logoutHandler(sessionService))
	}
}

func AuthMiddleware(userService *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		// Extract token. Check if it's a WebSocket upgrade request first.
		if websocket.IsWebSocketUpgrade(c.Request) {
			// WebSocket connections carry the token as a query parameter
			token = c.Query("token")
		} else {
			authHeader := c.GetHeader("Authorization")

			if authHeader == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
				c.Abort()
				return
			}

			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
				c.Abort()
				return
			}
			token = bearerToken[1]
		}

		claims, err := verifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		// Extract user info from claims
		supabaseID, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		name := nameFromClaims(claims)

		// Create or update user in database
		user, err := userService.CreateOrUpdateUser(c.Request.Context(), supabaseID, email, name)
		if err != nil {
			log.Error().Err(err).Str("supabase_id", supabaseID).Msg("Failed to upsert user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process user information"})
			c.Abort()
			return
		}

		// Set the user in the context
		c.Set("user", user)
		c.Next()
	}
}

func getUser(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func logoutHandler(sessionService *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}
		userModel, ok := user.(*models.User)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cast user to *models.User"})
			return
		}
		sessionService.Drop(userModel.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// verifyToken checks a Supabase access token. Supabase signs with a shared
// HS256 secret rather than a JWKS endpoint.
func verifyToken(tokenString string) (jwt.MapClaims, error) {
	secret := os.Getenv("SUPABASE_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("auth is not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// nameFromClaims digs the display name out of Supabase's user_metadata claim.
func nameFromClaims(claims jwt.MapClaims) string {
	meta, ok := claims["user_metadata"].(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := meta["name"].(string)
	return name
}
