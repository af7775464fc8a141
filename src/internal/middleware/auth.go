package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"taskhub-collab-svc/src/internal/cache"
	"taskhub-collab-svc/src/internal/models"
	"taskhub-collab-svc/src/internal/session"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware handles authentication for the REST API
type AuthMiddleware struct {
	jwtSecret    string
	cacheService cache.Service
	sessionRepo  session.Repository
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtSecret string, cacheService cache.Service, sessionRepo session.Repository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:    jwtSecret,
		cacheService: cacheService,
		sessionRepo:  sessionRepo,
	}
}

// RequireAuth validates JWT token and session
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			c.Abort()
			return
		}

		claims, err := m.validateJWTToken(token)
		if err != nil {
			logrus.WithError(err).Error("JWT token validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		isValidSession, err := m.validateSession(c.Request.Context(), claims.SessionID, claims.UserID)
		if err != nil {
			logrus.WithError(err).Error("Session validation failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Session validation error",
			})
			c.Abort()
			return
		}

		if !isValidSession {
			logrus.WithField("session_id", claims.SessionID).Warn("Session is invalid or expired")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Session expired - please login again",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)
		c.Set("username", claims.Username)

		logrus.WithFields(logrus.Fields{
			"user_id":    claims.UserID,
			"session_id": claims.SessionID,
		}).Debug("User authenticated successfully")

		c.Next()
	}
}

// extractToken extracts JWT token from Authorization header
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		logrus.Error("Invalid authorization header format")
		return ""
	}

	return strings.TrimPrefix(authHeader, "Bearer ")
}

// validateJWTToken parses and validates JWT token (checks signature and expiration)
func (m *AuthMiddleware) validateJWTToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(m.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token expired")
		}
		return nil, errors.New("invalid token")
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	if claims.TokenType != models.TokenTypeAccess {
		return nil, errors.New("invalid token type")
	}

	return claims, nil
}

// validateSession checks session validity in Redis first, then MongoDB fallback
func (m *AuthMiddleware) validateSession(ctx context.Context, sessionID, userID string) (bool, error) {
	cached, err := m.cacheService.GetActiveSession(ctx, userID, sessionID)
	if err == nil && cached != nil {
		if !cached.IsValid(time.Now()) {
			return false, nil
		}
		m.cacheService.UpdateSessionActivity(ctx, userID, sessionID)
		m.sessionRepo.UpdateActivity(ctx, sessionID)
		return true, nil
	}

	sess, err := m.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	if !sess.IsValid(time.Now()) {
		logrus.WithField("session_id", sessionID).Warn("Session is inactive or expired")
		return false, nil
	}

	sess.LastActiveAt = time.Now()
	m.sessionRepo.UpdateActivity(ctx, sessionID)
	m.cacheService.CacheActiveSession(ctx, sess)

	logrus.WithField("session_id", sessionID).Debug("Session validated from MongoDB")
	return true, nil
}
