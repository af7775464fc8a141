package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"taskhub-collab-svc/src/internal/config"
	"taskhub-collab-svc/src/internal/models"
	"taskhub-collab-svc/src/internal/session"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Service interface {
	GetActiveSession(ctx context.Context, userID, sessionID string) (*session.Session, error)
	CacheActiveSession(ctx context.Context, session *session.Session) error
	UpdateSessionActivity(ctx context.Context, userID, sessionID string) error
	DropSession(ctx context.Context, userID, sessionID string) error
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

const sessionKeyPattern = "session:%s:%s" // session:userID:sessionID

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache,
	}
}

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf(sessionKeyPattern, userID, sessionID)
}

func (c *cacheService) GetActiveSession(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	key := sessionKey(userID, sessionID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.WithField("key", key).Debug("Session not found in cache")
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to get session from cache")
		return nil, models.ErrRedisGet
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to unmarshal session from cache")
		return nil, models.ErrRedisGet
	}

	return &s, nil
}

func (c *cacheService) CacheActiveSession(ctx context.Context, s *session.Session) error {
	key := sessionKey(s.UserID, s.SessionID)

	data, err := json.Marshal(s)
	if err != nil {
		logrus.WithError(err).WithField("session_id", s.SessionID).Error("Failed to marshal session for cache")
		return models.ErrRedisSet
	}

	expiration := time.Until(s.LastActiveAt.Add(time.Minute * time.Duration(c.cfg.SessionExpirationMinutes)))
	if expiration <= 0 {
		logrus.WithField("session_id", s.SessionID).Warn("Session already expired, not caching")
		return nil
	}

	err = c.client.Set(ctx, key, data, expiration).Err()
	if err != nil {
		logrus.WithError(err).WithField("session_id", s.SessionID).Error("Failed to cache session")
		return models.ErrRedisSet
	}

	logrus.WithField("session_id", s.SessionID).Debug("Session cached successfully")
	return nil
}

func (c *cacheService) UpdateSessionActivity(ctx context.Context, userID, sessionID string) error {
	s, err := c.GetActiveSession(ctx, userID, sessionID)
	if err != nil || s == nil {
		return err
	}

	s.LastActiveAt = time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal session for activity update")
		return models.ErrRedisSet
	}

	extendedTTL := time.Duration(c.cfg.SessionExpirationMinutes) * time.Minute
	err = c.client.Set(ctx, sessionKey(userID, sessionID), data, extendedTTL).Err()
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to update session activity")
		return models.ErrRedisSet
	}

	return nil
}

func (c *cacheService) DropSession(ctx context.Context, userID, sessionID string) error {
	key := sessionKey(userID, sessionID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to drop session from cache")
		return models.ErrRedisDelete
	}

	return nil
}
