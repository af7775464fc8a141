package user

import (
	"context"
	"errors"
	"taskhub-collab-svc/src/internal/cache"
	"taskhub-collab-svc/src/internal/config"
	"taskhub-collab-svc/src/internal/models"
	"taskhub-collab-svc/src/internal/notify"
	"taskhub-collab-svc/src/internal/session"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, userID, sessionID string) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*Profile, error)

	// VerifyCredential and DisplayName back the realtime layer's identity
	// collaborator interface.
	VerifyCredential(ctx context.Context, token string) (string, error)
	DisplayName(ctx context.Context, userID string) (string, error)
}

type userService struct {
	userRepository    Repository
	sessionRepository session.Repository
	cacheService      cache.Service
	publisher         notify.Publisher
	cfg               *config.Configuration
}

func NewUserService(
	userRepository Repository,
	sessionRepository session.Repository,
	cacheService cache.Service,
	publisher notify.Publisher,
	cfg *config.Configuration,
) Service {
	return &userService{
		userRepository:    userRepository,
		sessionRepository: sessionRepository,
		cacheService:      cacheService,
		publisher:         publisher,
		cfg:               cfg,
	}
}

func (s *userService) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	exists, err := s.userRepository.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrDuplicateUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash password")
		return nil, err
	}

	u, err := s.userRepository.Create(ctx, &User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  u.ID.Hex(),
		"username": u.Username,
	}).Info("User registered")

	response, sessionID, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishActivity(u.ID.Hex(), sessionID, models.ActionRegistered); err != nil {
		logrus.WithError(err).Warn("Failed to publish registration activity")
	}

	return response, nil
}

func (s *userService) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	u, err := s.userRepository.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		logrus.WithField("username", req.Username).Warn("Invalid login attempt")
		return nil, models.ErrUnauthorized
	}

	if !u.IsActive {
		return nil, models.ErrUserInactive
	}

	response, sessionID, err := s.openSession(ctx, u)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    u.ID.Hex(),
		"session_id": sessionID,
	}).Info("User logged in")

	if err := s.publisher.PublishActivity(u.ID.Hex(), sessionID, models.ActionLoggedIn); err != nil {
		logrus.WithError(err).Warn("Failed to publish login activity")
	}

	return response, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, models.ErrUnauthorized
	}
	if claims.TokenType != models.TokenTypeRefresh {
		return nil, models.ErrUnauthorized
	}

	sess, err := s.sessionRepository.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, models.ErrUnauthorized
	}
	if !sess.IsValid(time.Now()) {
		return nil, models.ErrSessionExpired
	}

	u, err := s.userRepository.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	accessToken, newRefreshToken, err := s.generateTokens(u, claims.SessionID)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishActivity(u.ID.Hex(), claims.SessionID, models.ActionTokenRefresh); err != nil {
		logrus.WithError(err).Warn("Failed to publish refresh activity")
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         u.ToProfile(),
	}, nil
}

func (s *userService) Logout(ctx context.Context, userID, sessionID string) error {
	if err := s.sessionRepository.Invalidate(ctx, sessionID); err != nil {
		return err
	}

	if err := s.cacheService.DropSession(ctx, userID, sessionID); err != nil {
		logrus.WithError(err).Warn("Failed to drop session from cache on logout")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
	}).Info("User logged out")

	if err := s.publisher.PublishActivity(userID, sessionID, models.ActionLoggedOut); err != nil {
		logrus.WithError(err).Warn("Failed to publish logout activity")
	}

	return nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.userRepository.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.ToProfile(), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*Profile, error) {
	u, err := s.userRepository.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != "" {
		u.FullName = req.FullName
	}
	if req.Email != "" {
		u.Email = req.Email
	}

	if err := s.userRepository.Update(ctx, u); err != nil {
		return nil, err
	}

	return u.ToProfile(), nil
}

// VerifyCredential validates an access token and its backing session and
// returns the authenticated user id.
func (s *userService) VerifyCredential(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", models.ErrUnauthorized
	}
	if claims.TokenType != models.TokenTypeAccess {
		return "", models.ErrUnauthorized
	}

	cached, err := s.cacheService.GetActiveSession(ctx, claims.UserID, claims.SessionID)
	if err == nil && cached != nil && cached.IsValid(time.Now()) {
		return claims.UserID, nil
	}

	sess, err := s.sessionRepository.GetByID(ctx, claims.SessionID)
	if err != nil {
		return "", models.ErrUnauthorized
	}
	if !sess.IsValid(time.Now()) {
		return "", models.ErrUnauthorized
	}

	if err := s.cacheService.CacheActiveSession(ctx, sess); err != nil {
		logrus.WithError(err).Debug("Failed to re-cache session after credential check")
	}

	return claims.UserID, nil
}

func (s *userService) DisplayName(ctx context.Context, userID string) (string, error) {
	u, err := s.userRepository.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.FullName, nil
}

// openSession persists a new login session, caches it and issues tokens.
func (s *userService) openSession(ctx context.Context, u *User) (*TokenResponse, string, error) {
	now := time.Now()
	sess := &session.Session{
		SessionID:    uuid.NewString(),
		UserID:       u.ID.Hex(),
		IsActive:     true,
		ExpiresAt:    now.Add(time.Duration(s.cfg.Security.RefreshTokenHours) * time.Hour),
		CreatedAt:    now,
		LastActiveAt: now,
	}

	if err := s.sessionRepository.Create(ctx, sess); err != nil {
		return nil, "", err
	}

	if err := s.cacheService.CacheActiveSession(ctx, sess); err != nil {
		logrus.WithError(err).Warn("Failed to cache new session")
	}

	accessToken, refreshToken, err := s.generateTokens(u, sess.SessionID)
	if err != nil {
		return nil, "", err
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         u.ToProfile(),
	}, sess.SessionID, nil
}

func (s *userService) generateTokens(u *User, sessionID string) (string, string, error) {
	now := time.Now()

	accessClaims := &models.Claims{
		UserID:    u.ID.Hex(),
		SessionID: sessionID,
		Username:  u.Username,
		TokenType: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.Security.AccessTokenMinutes) * time.Minute)),
			Subject:   u.ID.Hex(),
		},
	}

	refreshClaims := &models.Claims{
		UserID:    u.ID.Hex(),
		SessionID: sessionID,
		Username:  u.Username,
		TokenType: models.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.cfg.Security.RefreshTokenHours) * time.Hour)),
			Subject:   u.ID.Hex(),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.Security.JwtKey))
	if err != nil {
		return "", "", err
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.Security.JwtKey))
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *userService) parseToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.cfg.Security.JwtKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token expired")
		}
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
