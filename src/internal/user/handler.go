package user

import (
	"context"
	"errors"
	"net/http"
	"taskhub-collab-svc/src/internal/config"
	"taskhub-collab-svc/src/internal/models"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Refresh(c *gin.Context)
	Logout(c *gin.Context)
	GetProfile(c *gin.Context)
	UpdateProfile(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

func (h *handler) Register(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	response, err := h.service.Register(ctx, &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    response,
		"message": "User registered successfully",
	})
}

func (h *handler) Login(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	response, err := h.service.Login(ctx, &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
		"message": "Login successful",
	})
}

func (h *handler) Refresh(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	response, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
		"message": "Token refreshed",
	})
}

func (h *handler) Logout(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := c.GetString("user_id")
	sessionID := c.GetString("session_id")

	if err := h.service.Logout(ctx, userID, sessionID); err != nil {
		logrus.WithError(err).Error("Logout failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Logout failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *handler) GetProfile(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	profile, err := h.service.GetProfile(ctx, c.GetString("user_id"))
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}

func (h *handler) UpdateProfile(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(ctx, c.GetString("user_id"), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
		"message": "Profile updated",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrDuplicateUser):
		h.sendErrorResponse(c, http.StatusConflict, "User already exists", "Username or email is already taken")
	case errors.Is(err, models.ErrUnauthorized):
		h.sendErrorResponse(c, http.StatusUnauthorized, "Invalid credentials", "Invalid username or password")
	case errors.Is(err, models.ErrSessionExpired):
		h.sendErrorResponse(c, http.StatusUnauthorized, "Session expired", "Please login again")
	case errors.Is(err, models.ErrUserInactive):
		h.sendErrorResponse(c, http.StatusForbidden, "Account inactive", "This account has been deactivated")
	case errors.Is(err, models.ErrUserNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "User not found", "No user found with the provided ID")
	default:
		logrus.WithError(err).Error("Auth request failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Request failed", err.Error())
	}
}

func (h *handler) sendErrorResponse(c *gin.Context, statusCode int, error, message string) {
	c.JSON(statusCode, gin.H{
		"error":   error,
		"success": false,
		"message": message,
	})
}
