package comment

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
	Add(c *gin.Context)
	ListByTask(c *gin.Context)
	Delete(c *gin.Context)
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

func (h *handler) Add(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	comment, err := h.service.Add(ctx, c.GetString("user_id"), c.Param("id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    comment,
		"message": "Comment added successfully",
	})
}

func (h *handler) ListByTask(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	comments, err := h.service.ListByTask(ctx, c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    comments,
	})
}

func (h *handler) Delete(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.service.Delete(ctx, c.GetString("user_id"), c.Param("commentId")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Comment deleted successfully",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrCommentNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Comment not found", "No comment found with the provided ID")
	case errors.Is(err, models.ErrTaskNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Task not found", "No task found with the provided ID")
	case errors.Is(err, models.ErrForbidden):
		h.sendErrorResponse(c, http.StatusForbidden, "Access forbidden", "You do not have permission for this action")
	case errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request", "Please check the provided parameters")
	default:
		logrus.WithError(err).Error("Comment request failed")
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
