package task

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
	Create(c *gin.Context)
	ListByProject(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	UpdateStatus(c *gin.Context)
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

func (h *handler) Create(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	t, err := h.service.Create(ctx, c.GetString("user_id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    t,
		"message": "Task created successfully",
	})
}

func (h *handler) ListByProject(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var filter ListTasksRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	tasks, err := h.service.ListByProject(ctx, c.GetString("user_id"), c.Param("id"), &filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tasks,
	})
}

func (h *handler) Get(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	t, err := h.service.Get(ctx, c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    t,
	})
}

func (h *handler) Update(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	t, err := h.service.Update(ctx, c.GetString("user_id"), c.Param("id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    t,
		"message": "Task updated successfully",
	})
}

func (h *handler) UpdateStatus(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	t, err := h.service.UpdateStatus(ctx, c.GetString("user_id"), c.Param("id"), req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    t,
		"message": "Task status updated successfully",
	})
}

func (h *handler) Delete(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.service.Delete(ctx, c.GetString("user_id"), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted successfully",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrTaskNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Task not found", "No task found with the provided ID")
	case errors.Is(err, models.ErrProjectNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Project not found", "No project found with the provided ID")
	case errors.Is(err, models.ErrForbidden):
		h.sendErrorResponse(c, http.StatusForbidden, "Access forbidden", "You do not have permission for this action")
	case errors.Is(err, models.ErrInvalidStatus):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid status", "Valid statuses are pending, in_progress, completed and cancelled")
	case errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request", "Please check the provided parameters")
	default:
		logrus.WithError(err).Error("Task request failed")
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
