package project

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
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	Members(c *gin.Context)
	AddMember(c *gin.Context)
	RemoveMember(c *gin.Context)
	UpdateMemberRole(c *gin.Context)
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

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	p, err := h.service.Create(ctx, c.GetString("user_id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    p,
		"message": "Project created successfully",
	})
}

func (h *handler) List(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	projects, err := h.service.List(ctx, c.GetString("user_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    projects,
	})
}

func (h *handler) Get(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	p, err := h.service.Get(ctx, c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    p,
	})
}

func (h *handler) Update(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	p, err := h.service.Update(ctx, c.GetString("user_id"), c.Param("id"), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    p,
		"message": "Project updated successfully",
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
		"message": "Project deleted successfully",
	})
}

func (h *handler) Members(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	members, err := h.service.Members(ctx, c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    members,
	})
}

func (h *handler) AddMember(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	if err := h.service.AddMember(ctx, c.GetString("user_id"), c.Param("id"), &req); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Member added successfully",
	})
}

func (h *handler) RemoveMember(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	err := h.service.RemoveMember(ctx, c.GetString("user_id"), c.Param("id"), c.Param("userId"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Member removed successfully",
	})
}

func (h *handler) UpdateMemberRole(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Validation error", err.Error())
		return
	}

	err := h.service.UpdateMemberRole(ctx, c.GetString("user_id"), c.Param("id"), c.Param("userId"), req.Role)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Member role updated successfully",
	})
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrProjectNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Project not found", "No project found with the provided ID")
	case errors.Is(err, models.ErrRecordNotFound):
		h.sendErrorResponse(c, http.StatusNotFound, "Member not found", "No such project member")
	case errors.Is(err, models.ErrForbidden):
		h.sendErrorResponse(c, http.StatusForbidden, "Access forbidden", "You do not have permission for this action")
	case errors.Is(err, models.ErrInvalidRole):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid role", "Valid roles are admin, member and viewer")
	case errors.Is(err, models.ErrInvalidParams):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid project ID", "Please provide a valid project ID")
	default:
		logrus.WithError(err).Error("Project request failed")
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
