package task

import (
	"taskhub-collab-svc/src/internal/realtime"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Status      string             `json:"status" bson:"status"`
	Priority    string             `json:"priority" bson:"priority"`
	ProjectID   string             `json:"projectId" bson:"project_id"`
	AssignedTo  string             `json:"assignedTo,omitempty" bson:"assigned_to,omitempty"`
	CreatedBy   string             `json:"createdBy" bson:"created_by"`
	DueDate     *time.Time         `json:"dueDate,omitempty" bson:"due_date,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Status constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Priority constants
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func IsValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// IsOverdue checks if the task is past its due date
func (t *Task) IsOverdue() bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == StatusCompleted || t.Status == StatusCancelled {
		return false
	}
	return time.Now().After(*t.DueDate)
}

// ToPayload converts the task to its wire representation
func (t *Task) ToPayload() *realtime.TaskPayload {
	return &realtime.TaskPayload{
		ID:          t.ID.Hex(),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		ProjectID:   t.ProjectID,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// CreateTaskRequest represents a new task
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Description string     `json:"description" binding:"max=5000"`
	ProjectID   string     `json:"projectId" binding:"required"`
	AssignedTo  string     `json:"assignedTo"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTaskRequest represents a task update
type UpdateTaskRequest struct {
	Title       string     `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	AssignedTo  *string    `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateStatusRequest changes a task's status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListTasksRequest filters the task list of a project
type ListTasksRequest struct {
	Status     string `json:"status" form:"status"`
	Priority   string `json:"priority" form:"priority"`
	AssignedTo string `json:"assignedTo" form:"assignedTo"`
	Overdue    bool   `json:"overdue" form:"overdue"`
}
