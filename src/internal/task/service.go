package task

import (
	"context"
	"errors"
	"fmt"
	"taskhub-collab-svc/src/internal/models"
	"taskhub-collab-svc/src/internal/notify"
	"taskhub-collab-svc/src/internal/project"
	"taskhub-collab-svc/src/internal/realtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Memberships resolves project roles for permission checks.
type Memberships interface {
	GetMember(ctx context.Context, projectID, userID string) (*project.Member, error)
}

// UserDirectory resolves display names for event payloads and notifications.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type Service interface {
	Create(ctx context.Context, userID string, req *CreateTaskRequest) (*Task, error)
	Get(ctx context.Context, userID, taskID string) (*Task, error)
	ListByProject(ctx context.Context, userID, projectID string, filter *ListTasksRequest) ([]*Task, error)
	Update(ctx context.Context, userID, taskID string, req *UpdateTaskRequest) (*Task, error)
	UpdateStatus(ctx context.Context, userID, taskID, status string) (*Task, error)
	Delete(ctx context.Context, userID, taskID string) error

	// ProjectOf backs the realtime layer's task directory collaborator
	// interface.
	ProjectOf(ctx context.Context, taskID string) (string, error)
}

type taskService struct {
	repository  Repository
	memberships Memberships
	users       UserDirectory
	events      realtime.Events
	publisher   notify.Publisher
}

func NewTaskService(repository Repository, memberships Memberships, users UserDirectory, events realtime.Events, publisher notify.Publisher) Service {
	return &taskService{
		repository:  repository,
		memberships: memberships,
		users:       users,
		events:      events,
		publisher:   publisher,
	}
}

func (s *taskService) Create(ctx context.Context, userID string, req *CreateTaskRequest) (*Task, error) {
	member, err := s.requireMember(ctx, req.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if !member.CanManageTasks() {
		return nil, models.ErrForbidden
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !IsValidPriority(priority) {
		return nil, models.ErrInvalidParams
	}

	if req.AssignedTo != "" {
		if _, err := s.requireMember(ctx, req.ProjectID, req.AssignedTo); err != nil {
			return nil, err
		}
	}

	t, err := s.repository.Create(ctx, &Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusPending,
		Priority:    priority,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   userID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"task_id":    t.ID.Hex(),
		"project_id": t.ProjectID,
		"user_id":    userID,
	}).Info("Task created")

	s.events.TaskCreated(t.ToPayload(), s.actorRef(ctx, userID))

	if t.AssignedTo != "" && t.AssignedTo != userID {
		s.notifyAssignee(ctx, t, "task_assigned",
			fmt.Sprintf("You were assigned to task \"%s\"", t.Title))
	}

	return t, nil
}

func (s *taskService) Get(ctx context.Context, userID, taskID string) (*Task, error) {
	t, err := s.repository.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, t.ProjectID, userID); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *taskService) ListByProject(ctx context.Context, userID, projectID string, filter *ListTasksRequest) ([]*Task, error) {
	if _, err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}

	tasks, err := s.repository.ListByProject(ctx, projectID, filter)
	if err != nil {
		return nil, err
	}

	// Overdue is derived from the due date and status, so it cannot be
	// pushed into the repository query.
	if filter != nil && filter.Overdue {
		overdue := tasks[:0]
		for _, t := range tasks {
			if t.IsOverdue() {
				overdue = append(overdue, t)
			}
		}
		tasks = overdue
	}

	return tasks, nil
}

func (s *taskService) Update(ctx context.Context, userID, taskID string, req *UpdateTaskRequest) (*Task, error) {
	t, _, err := s.authorizeChange(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	previousAssignee := t.AssignedTo

	if req.Title != "" {
		t.Title = req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != "" {
		if !IsValidPriority(req.Priority) {
			return nil, models.ErrInvalidParams
		}
		t.Priority = req.Priority
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo != "" {
			if _, err := s.requireMember(ctx, t.ProjectID, *req.AssignedTo); err != nil {
				return nil, err
			}
		}
		t.AssignedTo = *req.AssignedTo
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}

	if err := s.repository.Update(ctx, t); err != nil {
		return nil, err
	}

	s.events.TaskUpdated(t.ToPayload(), s.actorRef(ctx, userID))

	if t.AssignedTo != "" && t.AssignedTo != previousAssignee && t.AssignedTo != userID {
		s.notifyAssignee(ctx, t, "task_assigned",
			fmt.Sprintf("You were assigned to task \"%s\"", t.Title))
	}

	return t, nil
}

func (s *taskService) UpdateStatus(ctx context.Context, userID, taskID, status string) (*Task, error) {
	if !IsValidStatus(status) {
		return nil, models.ErrInvalidStatus
	}

	t, _, err := s.authorizeChange(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	oldStatus := t.Status
	if oldStatus == status {
		return t, nil
	}

	t.Status = status
	if err := s.repository.Update(ctx, t); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"task_id":    taskID,
		"old_status": oldStatus,
		"new_status": status,
		"user_id":    userID,
	}).Info("Task status changed")

	s.events.TaskStatusChanged(t.ToPayload(), oldStatus, s.actorRef(ctx, userID))

	if t.AssignedTo != "" && t.AssignedTo != userID {
		s.notifyAssignee(ctx, t, "task_status_changed",
			fmt.Sprintf("Task \"%s\" moved to %s", t.Title, status))
	}

	return t, nil
}

func (s *taskService) Delete(ctx context.Context, userID, taskID string) error {
	t, err := s.repository.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	member, err := s.requireMember(ctx, t.ProjectID, userID)
	if err != nil {
		return err
	}
	// Deleting takes more than editing: the creator or a project
	// owner/admin, not the assignee.
	if t.CreatedBy != userID && member.Role != project.RoleOwner && member.Role != project.RoleAdmin {
		return models.ErrForbidden
	}

	if err := s.repository.Delete(ctx, taskID); err != nil {
		return err
	}

	s.events.TaskDeleted(taskID, t.ProjectID, t.Title, s.actorRef(ctx, userID))

	return nil
}

func (s *taskService) ProjectOf(ctx context.Context, taskID string) (string, error) {
	t, err := s.repository.GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}
	return t.ProjectID, nil
}

// authorizeChange loads the task and verifies the user may modify it: the
// creator, the assignee, or a project owner/admin.
func (s *taskService) authorizeChange(ctx context.Context, userID, taskID string) (*Task, *project.Member, error) {
	t, err := s.repository.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	member, err := s.requireMember(ctx, t.ProjectID, userID)
	if err != nil {
		return nil, nil, err
	}

	if t.CreatedBy != userID && t.AssignedTo != userID &&
		member.Role != project.RoleOwner && member.Role != project.RoleAdmin {
		return nil, nil, models.ErrForbidden
	}

	return t, member, nil
}

func (s *taskService) requireMember(ctx context.Context, projectID, userID string) (*project.Member, error) {
	member, err := s.memberships.GetMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ErrForbidden
		}
		return nil, err
	}
	return member, nil
}

// notifyAssignee pushes a realtime notification to the assignee's live
// sessions and publishes a durable copy for offline delivery.
func (s *taskService) notifyAssignee(ctx context.Context, t *Task, kind, message string) {
	s.events.NotifyUser(t.AssignedTo, realtime.NotificationData{
		Type:      kind,
		Message:   message,
		TaskID:    t.ID.Hex(),
		ProjectID: t.ProjectID,
	})

	err := s.publisher.PublishNotification(&models.NotificationMessage{
		UserID:    t.AssignedTo,
		Type:      kind,
		Message:   message,
		TaskID:    t.ID.Hex(),
		ProjectID: t.ProjectID,
		Timestamp: time.Now(),
	})
	if err != nil {
		logrus.WithError(err).WithField("task_id", t.ID.Hex()).Warn("Failed to publish notification")
	}
}

func (s *taskService) actorRef(ctx context.Context, userID string) realtime.UserRef {
	name, err := s.users.DisplayName(ctx, userID)
	if err != nil {
		name = userID
	}
	return realtime.UserRef{ID: userID, FullName: name}
}
