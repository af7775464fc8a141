package comment

import (
	"context"
	"errors"
	"fmt"
	"taskhub-collab-svc/src/internal/models"
	"taskhub-collab-svc/src/internal/notify"
	"taskhub-collab-svc/src/internal/project"
	"taskhub-collab-svc/src/internal/realtime"
	"taskhub-collab-svc/src/internal/task"
	"time"

	"github.com/sirupsen/logrus"
)

// TaskDirectory loads tasks with the caller's membership already enforced.
type TaskDirectory interface {
	Get(ctx context.Context, userID, taskID string) (*task.Task, error)
}

// Memberships resolves project roles for permission checks.
type Memberships interface {
	GetMember(ctx context.Context, projectID, userID string) (*project.Member, error)
}

// UserDirectory resolves display names for event payloads and notifications.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type Service interface {
	Add(ctx context.Context, userID, taskID string, req *AddCommentRequest) (*Comment, error)
	ListByTask(ctx context.Context, userID, taskID string) ([]*Comment, error)
	Delete(ctx context.Context, userID, commentID string) error
}

type commentService struct {
	repository  Repository
	tasks       TaskDirectory
	memberships Memberships
	users       UserDirectory
	events      realtime.Events
	publisher   notify.Publisher
}

func NewCommentService(repository Repository, tasks TaskDirectory, memberships Memberships, users UserDirectory, events realtime.Events, publisher notify.Publisher) Service {
	return &commentService{
		repository:  repository,
		tasks:       tasks,
		memberships: memberships,
		users:       users,
		events:      events,
		publisher:   publisher,
	}
}

func (s *commentService) Add(ctx context.Context, userID, taskID string, req *AddCommentRequest) (*Comment, error) {
	t, err := s.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	c, err := s.repository.Create(ctx, &Comment{
		TaskID: taskID,
		UserID: userID,
		Text:   req.Text,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"comment_id": c.ID.Hex(),
		"task_id":    taskID,
		"user_id":    userID,
	}).Info("Comment added")

	actor := s.actorRef(ctx, userID)
	s.events.CommentAdded(c.ToPayload(), t.ToPayload(), actor)

	message := fmt.Sprintf("%s commented on task \"%s\"", actor.FullName, t.Title)
	for _, target := range []string{t.CreatedBy, t.AssignedTo} {
		if target == "" || target == userID {
			continue
		}
		s.notifyUser(target, t, message)
	}

	return c, nil
}

func (s *commentService) ListByTask(ctx context.Context, userID, taskID string) ([]*Comment, error) {
	if _, err := s.tasks.Get(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return s.repository.ListByTask(ctx, taskID)
}

func (s *commentService) Delete(ctx context.Context, userID, commentID string) error {
	c, err := s.repository.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	t, err := s.tasks.Get(ctx, userID, c.TaskID)
	if err != nil {
		return err
	}

	// The author may remove their own comment; otherwise it takes a
	// project owner or admin.
	if c.UserID != userID {
		member, err := s.memberships.GetMember(ctx, t.ProjectID, userID)
		if err != nil {
			if errors.Is(err, models.ErrRecordNotFound) {
				return models.ErrForbidden
			}
			return err
		}
		if member.Role != project.RoleOwner && member.Role != project.RoleAdmin {
			return models.ErrForbidden
		}
	}

	return s.repository.Delete(ctx, commentID)
}

func (s *commentService) notifyUser(userID string, t *task.Task, message string) {
	s.events.NotifyUser(userID, realtime.NotificationData{
		Type:      "comment_added",
		Message:   message,
		TaskID:    t.ID.Hex(),
		ProjectID: t.ProjectID,
	})

	err := s.publisher.PublishNotification(&models.NotificationMessage{
		UserID:    userID,
		Type:      "comment_added",
		Message:   message,
		TaskID:    t.ID.Hex(),
		ProjectID: t.ProjectID,
		Timestamp: time.Now(),
	})
	if err != nil {
		logrus.WithError(err).WithField("task_id", t.ID.Hex()).Warn("Failed to publish notification")
	}
}

func (s *commentService) actorRef(ctx context.Context, userID string) realtime.UserRef {
	name, err := s.users.DisplayName(ctx, userID)
	if err != nil {
		name = userID
	}
	return realtime.UserRef{ID: userID, FullName: name}
}
