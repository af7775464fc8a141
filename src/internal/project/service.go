package project

import (
	"context"
	"errors"
	"taskhub-collab-svc/src/internal/models"
	"taskhub-collab-svc/src/internal/realtime"

	"github.com/sirupsen/logrus"
)

// UserDirectory resolves display names for event payloads and notifications.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// TaskPurger removes the tasks of a deleted project so they do not linger
// under a project nobody can open anymore. Satisfied by the task repository.
type TaskPurger interface {
	DeleteByProject(ctx context.Context, projectID string) error
}

type Service interface {
	Create(ctx context.Context, ownerID string, req *CreateProjectRequest) (*Project, error)
	Get(ctx context.Context, userID, projectID string) (*Project, error)
	List(ctx context.Context, userID string) ([]*Project, error)
	Update(ctx context.Context, userID, projectID string, req *UpdateProjectRequest) (*Project, error)
	Delete(ctx context.Context, userID, projectID string) error

	Members(ctx context.Context, userID, projectID string) ([]*Member, error)
	AddMember(ctx context.Context, actorID, projectID string, req *AddMemberRequest) error
	RemoveMember(ctx context.Context, actorID, projectID, userID string) error
	UpdateMemberRole(ctx context.Context, actorID, projectID, userID, role string) error

	// IsMember backs the realtime layer's membership collaborator
	// interface.
	IsMember(ctx context.Context, userID, projectID string) (bool, error)
}

type projectService struct {
	repository Repository
	tasks      TaskPurger
	users      UserDirectory
	events     realtime.Events
}

func NewProjectService(repository Repository, tasks TaskPurger, users UserDirectory, events realtime.Events) Service {
	return &projectService{
		repository: repository,
		tasks:      tasks,
		users:      users,
		events:     events,
	}
}

func (s *projectService) Create(ctx context.Context, ownerID string, req *CreateProjectRequest) (*Project, error) {
	p, err := s.repository.Create(ctx, &Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, err
	}

	err = s.repository.AddMember(ctx, &Member{
		ProjectID: p.ID.Hex(),
		UserID:    ownerID,
		Role:      RoleOwner,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"project_id": p.ID.Hex(),
		"owner_id":   ownerID,
	}).Info("Project created")

	return p, nil
}

func (s *projectService) Get(ctx context.Context, userID, projectID string) (*Project, error) {
	if _, err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repository.GetByID(ctx, projectID)
}

func (s *projectService) List(ctx context.Context, userID string) ([]*Project, error) {
	return s.repository.ListForUser(ctx, userID)
}

func (s *projectService) Update(ctx context.Context, userID, projectID string, req *UpdateProjectRequest) (*Project, error) {
	member, err := s.requireMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !member.CanEditProject() {
		return nil, models.ErrForbidden
	}

	p, err := s.repository.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}

	if err := s.repository.Update(ctx, p); err != nil {
		return nil, err
	}

	s.events.ProjectUpdated(&realtime.ProjectPayload{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		UpdatedAt:   p.UpdatedAt,
	}, s.actorRef(ctx, userID))

	return p, nil
}

func (s *projectService) Delete(ctx context.Context, userID, projectID string) error {
	member, err := s.requireMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !member.CanDeleteProject() {
		return models.ErrForbidden
	}

	if err := s.repository.Delete(ctx, projectID); err != nil {
		return err
	}

	if err := s.tasks.DeleteByProject(ctx, projectID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"project_id": projectID,
		"user_id":    userID,
	}).Info("Project deleted")

	return nil
}

func (s *projectService) Members(ctx context.Context, userID, projectID string) ([]*Member, error) {
	if _, err := s.requireMember(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.repository.ListMembers(ctx, projectID)
}

func (s *projectService) AddMember(ctx context.Context, actorID, projectID string, req *AddMemberRequest) error {
	actor, err := s.requireMember(ctx, projectID, actorID)
	if err != nil {
		return err
	}
	if !actor.CanManageMembers() {
		return models.ErrForbidden
	}

	role := req.Role
	if role == "" {
		role = RoleMember
	}
	if !IsValidRole(role) || role == RoleOwner {
		return models.ErrInvalidRole
	}

	err = s.repository.AddMember(ctx, &Member{
		ProjectID: projectID,
		UserID:    req.UserID,
		Role:      role,
	})
	if err != nil {
		return err
	}

	p, err := s.repository.GetByID(ctx, projectID)
	if err == nil {
		s.events.NotifyUser(req.UserID, realtime.NotificationData{
			Type:      "added_to_project",
			Message:   "You were added to project \"" + p.Name + "\"",
			ProjectID: projectID,
		})
	}

	return nil
}

func (s *projectService) RemoveMember(ctx context.Context, actorID, projectID, userID string) error {
	actor, err := s.requireMember(ctx, projectID, actorID)
	if err != nil {
		return err
	}
	// Anyone may leave; removing someone else takes member management
	// rights. The owner cannot be removed.
	if actorID != userID && !actor.CanManageMembers() {
		return models.ErrForbidden
	}

	target, err := s.repository.GetMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if target.Role == RoleOwner {
		return models.ErrForbidden
	}

	return s.repository.RemoveMember(ctx, projectID, userID)
}

func (s *projectService) UpdateMemberRole(ctx context.Context, actorID, projectID, userID, role string) error {
	actor, err := s.requireMember(ctx, projectID, actorID)
	if err != nil {
		return err
	}
	if !actor.CanManageMembers() {
		return models.ErrForbidden
	}
	if !IsValidRole(role) || role == RoleOwner {
		return models.ErrInvalidRole
	}

	target, err := s.repository.GetMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if target.Role == RoleOwner {
		return models.ErrForbidden
	}

	return s.repository.UpdateMemberRole(ctx, projectID, userID, role)
}

func (s *projectService) IsMember(ctx context.Context, userID, projectID string) (bool, error) {
	_, err := s.repository.GetMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *projectService) requireMember(ctx context.Context, projectID, userID string) (*Member, error) {
	member, err := s.repository.GetMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return nil, models.ErrForbidden
		}
		return nil, err
	}
	return member, nil
}

func (s *projectService) actorRef(ctx context.Context, userID string) realtime.UserRef {
	name, err := s.users.DisplayName(ctx, userID)
	if err != nil {
		name = userID
	}
	return realtime.UserRef{ID: userID, FullName: name}
}
