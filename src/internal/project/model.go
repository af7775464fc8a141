package project

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Project struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	OwnerID     string             `json:"ownerId" bson:"owner_id"`
	IsActive    bool               `json:"isActive" bson:"is_active"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

type Member struct {
	ProjectID string    `json:"projectId" bson:"project_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Role      string    `json:"role" bson:"role"`
	JoinedAt  time.Time `json:"joinedAt" bson:"joined_at"`
}

// Member role constants
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// CanManageTasks checks if member can create/edit/delete tasks
func (m *Member) CanManageTasks() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin || m.Role == RoleMember
}

// CanManageMembers checks if member can add/remove project members
func (m *Member) CanManageMembers() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// CanEditProject checks if member can edit project details
func (m *Member) CanEditProject() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

// CanDeleteProject checks if member can delete the project
func (m *Member) CanDeleteProject() bool {
	return m.Role == RoleOwner
}

func IsValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// CreateProjectRequest represents a new project
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateProjectRequest represents a project update
type UpdateProjectRequest struct {
	Name        string `json:"name" binding:"omitempty,min=1,max=200"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// AddMemberRequest adds a user to a project
type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"omitempty"`
}

// UpdateMemberRoleRequest changes a member's role
type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}
