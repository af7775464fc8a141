package project

import (
	"context"
	"errors"
	"taskhub-collab-svc/src/clients"
	"taskhub-collab-svc/src/internal/models"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, p *Project) (*Project, error)
	GetByID(ctx context.Context, id string) (*Project, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string) ([]*Project, error)

	AddMember(ctx context.Context, m *Member) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	UpdateMemberRole(ctx context.Context, projectID, userID, role string) error
	GetMember(ctx context.Context, projectID, userID string) (*Member, error)
	ListMembers(ctx context.Context, projectID string) ([]*Member, error)
}

type projectRepository struct {
	projects *mongo.Collection
	members  *mongo.Collection
}

func NewProjectRepository(mongoClient *clients.MongoDB, projectCollection, memberCollection string) Repository {
	return &projectRepository{
		projects: mongoClient.Database.Collection(projectCollection),
		members:  mongoClient.Database.Collection(memberCollection),
	}
}

func (r *projectRepository) Create(ctx context.Context, p *Project) (*Project, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = true

	result, err := r.projects.InsertOne(ctx, p)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert project")
		return nil, models.ErrDatabaseInsert
	}

	p.ID = result.InsertedID.(primitive.ObjectID)
	return p, nil
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*Project, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	var p Project
	err = r.projects.FindOne(ctx, bson.M{"_id": oid, "is_active": true}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrProjectNotFound
		}
		logrus.WithError(err).WithField("project_id", id).Error("Failed to get project")
		return nil, models.ErrDatabaseQuery
	}

	return &p, nil
}

func (r *projectRepository) Update(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"updated_at":  p.UpdatedAt,
	}}

	result, err := r.projects.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		logrus.WithError(err).WithField("project_id", p.ID.Hex()).Error("Failed to update project")
		return models.ErrDatabaseUpdate
	}

	if result.MatchedCount == 0 {
		return models.ErrProjectNotFound
	}

	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidParams
	}

	// Soft delete; members are removed so the project stops resolving
	// for membership checks.
	update := bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now(),
	}}

	result, err := r.projects.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		logrus.WithError(err).WithField("project_id", id).Error("Failed to delete project")
		return models.ErrDatabaseDelete
	}

	if result.MatchedCount == 0 {
		return models.ErrProjectNotFound
	}

	if _, err := r.members.DeleteMany(ctx, bson.M{"project_id": id}); err != nil {
		logrus.WithError(err).WithField("project_id", id).Error("Failed to remove project members")
		return models.ErrDatabaseDelete
	}

	return nil
}

func (r *projectRepository) ListForUser(ctx context.Context, userID string) ([]*Project, error) {
	cursor, err := r.members.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		logrus.WithError(err).Error("Failed to find memberships")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var m Member
		if err := cursor.Decode(&m); err != nil {
			logrus.WithError(err).Error("Failed to decode membership")
			continue
		}
		oid, err := primitive.ObjectIDFromHex(m.ProjectID)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}

	if len(ids) == 0 {
		return []*Project{}, nil
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	projCursor, err := r.projects.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "is_active": true}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find projects")
		return nil, models.ErrDatabaseQuery
	}
	defer projCursor.Close(ctx)

	var projects []*Project
	for projCursor.Next(ctx) {
		var p Project
		if err := projCursor.Decode(&p); err != nil {
			logrus.WithError(err).Error("Failed to decode project")
			continue
		}
		projects = append(projects, &p)
	}

	return projects, nil
}

func (r *projectRepository) AddMember(ctx context.Context, m *Member) error {
	m.JoinedAt = time.Now()

	filter := bson.M{"project_id": m.ProjectID, "user_id": m.UserID}
	update := bson.M{"$set": m}
	opts := options.Update().SetUpsert(true)

	if _, err := r.members.UpdateOne(ctx, filter, update, opts); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"project_id": m.ProjectID,
			"user_id":    m.UserID,
		}).Error("Failed to add project member")
		return models.ErrDatabaseInsert
	}

	return nil
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	_, err := r.members.DeleteOne(ctx, bson.M{"project_id": projectID, "user_id": userID})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"project_id": projectID,
			"user_id":    userID,
		}).Error("Failed to remove project member")
		return models.ErrDatabaseDelete
	}
	return nil
}

func (r *projectRepository) UpdateMemberRole(ctx context.Context, projectID, userID, role string) error {
	filter := bson.M{"project_id": projectID, "user_id": userID}
	update := bson.M{"$set": bson.M{"role": role}}

	result, err := r.members.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).Error("Failed to update member role")
		return models.ErrDatabaseUpdate
	}

	if result.MatchedCount == 0 {
		return models.ErrRecordNotFound
	}

	return nil
}

func (r *projectRepository) GetMember(ctx context.Context, projectID, userID string) (*Member, error) {
	var m Member
	err := r.members.FindOne(ctx, bson.M{"project_id": projectID, "user_id": userID}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRecordNotFound
		}
		logrus.WithError(err).Error("Failed to get project member")
		return nil, models.ErrDatabaseQuery
	}

	return &m, nil
}

func (r *projectRepository) ListMembers(ctx context.Context, projectID string) ([]*Member, error) {
	cursor, err := r.members.Find(ctx, bson.M{"project_id": projectID})
	if err != nil {
		logrus.WithError(err).Error("Failed to list project members")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var members []*Member
	for cursor.Next(ctx) {
		var m Member
		if err := cursor.Decode(&m); err != nil {
			logrus.WithError(err).Error("Failed to decode project member")
			continue
		}
		members = append(members, &m)
	}

	return members, nil
}
