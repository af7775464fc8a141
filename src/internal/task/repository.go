package task

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
	Create(ctx context.Context, t *Task) (*Task, error)
	GetByID(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, projectID string, filter *ListTasksRequest) ([]*Task, error)
	DeleteByProject(ctx context.Context, projectID string) error
}

type taskRepository struct {
	collection *mongo.Collection
}

func NewTaskRepository(mongoClient *clients.MongoDB, collectionName string) Repository {
	return &taskRepository{
		collection: mongoClient.Database.Collection(collectionName),
	}
}

func (r *taskRepository) Create(ctx context.Context, t *Task) (*Task, error) {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, t)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert task")
		return nil, models.ErrDatabaseInsert
	}

	t.ID = result.InsertedID.(primitive.ObjectID)
	return t, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	var t Task
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrTaskNotFound
		}
		logrus.WithError(err).WithField("task_id", id).Error("Failed to get task")
		return nil, models.ErrDatabaseQuery
	}

	return &t, nil
}

func (r *taskRepository) Update(ctx context.Context, t *Task) error {
	t.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"title":       t.Title,
		"description": t.Description,
		"status":      t.Status,
		"priority":    t.Priority,
		"assigned_to": t.AssignedTo,
		"due_date":    t.DueDate,
		"updated_at":  t.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": t.ID}, update)
	if err != nil {
		logrus.WithError(err).WithField("task_id", t.ID.Hex()).Error("Failed to update task")
		return models.ErrDatabaseUpdate
	}

	if result.MatchedCount == 0 {
		return models.ErrTaskNotFound
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidParams
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		logrus.WithError(err).WithField("task_id", id).Error("Failed to delete task")
		return models.ErrDatabaseDelete
	}

	if result.DeletedCount == 0 {
		return models.ErrTaskNotFound
	}

	return nil
}

func (r *taskRepository) ListByProject(ctx context.Context, projectID string, filter *ListTasksRequest) ([]*Task, error) {
	query := bson.M{"project_id": projectID}
	if filter != nil {
		if filter.Status != "" {
			query["status"] = filter.Status
		}
		if filter.Priority != "" {
			query["priority"] = filter.Priority
		}
		if filter.AssignedTo != "" {
			query["assigned_to"] = filter.AssignedTo
		}
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		logrus.WithError(err).WithField("project_id", projectID).Error("Failed to list tasks")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	tasks := []*Task{}
	for cursor.Next(ctx) {
		var t Task
		if err := cursor.Decode(&t); err != nil {
			logrus.WithError(err).Error("Failed to decode task")
			continue
		}
		tasks = append(tasks, &t)
	}

	return tasks, nil
}

func (r *taskRepository) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"project_id": projectID}); err != nil {
		logrus.WithError(err).WithField("project_id", projectID).Error("Failed to delete project tasks")
		return models.ErrDatabaseDelete
	}
	return nil
}
