package comment

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
	Create(ctx context.Context, c *Comment) (*Comment, error)
	GetByID(ctx context.Context, id string) (*Comment, error)
	Delete(ctx context.Context, id string) error
	ListByTask(ctx context.Context, taskID string) ([]*Comment, error)
	DeleteByTask(ctx context.Context, taskID string) error
}

type commentRepository struct {
	collection *mongo.Collection
}

func NewCommentRepository(mongoClient *clients.MongoDB, collectionName string) Repository {
	return &commentRepository{
		collection: mongoClient.Database.Collection(collectionName),
	}
}

func (r *commentRepository) Create(ctx context.Context, c *Comment) (*Comment, error) {
	c.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert comment")
		return nil, models.ErrDatabaseInsert
	}

	c.ID = result.InsertedID.(primitive.ObjectID)
	return c, nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*Comment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	var c Comment
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrCommentNotFound
		}
		logrus.WithError(err).WithField("comment_id", id).Error("Failed to get comment")
		return nil, models.ErrDatabaseQuery
	}

	return &c, nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidParams
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		logrus.WithError(err).WithField("comment_id", id).Error("Failed to delete comment")
		return models.ErrDatabaseDelete
	}

	if result.DeletedCount == 0 {
		return models.ErrCommentNotFound
	}

	return nil
}

func (r *commentRepository) ListByTask(ctx context.Context, taskID string) ([]*Comment, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		logrus.WithError(err).WithField("task_id", taskID).Error("Failed to list comments")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	comments := []*Comment{}
	for cursor.Next(ctx) {
		var c Comment
		if err := cursor.Decode(&c); err != nil {
			logrus.WithError(err).Error("Failed to decode comment")
			continue
		}
		comments = append(comments, &c)
	}

	return comments, nil
}

func (r *commentRepository) DeleteByTask(ctx context.Context, taskID string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"task_id": taskID}); err != nil {
		logrus.WithError(err).WithField("task_id", taskID).Error("Failed to delete task comments")
		return models.ErrDatabaseDelete
	}
	return nil
}
