package comment

import (
	"taskhub-collab-svc/src/internal/realtime"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID    string             `json:"taskId" bson:"task_id"`
	UserID    string             `json:"userId" bson:"user_id"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// ToPayload converts the comment to its wire representation
func (c *Comment) ToPayload() *realtime.CommentPayload {
	return &realtime.CommentPayload{
		ID:        c.ID.Hex(),
		TaskID:    c.TaskID,
		UserID:    c.UserID,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

// AddCommentRequest represents a new comment on a task
type AddCommentRequest struct {
	Text string `json:"text" binding:"required,min=1,max=2000"`
}
