package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterRoutesMutationEventsToProjectRoom(t *testing.T) {
	rooms := NewBroadcaster()
	e := NewEmitter(rooms)

	member := newFakeSink("conn-1")
	outsider := newFakeSink("conn-2")
	rooms.Subscribe("project-1", "bob", member)
	rooms.Subscribe("project-2", "carol", outsider)

	actor := UserRef{ID: "alice", FullName: "Alice A"}
	task := &TaskPayload{
		ID:        "task-1",
		Title:     "Ship it",
		Status:    "pending",
		Priority:  "high",
		ProjectID: "project-1",
		CreatedBy: "alice",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	e.TaskCreated(task, actor)
	e.TaskUpdated(task, actor)
	e.TaskStatusChanged(task, "pending", actor)
	e.TaskDeleted("task-1", "project-1", "Ship it", actor)
	e.CommentAdded(&CommentPayload{ID: "comment-1", TaskID: "task-1", UserID: "alice"}, task, actor)
	e.ProjectUpdated(&ProjectPayload{ID: "project-1", Name: "Renamed"}, actor)

	kinds := member.kinds()
	require.Len(t, kinds, 6)
	assert.Equal(t, []EventKind{
		EventTaskCreated,
		EventTaskUpdated,
		EventTaskStatusChanged,
		EventTaskDeleted,
		EventCommentAdded,
		EventProjectUpdated,
	}, kinds)

	assert.Empty(t, outsider.kinds())
}

func TestEmitterNotifyUserIgnoresRooms(t *testing.T) {
	rooms := NewBroadcaster()
	e := NewEmitter(rooms)

	sink := newFakeSink("conn-1")
	rooms.BindUser("alice", sink)

	e.NotifyUser("alice", NotificationData{
		Type:    "task_assigned",
		Message: "You were assigned to task \"Ship it\"",
		TaskID:  "task-1",
	})

	require.Equal(t, 1, sink.count(EventNotification))
}
