package realtime

import "github.com/sirupsen/logrus"

// Events is the interface the CRUD layer calls after each committed
// mutation. Implementations perform no authorization and no persistence;
// access control already happened in the CRUD handler and at room join.
type Events interface {
	TaskCreated(t *TaskPayload, actor UserRef)
	TaskUpdated(t *TaskPayload, actor UserRef)
	TaskDeleted(taskID, projectID, taskTitle string, actor UserRef)
	TaskStatusChanged(t *TaskPayload, oldStatus string, actor UserRef)
	CommentAdded(comment *CommentPayload, t *TaskPayload, actor UserRef)
	ProjectUpdated(p *ProjectPayload, actor UserRef)
	NotifyUser(userID string, n NotificationData)
}

// Emitter translates committed mutations into room events. Mutation events
// go to every session in the room, the actor's included; clients reconcile
// their optimistic state by actor id.
type Emitter struct {
	rooms *Broadcaster
	log   *logrus.Entry
}

func NewEmitter(rooms *Broadcaster) *Emitter {
	return &Emitter{
		rooms: rooms,
		log:   logrus.WithField("component", "emitter"),
	}
}

func (e *Emitter) TaskCreated(t *TaskPayload, actor UserRef) {
	e.rooms.Publish(t.ProjectID, newEvent(EventTaskCreated, t.ProjectID, actor.ID, taskData{
		Task:  t,
		Actor: actor,
	}))
}

func (e *Emitter) TaskUpdated(t *TaskPayload, actor UserRef) {
	e.rooms.Publish(t.ProjectID, newEvent(EventTaskUpdated, t.ProjectID, actor.ID, taskData{
		Task:  t,
		Actor: actor,
	}))
}

func (e *Emitter) TaskDeleted(taskID, projectID, taskTitle string, actor UserRef) {
	e.rooms.Publish(projectID, newEvent(EventTaskDeleted, projectID, actor.ID, taskDeletedData{
		TaskID:    taskID,
		TaskTitle: taskTitle,
		ProjectID: projectID,
		Actor:     actor,
	}))
}

func (e *Emitter) TaskStatusChanged(t *TaskPayload, oldStatus string, actor UserRef) {
	e.rooms.Publish(t.ProjectID, newEvent(EventTaskStatusChanged, t.ProjectID, actor.ID, taskStatusData{
		TaskID:    t.ID,
		TaskTitle: t.Title,
		OldStatus: oldStatus,
		NewStatus: t.Status,
		Actor:     actor,
	}))
}

func (e *Emitter) CommentAdded(comment *CommentPayload, t *TaskPayload, actor UserRef) {
	e.rooms.Publish(t.ProjectID, newEvent(EventCommentAdded, t.ProjectID, actor.ID, commentData{
		Comment: comment,
		Task:    t,
		Actor:   actor,
	}))
}

func (e *Emitter) ProjectUpdated(p *ProjectPayload, actor UserRef) {
	e.rooms.Publish(p.ID, newEvent(EventProjectUpdated, p.ID, actor.ID, projectData{
		Project: p,
		Actor:   actor,
	}))
}

// NotifyUser delivers a personal notification to all live sessions of a
// user, independent of rooms.
func (e *Emitter) NotifyUser(userID string, n NotificationData) {
	e.rooms.NotifyUser(userID, newEvent(EventNotification, n.ProjectID, "", n))
}
