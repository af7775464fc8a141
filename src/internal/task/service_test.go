package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskhub-collab-svc/src/internal/models"
	"taskhub-collab-svc/src/internal/project"
	"taskhub-collab-svc/src/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryRepository struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{tasks: make(map[string]*Task)}
}

func (r *memoryRepository) Create(_ context.Context, t *Task) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = primitive.NewObjectID()
	clone := *t
	r.tasks[t.ID.Hex()] = &clone
	return t, nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, models.ErrTaskNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memoryRepository) Update(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID.Hex()]; !ok {
		return models.ErrTaskNotFound
	}
	clone := *t
	r.tasks[t.ID.Hex()] = &clone
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return models.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memoryRepository) ListByProject(_ context.Context, projectID string, filter *ListTasksRequest) ([]*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*Task{}
	for _, t := range r.tasks {
		if t.ProjectID != projectID {
			continue
		}
		if filter != nil {
			if filter.Status != "" && t.Status != filter.Status {
				continue
			}
			if filter.Priority != "" && t.Priority != filter.Priority {
				continue
			}
			if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
				continue
			}
		}
		clone := *t
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memoryRepository) DeleteByProject(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tasks {
		if t.ProjectID == projectID {
			delete(r.tasks, id)
		}
	}
	return nil
}

type staticMemberships struct {
	members map[string]map[string]string // projectID -> userID -> role
}

func (m *staticMemberships) GetMember(_ context.Context, projectID, userID string) (*project.Member, error) {
	role, ok := m.members[projectID][userID]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return &project.Member{ProjectID: projectID, UserID: userID, Role: role}, nil
}

type staticUsers struct{}

func (staticUsers) DisplayName(_ context.Context, userID string) (string, error) {
	return "Name of " + userID, nil
}

type emittedEvent struct {
	kind      realtime.EventKind
	projectID string
	actorID   string
	oldStatus string
	userID    string // NotifyUser target
}

type recordingEvents struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (r *recordingEvents) record(ev emittedEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingEvents) TaskCreated(t *realtime.TaskPayload, actor realtime.UserRef) {
	r.record(emittedEvent{kind: realtime.EventTaskCreated, projectID: t.ProjectID, actorID: actor.ID})
}

func (r *recordingEvents) TaskUpdated(t *realtime.TaskPayload, actor realtime.UserRef) {
	r.record(emittedEvent{kind: realtime.EventTaskUpdated, projectID: t.ProjectID, actorID: actor.ID})
}

func (r *recordingEvents) TaskDeleted(taskID, projectID, taskTitle string, actor realtime.UserRef) {
	r.record(emittedEvent{kind: realtime.EventTaskDeleted, projectID: projectID, actorID: actor.ID})
}

func (r *recordingEvents) TaskStatusChanged(t *realtime.TaskPayload, oldStatus string, actor realtime.UserRef) {
	r.record(emittedEvent{kind: realtime.EventTaskStatusChanged, projectID: t.ProjectID, actorID: actor.ID, oldStatus: oldStatus})
}

func (r *recordingEvents) CommentAdded(c *realtime.CommentPayload, t *realtime.TaskPayload, actor realtime.UserRef) {
	r.record(emittedEvent{kind: realtime.EventCommentAdded, projectID: t.ProjectID, actorID: actor.ID})
}

func (r *recordingEvents) ProjectUpdated(p *realtime.ProjectPayload, actor realtime.UserRef) {
	r.record(emittedEvent{kind: realtime.EventProjectUpdated, projectID: p.ID, actorID: actor.ID})
}

func (r *recordingEvents) NotifyUser(userID string, n realtime.NotificationData) {
	r.record(emittedEvent{kind: realtime.EventNotification, projectID: n.ProjectID, userID: userID})
}

func (r *recordingEvents) ofKind(kind realtime.EventKind) []emittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emittedEvent
	for _, ev := range r.events {
		if ev.kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type droppingPublisher struct {
	mu            sync.Mutex
	notifications []*models.NotificationMessage
}

func (p *droppingPublisher) PublishNotification(msg *models.NotificationMessage) error {
	p.mu.Lock()
	p.notifications = append(p.notifications, msg)
	p.mu.Unlock()
	return nil
}

func (p *droppingPublisher) PublishActivity(_, _, _ string) error { return nil }

func newTestService() (Service, *memoryRepository, *recordingEvents, *droppingPublisher) {
	repo := newMemoryRepository()
	memberships := &staticMemberships{
		members: map[string]map[string]string{
			"project-1": {
				"owner":  project.RoleOwner,
				"admin":  project.RoleAdmin,
				"alice":  project.RoleMember,
				"bob":    project.RoleMember,
				"viewer": project.RoleViewer,
			},
		},
	}
	events := &recordingEvents{}
	publisher := &droppingPublisher{}
	svc := NewTaskService(repo, memberships, staticUsers{}, events, publisher)
	return svc, repo, events, publisher
}

func TestTaskCreateEmitsEvent(t *testing.T) {
	svc, _, events, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", &CreateTaskRequest{
		Title:     "Ship it",
		ProjectID: "project-1",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, PriorityMedium, created.Priority)
	assert.Equal(t, "alice", created.CreatedBy)

	emitted := events.ofKind(realtime.EventTaskCreated)
	require.Len(t, emitted, 1)
	assert.Equal(t, "project-1", emitted[0].projectID)
	assert.Equal(t, "alice", emitted[0].actorID)
}

func TestTaskCreateForbiddenForViewerAndOutsider(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "viewer", &CreateTaskRequest{Title: "x", ProjectID: "project-1"})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.Create(ctx, "stranger", &CreateTaskRequest{Title: "x", ProjectID: "project-1"})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestTaskCreateNotifiesAssignee(t *testing.T) {
	svc, _, events, publisher := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", &CreateTaskRequest{
		Title:      "Ship it",
		ProjectID:  "project-1",
		AssignedTo: "bob",
	})
	require.NoError(t, err)

	notified := events.ofKind(realtime.EventNotification)
	require.Len(t, notified, 1)
	assert.Equal(t, "bob", notified[0].userID)

	require.Len(t, publisher.notifications, 1)
	assert.Equal(t, "bob", publisher.notifications[0].UserID)
	assert.Equal(t, "task_assigned", publisher.notifications[0].Type)
}

func TestTaskCreateSelfAssignmentDoesNotNotify(t *testing.T) {
	svc, _, events, publisher := newTestService()

	_, err := svc.Create(context.Background(), "alice", &CreateTaskRequest{
		Title:      "Ship it",
		ProjectID:  "project-1",
		AssignedTo: "alice",
	})
	require.NoError(t, err)

	assert.Empty(t, events.ofKind(realtime.EventNotification))
	assert.Empty(t, publisher.notifications)
}

func TestTaskCreateRejectsAssigneeOutsideProject(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "alice", &CreateTaskRequest{
		Title:      "Ship it",
		ProjectID:  "project-1",
		AssignedTo: "stranger",
	})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestTaskUpdatePermissions(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", &CreateTaskRequest{
		Title:      "Ship it",
		ProjectID:  "project-1",
		AssignedTo: "bob",
	})
	require.NoError(t, err)
	taskID := created.ID.Hex()

	// creator, assignee and admins may edit
	for _, userID := range []string{"alice", "bob", "admin", "owner"} {
		_, err := svc.Update(ctx, userID, taskID, &UpdateTaskRequest{Title: "Renamed by " + userID})
		assert.NoError(t, err, userID)
	}

	// a member who is neither creator, assignee nor admin may not
	_, err = svc.Update(ctx, "viewer", taskID, &UpdateTaskRequest{Title: "nope"})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestTaskStatusChange(t *testing.T) {
	svc, _, events, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", &CreateTaskRequest{
		Title:      "Ship it",
		ProjectID:  "project-1",
		AssignedTo: "bob",
	})
	require.NoError(t, err)
	taskID := created.ID.Hex()

	_, err = svc.UpdateStatus(ctx, "alice", taskID, "sideways")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	updated, err := svc.UpdateStatus(ctx, "alice", taskID, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)

	emitted := events.ofKind(realtime.EventTaskStatusChanged)
	require.Len(t, emitted, 1)
	assert.Equal(t, StatusPending, emitted[0].oldStatus)

	// the assignee is told their task moved
	notified := events.ofKind(realtime.EventNotification)
	require.Len(t, notified, 2) // assignment on create, then status change
	assert.Equal(t, "bob", notified[1].userID)
}

func TestTaskStatusChangeNoOpWhenUnchanged(t *testing.T) {
	svc, _, events, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", &CreateTaskRequest{
		Title:     "Ship it",
		ProjectID: "project-1",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, "alice", created.ID.Hex(), StatusPending)
	require.NoError(t, err)
	assert.Empty(t, events.ofKind(realtime.EventTaskStatusChanged))
}

func TestTaskDeletePermissions(t *testing.T) {
	svc, _, events, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", &CreateTaskRequest{
		Title:      "Ship it",
		ProjectID:  "project-1",
		AssignedTo: "bob",
	})
	require.NoError(t, err)
	taskID := created.ID.Hex()

	// the assignee may edit but not delete
	err = svc.Delete(ctx, "bob", taskID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, "alice", taskID))
	require.Len(t, events.ofKind(realtime.EventTaskDeleted), 1)

	err = svc.Delete(ctx, "alice", taskID)
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestTaskListByProjectFilters(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", &CreateTaskRequest{Title: "a", ProjectID: "project-1", Priority: PriorityHigh})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", &CreateTaskRequest{Title: "b", ProjectID: "project-1", AssignedTo: "bob"})
	require.NoError(t, err)

	all, err := svc.ListByProject(ctx, "alice", "project-1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	high, err := svc.ListByProject(ctx, "alice", "project-1", &ListTasksRequest{Priority: PriorityHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "a", high[0].Title)

	_, err = svc.ListByProject(ctx, "stranger", "project-1", nil)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestTaskListByProjectOverdueFilter(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	yesterday := time.Now().Add(-24 * time.Hour)
	tomorrow := time.Now().Add(24 * time.Hour)

	missed, err := svc.Create(ctx, "alice", &CreateTaskRequest{Title: "missed", ProjectID: "project-1", DueDate: &yesterday})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", &CreateTaskRequest{Title: "upcoming", ProjectID: "project-1", DueDate: &tomorrow})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", &CreateTaskRequest{Title: "open-ended", ProjectID: "project-1"})
	require.NoError(t, err)
	done, err := svc.Create(ctx, "alice", &CreateTaskRequest{Title: "done late", ProjectID: "project-1", DueDate: &yesterday})
	require.NoError(t, err)

	// a completed task past its due date is not overdue
	_, err = svc.UpdateStatus(ctx, "alice", done.ID.Hex(), StatusCompleted)
	require.NoError(t, err)

	overdue, err := svc.ListByProject(ctx, "alice", "project-1", &ListTasksRequest{Overdue: true})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, missed.ID, overdue[0].ID)

	all, err := svc.ListByProject(ctx, "alice", "project-1", &ListTasksRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTaskProjectOf(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", &CreateTaskRequest{Title: "a", ProjectID: "project-1"})
	require.NoError(t, err)

	projectID, err := svc.ProjectOf(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "project-1", projectID)

	_, err = svc.ProjectOf(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}
