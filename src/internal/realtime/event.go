package realtime

import "time"

// EventKind identifies a wire event. The names are stable identifiers shared
// with the browser client.
type EventKind string

// Server -> client events
const (
	EventConnected         EventKind = "connected"
	EventError             EventKind = "error"
	EventJoinedProject     EventKind = "joined_project"
	EventLeftProject       EventKind = "left_project"
	EventTaskCreated       EventKind = "task_created"
	EventTaskUpdated       EventKind = "task_updated"
	EventTaskDeleted       EventKind = "task_deleted"
	EventTaskStatusChanged EventKind = "task_status_changed"
	EventCommentAdded      EventKind = "comment_added"
	EventProjectUpdated    EventKind = "project_updated"
	EventUserConnected     EventKind = "user_connected"
	EventUserDisconnected  EventKind = "user_disconnected"
	EventUserTyping        EventKind = "user_typing"
	EventOnlineUsers       EventKind = "online_users"
	EventNotification      EventKind = "notification"
	EventPong              EventKind = "pong"
)

// Client -> server events
const (
	MsgAuthenticate   = "authenticate"
	MsgJoinProject    = "join_project"
	MsgLeaveProject   = "leave_project"
	MsgUserTyping     = "user_typing"
	MsgGetOnlineUsers = "get_online_users"
	MsgPing           = "ping"
)

// Event is the frame sent to clients. Events are immutable once handed to
// the broadcaster.
type Event struct {
	Kind      EventKind   `json:"event"`
	ProjectID string      `json:"project_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func newEvent(kind EventKind, projectID, actorID string, data interface{}) *Event {
	return &Event{
		Kind:      kind,
		ProjectID: projectID,
		ActorID:   actorID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// UserRef identifies a user in event payloads and rosters.
type UserRef struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// TaskPayload mirrors a task entity on the wire.
type TaskPayload struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	ProjectID   string     `json:"project_id"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	CreatedBy   string     `json:"created_by"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CommentPayload mirrors a task comment on the wire.
type CommentPayload struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"comment_text"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectPayload mirrors a project entity on the wire.
type ProjectPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type connectedData struct {
	Message string  `json:"message"`
	User    UserRef `json:"user"`
}

type errorData struct {
	Message string `json:"message"`
}

type roomData struct {
	ProjectID string `json:"project_id"`
}

type taskData struct {
	Task  *TaskPayload `json:"task"`
	Actor UserRef      `json:"actor"`
}

type taskDeletedData struct {
	TaskID    string  `json:"task_id"`
	TaskTitle string  `json:"task_title"`
	ProjectID string  `json:"project_id"`
	Actor     UserRef `json:"actor"`
}

type taskStatusData struct {
	TaskID    string  `json:"task_id"`
	TaskTitle string  `json:"task_title"`
	OldStatus string  `json:"old_status"`
	NewStatus string  `json:"new_status"`
	Actor     UserRef `json:"actor"`
}

type commentData struct {
	Comment *CommentPayload `json:"comment"`
	Task    *TaskPayload    `json:"task"`
	Actor   UserRef         `json:"actor"`
}

type projectData struct {
	Project *ProjectPayload `json:"project"`
	Actor   UserRef         `json:"actor"`
}

type presenceData struct {
	ProjectID string  `json:"project_id"`
	User      UserRef `json:"user"`
}

type typingData struct {
	TaskID   string  `json:"task_id"`
	User     UserRef `json:"user"`
	IsTyping bool    `json:"is_typing"`
}

type onlineUsersData struct {
	ProjectID string    `json:"project_id"`
	Users     []UserRef `json:"users"`
	Count     int       `json:"count"`
}

// NotificationData is the payload of a personal notification event.
type NotificationData struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	TaskID    string `json:"task_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}
