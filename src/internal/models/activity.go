package models

import "time"

// ActivityMessage is the audit record published to the message bus for
// security-relevant user actions.
type ActivityMessage struct {
	UserID      string            `json:"user_id"`
	SessionID   string            `json:"session_id"`
	ServiceName string            `json:"service_name"`
	Action      string            `json:"action"`
	IPAddress   string            `json:"ip_address,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NotificationMessage is the durable copy of a personal notification,
// consumed by the delivery worker for users without a live connection.
type NotificationMessage struct {
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	TaskID    string    `json:"task_id,omitempty"`
	ProjectID string    `json:"project_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Activity action constants
const (
	ActionRegistered   = "registered"
	ActionLoggedIn     = "logged_in"
	ActionLoggedOut    = "logged_out"
	ActionTokenRefresh = "token_refresh"
)

// Service name constants
const (
	ServiceAuth     = "collab.service.auth"
	ServiceRealtime = "collab.realtime"
)
