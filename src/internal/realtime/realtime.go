// Package realtime implements the live-update layer: it tracks websocket
// connections and the project rooms they have joined, maintains per-project
// presence rosters and typing indicators, and fans out mutation events from
// the CRUD layer to every authorized subscriber.
//
// State is in-memory and single-process. Delivery is best effort: a dropped
// connection loses events sent while it was down and resynchronizes through
// the REST API on reconnect.
package realtime

import (
	"context"
	"errors"
)

var (
	// ErrSendBufferFull is returned by a Sink when its outbound queue is at
	// capacity. The broadcaster treats it as a dead connection.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrConnClosed is returned by a Sink after Close.
	ErrConnClosed = errors.New("connection closed")

	// ErrNotAuthenticated is returned for room operations on a connection
	// that has not completed authentication.
	ErrNotAuthenticated = errors.New("authentication required")
)

// Sink is the outbound half of a connection. Send must never block: it
// either queues the frame or fails immediately.
type Sink interface {
	ID() string
	Send(data []byte) error
	Close()
}

// Identity verifies credentials and resolves display names. Backed by the
// user service.
type Identity interface {
	VerifyCredential(ctx context.Context, token string) (string, error)
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Membership answers whether a user may enter a project room. Backed by the
// project service.
type Membership interface {
	IsMember(ctx context.Context, userID, projectID string) (bool, error)
}

// TaskDirectory resolves which project a task belongs to, used to route
// typing indicators. Backed by the task service.
type TaskDirectory interface {
	ProjectOf(ctx context.Context, taskID string) (string, error)
}
