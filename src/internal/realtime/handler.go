package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"taskhub-collab-svc/src/internal/config"
	"taskhub-collab-svc/src/internal/models"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type authPayload struct {
	Token string `json:"token"`
}

type roomPayload struct {
	ProjectID string `json:"project_id"`
}

type typingPayload struct {
	TaskID   string `json:"task_id"`
	IsTyping bool   `json:"is_typing"`
}

// Handler owns the websocket endpoint: it upgrades requests, enforces the
// authentication window and dispatches client frames to the hub.
type Handler struct {
	hub      *Hub
	tasks    TaskDirectory
	cfg      *config.Configuration
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

func NewHandler(cfg *config.Configuration, hub *Hub, tasks TaskDirectory) *Handler {
	return &Handler{
		hub:   hub,
		tasks: tasks,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// CORS is handled at the HTTP layer; the REST API is
				// already wide open for the SPA.
				return true
			},
		},
		log: logrus.WithField("component", "realtime"),
	}
}

// Serve upgrades the request and runs the connection until it drops. A
// credential may arrive as a ?token= query parameter or as a first
// authenticate frame; connections still unauthenticated after the grace
// period are closed.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := newClient(conn, &h.cfg.Realtime)
	h.hub.Registry.Register(client)
	go client.writePump()

	authWindow := time.Duration(h.cfg.Realtime.AuthTimeoutSeconds) * time.Second
	client.authTimer = time.AfterFunc(authWindow, func() {
		if _, ok := h.hub.Registry.Session(client.ID()); !ok {
			h.sendError(client, "Authentication timed out")
			h.hub.Registry.Disconnect(client.ID())
		}
	})

	if token := c.Query("token"); token != "" {
		h.authenticate(client, token)
	}

	client.readPump(h)

	client.authTimer.Stop()
	h.hub.Registry.Disconnect(client.ID())
}

// Status reports active connections, sessions and per-project roster sizes.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "active",
		"stats":  h.hub.Stats(),
	})
}

func (h *Handler) dispatch(c *Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendError(c, "Malformed message")
		return
	}

	switch frame.Event {
	case MsgAuthenticate:
		var p authPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.Token == "" {
			h.sendError(c, "Credential token required")
			return
		}
		h.authenticate(c, p.Token)

	case MsgJoinProject:
		h.handleJoin(c, frame.Data)

	case MsgLeaveProject:
		h.handleLeave(c, frame.Data)

	case MsgUserTyping:
		h.handleTyping(c, frame.Data)

	case MsgGetOnlineUsers:
		h.handleOnlineUsers(c, frame.Data)

	case MsgPing:
		h.sendTo(c, newEvent(EventPong, "", "", struct{}{}))

	default:
		h.sendError(c, "Unknown event")
	}
}

func (h *Handler) authenticate(c *Client, token string) {
	ctx, cancel := h.requestContext()
	defer cancel()

	info, err := h.hub.Registry.Authenticate(ctx, c.ID(), token)
	if err != nil {
		h.sendError(c, "Authentication failed")
		h.hub.Registry.Disconnect(c.ID())
		return
	}

	c.authTimer.Stop()
	h.sendTo(c, newEvent(EventConnected, "", info.UserID, connectedData{
		Message: "Successfully connected to real-time updates",
		User:    UserRef{ID: info.UserID, FullName: info.DisplayName},
	}))
}

func (h *Handler) handleJoin(c *Client, data json.RawMessage) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		h.sendError(c, "Project ID required")
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	err := h.hub.Registry.Join(ctx, c.ID(), p.ProjectID)
	switch {
	case err == nil:
		h.sendTo(c, newEvent(EventJoinedProject, p.ProjectID, "", roomData{ProjectID: p.ProjectID}))
	case errors.Is(err, ErrNotAuthenticated):
		h.sendError(c, "Authentication required")
	case errors.Is(err, models.ErrForbidden):
		h.sendError(c, "Access denied to project")
	case errors.Is(err, ErrConnClosed):
		// connection already torn down
	default:
		h.log.WithError(err).WithField("project_id", p.ProjectID).Error("Join failed")
		h.sendError(c, "Failed to join project")
	}
}

func (h *Handler) handleLeave(c *Client, data json.RawMessage) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return
	}

	h.hub.Registry.Leave(c.ID(), p.ProjectID)
	h.sendTo(c, newEvent(EventLeftProject, p.ProjectID, "", roomData{ProjectID: p.ProjectID}))
}

func (h *Handler) handleTyping(c *Client, data json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.TaskID == "" {
		return
	}

	info, ok := h.hub.Registry.Session(c.ID())
	if !ok {
		h.sendError(c, "Authentication required")
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	projectID, err := h.tasks.ProjectOf(ctx, p.TaskID)
	if err != nil {
		return
	}
	if !h.hub.Registry.HasJoined(c.ID(), projectID) {
		return
	}

	h.hub.Typing.SetTyping(projectID, p.TaskID, info.UserID, info.DisplayName, p.IsTyping)
}

func (h *Handler) handleOnlineUsers(c *Client, data json.RawMessage) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		h.sendError(c, "Project ID required")
		return
	}

	ctx, cancel := h.requestContext()
	defer cancel()

	if err := h.hub.Registry.Authorize(ctx, c.ID(), p.ProjectID); err != nil {
		switch {
		case errors.Is(err, ErrNotAuthenticated):
			h.sendError(c, "Authentication required")
		case errors.Is(err, models.ErrForbidden):
			h.sendError(c, "Access denied to project")
		default:
			h.sendError(c, "Failed to list online users")
		}
		return
	}

	roster := h.hub.Presence.Roster(p.ProjectID)
	h.sendTo(c, newEvent(EventOnlineUsers, p.ProjectID, "", onlineUsersData{
		ProjectID: p.ProjectID,
		Users:     roster,
		Count:     len(roster),
	}))
}

func (h *Handler) sendError(c *Client, message string) {
	h.sendTo(c, newEvent(EventError, "", "", errorData{Message: message}))
}

func (h *Handler) sendTo(c *Client, ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("event", ev.Kind).Error("Failed to marshal event")
		return
	}
	if err := c.Send(data); err != nil {
		go h.hub.Registry.Disconnect(c.ID())
	}
}

func (h *Handler) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(h.cfg.App.Timeout)*time.Second)
}
