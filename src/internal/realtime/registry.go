package realtime

import (
	"context"
	"sync"
	"taskhub-collab-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// SessionInfo describes the authenticated binding of a connection.
type SessionInfo struct {
	ConnID      string
	UserID      string
	DisplayName string
}

// connState is the registry's record of one live connection. Its mutex
// serializes join/leave/disconnect for that connection so presence counts
// cannot be double-decremented.
type connState struct {
	mu          sync.Mutex
	sink        Sink
	userID      string
	displayName string
	joined      map[string]struct{}
	closed      bool
}

// Registry owns the connection/session bindings. It is the only component
// that creates or destroys them; presence and typing hold back-references
// and are cleaned up through it.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connState

	identity   Identity
	membership Membership
	presence   *Presence
	typing     *Typing
	rooms      *Broadcaster

	log *logrus.Entry
}

func NewRegistry(identity Identity, membership Membership, presence *Presence, typing *Typing, rooms *Broadcaster) *Registry {
	return &Registry{
		conns:      make(map[string]*connState),
		identity:   identity,
		membership: membership,
		presence:   presence,
		typing:     typing,
		rooms:      rooms,
		log:        logrus.WithField("component", "registry"),
	}
}

// Register tracks a new, not yet authenticated connection.
func (r *Registry) Register(sink Sink) {
	r.mu.Lock()
	r.conns[sink.ID()] = &connState{
		sink:   sink,
		joined: make(map[string]struct{}),
	}
	r.mu.Unlock()

	r.log.WithField("conn_id", sink.ID()).Debug("Connection registered")
}

func (r *Registry) lookup(connID string) *connState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[connID]
}

// Authenticate verifies the credential token and binds the connection to the
// user. The identity check may hit the network; no registry or room lock is
// held while it runs. Repeat calls on an authenticated connection are
// no-ops returning the existing binding.
func (r *Registry) Authenticate(ctx context.Context, connID, token string) (*SessionInfo, error) {
	cs := r.lookup(connID)
	if cs == nil {
		return nil, ErrConnClosed
	}

	userID, err := r.identity.VerifyCredential(ctx, token)
	if err != nil {
		r.log.WithField("conn_id", connID).Warn("Credential verification failed")
		return nil, models.ErrUnauthorized
	}

	displayName, err := r.identity.DisplayName(ctx, userID)
	if err != nil {
		r.log.WithError(err).WithField("user_id", userID).Warn("Display name lookup failed")
		displayName = userID
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.closed {
		return nil, ErrConnClosed
	}
	if cs.userID != "" {
		return &SessionInfo{ConnID: connID, UserID: cs.userID, DisplayName: cs.displayName}, nil
	}

	cs.userID = userID
	cs.displayName = displayName
	r.rooms.BindUser(userID, cs.sink)

	r.log.WithFields(logrus.Fields{
		"conn_id": connID,
		"user_id": userID,
	}).Info("Connection authenticated")

	return &SessionInfo{ConnID: connID, UserID: userID, DisplayName: displayName}, nil
}

// Join subscribes the connection to a project room after a membership check
// and registers presence. Joining a room twice on the same connection is a
// no-op.
func (r *Registry) Join(ctx context.Context, connID, projectID string) error {
	cs := r.lookup(connID)
	if cs == nil {
		return ErrConnClosed
	}

	cs.mu.Lock()
	userID := cs.userID
	cs.mu.Unlock()
	if userID == "" {
		return ErrNotAuthenticated
	}

	// Membership check happens before taking the connection lock; it may
	// block on the database.
	isMember, err := r.membership.IsMember(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if !isMember {
		r.log.WithFields(logrus.Fields{
			"conn_id":    connID,
			"user_id":    userID,
			"project_id": projectID,
		}).Warn("Join refused: not a project member")
		return models.ErrForbidden
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.closed {
		return ErrConnClosed
	}
	if _, ok := cs.joined[projectID]; ok {
		return nil
	}
	cs.joined[projectID] = struct{}{}

	r.rooms.Subscribe(projectID, cs.userID, cs.sink)
	r.presence.RecordJoin(projectID, cs.userID, cs.displayName)

	r.log.WithFields(logrus.Fields{
		"conn_id":    connID,
		"user_id":    userID,
		"project_id": projectID,
	}).Debug("Joined project room")

	return nil
}

// Leave removes the connection from a project room. Idempotent.
func (r *Registry) Leave(connID, projectID string) {
	cs := r.lookup(connID)
	if cs == nil {
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.joined[projectID]; !ok {
		return
	}
	delete(cs.joined, projectID)

	r.rooms.Unsubscribe(projectID, connID)
	r.presence.RecordLeave(projectID, cs.userID)
	r.clearTyping(projectID, cs.userID)
}

// Disconnect tears down a connection: leaves every joined room, releases the
// session binding and closes the sink. Runs its cleanup exactly once no
// matter how many callers race it.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	cs := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()

	if cs == nil {
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.closed = true

	// Unsubscribe everywhere first so the departure cascade below is never
	// delivered back to the dying connection.
	for projectID := range cs.joined {
		r.rooms.Unsubscribe(projectID, connID)
	}
	for projectID := range cs.joined {
		r.presence.RecordLeave(projectID, cs.userID)
		r.clearTyping(projectID, cs.userID)
	}
	cs.joined = make(map[string]struct{})

	if cs.userID != "" {
		r.rooms.ReleaseUser(cs.userID, connID)
	}
	cs.sink.Close()

	r.log.WithFields(logrus.Fields{
		"conn_id": connID,
		"user_id": cs.userID,
	}).Info("Connection disconnected")
}

// clearTyping drops the user's typing entries in a project once their last
// connection there is gone. A user typing on one device while joined on
// another keeps the indicator until that device stops or leaves too.
func (r *Registry) clearTyping(projectID, userID string) {
	if r.presence.IsOnline(projectID, userID) {
		return
	}
	r.typing.ClearUser(projectID, userID)
}

// Session returns the authenticated binding for a connection, if any.
func (r *Registry) Session(connID string) (*SessionInfo, bool) {
	cs := r.lookup(connID)
	if cs == nil {
		return nil, false
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.userID == "" {
		return nil, false
	}
	return &SessionInfo{ConnID: connID, UserID: cs.userID, DisplayName: cs.displayName}, true
}

// HasJoined reports whether the connection is currently in the project room.
func (r *Registry) HasJoined(connID, projectID string) bool {
	cs := r.lookup(connID)
	if cs == nil {
		return false
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	_, ok := cs.joined[projectID]
	return ok
}

// Authorize checks that the connection is authenticated and its user is a
// member of the project.
func (r *Registry) Authorize(ctx context.Context, connID, projectID string) error {
	info, ok := r.Session(connID)
	if !ok {
		return ErrNotAuthenticated
	}

	isMember, err := r.membership.IsMember(ctx, info.UserID, projectID)
	if err != nil {
		return err
	}
	if !isMember {
		return models.ErrForbidden
	}
	return nil
}

// Counts reports the number of open connections and authenticated sessions.
func (r *Registry) Counts() (connections, sessions int) {
	r.mu.RLock()
	states := make([]*connState, 0, len(r.conns))
	for _, cs := range r.conns {
		states = append(states, cs)
	}
	r.mu.RUnlock()

	connections = len(states)
	for _, cs := range states {
		cs.mu.Lock()
		if cs.userID != "" {
			sessions++
		}
		cs.mu.Unlock()
	}
	return connections, sessions
}
