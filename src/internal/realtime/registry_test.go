package realtime

import (
	"context"
	"testing"
	"time"

	"taskhub-collab-svc/src/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *Presence, *Typing, *Broadcaster) {
	rooms := NewBroadcaster()
	presence := NewPresence(rooms)
	typing := NewTyping(rooms, 3*time.Second, time.Second)

	identity := &staticIdentity{
		tokens: map[string]string{
			"token-alice": "alice",
			"token-bob":   "bob",
		},
		names: map[string]string{
			"alice": "Alice A",
			"bob":   "Bob B",
		},
	}
	membership := &staticMembership{
		allowed: map[string]map[string]bool{
			"alice": {"project-1": true, "project-2": true},
			"bob":   {"project-1": true},
		},
	}

	registry := NewRegistry(identity, membership, presence, typing, rooms)
	rooms.SetEvictFunc(registry.Disconnect)
	return registry, presence, typing, rooms
}

func TestRegistryAuthenticate(t *testing.T) {
	registry, _, _, _ := newTestRegistry()
	ctx := context.Background()

	sink := newFakeSink("conn-1")
	registry.Register(sink)

	_, err := registry.Authenticate(ctx, "conn-1", "bad-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	info, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.UserID)
	assert.Equal(t, "Alice A", info.DisplayName)

	// repeated authentication keeps the existing binding
	info, err = registry.Authenticate(ctx, "conn-1", "token-bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.UserID)
}

func TestRegistryAuthenticateUnknownConn(t *testing.T) {
	registry, _, _, _ := newTestRegistry()

	_, err := registry.Authenticate(context.Background(), "no-such-conn", "token-alice")
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestRegistryJoinRequiresAuthentication(t *testing.T) {
	registry, _, _, _ := newTestRegistry()

	sink := newFakeSink("conn-1")
	registry.Register(sink)

	err := registry.Join(context.Background(), "conn-1", "project-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRegistryJoinRefusedForNonMember(t *testing.T) {
	registry, presence, _, _ := newTestRegistry()
	ctx := context.Background()

	sink := newFakeSink("conn-1")
	registry.Register(sink)
	_, err := registry.Authenticate(ctx, "conn-1", "token-bob")
	require.NoError(t, err)

	err = registry.Join(ctx, "conn-1", "project-2")
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Empty(t, presence.Roster("project-2"))
}

func TestRegistryJoinIsIdempotent(t *testing.T) {
	registry, presence, _, rooms := newTestRegistry()
	ctx := context.Background()

	sink := newFakeSink("conn-1")
	registry.Register(sink)
	_, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)

	require.NoError(t, registry.Join(ctx, "conn-1", "project-1"))
	require.NoError(t, registry.Join(ctx, "conn-1", "project-1"))

	assert.Equal(t, 1, rooms.RoomSizes()["project-1"])
	require.Len(t, presence.Roster("project-1"), 1)

	// a single leave fully clears the single logical join
	registry.Leave("conn-1", "project-1")
	assert.Empty(t, presence.Roster("project-1"))
	assert.Empty(t, rooms.RoomSizes())
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	registry, presence, _, _ := newTestRegistry()
	ctx := context.Background()

	sink := newFakeSink("conn-1")
	registry.Register(sink)
	_, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)
	require.NoError(t, registry.Join(ctx, "conn-1", "project-1"))

	registry.Leave("conn-1", "project-1")
	registry.Leave("conn-1", "project-1")
	registry.Leave("conn-1", "no-such-project")

	assert.Empty(t, presence.Roster("project-1"))
}

func TestRegistryDisconnectCleansUpEverything(t *testing.T) {
	registry, presence, _, rooms := newTestRegistry()
	ctx := context.Background()

	sink := newFakeSink("conn-1")
	registry.Register(sink)
	_, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)
	require.NoError(t, registry.Join(ctx, "conn-1", "project-1"))
	require.NoError(t, registry.Join(ctx, "conn-1", "project-2"))

	registry.Disconnect("conn-1")

	assert.True(t, sink.isClosed())
	assert.Empty(t, presence.Roster("project-1"))
	assert.Empty(t, presence.Roster("project-2"))
	assert.Empty(t, rooms.RoomSizes())

	connections, sessions := registry.Counts()
	assert.Equal(t, 0, connections)
	assert.Equal(t, 0, sessions)

	// racing a second disconnect must not double-decrement presence
	registry.Disconnect("conn-1")
	assert.Empty(t, presence.Roster("project-1"))
}

func TestRegistryDisconnectClearsTyping(t *testing.T) {
	registry, _, typing, _ := newTestRegistry()
	ctx := context.Background()

	alice := newFakeSink("conn-1")
	bob := newFakeSink("conn-2")
	registry.Register(alice)
	registry.Register(bob)

	_, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)
	_, err = registry.Authenticate(ctx, "conn-2", "token-bob")
	require.NoError(t, err)

	require.NoError(t, registry.Join(ctx, "conn-1", "project-1"))
	require.NoError(t, registry.Join(ctx, "conn-2", "project-1"))

	typing.SetTyping("project-1", "task-1", "alice", "Alice A", true)
	require.Equal(t, 1, typing.ActiveCount())

	registry.Disconnect("conn-1")

	// the entry is gone immediately, not after the sweep expiry
	assert.Equal(t, 0, typing.ActiveCount())

	signals := bob.typingSignals()
	require.Len(t, signals, 2)
	assert.True(t, signals[0].IsTyping)
	assert.False(t, signals[1].IsTyping)
	assert.Equal(t, "task-1", signals[1].TaskID)
	assert.Equal(t, "alice", signals[1].User.ID)
}

func TestRegistryLeaveClearsTyping(t *testing.T) {
	registry, _, typing, _ := newTestRegistry()
	ctx := context.Background()

	alice := newFakeSink("conn-1")
	bob := newFakeSink("conn-2")
	registry.Register(alice)
	registry.Register(bob)

	_, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)
	_, err = registry.Authenticate(ctx, "conn-2", "token-bob")
	require.NoError(t, err)

	require.NoError(t, registry.Join(ctx, "conn-1", "project-1"))
	require.NoError(t, registry.Join(ctx, "conn-2", "project-1"))

	typing.SetTyping("project-1", "task-1", "alice", "Alice A", true)

	registry.Leave("conn-1", "project-1")

	assert.Equal(t, 0, typing.ActiveCount())
	signals := bob.typingSignals()
	require.Len(t, signals, 2)
	assert.False(t, signals[1].IsTyping)
}

func TestRegistryDisconnectKeepsTypingForRemainingSessions(t *testing.T) {
	registry, _, typing, _ := newTestRegistry()
	ctx := context.Background()

	laptop := newFakeSink("conn-1")
	phone := newFakeSink("conn-2")
	bob := newFakeSink("conn-3")
	registry.Register(laptop)
	registry.Register(phone)
	registry.Register(bob)

	_, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)
	_, err = registry.Authenticate(ctx, "conn-2", "token-alice")
	require.NoError(t, err)
	_, err = registry.Authenticate(ctx, "conn-3", "token-bob")
	require.NoError(t, err)

	require.NoError(t, registry.Join(ctx, "conn-1", "project-1"))
	require.NoError(t, registry.Join(ctx, "conn-2", "project-1"))
	require.NoError(t, registry.Join(ctx, "conn-3", "project-1"))

	typing.SetTyping("project-1", "task-1", "alice", "Alice A", true)

	// alice is still online through the second session
	registry.Disconnect("conn-1")
	assert.Equal(t, 1, typing.ActiveCount())
	require.Len(t, bob.typingSignals(), 1)

	// the last session going away clears the indicator
	registry.Disconnect("conn-2")
	assert.Equal(t, 0, typing.ActiveCount())
	signals := bob.typingSignals()
	require.Len(t, signals, 2)
	assert.False(t, signals[1].IsTyping)
}

func TestRegistryDisconnectSkipsDepartureEchoToDyingConn(t *testing.T) {
	registry, _, _, _ := newTestRegistry()
	ctx := context.Background()

	leaving := newFakeSink("conn-1")
	staying := newFakeSink("conn-2")

	registry.Register(leaving)
	registry.Register(staying)

	_, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)
	_, err = registry.Authenticate(ctx, "conn-2", "token-bob")
	require.NoError(t, err)

	require.NoError(t, registry.Join(ctx, "conn-1", "project-1"))
	require.NoError(t, registry.Join(ctx, "conn-2", "project-1"))

	registry.Disconnect("conn-1")

	assert.Equal(t, 0, leaving.count(EventUserDisconnected))
	assert.Equal(t, 1, staying.count(EventUserDisconnected))
}

func TestRegistrySessionAndCounts(t *testing.T) {
	registry, _, _, _ := newTestRegistry()
	ctx := context.Background()

	first := newFakeSink("conn-1")
	second := newFakeSink("conn-2")
	registry.Register(first)
	registry.Register(second)

	_, ok := registry.Session("conn-1")
	assert.False(t, ok)

	_, err := registry.Authenticate(ctx, "conn-1", "token-alice")
	require.NoError(t, err)

	info, ok := registry.Session("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", info.UserID)

	connections, sessions := registry.Counts()
	assert.Equal(t, 2, connections)
	assert.Equal(t, 1, sessions)
}

func TestRegistryAuthorize(t *testing.T) {
	registry, _, _, _ := newTestRegistry()
	ctx := context.Background()

	sink := newFakeSink("conn-1")
	registry.Register(sink)

	err := registry.Authorize(ctx, "conn-1", "project-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = registry.Authenticate(ctx, "conn-1", "token-bob")
	require.NoError(t, err)

	assert.NoError(t, registry.Authorize(ctx, "conn-1", "project-1"))
	assert.ErrorIs(t, registry.Authorize(ctx, "conn-1", "project-2"), models.ErrForbidden)
}
