package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterPublishReachesRoom(t *testing.T) {
	b := NewBroadcaster()

	alice := newFakeSink("conn-1")
	bob := newFakeSink("conn-2")
	outsider := newFakeSink("conn-3")

	b.Subscribe("project-1", "alice", alice)
	b.Subscribe("project-1", "bob", bob)
	b.Subscribe("project-2", "carol", outsider)

	b.Publish("project-1", newEvent(EventTaskCreated, "project-1", "alice", nil))

	assert.Equal(t, 1, alice.count(EventTaskCreated))
	assert.Equal(t, 1, bob.count(EventTaskCreated))
	assert.Equal(t, 0, outsider.count(EventTaskCreated))
}

func TestBroadcasterPublishIncludesActor(t *testing.T) {
	b := NewBroadcaster()

	actor := newFakeSink("conn-1")
	b.Subscribe("project-1", "alice", actor)

	b.Publish("project-1", newEvent(EventTaskUpdated, "project-1", "alice", nil))

	assert.Equal(t, 1, actor.count(EventTaskUpdated))
}

func TestBroadcasterPublishExceptSkipsAllSessionsOfUser(t *testing.T) {
	b := NewBroadcaster()

	senderLaptop := newFakeSink("conn-1")
	senderPhone := newFakeSink("conn-2")
	other := newFakeSink("conn-3")

	b.Subscribe("project-1", "alice", senderLaptop)
	b.Subscribe("project-1", "alice", senderPhone)
	b.Subscribe("project-1", "bob", other)

	b.PublishExcept("project-1", newEvent(EventUserTyping, "project-1", "alice", nil), "alice")

	assert.Equal(t, 0, senderLaptop.count(EventUserTyping))
	assert.Equal(t, 0, senderPhone.count(EventUserTyping))
	assert.Equal(t, 1, other.count(EventUserTyping))
}

func TestBroadcasterFailingSinkDoesNotBlockSiblings(t *testing.T) {
	b := NewBroadcaster()

	evicted := make(chan string, 1)
	b.SetEvictFunc(func(connID string) { evicted <- connID })

	healthy := newFakeSink("conn-1")
	broken := newFakeSink("conn-2")
	broken.failing = true

	b.Subscribe("project-1", "alice", healthy)
	b.Subscribe("project-1", "bob", broken)

	b.Publish("project-1", newEvent(EventTaskCreated, "project-1", "alice", nil))

	assert.Equal(t, 1, healthy.count(EventTaskCreated))

	select {
	case connID := <-evicted:
		assert.Equal(t, "conn-2", connID)
	case <-time.After(time.Second):
		t.Fatal("expected failing connection to be evicted")
	}
}

func TestBroadcasterNotifyUser(t *testing.T) {
	b := NewBroadcaster()

	laptop := newFakeSink("conn-1")
	phone := newFakeSink("conn-2")
	other := newFakeSink("conn-3")

	b.BindUser("alice", laptop)
	b.BindUser("alice", phone)
	b.BindUser("bob", other)

	b.NotifyUser("alice", newEvent(EventNotification, "", "", nil))

	assert.Equal(t, 1, laptop.count(EventNotification))
	assert.Equal(t, 1, phone.count(EventNotification))
	assert.Equal(t, 0, other.count(EventNotification))

	b.ReleaseUser("alice", "conn-1")
	b.NotifyUser("alice", newEvent(EventNotification, "", "", nil))

	assert.Equal(t, 1, laptop.count(EventNotification))
	assert.Equal(t, 2, phone.count(EventNotification))
}

func TestBroadcasterRoomLifecycle(t *testing.T) {
	b := NewBroadcaster()

	sink := newFakeSink("conn-1")
	b.Subscribe("project-1", "alice", sink)

	sizes := b.RoomSizes()
	require.Equal(t, 1, sizes["project-1"])

	b.Unsubscribe("project-1", "conn-1")
	assert.Empty(t, b.RoomSizes())

	// repeated unsubscribe is a no-op
	b.Unsubscribe("project-1", "conn-1")
	assert.Empty(t, b.RoomSizes())
}
