package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingStartAndStop(t *testing.T) {
	rooms := &capturePublisher{}
	typ := NewTyping(rooms, 3*time.Second, time.Second)

	typ.SetTyping("project-1", "task-1", "alice", "Alice A", true)
	assert.Equal(t, 1, typ.ActiveCount())

	typ.SetTyping("project-1", "task-1", "alice", "Alice A", false)
	assert.Equal(t, 0, typ.ActiveCount())

	events := rooms.captured()
	require.Len(t, events, 2)
	assert.Equal(t, EventUserTyping, events[0].event.Kind)
	assert.Equal(t, "alice", events[0].except, "sender must not receive their own indicator")
	assert.Equal(t, EventUserTyping, events[1].event.Kind)
}

func TestTypingRepeatedStartRefreshes(t *testing.T) {
	rooms := &capturePublisher{}
	typ := NewTyping(rooms, 3*time.Second, time.Second)

	base := time.Now()
	typ.now = func() time.Time { return base }
	typ.SetTyping("project-1", "task-1", "alice", "Alice A", true)

	// refresh just before expiry
	typ.now = func() time.Time { return base.Add(2 * time.Second) }
	typ.SetTyping("project-1", "task-1", "alice", "Alice A", true)
	assert.Equal(t, 1, typ.ActiveCount())

	// the original deadline has passed but the refreshed one has not
	typ.now = func() time.Time { return base.Add(4 * time.Second) }
	typ.Sweep()
	assert.Equal(t, 1, typ.ActiveCount())
}

func TestTypingSweepExpiresEntries(t *testing.T) {
	rooms := &capturePublisher{}
	typ := NewTyping(rooms, 3*time.Second, time.Second)

	base := time.Now()
	typ.now = func() time.Time { return base }
	typ.SetTyping("project-1", "task-1", "alice", "Alice A", true)
	typ.SetTyping("project-2", "task-2", "bob", "Bob B", true)

	typ.now = func() time.Time { return base.Add(5 * time.Second) }
	typ.Sweep()

	assert.Equal(t, 0, typ.ActiveCount())

	// two starts plus two synthetic stops
	events := rooms.captured()
	require.Len(t, events, 4)
	for _, ev := range events[2:] {
		assert.Equal(t, EventUserTyping, ev.event.Kind)
		data, ok := ev.event.Data.(typingData)
		require.True(t, ok)
		assert.False(t, data.IsTyping)
		assert.Equal(t, ev.event.ActorID, ev.except)
	}
}

func TestTypingSweepKeepsLiveEntries(t *testing.T) {
	rooms := &capturePublisher{}
	typ := NewTyping(rooms, 3*time.Second, time.Second)

	base := time.Now()
	typ.now = func() time.Time { return base }
	typ.SetTyping("project-1", "task-1", "alice", "Alice A", true)

	typ.now = func() time.Time { return base.Add(time.Second) }
	typ.Sweep()

	assert.Equal(t, 1, typ.ActiveCount())
	assert.Len(t, rooms.captured(), 1)
}
