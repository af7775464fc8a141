package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceAnnouncesFirstJoinOnly(t *testing.T) {
	rooms := &capturePublisher{}
	p := NewPresence(rooms)

	p.RecordJoin("project-1", "alice", "Alice A")
	p.RecordJoin("project-1", "alice", "Alice A")

	events := rooms.captured()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserConnected, events[0].event.Kind)
	assert.Equal(t, "project-1", events[0].projectID)
	assert.Equal(t, "alice", events[0].event.ActorID)
}

func TestPresenceAnnouncesLastLeaveOnly(t *testing.T) {
	rooms := &capturePublisher{}
	p := NewPresence(rooms)

	p.RecordJoin("project-1", "alice", "Alice A")
	p.RecordJoin("project-1", "alice", "Alice A")

	p.RecordLeave("project-1", "alice")
	require.Len(t, rooms.captured(), 1) // still only the join announcement

	p.RecordLeave("project-1", "alice")
	events := rooms.captured()
	require.Len(t, events, 2)
	assert.Equal(t, EventUserDisconnected, events[1].event.Kind)
}

func TestPresenceLeaveWithoutJoinIgnored(t *testing.T) {
	rooms := &capturePublisher{}
	p := NewPresence(rooms)

	p.RecordLeave("project-1", "alice")
	assert.Empty(t, rooms.captured())

	// a stray leave must not push the count negative
	p.RecordJoin("project-1", "alice", "Alice A")
	p.RecordLeave("project-1", "alice")
	p.RecordLeave("project-1", "alice")

	p.RecordJoin("project-1", "alice", "Alice A")
	roster := p.Roster("project-1")
	require.Len(t, roster, 1)
	assert.Equal(t, "alice", roster[0].ID)
}

func TestPresenceRosterSorted(t *testing.T) {
	rooms := &capturePublisher{}
	p := NewPresence(rooms)

	p.RecordJoin("project-1", "carol", "Carol C")
	p.RecordJoin("project-1", "alice", "Alice A")
	p.RecordJoin("project-1", "bob", "Bob B")

	roster := p.Roster("project-1")
	require.Len(t, roster, 3)
	assert.Equal(t, "alice", roster[0].ID)
	assert.Equal(t, "bob", roster[1].ID)
	assert.Equal(t, "carol", roster[2].ID)
	assert.Equal(t, "Alice A", roster[0].FullName)
}

func TestPresenceRosterSizes(t *testing.T) {
	rooms := &capturePublisher{}
	p := NewPresence(rooms)

	p.RecordJoin("project-1", "alice", "Alice A")
	p.RecordJoin("project-1", "alice", "Alice A") // second connection, same user
	p.RecordJoin("project-1", "bob", "Bob B")
	p.RecordJoin("project-2", "carol", "Carol C")

	sizes := p.RosterSizes()
	assert.Equal(t, 2, sizes["project-1"])
	assert.Equal(t, 1, sizes["project-2"])

	p.RecordLeave("project-2", "carol")
	sizes = p.RosterSizes()
	_, ok := sizes["project-2"]
	assert.False(t, ok)
}
