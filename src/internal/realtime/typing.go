package realtime

import (
	"context"
	"sync"
	"time"
)

type typingKey struct {
	taskID string
	userID string
}

type typingEntry struct {
	projectID   string
	displayName string
	expiresAt   time.Time
}

// Typing tracks which users are composing a comment on which task. Entries
// expire after a fixed timeout so a client that stops sending signals never
// leaves a stale indicator behind.
type Typing struct {
	mu      sync.Mutex
	entries map[typingKey]*typingEntry

	timeout       time.Duration
	sweepInterval time.Duration
	rooms         Publisher

	// overridable in tests
	now func() time.Time
}

func NewTyping(rooms Publisher, timeout, sweepInterval time.Duration) *Typing {
	return &Typing{
		entries:       make(map[typingKey]*typingEntry),
		timeout:       timeout,
		sweepInterval: sweepInterval,
		rooms:         rooms,
		now:           time.Now,
	}
}

// SetTyping upserts or clears the typing entry for (taskID, userID) and
// announces the change to the project room. A repeated start refreshes the
// expiry instead of duplicating the entry. The sender's own sessions are
// skipped; the sender already renders its local state.
func (t *Typing) SetTyping(projectID, taskID, userID, displayName string, isTyping bool) {
	key := typingKey{taskID: taskID, userID: userID}

	t.mu.Lock()
	if isTyping {
		t.entries[key] = &typingEntry{
			projectID:   projectID,
			displayName: displayName,
			expiresAt:   t.now().Add(t.timeout),
		}
	} else {
		delete(t.entries, key)
	}
	t.mu.Unlock()

	t.rooms.PublishExcept(projectID, newEvent(EventUserTyping, projectID, userID, typingData{
		TaskID:   taskID,
		User:     UserRef{ID: userID, FullName: displayName},
		IsTyping: isTyping,
	}), userID)
}

// Run sweeps expired entries until the context is cancelled.
func (t *Typing) Run(ctx context.Context) {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

// Sweep removes entries past their expiry and emits the synthetic stop
// signal for each, so clients drop indicators for users that went silent.
func (t *Typing) Sweep() {
	now := t.now()

	type expired struct {
		key   typingKey
		entry typingEntry
	}

	t.mu.Lock()
	var dead []expired
	for key, entry := range t.entries {
		if now.After(entry.expiresAt) {
			dead = append(dead, expired{key: key, entry: *entry})
			delete(t.entries, key)
		}
	}
	t.mu.Unlock()

	for _, d := range dead {
		t.rooms.PublishExcept(d.entry.projectID, newEvent(EventUserTyping, d.entry.projectID, d.key.userID, typingData{
			TaskID:   d.key.taskID,
			User:     UserRef{ID: d.key.userID, FullName: d.entry.displayName},
			IsTyping: false,
		}), d.key.userID)
	}
}

// ClearUser drops every typing entry the user holds in a project and emits
// the synthetic stop signal for each. Called when the user's last connection
// leaves the project, so the room never waits out the expiry for someone who
// is already gone.
func (t *Typing) ClearUser(projectID, userID string) {
	type cleared struct {
		key   typingKey
		entry typingEntry
	}

	t.mu.Lock()
	var dead []cleared
	for key, entry := range t.entries {
		if key.userID == userID && entry.projectID == projectID {
			dead = append(dead, cleared{key: key, entry: *entry})
			delete(t.entries, key)
		}
	}
	t.mu.Unlock()

	for _, d := range dead {
		t.rooms.PublishExcept(projectID, newEvent(EventUserTyping, projectID, userID, typingData{
			TaskID:   d.key.taskID,
			User:     UserRef{ID: userID, FullName: d.entry.displayName},
			IsTyping: false,
		}), userID)
	}
}

// ActiveCount reports the number of live typing entries.
func (t *Typing) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
