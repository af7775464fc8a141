package realtime

import (
	"encoding/json"
	"hash/fnv"
	"sync"

	"github.com/sirupsen/logrus"
)

const shardCount = 16

// Publisher is the fan-out interface the presence tracker and typing
// coordinator publish through.
type Publisher interface {
	Publish(projectID string, ev *Event)
	PublishExcept(projectID string, ev *Event, exceptUserID string)
}

type subscriber struct {
	sink   Sink
	userID string
}

type roomShard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]subscriber // projectID -> connID -> subscriber
}

// Broadcaster delivers events to every connection joined to a project room.
// Rooms are sharded by project id to bound lock contention; a room exists
// only while it has subscribers.
//
// Delivery to one connection never blocks delivery to its siblings: each
// sink queues independently, and a sink that fails or overflows is scheduled
// for disconnect without affecting the rest of the room.
type Broadcaster struct {
	shards [shardCount]*roomShard

	userMu sync.RWMutex
	byUser map[string]map[string]Sink // userID -> connID -> sink

	evictMu sync.RWMutex
	evict   func(connID string)

	log *logrus.Entry
}

func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		byUser: make(map[string]map[string]Sink),
		log:    logrus.WithField("component", "broadcaster"),
	}
	for i := range b.shards {
		b.shards[i] = &roomShard{rooms: make(map[string]map[string]subscriber)}
	}
	return b
}

// SetEvictFunc installs the callback invoked for connections whose delivery
// failed. Wired to the registry's disconnect after construction.
func (b *Broadcaster) SetEvictFunc(fn func(connID string)) {
	b.evictMu.Lock()
	b.evict = fn
	b.evictMu.Unlock()
}

func (b *Broadcaster) shardFor(projectID string) *roomShard {
	h := fnv.New32a()
	h.Write([]byte(projectID))
	return b.shards[h.Sum32()%shardCount]
}

// Subscribe adds a connection to a project room, creating the room on first
// join.
func (b *Broadcaster) Subscribe(projectID string, userID string, sink Sink) {
	s := b.shardFor(projectID)
	s.mu.Lock()
	room, ok := s.rooms[projectID]
	if !ok {
		room = make(map[string]subscriber)
		s.rooms[projectID] = room
	}
	room[sink.ID()] = subscriber{sink: sink, userID: userID}
	s.mu.Unlock()
}

// Unsubscribe removes a connection from a project room and garbage-collects
// the room when it empties. Idempotent.
func (b *Broadcaster) Unsubscribe(projectID, connID string) {
	s := b.shardFor(projectID)
	s.mu.Lock()
	if room, ok := s.rooms[projectID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(s.rooms, projectID)
		}
	}
	s.mu.Unlock()
}

// BindUser indexes a connection for personal delivery via NotifyUser.
func (b *Broadcaster) BindUser(userID string, sink Sink) {
	b.userMu.Lock()
	conns, ok := b.byUser[userID]
	if !ok {
		conns = make(map[string]Sink)
		b.byUser[userID] = conns
	}
	conns[sink.ID()] = sink
	b.userMu.Unlock()
}

// ReleaseUser drops a connection from the personal delivery index.
func (b *Broadcaster) ReleaseUser(userID, connID string) {
	b.userMu.Lock()
	if conns, ok := b.byUser[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(b.byUser, userID)
		}
	}
	b.userMu.Unlock()
}

// Publish delivers an event to every connection in the project's room,
// including the acting user's own sessions. Clients reconcile their own
// mutations by actor id.
func (b *Broadcaster) Publish(projectID string, ev *Event) {
	b.publish(projectID, ev, "")
}

// PublishExcept delivers an event to the room, skipping every session of
// exceptUserID. Used for typing indicators, where the sender already knows.
func (b *Broadcaster) PublishExcept(projectID string, ev *Event, exceptUserID string) {
	b.publish(projectID, ev, exceptUserID)
}

func (b *Broadcaster) publish(projectID string, ev *Event, exceptUserID string) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.log.WithError(err).WithField("event", ev.Kind).Error("Failed to marshal event")
		return
	}

	s := b.shardFor(projectID)
	s.mu.RLock()
	room := s.rooms[projectID]
	targets := make([]subscriber, 0, len(room))
	for _, sub := range room {
		if exceptUserID != "" && sub.userID == exceptUserID {
			continue
		}
		targets = append(targets, sub)
	}
	s.mu.RUnlock()

	for _, sub := range targets {
		b.deliver(sub.sink, data, ev.Kind)
	}
}

// NotifyUser delivers an event to every session of a user regardless of
// rooms.
func (b *Broadcaster) NotifyUser(userID string, ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.log.WithError(err).WithField("event", ev.Kind).Error("Failed to marshal event")
		return
	}

	b.userMu.RLock()
	conns := b.byUser[userID]
	targets := make([]Sink, 0, len(conns))
	for _, sink := range conns {
		targets = append(targets, sink)
	}
	b.userMu.RUnlock()

	for _, sink := range targets {
		b.deliver(sink, data, ev.Kind)
	}
}

func (b *Broadcaster) deliver(sink Sink, data []byte, kind EventKind) {
	err := sink.Send(data)
	if err == nil {
		return
	}

	b.log.WithFields(logrus.Fields{
		"conn_id": sink.ID(),
		"event":   kind,
		"reason":  err.Error(),
	}).Warn("Dropping connection after failed delivery")

	b.evictMu.RLock()
	evict := b.evict
	b.evictMu.RUnlock()
	if evict != nil {
		go evict(sink.ID())
	}
}

// RoomSizes reports the number of subscribed connections per project.
func (b *Broadcaster) RoomSizes() map[string]int {
	sizes := make(map[string]int)
	for _, s := range b.shards {
		s.mu.RLock()
		for projectID, room := range s.rooms {
			sizes[projectID] = len(room)
		}
		s.mu.RUnlock()
	}
	return sizes
}
