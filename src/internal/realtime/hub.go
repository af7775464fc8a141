package realtime

import (
	"context"
	"taskhub-collab-svc/src/internal/config"
	"time"
)

// Hub wires the realtime components together. It is constructed once at
// startup and handed to connection handlers and CRUD services by reference;
// there is no package-level state.
type Hub struct {
	Registry *Registry
	Presence *Presence
	Typing   *Typing
	Rooms    *Broadcaster
}

func NewHub(cfg *config.Configuration, identity Identity, membership Membership) *Hub {
	rooms := NewBroadcaster()
	presence := NewPresence(rooms)
	typing := NewTyping(
		rooms,
		time.Duration(cfg.Realtime.TypingTimeoutSeconds)*time.Second,
		time.Duration(cfg.Realtime.SweepIntervalSeconds)*time.Second,
	)
	registry := NewRegistry(identity, membership, presence, typing, rooms)

	// Connections whose delivery fails or overflows are torn down through
	// the registry so presence and rooms stay consistent.
	rooms.SetEvictFunc(registry.Disconnect)

	return &Hub{
		Registry: registry,
		Presence: presence,
		Typing:   typing,
		Rooms:    rooms,
	}
}

// Run starts the background sweeps until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	go h.Typing.Run(ctx)
}

// Stats is the read-only diagnostic snapshot for the status endpoint.
type Stats struct {
	Connections   int            `json:"connections"`
	Sessions      int            `json:"sessions"`
	Rooms         map[string]int `json:"rooms"`
	TypingEntries int            `json:"typing_entries"`
}

func (h *Hub) Stats() *Stats {
	connections, sessions := h.Registry.Counts()
	return &Stats{
		Connections:   connections,
		Sessions:      sessions,
		Rooms:         h.Presence.RosterSizes(),
		TypingEntries: h.Typing.ActiveCount(),
	}
}
