package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"taskhub-collab-svc/src/internal/models"
)

// fakeSink is an in-memory Sink that records delivered frames.
type fakeSink struct {
	mu      sync.Mutex
	id      string
	frames  [][]byte
	failing bool
	closed  bool
}

func newFakeSink(id string) *fakeSink {
	return &fakeSink{id: id}
}

func (s *fakeSink) ID() string { return s.id }

func (s *fakeSink) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrConnClosed
	}
	if s.failing {
		return ErrSendBufferFull
	}
	s.frames = append(s.frames, data)
	return nil
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// kinds decodes the event name of every delivered frame, in order.
func (s *fakeSink) kinds() []EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kinds []EventKind
	for _, frame := range s.frames {
		var ev struct {
			Kind EventKind `json:"event"`
		}
		if err := json.Unmarshal(frame, &ev); err != nil {
			continue
		}
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

// typingSignals decodes the payload of every user_typing frame, in order.
func (s *fakeSink) typingSignals() []typingData {
	s.mu.Lock()
	defer s.mu.Unlock()

	var signals []typingData
	for _, frame := range s.frames {
		var ev struct {
			Kind EventKind  `json:"event"`
			Data typingData `json:"data"`
		}
		if err := json.Unmarshal(frame, &ev); err != nil || ev.Kind != EventUserTyping {
			continue
		}
		signals = append(signals, ev.Data)
	}
	return signals
}

func (s *fakeSink) count(kind EventKind) int {
	n := 0
	for _, k := range s.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// capturedEvent is one Publish/PublishExcept call seen by capturePublisher.
type capturedEvent struct {
	projectID string
	event     *Event
	except    string
}

// capturePublisher records fan-out calls instead of delivering them.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *capturePublisher) Publish(projectID string, ev *Event) {
	p.mu.Lock()
	p.events = append(p.events, capturedEvent{projectID: projectID, event: ev})
	p.mu.Unlock()
}

func (p *capturePublisher) PublishExcept(projectID string, ev *Event, exceptUserID string) {
	p.mu.Lock()
	p.events = append(p.events, capturedEvent{projectID: projectID, event: ev, except: exceptUserID})
	p.mu.Unlock()
}

func (p *capturePublisher) captured() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturedEvent, len(p.events))
	copy(out, p.events)
	return out
}

// staticIdentity resolves tokens and display names from fixed maps.
type staticIdentity struct {
	tokens map[string]string // token -> userID
	names  map[string]string // userID -> display name
}

func (i *staticIdentity) VerifyCredential(_ context.Context, token string) (string, error) {
	userID, ok := i.tokens[token]
	if !ok {
		return "", models.ErrUnauthorized
	}
	return userID, nil
}

func (i *staticIdentity) DisplayName(_ context.Context, userID string) (string, error) {
	name, ok := i.names[userID]
	if !ok {
		return "", models.ErrUserNotFound
	}
	return name, nil
}

// staticMembership allows the (userID, projectID) pairs it was seeded with.
type staticMembership struct {
	allowed map[string]map[string]bool // userID -> projectID -> ok
}

func (m *staticMembership) IsMember(_ context.Context, userID, projectID string) (bool, error) {
	return m.allowed[userID][projectID], nil
}
