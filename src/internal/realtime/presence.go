package realtime

import (
	"hash/fnv"
	"sort"
	"sync"
)

type presenceEntry struct {
	displayName string
	conns       int
}

type presenceShard struct {
	mu       sync.Mutex
	projects map[string]map[string]*presenceEntry // projectID -> userID -> entry
}

// Presence tracks which users are online in each project and with how many
// connections. The roster is eventually consistent with respect to
// concurrent joins and mutation events.
type Presence struct {
	shards [shardCount]*presenceShard
	rooms  Publisher
}

func NewPresence(rooms Publisher) *Presence {
	p := &Presence{rooms: rooms}
	for i := range p.shards {
		p.shards[i] = &presenceShard{projects: make(map[string]map[string]*presenceEntry)}
	}
	return p
}

func (p *Presence) shardFor(projectID string) *presenceShard {
	h := fnv.New32a()
	h.Write([]byte(projectID))
	return p.shards[h.Sum32()%shardCount]
}

// RecordJoin increments the connection count for (projectID, userID). The
// first connection of a user announces the user to the room.
func (p *Presence) RecordJoin(projectID, userID, displayName string) {
	s := p.shardFor(projectID)

	s.mu.Lock()
	users, ok := s.projects[projectID]
	if !ok {
		users = make(map[string]*presenceEntry)
		s.projects[projectID] = users
	}
	entry, ok := users[userID]
	if !ok {
		entry = &presenceEntry{displayName: displayName}
		users[userID] = entry
	}
	entry.displayName = displayName
	entry.conns++
	first := entry.conns == 1
	s.mu.Unlock()

	if first {
		p.rooms.Publish(projectID, newEvent(EventUserConnected, projectID, userID, presenceData{
			ProjectID: projectID,
			User:      UserRef{ID: userID, FullName: displayName},
		}))
	}
}

// RecordLeave decrements the connection count; the last connection of a user
// announces the departure. The count never goes negative: a leave without a
// matching join is ignored.
func (p *Presence) RecordLeave(projectID, userID string) {
	s := p.shardFor(projectID)

	s.mu.Lock()
	users, ok := s.projects[projectID]
	if !ok {
		s.mu.Unlock()
		return
	}
	entry, ok := users[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	entry.conns--
	last := entry.conns <= 0
	displayName := entry.displayName
	if last {
		delete(users, userID)
		if len(users) == 0 {
			delete(s.projects, projectID)
		}
	}
	s.mu.Unlock()

	if last {
		p.rooms.Publish(projectID, newEvent(EventUserDisconnected, projectID, userID, presenceData{
			ProjectID: projectID,
			User:      UserRef{ID: userID, FullName: displayName},
		}))
	}
}

// IsOnline reports whether the user still has at least one connection in the
// project.
func (p *Presence) IsOnline(projectID, userID string) bool {
	s := p.shardFor(projectID)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.projects[projectID][userID]
	return ok
}

// Roster returns a snapshot of the users currently online in a project,
// ordered by user id for stable output.
func (p *Presence) Roster(projectID string) []UserRef {
	s := p.shardFor(projectID)

	s.mu.Lock()
	users := s.projects[projectID]
	roster := make([]UserRef, 0, len(users))
	for userID, entry := range users {
		roster = append(roster, UserRef{ID: userID, FullName: entry.displayName})
	}
	s.mu.Unlock()

	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })
	return roster
}

// RosterSizes reports the number of distinct online users per project.
func (p *Presence) RosterSizes() map[string]int {
	sizes := make(map[string]int)
	for _, s := range p.shards {
		s.mu.Lock()
		for projectID, users := range s.projects {
			sizes[projectID] = len(users)
		}
		s.mu.Unlock()
	}
	return sizes
}
