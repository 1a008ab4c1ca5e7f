package room

import (
	"context"
	"sync"
	"time"
)

type memRepo struct {
	mu    sync.Mutex
	rooms map[string]*Room
	conns map[string]map[string]struct{} // connID -> set(roomID)
}

// NewMemoryRepo is the default in-process registry.
func NewMemoryRepo() Repo {
	return &memRepo{
		rooms: make(map[string]*Room),
		conns: make(map[string]map[string]struct{}),
	}
}

func (m *memRepo) GetOrCreate(ctx context.Context, roomID, creatorConn string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		return r.Clone(), nil
	}
	now := time.Now()
	r := &Room{
		ID:           roomID,
		Creator:      creatorConn,
		State:        StateLobby,
		Participants: []Participant{},
		ChatLog:      []ChatMessage{},
		CreatedAt:    now,
		LastActive:   now,
	}
	m.rooms[roomID] = r
	return r.Clone(), nil
}

func (m *memRepo) Get(ctx context.Context, roomID string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.Clone(), nil
}

func (m *memRepo) Save(ctx context.Context, r *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := r.Clone()
	stored.LastActive = time.Now()
	m.rooms[r.ID] = stored
	for _, p := range stored.Participants {
		if _, ok := m.conns[p.ConnID]; !ok {
			m.conns[p.ConnID] = make(map[string]struct{})
		}
		m.conns[p.ConnID][r.ID] = struct{}{}
	}
	return nil
}

func (m *memRepo) RoomsFor(ctx context.Context, connID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.conns[connID]))
	for id := range m.conns[connID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memRepo) RemoveParticipant(ctx context.Context, connID string) ([]*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	affected := make([]*Room, 0, len(m.conns[connID]))
	for roomID := range m.conns[connID] {
		r, ok := m.rooms[roomID]
		if !ok {
			continue
		}
		if i := r.participantIndex(connID); i >= 0 {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			r.LastActive = time.Now()
		}
		affected = append(affected, r.Clone())
	}
	delete(m.conns, connID)
	return affected, nil
}

// Sweep evicts rooms idle longer than ttl and returns how many were
// removed. Without it rooms live for the whole process lifetime.
func (m *memRepo) Sweep(ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, r := range m.rooms {
		if r.LastActive.Before(cutoff) {
			delete(m.rooms, id)
			for _, p := range r.Participants {
				if set, ok := m.conns[p.ConnID]; ok {
					delete(set, id)
					if len(set) == 0 {
						delete(m.conns, p.ConnID)
					}
				}
			}
			removed++
		}
	}
	return removed
}

// Sweeper is implemented by registries that need a periodic eviction
// pass driven from main.
type Sweeper interface {
	Sweep(ttl time.Duration) int
}
