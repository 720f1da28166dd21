package store

import (
	"sync"

	"gungi-server/internal/session"
)

// MemoryStore is the single-process room registry. It only guards the
// map itself; per-room state is serialized by the room's own lock.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*session.Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: map[string]*session.Room{},
	}
}

func (m *MemoryStore) GetRoom(roomID string) (*session.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

func (m *MemoryStore) SaveRoom(r *session.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.RoomID] = r
}

// DeleteRoom removes a room from the registry. Unknown ids are ignored
// so racing teardown paths stay idempotent.
func (m *MemoryStore) DeleteRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
}

func (m *MemoryStore) ListRooms() []*session.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*session.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}
