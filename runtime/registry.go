// Package runtime wires the chat domain to the process: room lookup,
// supervision and background workers. It contains no protocol logic.
package runtime

import (
	"log/slog"
	"sync"

	"chat-server/domain"
)

// RoomRegistry is the single source of truth mapping room identifiers to
// Room instances. One instance exists per server process and is injected
// into the listener construction path, so tests can build isolated
// registries instead of relying on a hidden global.
type RoomRegistry struct {
	mu    sync.RWMutex
	log   *slog.Logger
	rooms map[string]*domain.Room
}

func NewRoomRegistry(log *slog.Logger) *RoomRegistry {
	return &RoomRegistry{
		log:   log,
		rooms: make(map[string]*domain.Room),
	}
}

// GetOrCreate returns the Room for roomID, creating and registering it
// atomically when absent. Exactly one Room ever exists per identifier,
// even under concurrent first access from many sessions.
func (r *RoomRegistry) GetOrCreate(roomID string) *domain.Room {
	r.mu.RLock()
	room, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return room
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another session may have created the room between the two locks.
	if room, ok := r.rooms[roomID]; ok {
		return room
	}
	room = domain.NewRoom(roomID, r.log)
	r.rooms[roomID] = room
	r.log.Info("Room created", "room", roomID)
	return room
}

// Get returns the Room for roomID if it exists. It never creates.
func (r *RoomRegistry) Get(roomID string) (*domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	return room, ok
}

// Count returns the number of rooms created so far.
func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
