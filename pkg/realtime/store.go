package realtime

import (
	"sort"
	"sync"
)

// Room holds state and a broadcaster for one room.
type Room[T, E any] struct {
	ID    string
	State T
	hub   *Broadcaster[E]
}

// Hub returns the room's broadcaster.
func (r *Room[T, E]) Hub() *Broadcaster[E] {
	return r.hub
}

// RoomStore indexes rooms by id. Removing a room closes its broadcaster, so
// subscriptions never outlive the room they belong to.
type RoomStore[T, E any] struct {
	mu    sync.RWMutex
	rooms map[string]*Room[T, E]
}

// NewRoomStore creates an empty room store.
func NewRoomStore[T, E any]() *RoomStore[T, E] {
	return &RoomStore[T, E]{
		rooms: make(map[string]*Room[T, E]),
	}
}

// Create adds a room with the given id and state, and a new Broadcaster.
// An existing room with the same id is replaced and its broadcaster closed.
func (s *RoomStore[T, E]) Create(id string, state T) *Room[T, E] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.rooms[id]; ok {
		old.hub.Close()
	}
	r := &Room[T, E]{ID: id, State: state, hub: NewBroadcaster[E]()}
	s.rooms[id] = r
	return r
}

// Get returns the room by ID if it exists.
func (s *RoomStore[T, E]) Get(id string) (*Room[T, E], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Remove deletes the room and closes its broadcaster.
func (s *RoomStore[T, E]) Remove(id string) (*Room[T, E], bool) {
	s.mu.Lock()
	r, ok := s.rooms[id]
	delete(s.rooms, id)
	s.mu.Unlock()
	if ok {
		r.hub.Close()
	}
	return r, ok
}

// Publish notifies subscribers of the room's broadcaster. Unknown rooms are ignored.
func (s *RoomStore[T, E]) Publish(id string, event E) bool {
	r, ok := s.Get(id)
	if !ok {
		return false
	}
	r.hub.Publish(event)
	return true
}

// Broadcaster returns the broadcaster for the room if it exists.
func (s *RoomStore[T, E]) Broadcaster(id string) (*Broadcaster[E], bool) {
	r, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return r.hub, true
}

// IDs returns the ids of all rooms in lexical order.
func (s *RoomStore[T, E]) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len reports the number of rooms.
func (s *RoomStore[T, E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
