// Package lobby tracks who is in each room. The game engine reads rosters
// from it; only the transport layer changes membership.
package lobby

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"totgame/internal/game"
	"totgame/pkg/realtime"
)

// MaxNameLength caps display names, in runes.
const MaxNameLength = 20

// Status is a member's progress through the current round.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Message types published by the registry itself.
const (
	MessageRoomUpdate = "roomUpdate"
	MessagePlayerLeft = "playerLeft"
	MessageOutOfTurn  = "outOfTurn"
)

var (
	ErrEmptyRoomID = errors.New("room id required")
	ErrEmptyName   = errors.New("name required")
)

// Member is one joined client.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"isHost"`
	Status   Status    `json:"status"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Message is what room subscribers receive. To limits delivery to one
// member; empty means everyone.
type Message struct {
	Type string `json:"type"`
	To   string `json:"to,omitempty"`
	Data any    `json:"data,omitempty"`
}

// ForMember reports whether the message should be delivered to memberID.
func (m Message) ForMember(memberID string) bool {
	return m.To == "" || m.To == memberID
}

// RoomSnapshot is a copy of a room's membership.
type RoomSnapshot struct {
	RoomID  string   `json:"roomId"`
	HostID  string   `json:"hostId,omitempty"`
	Members []Member `json:"members"`
}

// LeaveResult describes the effect of Leave.
type LeaveResult struct {
	Member      Member `json:"member"`
	NewHostID   string `json:"newHostId,omitempty"`
	RoomRemoved bool   `json:"roomRemoved"`
}

type room struct {
	hostID  string
	members []*Member
}

func (r *room) find(id string) (int, *Member) {
	for i, m := range r.members {
		if m.ID == id {
			return i, m
		}
	}
	return -1, nil
}

func (r *room) snapshot(id string) RoomSnapshot {
	snap := RoomSnapshot{RoomID: id, HostID: r.hostID, Members: make([]Member, 0, len(r.members))}
	for _, m := range r.members {
		snap.Members = append(snap.Members, *m)
	}
	return snap
}

// Registry holds the members of every room. Each room owns a broadcaster
// that closes when the last member leaves.
type Registry struct {
	mu    sync.Mutex
	rooms *realtime.RoomStore[*room, Message]

	hostReassign bool
	log          zerolog.Logger
	newID        func() string
	now          func() time.Time
}

// Option customizes a Registry.
type Option func(*Registry)

// WithHostReassign controls whether the earliest remaining member becomes
// host when the host leaves. It is on by default.
func WithHostReassign(on bool) Option {
	return func(r *Registry) { r.hostReassign = on }
}

// WithLogger sets the registry logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) { r.log = log.With().Str("component", "lobby").Logger() }
}

// WithIDGenerator replaces the uuid member id generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:        realtime.NewRoomStore[*room, Message](),
		hostReassign: true,
		log:          zerolog.Nop(),
		newID:        uuid.NewString,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join adds a member to roomID, creating the room on first join. The first
// member of a room becomes its host.
func (r *Registry) Join(roomID, name string) (Member, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return Member{}, ErrEmptyRoomID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Member{}, ErrEmptyName
	}
	if runes := []rune(name); len(runes) > MaxNameLength {
		name = string(runes[:MaxNameLength])
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms.Get(roomID)
	if !ok {
		rm = r.rooms.Create(roomID, &room{})
	}
	m := &Member{
		ID:       r.newID(),
		Name:     name,
		Status:   StatusPending,
		JoinedAt: r.now(),
	}
	if rm.State.hostID == "" {
		m.IsHost = true
		rm.State.hostID = m.ID
	}
	rm.State.members = append(rm.State.members, m)
	r.log.Info().Str("room", roomID).Str("member", m.ID).Bool("host", m.IsHost).Msg("member joined")

	rm.Hub().Publish(Message{Type: MessageRoomUpdate, Data: rm.State.snapshot(roomID)})
	return *m, nil
}

// Leave removes a member. The room is dropped once it is empty.
func (r *Registry) Leave(roomID, memberID string) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms.Get(roomID)
	if !ok {
		return LeaveResult{}, false
	}
	i, m := rm.State.find(memberID)
	if m == nil {
		return LeaveResult{}, false
	}
	rm.State.members = append(rm.State.members[:i:i], rm.State.members[i+1:]...)
	res := LeaveResult{Member: *m}

	if m.IsHost {
		rm.State.hostID = ""
		if r.hostReassign && len(rm.State.members) > 0 {
			next := rm.State.members[0]
			next.IsHost = true
			rm.State.hostID = next.ID
			res.NewHostID = next.ID
		}
	}
	r.log.Info().Str("room", roomID).Str("member", memberID).Str("new_host", res.NewHostID).Msg("member left")

	if len(rm.State.members) == 0 {
		r.rooms.Remove(roomID)
		res.RoomRemoved = true
		return res, true
	}
	rm.Hub().Publish(Message{Type: MessagePlayerLeft, Data: res})
	rm.Hub().Publish(Message{Type: MessageRoomUpdate, Data: rm.State.snapshot(roomID)})
	return res, true
}

// Roster returns the room's members as game players, in join order.
func (r *Registry) Roster(roomID string) ([]game.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms.Get(roomID)
	if !ok {
		return nil, false
	}
	players := make([]game.Player, 0, len(rm.State.members))
	for _, m := range rm.State.members {
		players = append(players, game.Player{ID: m.ID, Name: m.Name, IsHost: m.IsHost})
	}
	return players, true
}

// Snapshot returns a copy of the room's membership.
func (r *Registry) Snapshot(roomID string) (RoomSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms.Get(roomID)
	if !ok {
		return RoomSnapshot{RoomID: roomID}, false
	}
	return rm.State.snapshot(roomID), true
}

// Member looks up one member of a room.
func (r *Registry) Member(roomID, memberID string) (Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms.Get(roomID)
	if !ok {
		return Member{}, false
	}
	_, m := rm.State.find(memberID)
	if m == nil {
		return Member{}, false
	}
	return *m, true
}

// IsHost reports whether memberID currently hosts roomID.
func (r *Registry) IsHost(roomID, memberID string) bool {
	m, ok := r.Member(roomID, memberID)
	return ok && m.IsHost
}

// SetStatus updates a member's status and announces the new room state.
func (r *Registry) SetStatus(roomID, memberID string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms.Get(roomID)
	if !ok {
		return false
	}
	_, m := rm.State.find(memberID)
	if m == nil {
		return false
	}
	if m.Status == status {
		return true
	}
	m.Status = status
	rm.Hub().Publish(Message{Type: MessageRoomUpdate, Data: rm.State.snapshot(roomID)})
	return true
}

// ResetStatuses puts every member of the room back to pending.
func (r *Registry) ResetStatuses(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms.Get(roomID)
	if !ok {
		return
	}
	for _, m := range rm.State.members {
		m.Status = StatusPending
	}
	rm.Hub().Publish(Message{Type: MessageRoomUpdate, Data: rm.State.snapshot(roomID)})
}

// RemoveRoom drops the room and closes its subscriptions.
func (r *Registry) RemoveRoom(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms.Remove(roomID)
	if ok {
		r.log.Info().Str("room", roomID).Msg("room removed")
	}
	return ok
}

// Broadcaster returns the room's message broadcaster.
func (r *Registry) Broadcaster(roomID string) (*realtime.Broadcaster[Message], bool) {
	return r.rooms.Broadcaster(roomID)
}

// Publish sends msg to the room's subscribers.
func (r *Registry) Publish(roomID string, msg Message) bool {
	return r.rooms.Publish(roomID, msg)
}

// Rooms returns the ids of all rooms, sorted.
func (r *Registry) Rooms() []string {
	return r.rooms.IDs()
}
