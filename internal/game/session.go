package game

import (
	"time"

	"totgame/internal/catalog"
	"totgame/pkg/realtime"
)

// session is one room's round state. It is only touched with Engine.mu held.
type session struct {
	roomID       string
	hostID       string
	startedAt    time.Time
	participants []Player
	remaining    []Player
	history      []Player
	current      *Player
	options      PromptOptions
	choice       *Choice
	used         map[catalog.Category]catalog.Used

	// pending is the room's scheduled sequence; drawPending is true until its
	// draw phase has run.
	pending     *realtime.Handle
	drawPending bool
}

func newSession(roomID, hostID string, participants []Player, now time.Time) *session {
	s := &session{roomID: roomID}
	s.reinit(hostID, participants, now)
	return s
}

// reinit resets round progress in place: every participant returns to the
// pool and the used prompt sets are emptied.
func (s *session) reinit(hostID string, participants []Player, now time.Time) {
	s.hostID = hostID
	s.startedAt = now
	s.participants = participants
	s.remaining = append([]Player(nil), participants...)
	s.history = nil
	s.used = make(map[catalog.Category]catalog.Used, len(catalog.Categories))
	for _, cat := range catalog.Categories {
		s.used[cat] = catalog.Used{}
	}
	s.clearTurn()
	s.pending = nil
	s.drawPending = false
}

func (s *session) clearTurn() {
	s.current = nil
	s.choice = nil
	s.options = PromptOptions{}
}

// take removes remaining[i] and records it as the current player.
func (s *session) take(i int) Player {
	p := s.remaining[i]
	s.remaining = append(s.remaining[:i:i], s.remaining[i+1:]...)
	s.history = append(s.history, p)
	cur := p
	s.current = &cur
	s.choice = nil
	s.options = PromptOptions{}
	return p
}

// dropRemaining removes id from the pool and reports whether it was there.
func (s *session) dropRemaining(id string) bool {
	for i, p := range s.remaining {
		if p.ID == id {
			s.remaining = append(s.remaining[:i:i], s.remaining[i+1:]...)
			return true
		}
	}
	return false
}

func (s *session) holdsTurn(id string) bool {
	return s.current != nil && s.current.ID == id
}

func (s *session) state() State {
	switch {
	case s.current != nil:
		return StateTurnActive
	case s.drawPending:
		return StateAwaitingAutoDraw
	case len(s.remaining) == 0:
		return StateExhausted
	}
	return StateAwaitingDraw
}

func (s *session) drawResult(p *Player) DrawResult {
	return DrawResult{
		Player:         p,
		RemainingCount: len(s.remaining),
		TotalPlayers:   len(s.participants),
		Exhausted:      p == nil || len(s.remaining) == 0,
		PromptOptions:  s.options.clone(),
	}
}

func (s *session) snapshot(timerPending bool) Snapshot {
	snap := Snapshot{
		RoomID:        s.roomID,
		State:         s.state(),
		HostID:        s.hostID,
		Participants:  append([]Player(nil), s.participants...),
		RemainingIDs:  playerIDs(s.remaining),
		HistoryIDs:    playerIDs(s.history),
		PromptOptions: s.options.clone(),
		StartedAt:     s.startedAt,
		TimerPending:  timerPending,
	}
	if s.current != nil {
		cur := *s.current
		snap.CurrentPlayer = &cur
	}
	if s.choice != nil {
		choice := *s.choice
		snap.Choice = &choice
	}
	return snap
}

func playerIDs(players []Player) []string {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	return ids
}
