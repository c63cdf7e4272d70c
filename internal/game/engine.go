// Package game runs truth-or-trick rounds: one session per room, random
// draws over the non-host participants, prompt offers from the catalog and
// timer-driven advancement between turns.
//
// Every operation and every timer phase runs under a single engine lock, and
// each state-changing entry point cancels the room's pending timer before it
// mutates anything, so a stale timer never fires into a state it no longer
// matches.
package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"totgame/internal/catalog"
	"totgame/pkg/realtime"
)

const (
	phaseDraw       = "draw"
	phaseReveal     = "reveal"
	phasePickPrompt = "pickPrompt"
)

// RosterSource is the read side of the room membership registry.
type RosterSource interface {
	Roster(roomID string) ([]Player, bool)
}

// Engine owns every room session and its timer slot.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*session
	timers   *realtime.Scheduler

	catalog  *catalog.Catalog
	observer Observer
	rosters  RosterSource
	cfg      Config
	rng      *rand.Rand
	log      zerolog.Logger
	now      func() time.Time
}

// NewEngine creates an engine drawing prompts from cat and publishing to obs.
func NewEngine(cat *catalog.Catalog, obs Observer, opts ...Option) *Engine {
	if obs == nil {
		obs = nopObserver{}
	}
	if cat == nil {
		cat, _ = catalog.New()
	}
	e := &Engine{
		sessions: make(map[string]*session),
		catalog:  cat,
		observer: obs,
		cfg:      DefaultConfig(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	e.timers = realtime.NewScheduler(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Close cancels every pending timer. Sessions are kept for inspection.
func (e *Engine) Close() {
	e.timers.Stop()
}

// StartGame opens a session for roomID. The first roster entry flagged as
// host is excluded from draws; it fails soft when nobody else is present.
func (e *Engine) StartGame(roomID string, roster []Player) StartResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.start(roomID, roster, EventGameStarted)
}

// PlayAgain restarts the round in place: history and used prompts are cleared
// and the refreshed roster is drawn from again.
func (e *Engine) PlayAgain(roomID string, roster []Player) StartResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.start(roomID, roster, EventGameRestarted)
}

// StartRoom starts roomID with the roster read from the configured RosterSource.
func (e *Engine) StartRoom(roomID string) StartResult {
	roster, _ := e.roster(roomID)
	return e.StartGame(roomID, roster)
}

// RestartRoom is PlayAgain with the roster read from the configured RosterSource.
func (e *Engine) RestartRoom(roomID string) StartResult {
	roster, _ := e.roster(roomID)
	return e.PlayAgain(roomID, roster)
}

func (e *Engine) roster(roomID string) ([]Player, bool) {
	if e.rosters == nil {
		e.log.Warn().Str("room", roomID).Msg("no roster source configured")
		return nil, false
	}
	return e.rosters.Roster(roomID)
}

func (e *Engine) start(roomID string, roster []Player, kind EventKind) StartResult {
	now := e.now()
	host, participants := e.partition(roomID, roster)
	if len(participants) == 0 {
		e.log.Warn().Str("room", roomID).Msg("cannot start: requires at least one non-host player")
		return StartResult{
			Started:   false,
			Reason:    ReasonInsufficientParticipants,
			StartedAt: now,
		}
	}

	e.timers.Cancel(roomID)
	s, ok := e.sessions[roomID]
	if ok && kind == EventGameRestarted {
		s.reinit(host, participants, now)
	} else {
		s = newSession(roomID, host, participants, now)
		e.sessions[roomID] = s
	}
	e.log.Info().Str("room", roomID).Int("participants", len(participants)).
		Str("event", string(kind)).Msg("game started")

	e.publish(roomID, kind, GameStartedPayload{
		RemainingCount:    len(s.remaining),
		TotalPlayers:      len(s.participants),
		StartedAt:         now,
		AutoSelectDelayMs: e.cfg.InitialDelay.Milliseconds(),
	})
	pending := e.scheduleAutoDraw(s, e.cfg.InitialDelay, false)

	res := StartResult{
		Started:         true,
		FirstPlayer:     nil,
		RemainingCount:  len(s.remaining),
		TotalPlayers:    len(s.participants),
		StartedAt:       now,
		AutoSelectDelay: e.cfg.InitialDelay,
		AutoDrawPending: pending,
	}
	if pending {
		res.AutoSelectDelayMs = millis(e.cfg.InitialDelay)
	}
	return res
}

// partition dedupes roster by id (first wins) and splits off the host.
func (e *Engine) partition(roomID string, roster []Player) (string, []Player) {
	seen := make(map[string]struct{}, len(roster))
	var host string
	participants := make([]Player, 0, len(roster))
	for _, p := range roster {
		if p.ID == "" {
			e.log.Warn().Str("room", roomID).Msg("ignoring roster entry without id")
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if p.IsHost {
			if host == "" {
				host = p.ID
			}
			continue
		}
		participants = append(participants, p)
	}
	return host, participants
}

// DrawNextPlayer draws immediately, preempting any scheduled automatic draw.
func (e *Engine) DrawNextPlayer(roomID string) DrawResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timers.Cancel(roomID)
	s, ok := e.sessions[roomID]
	if !ok {
		e.log.Warn().Str("room", roomID).Msg("draw requested for inactive room")
		return DrawResult{Exhausted: true}
	}
	s.pending = nil
	s.drawPending = false

	var replaced string
	if s.current != nil {
		replaced = s.current.ID
	}
	res := e.draw(s)
	e.publishSelection(s, res, SourceManual, replaced)
	if res.Player != nil {
		if phases := e.turnPhases(s); len(phases) > 0 {
			s.pending = e.timers.Schedule(roomID, phases...)
		}
	}
	return res
}

// ChooseOption records the current player's pick. Re-submitting the recorded
// choice succeeds again without a second optionSelected event.
func (e *Engine) ChooseOption(roomID, playerID string, cat catalog.Category) ChoiceResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[roomID]
	if !ok {
		e.log.Warn().Str("room", roomID).Msg("choice submitted for inactive room")
		return choiceFailure(ReasonRoomInactive)
	}
	if !s.holdsTurn(playerID) {
		e.log.Warn().Str("room", roomID).Str("player", playerID).Msg("choice submitted without holding the turn")
		return choiceFailure(ReasonNotCurrentPlayer)
	}
	if !cat.Valid() {
		return choiceFailure(ReasonInvalidCategory)
	}
	if e.catalog.Size(cat) == 0 {
		e.log.Error().Str("category", string(cat)).Msg("no prompts configured")
		return choiceFailure(ReasonNoPromptsConfigured)
	}
	offered := s.options.Get(cat)
	if offered == nil {
		return choiceFailure(ReasonNoPromptsAvailable)
	}

	prompt := *offered
	res := ChoiceResult{
		Success:          true,
		PlayerID:         playerID,
		Category:         cat,
		Prompt:           &prompt,
		RemainingPrompts: e.catalog.Remaining(cat, s.used[cat]),
	}
	if s.choice != nil && s.choice.Category == cat && s.choice.Prompt.ID == prompt.ID {
		return res
	}
	s.choice = &Choice{Category: cat, Prompt: prompt}
	e.publish(roomID, EventOptionSelected, OptionSelectedPayload{
		PlayerID:         playerID,
		Category:         cat,
		Prompt:           prompt,
		RemainingPrompts: res.RemainingPrompts,
	})
	return res
}

// FinishTurn ends the current turn and arms the next automatic draw.
func (e *Engine) FinishTurn(roomID string) FinishResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timers.Cancel(roomID)
	s, ok := e.sessions[roomID]
	if !ok {
		e.log.Warn().Str("room", roomID).Msg("finish requested for inactive room")
		return FinishResult{}
	}
	if s.current == nil {
		e.log.Warn().Str("room", roomID).Msg("finish requested with no active player")
	}
	return e.endTurn(s)
}

// FinishPlayerTurn ends the turn on behalf of playerID, failing with
// ReasonNotCurrentPlayer unless playerID holds it at the time of the call.
func (e *Engine) FinishPlayerTurn(roomID, playerID string) (FinishResult, Reason) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[roomID]
	if !ok {
		return FinishResult{}, ReasonRoomInactive
	}
	if !s.holdsTurn(playerID) {
		e.log.Warn().Str("room", roomID).Str("player", playerID).Msg("finish requested without holding the turn")
		return FinishResult{}, ReasonNotCurrentPlayer
	}
	e.timers.Cancel(roomID)
	return e.endTurn(s), ""
}

// endTurn clears the turn, announces it and arms the next draw. Callers have
// already canceled the room's timer.
func (e *Engine) endTurn(s *session) FinishResult {
	var playerID string
	if s.current != nil {
		playerID = s.current.ID
	}
	s.clearTurn()
	s.pending = nil
	s.drawPending = false

	res := FinishResult{
		Scheduled:      true,
		NextIn:         e.cfg.TurnDelay,
		NextInMs:       millis(e.cfg.TurnDelay),
		RemainingCount: len(s.remaining),
		TotalPlayers:   len(s.participants),
	}
	e.publish(s.roomID, EventTurnFinished, TurnFinishedPayload{
		PlayerID:       playerID,
		Scheduled:      res.Scheduled,
		NextInMs:       res.NextInMs,
		RemainingCount: res.RemainingCount,
		TotalPlayers:   res.TotalPlayers,
	})

	if len(s.remaining) == 0 {
		// The final draw only announces the exhausted pool; nothing spins.
		e.armDraw(s, e.cfg.TurnDelay)
		return res
	}
	e.scheduleAutoDraw(s, e.cfg.TurnDelay, true)
	return res
}

// Reset discards the room's session and cancels its timer.
func (e *Engine) Reset(roomID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timers.Cancel(roomID)
	s, ok := e.sessions[roomID]
	if !ok {
		return
	}
	delete(e.sessions, roomID)
	e.log.Debug().Str("room", roomID).Msg("game reset")
	e.publish(roomID, EventGameEnded, GameEndedPayload{Drawn: len(s.history)})
}

// PlayerLeft drops a departed player from the pool. When they held the turn
// the configured LeavePolicy decides whether the turn ends right away.
func (e *Engine) PlayerLeft(roomID, playerID string) LeaveResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[roomID]
	if !ok {
		return LeaveResult{}
	}
	res := LeaveResult{
		Removed:  s.dropRemaining(playerID),
		HeldTurn: s.holdsTurn(playerID),
	}
	if res.HeldTurn && e.cfg.Leave == LeaveRedraw {
		e.timers.Cancel(roomID)
		e.endTurn(s)
		res.Redrawn = true
	}
	res.RemainingCount = len(s.remaining)
	res.TotalPlayers = len(s.participants)
	return res
}

// Snapshot returns a copy of the room's session.
func (e *Engine) Snapshot(roomID string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[roomID]
	if !ok {
		return Snapshot{RoomID: roomID, State: StateNoSession}, false
	}
	return s.snapshot(e.timers.Pending(roomID)), true
}

// Active reports whether roomID has a session.
func (e *Engine) Active(roomID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[roomID]
	return ok
}

// State returns the room's position in the state machine.
func (e *Engine) State(roomID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[roomID]
	if !ok {
		return StateNoSession
	}
	return s.state()
}

// scheduleAutoDraw arms the next draw unless the room cannot take one or
// already has a timer. It reports whether a draw was armed.
func (e *Engine) scheduleAutoDraw(s *session, delay time.Duration, spin bool) bool {
	if s == nil || len(s.remaining) == 0 || s.current != nil || e.timers.Pending(s.roomID) {
		return false
	}
	if spin {
		e.publish(s.roomID, EventSpinning, SpinningPayload{DurationMs: delay.Milliseconds()})
	}
	e.armDraw(s, delay)
	return true
}

func (e *Engine) armDraw(s *session, delay time.Duration) {
	phases := []realtime.Phase{{
		Name:  phaseDraw,
		After: delay,
		Run:   func(*realtime.Handle) { e.autoDraw(s) },
	}}
	phases = append(phases, e.turnPhases(s)...)
	s.pending = e.timers.Schedule(s.roomID, phases...)
	s.drawPending = true
}

// autoDraw is the draw phase callback; it runs with e.mu held.
func (e *Engine) autoDraw(s *session) {
	if cur, ok := e.sessions[s.roomID]; !ok || cur != s {
		return
	}
	s.drawPending = false
	res := e.draw(s)
	e.publishSelection(s, res, SourceAuto, "")
	if res.Player == nil {
		// Nothing to reveal; drop the remaining phases.
		e.timers.Cancel(s.roomID)
		s.pending = nil
	}
}

// turnPhases are the presentation steps that follow a successful draw.
func (e *Engine) turnPhases(s *session) []realtime.Phase {
	var phases []realtime.Phase
	if e.cfg.RevealDelay > 0 {
		phases = append(phases, realtime.Phase{
			Name:  phaseReveal,
			After: e.cfg.RevealDelay,
			Run: func(*realtime.Handle) {
				if s.current == nil {
					return
				}
				e.publish(s.roomID, EventSelectionRevealed, SelectionRevealedPayload{PlayerID: s.current.ID})
			},
		})
	}
	if e.cfg.PickPromptDelay > 0 {
		phases = append(phases, realtime.Phase{
			Name:  phasePickPrompt,
			After: e.cfg.PickPromptDelay,
			Run: func(*realtime.Handle) {
				s.pending = nil
				if s.current == nil || s.choice != nil {
					return
				}
				e.publish(s.roomID, EventPromptPickOpened, PromptPickOpenedPayload{
					PlayerID:      s.current.ID,
					PromptOptions: s.options.clone(),
				})
			},
		})
	}
	return phases
}

// draw picks the next player uniformly from the pool and offers prompts.
func (e *Engine) draw(s *session) DrawResult {
	if len(s.participants) == 0 {
		e.log.Error().Str("room", s.roomID).Msg("draw on a session without participants")
	}
	if len(s.remaining) == 0 {
		e.log.Debug().Str("room", s.roomID).Msg("all players have been drawn")
		s.clearTurn()
		return s.drawResult(nil)
	}

	i := e.rng.Intn(len(s.remaining))
	p := s.take(i)
	s.options = e.offerPrompts(s)
	e.log.Debug().Str("room", s.roomID).Str("player", p.ID).Int("index", i).
		Int("remaining", len(s.remaining)).Msg("player drawn")
	return s.drawResult(&p)
}

// offerPrompts draws one unused prompt per category and marks it consumed.
func (e *Engine) offerPrompts(s *session) PromptOptions {
	var opts PromptOptions
	for _, cat := range catalog.Categories {
		used := s.used[cat]
		if e.cfg.Exhaustion == ExhaustionWrap && e.catalog.Size(cat) > 0 && e.catalog.Remaining(cat, used) == 0 {
			used.Clear()
		}
		p, ok := e.catalog.Next(cat, used, e.rng)
		if !ok {
			continue
		}
		used.Add(p.ID)
		opts.set(cat, &p)
	}
	return opts
}

// publishSelection announces a draw. replaced names the player whose turn a
// manual draw cut short, if any.
func (e *Engine) publishSelection(s *session, res DrawResult, src Source, replaced string) {
	if res.Player == nil {
		e.publish(s.roomID, EventPlayerPoolExhausted, PoolExhaustedPayload{
			Source:           src,
			TotalPlayers:     res.TotalPlayers,
			ReplacedPlayerID: replaced,
		})
		return
	}
	e.publish(s.roomID, EventPlayerSelected, PlayerSelectedPayload{
		Player:           *res.Player,
		RemainingCount:   res.RemainingCount,
		TotalPlayers:     res.TotalPlayers,
		Exhausted:        res.Exhausted,
		Source:           src,
		PromptOptions:    res.PromptOptions.clone(),
		ReplacedPlayerID: replaced,
	})
}

func (e *Engine) publish(roomID string, kind EventKind, payload any) {
	e.observer.Publish(Event{Kind: kind, RoomID: roomID, Payload: payload})
}
