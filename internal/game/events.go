package game

import (
	"time"

	"totgame/internal/catalog"
)

// EventKind identifies a turn lifecycle event.
type EventKind string

const (
	EventGameStarted         EventKind = "gameStarted"
	EventGameRestarted       EventKind = "gameRestarted"
	EventGameEnded           EventKind = "gameEnded"
	EventSpinning            EventKind = "spinning"
	EventPlayerSelected      EventKind = "playerSelected"
	EventPlayerPoolExhausted EventKind = "playerPoolExhausted"
	EventSelectionRevealed   EventKind = "selectionRevealed"
	EventPromptPickOpened    EventKind = "promptPickOpened"
	EventOptionSelected      EventKind = "optionSelected"
	EventTurnFinished        EventKind = "turnFinished"
)

// Event is published once per state transition of a room.
type Event struct {
	Kind    EventKind
	RoomID  string
	Payload any
}

type GameStartedPayload struct {
	RemainingCount    int       `json:"remainingCount"`
	TotalPlayers      int       `json:"totalPlayers"`
	StartedAt         time.Time `json:"startedAt"`
	AutoSelectDelayMs int64     `json:"autoSelectDelayMs"`
}

type GameEndedPayload struct {
	Drawn int `json:"drawn"`
}

type SpinningPayload struct {
	DurationMs int64 `json:"durationMs"`
}

type PlayerSelectedPayload struct {
	Player         Player        `json:"player"`
	RemainingCount int           `json:"remainingCount"`
	TotalPlayers   int           `json:"totalPlayers"`
	Exhausted      bool          `json:"exhausted"`
	Source         Source        `json:"source"`
	PromptOptions  PromptOptions `json:"promptOptions"`
	// ReplacedPlayerID is set when a manual draw cut another player's turn short.
	ReplacedPlayerID string `json:"replacedPlayerId,omitempty"`
}

type PoolExhaustedPayload struct {
	Source           Source `json:"source"`
	TotalPlayers     int    `json:"totalPlayers"`
	ReplacedPlayerID string `json:"replacedPlayerId,omitempty"`
}

type SelectionRevealedPayload struct {
	PlayerID string `json:"playerId"`
}

type PromptPickOpenedPayload struct {
	PlayerID      string        `json:"playerId"`
	PromptOptions PromptOptions `json:"promptOptions"`
}

type OptionSelectedPayload struct {
	PlayerID         string           `json:"playerId"`
	Category         catalog.Category `json:"category"`
	Prompt           catalog.Prompt   `json:"prompt"`
	RemainingPrompts int              `json:"remainingPrompts"`
}

type TurnFinishedPayload struct {
	PlayerID       string `json:"playerId,omitempty"`
	Scheduled      bool   `json:"scheduled"`
	NextInMs       *int64 `json:"nextInMs"`
	RemainingCount int    `json:"remainingCount"`
	TotalPlayers   int    `json:"totalPlayers"`
}

// Observer receives engine events. Publish is called with the engine lock
// held, in transition order, and must not block or call back into the engine.
type Observer interface {
	Publish(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Publish calls f(e).
func (f ObserverFunc) Publish(e Event) { f(e) }

// Observers fans events out to several observers in order.
type Observers []Observer

// Publish forwards e to every observer.
func (o Observers) Publish(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Publish(e)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Publish(Event) {}
