package game

import (
	"errors"
	"time"

	"totgame/internal/catalog"
)

// Player is a roster entry copied into a session at start.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	IsHost bool   `json:"isHost,omitempty"`
}

// PromptOptions holds at most one prompt per category for the current turn.
type PromptOptions struct {
	Truth *catalog.Prompt `json:"truth"`
	Trick *catalog.Prompt `json:"trick"`
}

// Get returns the option offered for cat, or nil.
func (o PromptOptions) Get(cat catalog.Category) *catalog.Prompt {
	switch cat {
	case catalog.Truth:
		return o.Truth
	case catalog.Trick:
		return o.Trick
	}
	return nil
}

func (o *PromptOptions) set(cat catalog.Category, p *catalog.Prompt) {
	switch cat {
	case catalog.Truth:
		o.Truth = p
	case catalog.Trick:
		o.Trick = p
	}
}

// clone copies the offered prompts so callers never alias session state.
func (o PromptOptions) clone() PromptOptions {
	var out PromptOptions
	for _, cat := range catalog.Categories {
		if p := o.Get(cat); p != nil {
			cp := *p
			out.set(cat, &cp)
		}
	}
	return out
}

// Choice is the option a drawn player picked.
type Choice struct {
	Category catalog.Category `json:"category"`
	Prompt   catalog.Prompt   `json:"prompt"`
}

// Source tells whether a draw came from the timer or a direct request.
type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
)

// Reason is a machine-readable failure cause.
type Reason string

const (
	ReasonRoomInactive             Reason = "room_inactive"
	ReasonNotCurrentPlayer         Reason = "not_current_player"
	ReasonInvalidCategory          Reason = "invalid_category"
	ReasonNoPromptsConfigured      Reason = "no_prompts_configured"
	ReasonNoPromptsAvailable       Reason = "no_prompts_available"
	ReasonInsufficientParticipants Reason = "insufficient_participants"
)

var (
	ErrRoomInactive             = errors.New("room has no active session")
	ErrNotCurrentPlayer         = errors.New("player does not hold the turn")
	ErrInvalidCategory          = errors.New("invalid prompt category")
	ErrNoPromptsConfigured      = errors.New("no prompts configured for category")
	ErrNoPromptsAvailable       = errors.New("no prompt offered for category")
	ErrInsufficientParticipants = errors.New("at least one non-host participant is required")
)

var reasonErrors = map[Reason]error{
	ReasonRoomInactive:             ErrRoomInactive,
	ReasonNotCurrentPlayer:         ErrNotCurrentPlayer,
	ReasonInvalidCategory:          ErrInvalidCategory,
	ReasonNoPromptsConfigured:      ErrNoPromptsConfigured,
	ReasonNoPromptsAvailable:       ErrNoPromptsAvailable,
	ReasonInsufficientParticipants: ErrInsufficientParticipants,
}

// Err returns the sentinel error for r, or nil for the empty reason.
func (r Reason) Err() error {
	return reasonErrors[r]
}

// StartResult summarizes a StartGame or PlayAgain call.
type StartResult struct {
	Started         bool          `json:"started"`
	Reason          Reason        `json:"reason,omitempty"`
	FirstPlayer     *Player       `json:"firstPlayer"`
	RemainingCount  int           `json:"remainingCount"`
	TotalPlayers    int           `json:"totalPlayers"`
	StartedAt       time.Time     `json:"startedAt"`
	AutoSelectDelay time.Duration `json:"-"`
	AutoDrawPending bool          `json:"autoDrawPending"`
	// AutoSelectDelayMs is nil unless an auto draw was armed.
	AutoSelectDelayMs *int64 `json:"autoSelectDelayMs"`
}

func millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}

// DrawResult is the outcome of one draw. Player is nil when the pool is empty.
type DrawResult struct {
	Player         *Player       `json:"player"`
	RemainingCount int           `json:"remainingCount"`
	TotalPlayers   int           `json:"totalPlayers"`
	Exhausted      bool          `json:"exhausted"`
	PromptOptions  PromptOptions `json:"promptOptions"`
}

// ChoiceResult is the outcome of ChooseOption.
type ChoiceResult struct {
	Success          bool             `json:"success"`
	Reason           Reason           `json:"reason,omitempty"`
	PlayerID         string           `json:"playerId,omitempty"`
	Category         catalog.Category `json:"category,omitempty"`
	Prompt           *catalog.Prompt  `json:"prompt,omitempty"`
	RemainingPrompts int              `json:"remainingPrompts"`
}

func choiceFailure(r Reason) ChoiceResult {
	return ChoiceResult{Success: false, Reason: r}
}

// FinishResult is the outcome of FinishTurn.
type FinishResult struct {
	Scheduled      bool          `json:"scheduled"`
	NextIn         time.Duration `json:"-"`
	NextInMs       *int64        `json:"nextInMs"`
	RemainingCount int           `json:"remainingCount"`
	TotalPlayers   int           `json:"totalPlayers"`
}

// LeaveResult is the outcome of PlayerLeft.
type LeaveResult struct {
	Removed        bool `json:"removed"`
	HeldTurn       bool `json:"heldTurn"`
	Redrawn        bool `json:"redrawn"`
	RemainingCount int  `json:"remainingCount"`
	TotalPlayers   int  `json:"totalPlayers"`
}

// State is the coarse position of a room in the turn state machine.
type State string

const (
	StateNoSession        State = "no_session"
	StateAwaitingAutoDraw State = "awaiting_auto_draw"
	StateAwaitingDraw     State = "awaiting_draw"
	StateTurnActive       State = "turn_active"
	StateExhausted        State = "exhausted"
)

// Snapshot is a read-only copy of a room's session.
type Snapshot struct {
	RoomID        string        `json:"roomId"`
	State         State         `json:"state"`
	HostID        string        `json:"hostId,omitempty"`
	Participants  []Player      `json:"participants"`
	RemainingIDs  []string      `json:"remainingIds"`
	HistoryIDs    []string      `json:"historyIds"`
	CurrentPlayer *Player       `json:"currentPlayer"`
	PromptOptions PromptOptions `json:"promptOptions"`
	Choice        *Choice       `json:"choice"`
	StartedAt     time.Time     `json:"startedAt"`
	TimerPending  bool          `json:"timerPending"`
}
