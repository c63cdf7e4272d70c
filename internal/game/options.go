package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// ExhaustionPolicy decides what happens once a category's pool is used up.
type ExhaustionPolicy string

const (
	// ExhaustionWrap clears the session's used set for the category and draws again.
	ExhaustionWrap ExhaustionPolicy = "wrap"
	// ExhaustionStrict stops offering the category until the session restarts.
	ExhaustionStrict ExhaustionPolicy = "strict"
)

// LeavePolicy decides what happens when the player holding the turn leaves.
type LeavePolicy string

const (
	// LeaveExclude keeps the turn until FinishTurn; the player is only dropped from the pool.
	LeaveExclude LeavePolicy = "exclude"
	// LeaveRedraw ends the turn at once and arms the next auto draw.
	LeaveRedraw LeavePolicy = "redraw"
)

// ParseExhaustionPolicy validates s.
func ParseExhaustionPolicy(s string) (ExhaustionPolicy, error) {
	switch p := ExhaustionPolicy(s); p {
	case ExhaustionWrap, ExhaustionStrict:
		return p, nil
	case "":
		return ExhaustionWrap, nil
	}
	return "", fmt.Errorf("unknown exhaustion policy %q", s)
}

// ParseLeavePolicy validates s.
func ParseLeavePolicy(s string) (LeavePolicy, error) {
	switch p := LeavePolicy(s); p {
	case LeaveExclude, LeaveRedraw:
		return p, nil
	case "":
		return LeaveExclude, nil
	}
	return "", fmt.Errorf("unknown leave policy %q", s)
}

// Config holds the engine's timing and policy knobs.
type Config struct {
	// InitialDelay precedes the first draw of a round; no spinning event is sent.
	InitialDelay time.Duration
	// TurnDelay precedes every later draw and is announced by a spinning event.
	TurnDelay time.Duration
	// RevealDelay is the gap between a draw and the selectionRevealed event. Zero disables it.
	RevealDelay time.Duration
	// PickPromptDelay is the gap between the reveal and promptPickOpened. Zero disables it.
	PickPromptDelay time.Duration

	Exhaustion ExhaustionPolicy
	Leave      LeavePolicy
}

// DefaultConfig returns the reference timings.
func DefaultConfig() Config {
	return Config{
		InitialDelay:    3 * time.Second,
		TurnDelay:       5 * time.Second,
		RevealDelay:     2 * time.Second,
		PickPromptDelay: 5 * time.Second,
		Exhaustion:      ExhaustionWrap,
		Leave:           LeaveExclude,
	}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.Exhaustion == "" {
			cfg.Exhaustion = ExhaustionWrap
		}
		if cfg.Leave == "" {
			cfg.Leave = LeaveExclude
		}
		e.cfg = cfg
	}
}

// WithRand sets the random source used for draws and prompt picks.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log.With().Str("component", "game").Logger()
	}
}

// WithClock overrides time.Now for start timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRosterSource lets StartRoom and RestartRoom read rosters from src.
func WithRosterSource(src RosterSource) Option {
	return func(e *Engine) {
		e.rosters = src
	}
}
