// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"totgame/internal/game"
)

// Config is the server configuration.
type Config struct {
	Addr string `env:"TOT_ADDR" envDefault:":8080"`
	// Port is honored when TOT_ADDR is unset, for hosts that only inject PORT.
	Port string `env:"PORT"`

	InitialDrawDelay time.Duration `env:"TOT_INITIAL_DRAW_DELAY" envDefault:"3s"`
	TurnDrawDelay    time.Duration `env:"TOT_TURN_DRAW_DELAY" envDefault:"5s"`
	RevealDelay      time.Duration `env:"TOT_REVEAL_DELAY" envDefault:"2s"`
	PickPromptDelay  time.Duration `env:"TOT_PICK_PROMPT_DELAY" envDefault:"5s"`

	ExhaustionPolicy string `env:"TOT_EXHAUSTION_POLICY" envDefault:"wrap"`
	LeavePolicy      string `env:"TOT_LEAVE_POLICY" envDefault:"exclude"`
	HostReassign     bool   `env:"TOT_HOST_REASSIGN" envDefault:"true"`

	PromptsDB string `env:"TOT_PROMPTS_DB"`

	LogLevel  string `env:"TOT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TOT_LOG_FORMAT" envDefault:"console"`

	OTelEndpoint string `env:"TOT_OTEL_ENDPOINT"`

	WSRate  float64 `env:"TOT_WS_RATE" envDefault:"5"`
	WSBurst int     `env:"TOT_WS_BURST" envDefault:"10"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the env parser cannot.
func (c Config) Validate() error {
	if _, err := game.ParseExhaustionPolicy(c.ExhaustionPolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := game.ParseLeavePolicy(c.LeavePolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"TOT_INITIAL_DRAW_DELAY": c.InitialDrawDelay,
		"TOT_TURN_DRAW_DELAY":    c.TurnDrawDelay,
		"TOT_REVEAL_DELAY":       c.RevealDelay,
		"TOT_PICK_PROMPT_DELAY":  c.PickPromptDelay,
	} {
		if d < 0 {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	if c.WSRate <= 0 || c.WSBurst < 1 {
		return fmt.Errorf("config: websocket rate %v and burst %d must be positive", c.WSRate, c.WSBurst)
	}
	return nil
}

// ListenAddr resolves the listen address.
func (c Config) ListenAddr() string {
	if port := strings.TrimSpace(c.Port); port != "" && (c.Addr == "" || c.Addr == ":8080") {
		return ":" + port
	}
	return c.Addr
}

// Game converts the timing and policy settings into an engine config.
// Validate must have succeeded.
func (c Config) Game() game.Config {
	exhaustion, _ := game.ParseExhaustionPolicy(c.ExhaustionPolicy)
	leave, _ := game.ParseLeavePolicy(c.LeavePolicy)
	return game.Config{
		InitialDelay:    c.InitialDrawDelay,
		TurnDelay:       c.TurnDrawDelay,
		RevealDelay:     c.RevealDelay,
		PickPromptDelay: c.PickPromptDelay,
		Exhaustion:      exhaustion,
		Leave:           leave,
	}
}
