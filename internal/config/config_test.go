package config

import (
	"strings"
	"testing"
	"time"

	"totgame/internal/game"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("got addr %q, want :8080", cfg.Addr)
	}
	want := game.DefaultConfig()
	if got := cfg.Game(); got != want {
		t.Fatalf("got game config %+v, want %+v", got, want)
	}
	if !cfg.HostReassign {
		t.Fatal("expected host reassignment on by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TOT_TURN_DRAW_DELAY", "750ms")
	t.Setenv("TOT_REVEAL_DELAY", "0s")
	t.Setenv("TOT_EXHAUSTION_POLICY", "strict")
	t.Setenv("TOT_LEAVE_POLICY", "redraw")
	t.Setenv("TOT_HOST_REASSIGN", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	g := cfg.Game()
	if g.TurnDelay != 750*time.Millisecond {
		t.Fatalf("got turn delay %v, want 750ms", g.TurnDelay)
	}
	if g.RevealDelay != 0 {
		t.Fatalf("got reveal delay %v, want 0", g.RevealDelay)
	}
	if g.Exhaustion != game.ExhaustionStrict || g.Leave != game.LeaveRedraw {
		t.Fatalf("got policies %q/%q", g.Exhaustion, g.Leave)
	}
	if cfg.HostReassign {
		t.Fatal("expected host reassignment off")
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("TOT_EXHAUSTION_POLICY", "forever")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "exhaustion policy") {
		t.Fatalf("expected exhaustion policy error, got %v", err)
	}
}

func TestLoadRejectsNegativeDelay(t *testing.T) {
	t.Setenv("TOT_INITIAL_DRAW_DELAY", "-1s")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("TOT_WS_BURST", "many")
	var cfg Config
	err := ParseEnv(&cfg)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "default", cfg: Config{Addr: ":8080"}, want: ":8080"},
		{name: "port only", cfg: Config{Addr: ":8080", Port: "9000"}, want: ":9000"},
		{name: "explicit addr wins", cfg: Config{Addr: "127.0.0.1:7000", Port: "9000"}, want: "127.0.0.1:7000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ListenAddr(); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
