package handlers

import (
	"github.com/rs/zerolog"

	"totgame/internal/game"
	"totgame/internal/lobby"
)

// Hub forwards engine events to room subscribers and keeps member statuses
// in step with the turn order. It runs under the engine lock, so it only
// touches the registry and never calls back into the engine.
type Hub struct {
	registry *lobby.Registry
	log      zerolog.Logger
}

func NewHub(registry *lobby.Registry, log zerolog.Logger) *Hub {
	return &Hub{registry: registry, log: log.With().Str("component", "hub").Logger()}
}

// Publish implements game.Observer.
func (h *Hub) Publish(ev game.Event) {
	switch p := ev.Payload.(type) {
	case game.GameStartedPayload:
		h.registry.ResetStatuses(ev.RoomID)
	case game.PlayerSelectedPayload:
		if p.ReplacedPlayerID != "" {
			h.registry.SetStatus(ev.RoomID, p.ReplacedPlayerID, lobby.StatusCompleted)
		}
		h.registry.SetStatus(ev.RoomID, p.Player.ID, lobby.StatusActive)
	case game.PoolExhaustedPayload:
		if p.ReplacedPlayerID != "" {
			h.registry.SetStatus(ev.RoomID, p.ReplacedPlayerID, lobby.StatusCompleted)
		}
	case game.TurnFinishedPayload:
		if p.PlayerID != "" {
			h.registry.SetStatus(ev.RoomID, p.PlayerID, lobby.StatusCompleted)
		}
	}
	if !h.registry.Publish(ev.RoomID, lobby.Message{Type: string(ev.Kind), Data: ev.Payload}) {
		h.log.Debug().Str("room", ev.RoomID).Str("event", string(ev.Kind)).Msg("event for unknown room dropped")
	}
}
