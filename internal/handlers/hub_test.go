package handlers

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"totgame/internal/game"
	"totgame/internal/lobby"
)

func TestHub_TracksStatuses(t *testing.T) {
	registry := lobby.NewRegistry()
	host, err := registry.Join("R1", "Hana")
	require.NoError(t, err)
	guest, err := registry.Join("R1", "Gus")
	require.NoError(t, err)

	hub := NewHub(registry, zerolog.Nop())
	sub, _ := registry.Broadcaster("R1")
	ch := sub.Subscribe()
	defer sub.Unsubscribe(ch)

	hub.Publish(game.Event{
		Kind:    game.EventPlayerSelected,
		RoomID:  "R1",
		Payload: game.PlayerSelectedPayload{Player: game.Player{ID: guest.ID}},
	})
	m, _ := registry.Member("R1", guest.ID)
	assert.Equal(t, lobby.StatusActive, m.Status)

	hub.Publish(game.Event{
		Kind:    game.EventTurnFinished,
		RoomID:  "R1",
		Payload: game.TurnFinishedPayload{PlayerID: guest.ID},
	})
	m, _ = registry.Member("R1", guest.ID)
	assert.Equal(t, lobby.StatusCompleted, m.Status)

	hub.Publish(game.Event{Kind: game.EventGameRestarted, RoomID: "R1", Payload: game.GameStartedPayload{}})
	m, _ = registry.Member("R1", guest.ID)
	assert.Equal(t, lobby.StatusPending, m.Status)
	h, _ := registry.Member("R1", host.ID)
	assert.Equal(t, lobby.StatusPending, h.Status)

	var kinds []string
	for len(ch) > 0 {
		kinds = append(kinds, (<-ch).Type)
	}
	assert.Equal(t, []string{
		lobby.MessageRoomUpdate, string(game.EventPlayerSelected),
		lobby.MessageRoomUpdate, string(game.EventTurnFinished),
		lobby.MessageRoomUpdate, string(game.EventGameRestarted),
	}, kinds)
}

func TestHub_ReplacedTurnCompletes(t *testing.T) {
	registry := lobby.NewRegistry()
	a, err := registry.Join("R1", "Ana")
	require.NoError(t, err)
	b, err := registry.Join("R1", "Ben")
	require.NoError(t, err)
	hub := NewHub(registry, zerolog.Nop())

	hub.Publish(game.Event{
		Kind:    game.EventPlayerSelected,
		RoomID:  "R1",
		Payload: game.PlayerSelectedPayload{Player: game.Player{ID: a.ID}},
	})
	hub.Publish(game.Event{
		Kind:    game.EventPlayerSelected,
		RoomID:  "R1",
		Payload: game.PlayerSelectedPayload{Player: game.Player{ID: b.ID}, ReplacedPlayerID: a.ID},
	})
	m, _ := registry.Member("R1", a.ID)
	assert.Equal(t, lobby.StatusCompleted, m.Status)
	m, _ = registry.Member("R1", b.ID)
	assert.Equal(t, lobby.StatusActive, m.Status)

	hub.Publish(game.Event{
		Kind:    game.EventPlayerPoolExhausted,
		RoomID:  "R1",
		Payload: game.PoolExhaustedPayload{ReplacedPlayerID: b.ID},
	})
	m, _ = registry.Member("R1", b.ID)
	assert.Equal(t, lobby.StatusCompleted, m.Status)
}

func TestHub_UnknownRoom(t *testing.T) {
	hub := NewHub(lobby.NewRegistry(), zerolog.Nop())
	assert.NotPanics(t, func() {
		hub.Publish(game.Event{Kind: game.EventGameEnded, RoomID: "gone", Payload: game.GameEndedPayload{}})
	})
}
