package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"totgame/internal/catalog"
	"totgame/internal/game"
	"totgame/internal/lobby"
)

// Transport-level failure reasons, alongside game.Reason values.
const (
	reasonMemberRequired = "member_required"
	reasonNotHost        = "not_host"
	reasonRoomNotFound   = "room_not_found"
	reasonInvalidAction  = "invalid_action"
	reasonInvalidBody    = "invalid_body"
	reasonUnknownCommand = "unknown_command"
	reasonRateLimited    = "rate_limited"
)

// actionError is a failed command, rendered as {"reason": ...}.
type actionError struct {
	status int
	Reason string `json:"reason"`
}

func (e *actionError) Error() string { return e.Reason }

func fail(status int, reason string) *actionError {
	return &actionError{status: status, Reason: reason}
}

func failReason(r game.Reason) *actionError {
	return fail(reasonStatus(r), string(r))
}

func reasonStatus(r game.Reason) int {
	switch r {
	case game.ReasonRoomInactive:
		return http.StatusConflict
	case game.ReasonNotCurrentPlayer:
		return http.StatusForbidden
	case game.ReasonInvalidCategory:
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

// ControlResult is the reply to an end or restart request.
type ControlResult struct {
	Action  string            `json:"action"`
	Removed bool              `json:"removed,omitempty"`
	Restart *game.StartResult `json:"restart,omitempty"`
}

func (h *RoomHandler) span(ctx context.Context, name, roomID, memberID string) (context.Context, trace.Span) {
	return h.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("member.id", memberID),
	))
}

func endSpan(span trace.Span, err *actionError) {
	if err != nil {
		span.SetStatus(codes.Error, err.Reason)
	}
	span.End()
}

// requireHost checks that memberID belongs to roomID and hosts it.
func (h *RoomHandler) requireHost(roomID, memberID string) *actionError {
	if memberID == "" {
		return fail(http.StatusUnauthorized, reasonMemberRequired)
	}
	m, ok := h.registry.Member(roomID, memberID)
	if !ok {
		if _, exists := h.registry.Snapshot(roomID); !exists {
			return fail(http.StatusNotFound, reasonRoomNotFound)
		}
		return fail(http.StatusUnauthorized, reasonMemberRequired)
	}
	if !m.IsHost {
		return fail(http.StatusForbidden, reasonNotHost)
	}
	return nil
}

func (h *RoomHandler) outOfTurn(roomID, memberID, command string) {
	h.registry.Publish(roomID, lobby.Message{
		Type: lobby.MessageOutOfTurn,
		To:   memberID,
		Data: map[string]string{"command": command},
	})
}

func (h *RoomHandler) startGame(ctx context.Context, roomID, memberID string) (res game.StartResult, aerr *actionError) {
	_, span := h.span(ctx, "game.start", roomID, memberID)
	defer func() { endSpan(span, aerr) }()

	if aerr = h.requireHost(roomID, memberID); aerr != nil {
		return res, aerr
	}
	res = h.engine.StartRoom(roomID)
	if !res.Started {
		return res, failReason(res.Reason)
	}
	span.SetAttributes(attribute.Int("game.participants", res.TotalPlayers))
	return res, nil
}

func (h *RoomHandler) drawPlayer(ctx context.Context, roomID, memberID string) (res game.DrawResult, aerr *actionError) {
	_, span := h.span(ctx, "game.draw", roomID, memberID)
	defer func() { endSpan(span, aerr) }()

	if aerr = h.requireHost(roomID, memberID); aerr != nil {
		return res, aerr
	}
	if !h.engine.Active(roomID) {
		return res, failReason(game.ReasonRoomInactive)
	}
	res = h.engine.DrawNextPlayer(roomID)
	span.SetAttributes(attribute.Bool("game.exhausted", res.Exhausted))
	return res, nil
}

func (h *RoomHandler) chooseOption(ctx context.Context, roomID, memberID, rawCategory string) (res game.ChoiceResult, aerr *actionError) {
	_, span := h.span(ctx, "game.choose", roomID, memberID)
	defer func() { endSpan(span, aerr) }()

	if memberID == "" {
		return res, fail(http.StatusUnauthorized, reasonMemberRequired)
	}
	cat, ok := catalog.ParseCategory(rawCategory)
	if !ok {
		// Keep the raw value so the engine reports the failure in its own order.
		cat = catalog.Category(strings.ToLower(strings.TrimSpace(rawCategory)))
	}
	res = h.engine.ChooseOption(roomID, memberID, cat)
	if !res.Success {
		if res.Reason == game.ReasonNotCurrentPlayer {
			h.outOfTurn(roomID, memberID, "choose")
		}
		return res, failReason(res.Reason)
	}
	return res, nil
}

func (h *RoomHandler) finishTurn(ctx context.Context, roomID, memberID string) (res game.FinishResult, aerr *actionError) {
	_, span := h.span(ctx, "game.finish", roomID, memberID)
	defer func() { endSpan(span, aerr) }()

	if memberID == "" {
		return res, fail(http.StatusUnauthorized, reasonMemberRequired)
	}
	if h.registry.IsHost(roomID, memberID) {
		if !h.engine.Active(roomID) {
			return res, failReason(game.ReasonRoomInactive)
		}
		return h.engine.FinishTurn(roomID), nil
	}
	res, reason := h.engine.FinishPlayerTurn(roomID, memberID)
	switch reason {
	case "":
		return res, nil
	case game.ReasonNotCurrentPlayer:
		h.outOfTurn(roomID, memberID, "finish")
	}
	return res, failReason(reason)
}

func (h *RoomHandler) controlGame(ctx context.Context, roomID, memberID, action string) (res ControlResult, aerr *actionError) {
	_, span := h.span(ctx, "game.control", roomID, memberID)
	defer func() { endSpan(span, aerr) }()
	span.SetAttributes(attribute.String("game.action", action))

	if aerr = h.requireHost(roomID, memberID); aerr != nil {
		return res, aerr
	}
	res.Action = action
	switch action {
	case "end":
		h.engine.Reset(roomID)
		res.Removed = h.registry.RemoveRoom(roomID)
		return res, nil
	case "restart":
		start := h.engine.RestartRoom(roomID)
		res.Restart = &start
		if !start.Started {
			h.log.Warn().Str("room", roomID).Msg("restart failed: insufficient participants")
			return res, failReason(start.Reason)
		}
		return res, nil
	}
	return res, fail(http.StatusBadRequest, reasonInvalidAction)
}

// leaveRoom removes the member from the lobby and then from the round.
func (h *RoomHandler) leaveRoom(ctx context.Context, roomID, memberID string) (res lobby.LeaveResult, aerr *actionError) {
	_, span := h.span(ctx, "room.leave", roomID, memberID)
	defer func() { endSpan(span, aerr) }()

	if memberID == "" {
		return res, fail(http.StatusUnauthorized, reasonMemberRequired)
	}
	res, ok := h.registry.Leave(roomID, memberID)
	if !ok {
		return res, fail(http.StatusNotFound, reasonRoomNotFound)
	}
	if res.RoomRemoved {
		h.engine.Reset(roomID)
		return res, nil
	}
	h.engine.PlayerLeft(roomID, memberID)
	return res, nil
}
