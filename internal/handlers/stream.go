package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"totgame/internal/lobby"
	"totgame/internal/viewmodel"
)

const (
	envelopeRoomState = "roomState"
	envelopeAck       = "ack"
	envelopeError     = "error"

	wsWriteWait    = 10 * time.Second
	wsMaxFrameSize = 4096
)

func (h *RoomHandler) stream(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	hub, ok := h.registry.Broadcaster(roomID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	self := memberID(r, roomID)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	st, _ := h.state(roomID)
	writeEnvelope(w, viewmodel.Envelope{Type: envelopeRoomState, RoomID: roomID, Data: st})
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub:
			if !ok {
				return
			}
			if !msg.ForMember(self) {
				continue
			}
			writeEnvelope(w, viewmodel.Envelope{Type: msg.Type, RoomID: roomID, Data: msg.Data})
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

func writeEnvelope(w http.ResponseWriter, env viewmodel.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	writeSSE(w, env.Type, string(data))
}

// wsCommand is a client frame. Ref is echoed back so clients can match replies.
type wsCommand struct {
	Type     string `json:"type"`
	Ref      string `json:"ref,omitempty"`
	Category string `json:"category,omitempty"`
	Action   string `json:"action,omitempty"`
}

type commandReply struct {
	Command string `json:"command"`
	Ref     string `json:"ref,omitempty"`
	Result  any    `json:"result,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (h *RoomHandler) websocket(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	self := memberID(r, roomID)
	if self == "" {
		writeError(w, fail(http.StatusUnauthorized, reasonMemberRequired))
		return
	}
	if _, ok := h.registry.Member(roomID, self); !ok {
		writeError(w, fail(http.StatusNotFound, reasonRoomNotFound))
		return
	}
	hub, ok := h.registry.Broadcaster(roomID)
	if !ok {
		writeError(w, fail(http.StatusNotFound, reasonRoomNotFound))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("room", roomID).Msg("websocket upgrade failed")
		return
	}

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	s := &wsSession{
		h:          h,
		conn:       conn,
		roomID:     roomID,
		memberID:   self,
		limiter:    rate.NewLimiter(h.wsRate, h.wsBurst),
		replies:    make(chan viewmodel.Envelope, 16),
		readDone:   make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	st, _ := h.state(roomID)
	s.replies <- viewmodel.Envelope{Type: envelopeRoomState, RoomID: roomID, Data: st}

	go s.writePump(sub)
	s.readPump(r.Context())
	<-s.writerDone
	h.log.Debug().Str("room", roomID).Str("member", self).Msg("websocket closed")
}

type wsSession struct {
	h        *RoomHandler
	conn     *websocket.Conn
	roomID   string
	memberID string
	limiter  *rate.Limiter

	replies    chan viewmodel.Envelope
	readDone   chan struct{}
	writerDone chan struct{}
}

func (s *wsSession) reply(env viewmodel.Envelope) {
	select {
	case s.replies <- env:
	case <-s.writerDone:
	}
}

func (s *wsSession) readPump(ctx context.Context) {
	defer close(s.readDone)

	pongWait := 2 * s.h.keepAlive
	s.conn.SetReadLimit(wsMaxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.reply(s.errorEnvelope(cmd, reasonInvalidBody))
			continue
		}
		if !s.limiter.Allow() {
			s.reply(s.errorEnvelope(cmd, reasonRateLimited))
			continue
		}
		s.reply(s.h.dispatch(ctx, s.roomID, s.memberID, cmd))
		if cmd.Type == "leave" {
			return
		}
	}
}

func (s *wsSession) writePump(sub chan lobby.Message) {
	defer close(s.writerDone)
	defer s.conn.Close()

	ping := time.NewTicker(s.h.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-s.readDone:
			s.closeFrame(websocket.CloseNormalClosure, "bye")
			return
		case env := <-s.replies:
			if err := s.write(env); err != nil {
				return
			}
		case msg, ok := <-sub:
			if !ok {
				s.closeFrame(websocket.CloseGoingAway, "room closed")
				return
			}
			if !msg.ForMember(s.memberID) {
				continue
			}
			if err := s.write(viewmodel.Envelope{Type: msg.Type, RoomID: s.roomID, Data: msg.Data}); err != nil {
				return
			}
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) write(env viewmodel.Envelope) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(env)
}

func (s *wsSession) closeFrame(code int, text string) {
	// Flush replies queued by the last command before closing.
	for len(s.replies) > 0 {
		if s.write(<-s.replies) != nil {
			return
		}
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
}

func (s *wsSession) errorEnvelope(cmd wsCommand, reason string) viewmodel.Envelope {
	return viewmodel.Envelope{
		Type:   envelopeError,
		RoomID: s.roomID,
		Data:   commandReply{Command: cmd.Type, Ref: cmd.Ref, Reason: reason},
	}
}

// dispatch runs one WebSocket command through the same actions as HTTP.
func (h *RoomHandler) dispatch(ctx context.Context, roomID, memberID string, cmd wsCommand) viewmodel.Envelope {
	var (
		res  any
		aerr *actionError
	)
	switch cmd.Type {
	case "start":
		res, aerr = h.startGame(ctx, roomID, memberID)
	case "draw":
		res, aerr = h.drawPlayer(ctx, roomID, memberID)
	case "choose":
		res, aerr = h.chooseOption(ctx, roomID, memberID, cmd.Category)
	case "finish":
		res, aerr = h.finishTurn(ctx, roomID, memberID)
	case "control":
		res, aerr = h.controlGame(ctx, roomID, memberID, cmd.Action)
	case "leave":
		res, aerr = h.leaveRoom(ctx, roomID, memberID)
	case "snapshot":
		st, ok := h.state(roomID)
		if !ok {
			aerr = fail(http.StatusNotFound, reasonRoomNotFound)
		}
		res = st
	default:
		aerr = fail(http.StatusBadRequest, reasonUnknownCommand)
	}
	if aerr != nil {
		return viewmodel.Envelope{
			Type:   envelopeError,
			RoomID: roomID,
			Data:   commandReply{Command: cmd.Type, Ref: cmd.Ref, Reason: aerr.Reason},
		}
	}
	return viewmodel.Envelope{
		Type:   envelopeAck,
		RoomID: roomID,
		Data:   commandReply{Command: cmd.Type, Ref: cmd.Ref, Result: res},
	}
}
