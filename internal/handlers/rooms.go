package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"totgame/internal/catalog"
	"totgame/internal/game"
	"totgame/internal/lobby"
	"totgame/internal/viewmodel"
	"totgame/views/pages"
)

// MemberHeader carries the member id for clients that do not keep cookies.
const MemberHeader = "X-Member-ID"

type RoomHandler struct {
	engine   *game.Engine
	registry *lobby.Registry
	log      zerolog.Logger
	tracer   trace.Tracer

	upgrader  websocket.Upgrader
	wsRate    rate.Limit
	wsBurst   int
	keepAlive time.Duration
}

// HandlerOption customizes a RoomHandler.
type HandlerOption func(*RoomHandler)

func WithLogger(log zerolog.Logger) HandlerOption {
	return func(h *RoomHandler) { h.log = log.With().Str("component", "http").Logger() }
}

func WithTracer(tracer trace.Tracer) HandlerOption {
	return func(h *RoomHandler) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// WithRateLimit bounds the commands a single WebSocket may send.
func WithRateLimit(perSecond float64, burst int) HandlerOption {
	return func(h *RoomHandler) {
		h.wsRate = rate.Limit(perSecond)
		h.wsBurst = burst
	}
}

// WithKeepAlive sets the SSE comment and WebSocket ping interval.
func WithKeepAlive(d time.Duration) HandlerOption {
	return func(h *RoomHandler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

func NewRoomHandler(engine *game.Engine, registry *lobby.Registry, opts ...HandlerOption) *RoomHandler {
	h := &RoomHandler{
		engine:   engine,
		registry: registry,
		log:      zerolog.Nop(),
		tracer:   noop.NewTracerProvider().Tracer("totgame"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		wsRate:    5,
		wsBurst:   10,
		keepAlive: 25 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *RoomHandler) RegisterRoutes(r chi.Router) {
	r.Route("/rooms/{id}", func(r chi.Router) {
		// Long-lived streams stay outside the request timeout.
		r.Get("/stream", h.stream)
		r.Get("/ws", h.websocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(15 * time.Second))
			r.Get("/", h.roomState)
			r.Get("/view", h.roomView)
			r.Post("/join", h.join)
			r.Post("/leave", h.leave)
			r.Get("/game", h.gameState)
			r.Post("/game/start", h.start)
			r.Post("/game/draw", h.draw)
			r.Post("/game/choose", h.choose)
			r.Post("/game/finish", h.finish)
			r.Post("/game/control", h.control)
		})
	})
}

// RoomState is the combined membership and round snapshot.
type RoomState struct {
	Room lobby.RoomSnapshot `json:"room"`
	Game *game.Snapshot     `json:"game"`
}

func (h *RoomHandler) state(roomID string) (RoomState, bool) {
	room, ok := h.registry.Snapshot(roomID)
	if !ok {
		return RoomState{}, false
	}
	st := RoomState{Room: room}
	if snap, active := h.engine.Snapshot(roomID); active {
		st.Game = &snap
	}
	return st, true
}

func (h *RoomHandler) roomState(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, fail(http.StatusNotFound, reasonRoomNotFound))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *RoomHandler) gameState(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.engine.Snapshot(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, failReason(game.ReasonRoomInactive))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *RoomHandler) roomView(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	st, ok := h.state(roomID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	render(w, r, pages.RoomStatus(buildRoomPage(st, memberID(r, roomID))))
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	Member lobby.Member       `json:"member"`
	Room   lobby.RoomSnapshot `json:"room"`
}

func (h *RoomHandler) join(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req joinRequest
	if isJSON(r) {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, fail(http.StatusBadRequest, reasonInvalidBody))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, fail(http.StatusBadRequest, reasonInvalidBody))
			return
		}
		req.Name = r.FormValue("name")
	}

	m, err := h.registry.Join(roomID, req.Name)
	if errors.Is(err, lobby.ErrEmptyName) {
		writeError(w, fail(http.StatusBadRequest, "name_required"))
		return
	}
	if err != nil {
		writeError(w, fail(http.StatusBadRequest, "room_id_required"))
		return
	}
	setMemberCookie(w, roomID, m.ID)
	room, _ := h.registry.Snapshot(roomID)
	writeJSON(w, http.StatusCreated, joinResponse{Member: m, Room: room})
}

func (h *RoomHandler) leave(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	res, aerr := h.leaveRoom(r.Context(), roomID, memberID(r, roomID))
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	clearMemberCookie(w, roomID)
	writeJSON(w, http.StatusOK, res)
}

func (h *RoomHandler) start(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	res, aerr := h.startGame(r.Context(), roomID, memberID(r, roomID))
	respond(w, res, aerr)
}

func (h *RoomHandler) draw(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	res, aerr := h.drawPlayer(r.Context(), roomID, memberID(r, roomID))
	respond(w, res, aerr)
}

type chooseRequest struct {
	Category string `json:"category"`
}

func (h *RoomHandler) choose(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req chooseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, fail(http.StatusBadRequest, reasonInvalidBody))
		return
	}
	res, aerr := h.chooseOption(r.Context(), roomID, memberID(r, roomID), req.Category)
	respond(w, res, aerr)
}

func (h *RoomHandler) finish(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	res, aerr := h.finishTurn(r.Context(), roomID, memberID(r, roomID))
	respond(w, res, aerr)
}

type controlRequest struct {
	Action string `json:"action"`
}

func (h *RoomHandler) control(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req controlRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, fail(http.StatusBadRequest, reasonInvalidBody))
		return
	}
	res, aerr := h.controlGame(r.Context(), roomID, memberID(r, roomID), strings.TrimSpace(req.Action))
	respond(w, res, aerr)
}

func respond(w http.ResponseWriter, res any, aerr *actionError) {
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func memberID(r *http.Request, roomID string) string {
	if id := strings.TrimSpace(r.Header.Get(MemberHeader)); id != "" {
		return id
	}
	cookie, err := r.Cookie(memberCookieName(roomID))
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setMemberCookie(w http.ResponseWriter, roomID, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     memberCookieName(roomID),
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
}

func clearMemberCookie(w http.ResponseWriter, roomID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     memberCookieName(roomID),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func memberCookieName(roomID string) string {
	return "tot_member_" + roomID
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func buildRoomPage(st RoomState, self string) viewmodel.RoomPage {
	page := viewmodel.RoomPage{
		RoomID:   st.Room.RoomID,
		MemberID: self,
		State:    string(game.StateNoSession),
	}
	var currentID string
	if g := st.Game; g != nil {
		page.State = string(g.State)
		page.Remaining = len(g.RemainingIDs)
		page.Total = len(g.Participants)
		page.Drawn = len(g.HistoryIDs)
		page.TimerPending = g.TimerPending
		if g.CurrentPlayer != nil {
			currentID = g.CurrentPlayer.ID
			page.CurrentPlayer = g.CurrentPlayer.Name
			if page.CurrentPlayer == "" {
				page.CurrentPlayer = g.CurrentPlayer.ID
			}
		}
		if p := g.PromptOptions.Truth; p != nil {
			page.Prompts = append(page.Prompts, promptRow(*p, g.Choice))
		}
		if p := g.PromptOptions.Trick; p != nil {
			page.Prompts = append(page.Prompts, promptRow(*p, g.Choice))
		}
	}
	for _, m := range st.Room.Members {
		if m.ID == self && m.IsHost {
			page.IsHost = true
		}
		page.Members = append(page.Members, viewmodel.MemberRow{
			Name:      m.Name,
			Status:    string(m.Status),
			IsHost:    m.IsHost,
			IsCurrent: m.ID == currentID,
			IsSelf:    m.ID == self,
		})
	}
	return page
}

func promptRow(p catalog.Prompt, choice *game.Choice) viewmodel.PromptRow {
	return viewmodel.PromptRow{
		Category: string(p.Category),
		Content:  p.Content,
		Chosen:   choice != nil && choice.Prompt.ID == p.ID,
	}
}
