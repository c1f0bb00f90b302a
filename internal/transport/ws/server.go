// Package ws exposes game rooms over the WebSocket JSON protocol.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"chess-arena/internal/arena"
	"chess-arena/internal/msgcat"
	"chess-arena/internal/presence"
)

// Server accepts sockets on /ws/{room_id} and bridges them into rooms.
type Server struct {
	registry *arena.Registry
	cat      *msgcat.Catalog
	tracker  *presence.Tracker // nil disables presence
	origins  []string
	log      *zap.Logger
}

func NewServer(registry *arena.Registry, cat *msgcat.Catalog, tracker *presence.Tracker, origins []string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		registry: registry,
		cat:      cat,
		tracker:  tracker,
		origins:  origins,
		log:      log,
	}
}

// Register mounts the websocket route on the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/{room_id}", s.handle)
}

type inbound struct {
	Type string `json:"type"`
	Move string `json:"move"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.PathValue("room_id"))
	if roomID == "" {
		http.Error(w, "room id required", http.StatusBadRequest)
		return
	}

	ident := identityFromQuery(r)
	pref := arena.ParseSeatPreference(r.URL.Query().Get("preferred"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.log.Warn("ws_accept_error", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	sess := newSession(conn)
	room := s.registry.GetOrCreate(roomID)
	seat, fen := room.Join(sess, ident, pref)

	ctx := r.Context()
	if s.tracker != nil {
		if err := s.tracker.Connect(ctx, ident.UserID, ident.Username); err != nil {
			s.log.Warn("presence_connect_error", zap.Int64("user_id", ident.UserID), zap.Error(err))
		}
	}

	defer func() {
		room.Leave(sess.ID())
		if s.tracker != nil {
			if err := s.tracker.Disconnect(context.Background(), ident.UserID); err != nil {
				s.log.Warn("presence_disconnect_error", zap.Int64("user_id", ident.UserID), zap.Error(err))
			}
		}
		sess.close(websocket.StatusNormalClosure, "")
	}()

	// the joining client learns its seat and the current position first
	if err := sess.Send(ctx, arena.StateMessage{Type: "state", FEN: fen, Color: seat}); err != nil {
		return
	}

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return
		}
		// a malformed frame is answered, not fatal: the socket stays open
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.replyError(ctx, sess, errMalformed)
			continue
		}
		switch msg.Type {
		case "move":
			if err := room.PlayMove(ctx, sess.ID(), msg.Move); err != nil {
				s.replyError(ctx, sess, err)
			}
		default:
			s.replyError(ctx, sess, errUnknownType)
		}
	}
}

var (
	errUnknownType = errors.New("unknown message type")
	errMalformed   = errors.New("malformed message")
)

// replyError translates a rejected request into a client error frame sent
// to the offending connection only.
func (s *Server) replyError(ctx context.Context, sess *session, err error) {
	var key string
	switch {
	case errors.Is(err, arena.ErrSpectatorMove):
		key = "errors.spectator_move"
	case errors.Is(err, arena.ErrNotYourTurn):
		key = "errors.not_your_turn"
	case errors.Is(err, arena.ErrIllegalMove):
		key = "errors.invalid_move"
	case errors.Is(err, arena.ErrGameFinished):
		key = "errors.game_finished"
	case errors.Is(err, errUnknownType):
		key = "errors.unknown_type"
	default:
		key = "errors.protocol"
	}
	_ = sess.Send(ctx, arena.ErrorMessage{Type: "error", Message: s.cat.Message(key)})
}

func (s *Server) originPatterns() []string {
	if len(s.origins) == 0 {
		return []string{"*"}
	}
	return s.origins
}

func identityFromQuery(r *http.Request) arena.Identity {
	q := r.URL.Query()
	ident := arena.Identity{Username: strings.TrimSpace(q.Get("username"))}
	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			ident.UserID = id
		}
	}
	return ident
}
