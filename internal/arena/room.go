package arena

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"chess-arena/internal/rules"
)

// Room owns one game: its board, move history, seat-to-account bindings and
// finished flag. All state is mutated under a single mutex; a broadcast
// always reflects a fully committed move. Rooms are never destroyed.
type Room struct {
	id    string
	table *connTable
	rec   Recorder
	log   *zap.Logger

	mu          sync.Mutex
	board       *rules.Board
	moves       []string
	whiteUserID int64
	blackUserID int64
	createdAt   time.Time
	finished    bool
}

func newRoom(id string, rec Recorder, log *zap.Logger) *Room {
	if log == nil {
		log = zap.NewNop()
	}
	return &Room{
		id:        id,
		table:     newConnTable(),
		rec:       rec,
		log:       log,
		board:     rules.NewBoard(),
		createdAt: time.Now(),
	}
}

func (r *Room) ID() string { return r.id }

// Join grants the connection a seat and returns it together with the current
// position. The first account to occupy a color owns it for rating purposes;
// the binding is never overwritten, even after that socket disconnects.
func (r *Room) Join(conn Conn, ident Identity, pref SeatPreference) (Seat, string) {
	seat := r.table.grant(conn, pref)

	r.mu.Lock()
	if ident.UserID != 0 {
		switch seat {
		case SeatWhite:
			if r.whiteUserID == 0 {
				r.whiteUserID = ident.UserID
			}
		case SeatBlack:
			if r.blackUserID == 0 {
				r.blackUserID = ident.UserID
			}
		}
	}
	fen := r.board.FEN()
	r.mu.Unlock()

	r.log.Info("room_join",
		zap.String("room_id", r.id),
		zap.String("conn_id", conn.ID()),
		zap.String("seat", string(seat)),
		zap.Int64("user_id", ident.UserID),
		zap.Int("connections", r.table.size()),
	)
	return seat, fen
}

// Leave unregisters the connection. Its seat label becomes grantable again;
// nothing else about the room changes.
func (r *Room) Leave(connID string) {
	r.table.unregister(connID)
	r.log.Info("room_leave",
		zap.String("room_id", r.id),
		zap.String("conn_id", connID),
		zap.Int("connections", r.table.size()),
	)
}

// PlayMove runs the move state machine for one inbound move request.
// On success every registered connection receives one state broadcast; on
// error nothing is mutated or broadcast, and the caller replies to the
// sender only.
func (r *Room) PlayMove(ctx context.Context, connID, move string) error {
	seat, ok := r.table.seat(connID)
	if !ok {
		return ErrUnknownConnection
	}

	// the finished guard comes first: a finished room rejects every move,
	// spectator or not
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return ErrGameFinished
	}
	if seat != SeatWhite && seat != SeatBlack {
		r.mu.Unlock()
		return ErrSpectatorMove
	}
	if string(seat) != r.board.SideToMove() {
		r.mu.Unlock()
		return ErrNotYourTurn
	}
	uci, err := r.board.ApplyUCI(move)
	if err != nil {
		r.mu.Unlock()
		if errors.Is(err, rules.ErrIllegalMove) {
			return ErrIllegalMove
		}
		return err
	}
	r.moves = append(r.moves, uci)

	verdict := r.board.Terminal()
	fen := r.board.FEN()

	// finalize fires at most once per room, even if termination were ever
	// re-detected: the finished flag flips inside the same critical section
	// that committed the move.
	var record *GameRecord
	if verdict != nil {
		r.finished = true
		record = &GameRecord{
			RoomID:      r.id,
			WhiteUserID: r.whiteUserID,
			BlackUserID: r.blackUserID,
			Result:      verdict.Result,
			Reason:      verdict.Reason,
			Moves:       append([]string(nil), r.moves...),
			CreatedAt:   r.createdAt,
			FinishedAt:  time.Now(),
		}
	}
	r.mu.Unlock()

	r.log.Info("room_move",
		zap.String("room_id", r.id),
		zap.String("conn_id", connID),
		zap.String("seat", string(seat)),
		zap.String("uci", uci),
	)

	r.table.broadcast(ctx, func(recipient Seat) any {
		msg := StateMessage{
			Type:     "state",
			FEN:      fen,
			Color:    recipient,
			LastMove: uci,
		}
		if verdict != nil {
			msg.GameOver = true
			msg.Result = verdict.Result
			msg.Reason = verdict.Reason
		}
		return msg
	})

	if record != nil {
		r.finalize(ctx, record)
	}
	return nil
}

// finalize persists the finished game. Failures are logged and swallowed:
// the game-over broadcast already went out and is never rolled back.
func (r *Room) finalize(ctx context.Context, rec *GameRecord) {
	if r.rec == nil {
		r.log.Warn("game_record_skipped", zap.String("room_id", r.id))
		return
	}
	if err := r.rec.RecordCompletedGame(ctx, rec); err != nil {
		r.log.Error("game_record_error",
			zap.String("room_id", r.id),
			zap.String("result", string(rec.Result)),
			zap.Error(err),
		)
		return
	}
	r.log.Info("game_finalize",
		zap.String("room_id", r.id),
		zap.String("result", string(rec.Result)),
		zap.String("reason", string(rec.Reason)),
		zap.Int("moves", len(rec.Moves)),
		zap.Int64("white_user_id", rec.WhiteUserID),
		zap.Int64("black_user_id", rec.BlackUserID),
	)
}

// FEN returns the current position.
func (r *Room) FEN() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.board.FEN()
}

// Finished reports whether the room reached a terminal state.
func (r *Room) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}
