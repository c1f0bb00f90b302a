// Package arena coordinates realtime chess sessions: room lifecycle, seat
// assignment, turn arbitration, move application and game finalization.
package arena

import (
	"context"
	"time"

	"chess-arena/internal/rules"
)

// Seat is a connection's role in a room.
type Seat string

const (
	SeatWhite     Seat = "w"
	SeatBlack     Seat = "b"
	SeatSpectator Seat = "spectator"
)

// SeatPreference is the advisory color preference supplied at connect time.
type SeatPreference string

const (
	PreferWhite SeatPreference = "w"
	PreferBlack SeatPreference = "b"
	PreferAny   SeatPreference = "any"
)

// ParseSeatPreference maps arbitrary client input onto a known preference.
func ParseSeatPreference(s string) SeatPreference {
	switch SeatPreference(s) {
	case PreferWhite:
		return PreferWhite
	case PreferBlack:
		return PreferBlack
	default:
		return PreferAny
	}
}

// Identity is the unauthenticated account claim a connection may carry.
// A zero UserID means anonymous.
type Identity struct {
	UserID   int64
	Username string
}

// Conn is one live client connection. Send must not block on a slow peer;
// transports queue outbound messages and report failure for dead peers.
type Conn interface {
	ID() string
	Send(ctx context.Context, payload any) error
}

// GameRecord is the immutable summary of a finished game handed to the
// record store. A zero user id marks a seat that never had an account.
type GameRecord struct {
	RoomID      string
	WhiteUserID int64
	BlackUserID int64
	Result      rules.Result
	Reason      rules.Reason
	Moves       []string
	CreatedAt   time.Time
	FinishedAt  time.Time
}

// Recorder persists a finished game and applies the rating update in one
// atomic operation.
type Recorder interface {
	RecordCompletedGame(ctx context.Context, rec *GameRecord) error
}

// StateMessage is the per-recipient room state broadcast. Color is
// individualized for each recipient.
type StateMessage struct {
	Type     string       `json:"type"`
	FEN      string       `json:"fen"`
	Color    Seat         `json:"color"`
	LastMove string       `json:"last_move,omitempty"`
	GameOver bool         `json:"game_over,omitempty"`
	Result   rules.Result `json:"result,omitempty"`
	Reason   rules.Reason `json:"reason,omitempty"`
}

// ErrorMessage is sent only to the offending connection.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Move-handling errors. Transports translate these into client replies.
var (
	ErrUnknownConnection = errf("connection not registered in room")
	ErrSpectatorMove     = errf("spectators cannot move")
	ErrNotYourTurn       = errf("not your turn")
	ErrIllegalMove       = errf("illegal move")
	ErrGameFinished      = errf("game already finished")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

func errf(s string) error { return staticErr(s) }
