// Package rules wraps the chess rules library behind the narrow surface the
// session coordinator needs: move legality and application, position
// serialization, and terminal classification. Chess rules are never
// implemented here.
package rules

import (
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Result is the outcome of a finished game.
type Result string

const (
	ResultWhite Result = "white"
	ResultBlack Result = "black"
	ResultDraw  Result = "draw"
)

// Reason classifies why a game ended.
type Reason string

const (
	ReasonCheckmate            Reason = "checkmate"
	ReasonStalemate            Reason = "stalemate"
	ReasonInsufficientMaterial Reason = "insufficient_material"
	ReasonThreefoldRepetition  Reason = "threefold_repetition"
	ReasonFiftyMoveRule        Reason = "fifty_move_rule"
	ReasonDraw                 Reason = "draw"
)

// Verdict is the single (result, reason) pair produced for a terminal position.
type Verdict struct {
	Result Result
	Reason Reason
}

var ErrIllegalMove = errors.New("illegal move")

// Board owns one game's position and move history. It is not safe for
// concurrent use; the owning Room serializes access.
type Board struct {
	game *nchess.Game
}

func NewBoard() *Board {
	return &Board{game: nchess.NewGame()}
}

// NewBoardFromFEN starts a board from an arbitrary position.
func NewBoardFromFEN(fen string) (*Board, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return &Board{game: nchess.NewGame(opt)}, nil
}

// FEN serializes the current position.
func (b *Board) FEN() string {
	return b.game.FEN()
}

// SideToMove returns "w" or "b".
func (b *Board) SideToMove() string {
	if b.game.Position().Turn() == nchess.White {
		return "w"
	}
	return "b"
}

// MoveCount returns the number of half-moves played so far.
func (b *Board) MoveCount() int {
	return len(b.game.Moves())
}

// ApplyUCI parses a coordinate move, checks legality against the current
// position and applies it, all as one unit. It returns the canonical UCI
// string of the applied move. The board is unchanged on error.
func (b *Board) ApplyUCI(raw string) (string, error) {
	uci := strings.ToLower(strings.TrimSpace(raw))
	if uci == "" {
		return "", ErrIllegalMove
	}
	if err := b.game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return "", ErrIllegalMove
	}
	moves := b.game.Moves()
	return moves[len(moves)-1].String(), nil
}

// Terminal classifies the current position. It returns nil while the game is
// still playable. Claimable draws (threefold repetition, fifty-move rule) end
// the game immediately, matching the server's auto-claim policy. Priority:
// checkmate > stalemate > insufficient material > threefold > fifty-move >
// generic draw.
func (b *Board) Terminal() *Verdict {
	switch b.game.Outcome() {
	case nchess.WhiteWon:
		return &Verdict{Result: ResultWhite, Reason: reasonFor(b.game.Method())}
	case nchess.BlackWon:
		return &Verdict{Result: ResultBlack, Reason: reasonFor(b.game.Method())}
	case nchess.Draw:
		return &Verdict{Result: ResultDraw, Reason: reasonFor(b.game.Method())}
	}

	if eligible(b.game, nchess.ThreefoldRepetition) {
		_ = b.game.Draw(nchess.ThreefoldRepetition)
		return &Verdict{Result: ResultDraw, Reason: ReasonThreefoldRepetition}
	}
	if eligible(b.game, nchess.FiftyMoveRule) {
		_ = b.game.Draw(nchess.FiftyMoveRule)
		return &Verdict{Result: ResultDraw, Reason: ReasonFiftyMoveRule}
	}
	return nil
}

func eligible(game *nchess.Game, method nchess.Method) bool {
	for _, m := range game.EligibleDraws() {
		if m == method {
			return true
		}
	}
	return false
}

func reasonFor(m nchess.Method) Reason {
	switch m {
	case nchess.Checkmate:
		return ReasonCheckmate
	case nchess.Stalemate:
		return ReasonStalemate
	case nchess.InsufficientMaterial:
		return ReasonInsufficientMaterial
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return ReasonThreefoldRepetition
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return ReasonFiftyMoveRule
	default:
		return ReasonDraw
	}
}
