package rules

import (
	"errors"
	"testing"
)

func mustApply(t *testing.T, b *Board, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		if _, err := b.ApplyUCI(mv); err != nil {
			t.Fatalf("ApplyUCI(%q): %v", mv, err)
		}
	}
}

func TestApplyUCIRejectsIllegal(t *testing.T) {
	b := NewBoard()
	before := b.FEN()

	for _, mv := range []string{"", "e2e5", "bogus", "e7e5"} {
		if _, err := b.ApplyUCI(mv); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("ApplyUCI(%q): expected ErrIllegalMove, got %v", mv, err)
		}
	}
	if b.FEN() != before {
		t.Fatalf("board mutated by rejected moves: %s vs %s", b.FEN(), before)
	}
	if b.MoveCount() != 0 {
		t.Fatalf("expected empty history, got %d moves", b.MoveCount())
	}
}

func TestApplyUCIAdvancesTurn(t *testing.T) {
	b := NewBoard()
	if b.SideToMove() != "w" {
		t.Fatalf("expected white to move first, got %q", b.SideToMove())
	}
	uci, err := b.ApplyUCI("E2E4")
	if err != nil {
		t.Fatalf("ApplyUCI: %v", err)
	}
	if uci != "e2e4" {
		t.Fatalf("expected canonical uci e2e4, got %q", uci)
	}
	if b.SideToMove() != "b" {
		t.Fatalf("expected black to move after e4, got %q", b.SideToMove())
	}
	if b.Terminal() != nil {
		t.Fatalf("opening move should not be terminal")
	}
}

func TestFoolsMateIsCheckmate(t *testing.T) {
	b := NewBoard()
	mustApply(t, b, "f2f3", "e7e5", "g2g4")
	if v := b.Terminal(); v != nil {
		t.Fatalf("premature verdict: %+v", v)
	}
	mustApply(t, b, "d8h4")

	v := b.Terminal()
	if v == nil {
		t.Fatalf("expected terminal position after fool's mate")
	}
	if v.Result != ResultBlack || v.Reason != ReasonCheckmate {
		t.Fatalf("expected black/checkmate, got %s/%s", v.Result, v.Reason)
	}
}

func TestStalemateClassification(t *testing.T) {
	b, err := NewBoardFromFEN("7k/5Q2/8/6K1/8/8/8/8 w - - 0 1")
	if err != nil {
		t.Fatalf("NewBoardFromFEN: %v", err)
	}
	mustApply(t, b, "g5g6")

	v := b.Terminal()
	if v == nil {
		t.Fatalf("expected stalemate verdict")
	}
	if v.Result != ResultDraw || v.Reason != ReasonStalemate {
		t.Fatalf("expected draw/stalemate, got %s/%s", v.Result, v.Reason)
	}
}

func TestInsufficientMaterialClassification(t *testing.T) {
	b, err := NewBoardFromFEN("7k/8/8/8/8/8/6p1/6K1 w - - 0 1")
	if err != nil {
		t.Fatalf("NewBoardFromFEN: %v", err)
	}
	// capturing the last pawn leaves king vs king
	mustApply(t, b, "g1g2")

	v := b.Terminal()
	if v == nil {
		t.Fatalf("expected insufficient-material verdict")
	}
	if v.Result != ResultDraw || v.Reason != ReasonInsufficientMaterial {
		t.Fatalf("expected draw/insufficient_material, got %s/%s", v.Result, v.Reason)
	}
}

func TestThreefoldRepetitionClaimedAutomatically(t *testing.T) {
	b := NewBoard()
	// knight shuffles until the start position occurs a third time
	mustApply(t, b,
		"g1f3", "g8f6", "f3g1", "f6g8",
		"g1f3", "g8f6", "f3g1",
	)
	if v := b.Terminal(); v != nil {
		t.Fatalf("premature verdict: %+v", v)
	}
	mustApply(t, b, "f6g8")

	v := b.Terminal()
	if v == nil {
		t.Fatalf("expected threefold repetition verdict")
	}
	if v.Result != ResultDraw || v.Reason != ReasonThreefoldRepetition {
		t.Fatalf("expected draw/threefold_repetition, got %s/%s", v.Result, v.Reason)
	}
}
