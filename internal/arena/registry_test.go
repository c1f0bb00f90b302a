package arena

import (
	"fmt"
	"sync"
	"testing"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	reg := NewRegistry(nil, nil)

	const workers = 32
	rooms := make([]*Room, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i] = reg.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if rooms[i] != rooms[0] {
			t.Fatalf("worker %d got a different room instance", i)
		}
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 room, got %d", reg.Len())
	}
}

func TestRegistryKeepsRoomsIndependent(t *testing.T) {
	reg := NewRegistry(nil, nil)

	a := reg.GetOrCreate("a")
	b := reg.GetOrCreate("b")
	if a == b {
		t.Fatalf("distinct ids must yield distinct rooms")
	}

	w := newConn("w")
	a.Join(w, Identity{}, PreferWhite)
	if err := a.PlayMove(t.Context(), w.ID(), "e2e4"); err != nil {
		t.Fatalf("PlayMove: %v", err)
	}
	if a.FEN() == b.FEN() {
		t.Fatalf("rooms share board state")
	}
	if got := reg.Len(); got != 2 {
		t.Fatalf("expected 2 rooms, got %d", got)
	}
}

func TestRegistryManyRooms(t *testing.T) {
	reg := NewRegistry(nil, nil)
	for i := 0; i < 10; i++ {
		reg.GetOrCreate(fmt.Sprintf("room-%d", i))
	}
	if reg.Len() != 10 {
		t.Fatalf("expected 10 rooms, got %d", reg.Len())
	}
}
