package arena

import (
	"context"
	"sync"
)

// connTable is a room's set of live connections and their seats. Seat grants
// are final for a connection's lifetime; unregistering frees the seat label
// for future grants but never reassigns existing connections.
type connTable struct {
	mu    sync.RWMutex
	conns map[string]Conn
	seats map[string]Seat
}

func newConnTable() *connTable {
	return &connTable{
		conns: make(map[string]Conn),
		seats: make(map[string]Seat),
	}
}

// grant registers the connection and assigns a seat in one critical section,
// so two racing joins can never both hold the same color:
// preferred color if free, then white, then black, then spectator.
func (t *connTable) grant(conn Conn, pref SeatPreference) Seat {
	t.mu.Lock()
	defer t.mu.Unlock()

	occupied := make(map[Seat]bool, 2)
	for _, s := range t.seats {
		if s == SeatWhite || s == SeatBlack {
			occupied[s] = true
		}
	}

	var seat Seat
	switch {
	case pref == PreferWhite && !occupied[SeatWhite]:
		seat = SeatWhite
	case pref == PreferBlack && !occupied[SeatBlack]:
		seat = SeatBlack
	case !occupied[SeatWhite]:
		seat = SeatWhite
	case !occupied[SeatBlack]:
		seat = SeatBlack
	default:
		seat = SeatSpectator
	}

	t.conns[conn.ID()] = conn
	t.seats[conn.ID()] = seat
	return seat
}

func (t *connTable) unregister(id string) {
	t.mu.Lock()
	delete(t.conns, id)
	delete(t.seats, id)
	t.mu.Unlock()
}

func (t *connTable) seat(id string) (Seat, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.seats[id]
	return s, ok
}

func (t *connTable) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}

// broadcast sends build(seat) to every registered connection. A failed send
// unregisters that connection and never interrupts delivery to the rest.
func (t *connTable) broadcast(ctx context.Context, build func(Seat) any) {
	type recipient struct {
		id   string
		conn Conn
		seat Seat
	}

	t.mu.RLock()
	list := make([]recipient, 0, len(t.conns))
	for id, c := range t.conns {
		list = append(list, recipient{id: id, conn: c, seat: t.seats[id]})
	}
	t.mu.RUnlock()

	for _, r := range list {
		if err := r.conn.Send(ctx, build(r.seat)); err != nil {
			t.unregister(r.id)
		}
	}
}
