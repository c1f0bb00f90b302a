package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendQueueSize = 32
	writeTimeout  = 5 * time.Second
)

var errSessionClosed = errors.New("session closed")

// session is one accepted client socket. All writes go through a single
// writer goroutine so a broadcast never races another write, and Send never
// blocks the room on a slow peer.
type session struct {
	id        string
	conn      *websocket.Conn
	sendCh    chan any
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn) *session {
	s := &session{
		id:     uuid.NewString(),
		conn:   conn,
		sendCh: make(chan any, sendQueueSize),
		done:   make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *session) ID() string { return s.id }

// Send queues the payload for the writer goroutine. A full queue counts as
// a dead peer.
func (s *session) Send(_ context.Context, payload any) error {
	select {
	case <-s.done:
		return errSessionClosed
	case s.sendCh <- payload:
		return nil
	default:
		return errors.New("send queue full")
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, s.conn, payload)
			cancel()
			if err != nil {
				s.close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}
}

func (s *session) close(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close(code, reason)
	})
}
