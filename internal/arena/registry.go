package arena

import (
	"sync"

	"go.uber.org/zap"
)

// Registry is the single shared map of live rooms, keyed by the externally
// supplied room id. Rooms are created on first use and never removed.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	rec   Recorder
	log   *zap.Logger
}

func NewRegistry(rec Recorder, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		rooms: make(map[string]*Room),
		rec:   rec,
		log:   log,
	}
}

// GetOrCreate returns the room for id, creating it on first sight.
// Concurrent calls with the same id observe the same instance.
func (g *Registry) GetOrCreate(id string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.rooms[id]; ok {
		return r
	}
	r := newRoom(id, g.rec, g.log)
	g.rooms[id] = r
	g.log.Info("room_create", zap.String("room_id", id))
	return r
}

// Len reports the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
