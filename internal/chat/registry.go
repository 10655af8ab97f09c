package chat

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/metrics"
)

// Registry maps room names to Rooms, creating them on first reference. Rooms
// are never removed. A Registry is meant to be created once and passed to
// every session that should share its rooms.
type Registry struct {
	rooms map[string]*Room
	mu    sync.Mutex
	log   *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		rooms: make(map[string]*Room),
		log:   log.Named("registry"),
	}
}

// Get returns the room called name, creating it if needed.
func (g *Registry) Get(name string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	if room, ok := g.rooms[name]; ok {
		return room
	}

	room := newRoom(name, g.log)
	g.rooms[name] = room
	metrics.RoomsCreated.Inc()
	g.log.Info("room created", zap.String("room", name), zap.Int("rooms", len(g.rooms)))
	return room
}

// Len returns the number of rooms created so far.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
