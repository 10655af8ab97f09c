package chat

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/metrics"
)

// Member is what a Room keeps for each participant: a stable handle, the
// current display name, and a way to hand it a frame.
type Member interface {
	ID() uuid.UUID
	DisplayName() string
	Deliver(payload []byte)
}

// Room is one named broadcast scope. Members are keyed by handle, so joining
// twice is harmless and leaving when absent is a no-op.
type Room struct {
	name    string
	members map[uuid.UUID]Member
	mu      sync.RWMutex
	log     *zap.Logger
}

func newRoom(name string, log *zap.Logger) *Room {
	return &Room{
		name:    name,
		members: make(map[uuid.UUID]Member),
		log:     log.With(zap.String("room", name)),
	}
}

// Name returns the room's immutable name.
func (r *Room) Name() string {
	return r.name
}

// Join adds m to the room.
func (r *Room) Join(m Member) {
	r.mu.Lock()
	r.members[m.ID()] = m
	count := len(r.members)
	r.mu.Unlock()

	r.log.Debug("member joined", zap.Stringer("session_id", m.ID()), zap.Int("members", count))
}

// Leave removes m from the room if present.
func (r *Room) Leave(m Member) {
	r.mu.Lock()
	_, ok := r.members[m.ID()]
	delete(r.members, m.ID())
	count := len(r.members)
	r.mu.Unlock()

	if ok {
		r.log.Debug("member left", zap.Stringer("session_id", m.ID()), zap.Int("members", count))
	}
}

// Broadcast delivers msg to every current member. The write lock is held for
// the whole fan-out so concurrent broadcasts on the same room are serialized
// and a member joining mid-broadcast does not see the message.
func (r *Room) Broadcast(msg Outgoing) {
	payload, err := msg.Encode()
	if err != nil {
		r.log.Error("encode broadcast", zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	metrics.Broadcasts.Inc()
	for _, m := range r.members {
		m.Deliver(payload)
	}
}

// MemberNames returns a snapshot of the members' display names. Members that
// have not joined with a name yet are left out.
func (r *Room) MemberNames() []string {
	return lo.FilterMap(r.snapshot(), func(m Member, _ int) (string, bool) {
		name := m.DisplayName()
		return name, name != ""
	})
}

// FindMember returns a member whose display name is name. With duplicate
// names, whichever is found first wins.
func (r *Room) FindMember(name string) (Member, bool) {
	return lo.Find(r.snapshot(), func(m Member) bool {
		return m.DisplayName() == name
	})
}

// Len returns the number of members.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Room) snapshot() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.members)
}
