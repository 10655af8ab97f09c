package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/metrics"
)

// Outbound delivers one encoded frame to a session's connection. It is owned
// by the transport; errors are reported back but never propagated further.
type Outbound interface {
	Send(payload []byte) error
}

// OutboundFunc adapts a function to Outbound.
type OutboundFunc func(payload []byte) error

// Send calls f(payload).
func (f OutboundFunc) Send(payload []byte) error {
	return f(payload)
}

// JokeTeller is the external joke service.
type JokeTeller interface {
	Joke(ctx context.Context) (string, error)
}

// State is a session's position in its lifecycle.
type State int32

const (
	StateUnjoined State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session is the server side of one client connection: its identity, its
// room, and the protocol handlers.
type Session struct {
	id       uuid.UUID
	room     *Room
	outbound Outbound
	jokes    JokeTeller
	name     *atomic.String
	state    *atomic.Int32
	log      *zap.Logger
}

// NewSession binds a new session to the room called roomName. The session is
// not a member until it processes a join command.
func NewSession(registry *Registry, roomName string, outbound Outbound, jokes JokeTeller, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	room := registry.Get(roomName)

	s := &Session{
		id:       id,
		room:     room,
		outbound: outbound,
		jokes:    jokes,
		name:     atomic.NewString(""),
		state:    atomic.NewInt32(int32(StateUnjoined)),
		log:      log.Named("session").With(zap.Stringer("session_id", id), zap.String("room", room.Name())),
	}
	s.log.Debug("created chat session")
	return s
}

// ID returns the session's membership handle.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// DisplayName returns the current name, or "" before the first join.
func (s *Session) DisplayName() string {
	return s.name.Load()
}

// Room returns the room this session is bound to.
func (s *Session) Room() *Room {
	return s.room
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Deliver sends payload to this session's own connection. Failures, including
// a panicking transport, are logged and dropped.
func (s *Session) Deliver(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			metrics.DeliveryFailures.Inc()
			s.log.Warn("recovered from panic in deliver", zap.Any("panic", r))
		}
	}()

	if err := s.outbound.Send(payload); err != nil {
		metrics.DeliveryFailures.Inc()
		s.log.Debug("dropped outbound message", zap.Error(err))
	}
}

// Dispatch decodes one raw frame and runs the matching handler. Decoding
// failures are returned marked with ErrProtocol; joke service failures are
// marked with ErrJokeUnavailable.
func (s *Session) Dispatch(ctx context.Context, raw []byte) error {
	if s.State() == StateClosed {
		return ErrSessionClosed
	}

	cmd, err := DecodeCommand(raw)
	if err != nil {
		metrics.ProtocolErrors.Inc()
		return err
	}
	metrics.Commands.WithLabelValues(cmd.commandType()).Inc()

	switch c := cmd.(type) {
	case JoinCommand:
		s.handleJoin(c)
	case ChatCommand:
		s.handleChat(c)
	case JokeCommand:
		return s.handleJoke(ctx)
	case MembersCommand:
		s.handleMembers()
	case PrivateCommand:
		s.handlePrivate(c)
	case RenameCommand:
		s.handleRename(c)
	default:
		return errors.Wrapf(ErrProtocol, "unhandled command %T", cmd)
	}
	return nil
}

// Disconnect leaves the room and announces it. Only the first call has any
// effect.
func (s *Session) Disconnect() {
	prev := State(s.state.Swap(int32(StateClosed)))
	if prev == StateClosed {
		return
	}

	s.room.Leave(s)
	if prev == StateJoined {
		s.room.Broadcast(Note("%s left %s.", s.DisplayName(), s.room.Name()))
	}
	s.log.Debug("chat session closed", zap.Stringer("previous_state", prev))
}

func (s *Session) handleJoin(c JoinCommand) {
	s.name.Store(c.Name)
	s.state.CompareAndSwap(int32(StateUnjoined), int32(StateJoined))
	s.room.Join(s)
	// A Disconnect that ran concurrently may have left before the Join landed.
	if s.State() == StateClosed {
		s.room.Leave(s)
		return
	}
	s.room.Broadcast(Note("%s joined \"%s\".", c.Name, s.room.Name()))
}

func (s *Session) handleChat(c ChatCommand) {
	s.room.Broadcast(ChatFrom(s.DisplayName(), c.Text))
}

func (s *Session) handleJoke(ctx context.Context) error {
	if s.jokes == nil {
		return errors.Mark(errors.New("get-joke: no joke service configured"), ErrJokeUnavailable)
	}

	start := time.Now()
	joke, err := s.jokes.Joke(ctx)
	if err != nil {
		metrics.JokeRequests.WithLabelValues(metrics.OutcomeFailure).Observe(time.Since(start).Seconds())
		return errors.Mark(errors.Wrap(err, "get-joke"), ErrJokeUnavailable)
	}
	metrics.JokeRequests.WithLabelValues(metrics.OutcomeSuccess).Observe(time.Since(start).Seconds())

	s.send(ChatFrom(ServerName, joke))
	return nil
}

func (s *Session) handleMembers() {
	names := s.room.MemberNames()
	s.send(ChatFrom(ServerName, fmt.Sprintf("In room: %s.", strings.Join(names, ", "))))
}

func (s *Session) handlePrivate(c PrivateCommand) {
	if c.Target == "" || c.Body == "" {
		return
	}
	target, ok := s.room.FindMember(c.Target)
	if !ok {
		return
	}

	payload, err := ChatFrom(s.DisplayName(), c.Body).Encode()
	if err != nil {
		s.log.Error("encode private message", zap.Error(err))
		return
	}
	target.Deliver(payload)
}

func (s *Session) handleRename(c RenameCommand) {
	if c.NewName == "" {
		return
	}
	s.name.Store(c.NewName)
	s.room.Broadcast(Note("%s has changed their username.", c.NewName))
}

// send encodes msg and delivers it to this session only.
func (s *Session) send(msg Outgoing) {
	payload, err := msg.Encode()
	if err != nil {
		s.log.Error("encode outgoing message", zap.Error(err))
		return
	}
	s.Deliver(payload)
}
