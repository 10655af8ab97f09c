package chat_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/chat"
)

func jsonUnmarshal(data []byte, v any) error {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, v)
}

func jsoniterMarshal(v any) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
}

// recorder is an Outbound that keeps every frame it is handed.
type recorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recorder) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, append([]byte(nil), payload...))
	return nil
}

func (r *recorder) messages(t *testing.T) []chat.Outgoing {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]chat.Outgoing, 0, len(r.frames))
	for _, f := range r.frames {
		var m chat.Outgoing
		require.NoError(t, jsonUnmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
}

var errConnectionGone = errors.New("connection gone")

// brokenOutbound fails every send, like a connection that already closed.
var brokenOutbound = chat.OutboundFunc(func([]byte) error { return errConnectionGone })

// panickingOutbound misbehaves harder than brokenOutbound.
var panickingOutbound = chat.OutboundFunc(func([]byte) error { panic("send on closed channel") })

// stubJokes returns a fixed joke or error.
type stubJokes struct {
	joke string
	err  error
}

func (s stubJokes) Joke(context.Context) (string, error) {
	return s.joke, s.err
}
