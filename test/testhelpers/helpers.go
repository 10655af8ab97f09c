// Package testhelpers provides common utilities and helper functions for testing the roomchat server.
//
// It starts fully wired servers on httptest listeners, dials rooms with a
// gorilla WebSocket client, and reads protocol frames with deadlines so the
// integration tests stay short.
package testhelpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/Tyrowin/roomchat/internal/server"
)

// TestOrigin is the Origin header sent by DialRoom.
const TestOrigin = "http://localhost:8080"

// ReadTimeout bounds every frame read in the helpers.
const ReadTimeout = 2 * time.Second

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StubJokes is a JokeTeller returning a fixed joke or error.
type StubJokes struct {
	Text string
	Err  error
}

// Joke returns the configured joke or error.
func (s StubJokes) Joke(context.Context) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// ErrJokeDown is a convenient failure for StubJokes.
var ErrJokeDown = errors.New("joke service down")

// StartServer builds a server with test defaults, applies customize, and
// serves it from an httptest listener. Both are torn down on cleanup.
func StartServer(t *testing.T, customize func(cfg *server.Config), opts ...server.Option) (*server.Server, *httptest.Server) {
	t.Helper()

	metrics.Register(prometheus.DefaultRegisterer)

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{TestOrigin}
	cfg.RateLimit.Burst = 100
	cfg.ShutdownTimeout = 2 * time.Second
	if customize != nil {
		customize(cfg)
	}

	opts = append([]server.Option{server.WithJokeTeller(StubJokes{Text: "I would tell a UDP joke, but you might not get it."})}, opts...)
	srv, err := server.New(cfg, zaptest.NewLogger(t, zaptest.Level(zapcore.WarnLevel)), opts...)
	require.NoError(t, err)
	srv.Start()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return srv, ts
}

// WebSocketURL converts an httptest base URL into the room endpoint.
func WebSocketURL(baseURL, room string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/chat/" + room
}

// DialRoom opens a gorilla WebSocket to room with TestOrigin.
func DialRoom(t *testing.T, baseURL, room string) *websocket.Conn {
	t.Helper()
	conn, err := DialWithOrigin(WebSocketURL(baseURL, room), TestOrigin)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// DialWithOrigin dials url with the given Origin header; an empty origin
// sends none.
func DialWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Send writes one inbound frame.
func Send(t *testing.T, conn *websocket.Conn, in chat.Inbound) {
	t.Helper()
	data, err := json.Marshal(in)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// Join sends a join frame for name.
func Join(t *testing.T, conn *websocket.Conn, name string) {
	t.Helper()
	Send(t, conn, chat.Inbound{Type: chat.TypeJoin, Name: name})
}

// Chat sends a chat frame.
func Chat(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	Send(t, conn, chat.Inbound{Type: chat.TypeChat, Text: text})
}

// Receive reads one frame within ReadTimeout.
func Receive(t *testing.T, conn *websocket.Conn) chat.Outgoing {
	t.Helper()
	msg, err := TryReceive(conn, ReadTimeout)
	require.NoError(t, err)
	return msg
}

// TryReceive reads one frame within timeout and reports any error.
func TryReceive(conn *websocket.Conn, timeout time.Duration) (chat.Outgoing, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return chat.Outgoing{}, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return chat.Outgoing{}, err
	}
	var msg chat.Outgoing
	if err := json.Unmarshal(data, &msg); err != nil {
		return chat.Outgoing{}, errors.Wrapf(err, "decode frame %q", data)
	}
	return msg, nil
}

// ExpectNote reads one frame and asserts it is a note with text.
func ExpectNote(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.Equal(t, chat.Note("%s", text), Receive(t, conn))
}

// ExpectChat reads one frame and asserts it is a chat line from name.
func ExpectChat(t *testing.T, conn *websocket.Conn, name, text string) {
	t.Helper()
	require.Equal(t, chat.ChatFrom(name, text), Receive(t, conn))
}

// ExpectNoMessage asserts that nothing arrives within timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	msg, err := TryReceive(conn, timeout)
	require.Error(t, err, "unexpected frame %+v", msg)
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected read timeout, got %v", err)
}

// JoinAll joins each connection to room in order under the matching name and
// drains the join notes so every connection starts with an empty stream.
func JoinAll(t *testing.T, room string, conns []*websocket.Conn, names []string) {
	t.Helper()
	require.Len(t, names, len(conns))
	for i, conn := range conns {
		Join(t, conn, names[i])
		note := names[i] + ` joined "` + room + `".`
		for _, joined := range conns[:i+1] {
			ExpectNote(t, joined, note)
		}
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}
