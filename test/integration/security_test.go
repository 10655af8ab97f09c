package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/test/testhelpers"
)

// TestOriginValidation covers the allow-list applied during the upgrade.
func TestOriginValidation(t *testing.T) {
	tests := []struct {
		name      string
		allowed   []string
		origin    string
		wantAllow bool
	}{
		{name: "allowed origin", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:8080", wantAllow: true},
		{name: "missing origin", allowed: []string{"http://localhost:8080"}, origin: "", wantAllow: false},
		{name: "malformed origin", allowed: []string{"http://localhost:8080"}, origin: "not a url", wantAllow: false},
		{name: "case insensitive", allowed: []string{"http://localhost:8080"}, origin: "HTTP://LOCALHOST:8080", wantAllow: true},
		{name: "different port", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:9090", wantAllow: false},
		{name: "path ignored", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:8080/some/path", wantAllow: true},
		{name: "scheme differs", allowed: []string{"http://localhost:8080"}, origin: "https://localhost:8080", wantAllow: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://anywhere.example", wantAllow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := testhelpers.StartServer(t, func(cfg *server.Config) {
				cfg.AllowedOrigins = tt.allowed
			})

			conn, err := testhelpers.DialWithOrigin(testhelpers.WebSocketURL(ts.URL, "lobby"), tt.origin)
			if tt.wantAllow {
				require.NoError(t, err)
				_ = conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
		})
	}
}

// TestRejectedOriginStatus verifies the handshake answer for a blocked origin.
func TestRejectedOriginStatus(t *testing.T) {
	_, ts := testhelpers.StartServer(t, nil)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := dialer.Dial(testhelpers.WebSocketURL(ts.URL, "lobby"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() {
		_ = resp.Body.Close()
	}()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// TestMessageSizeLimit verifies oversized frames close the connection while
// frames at the limit are accepted.
func TestMessageSizeLimit(t *testing.T) {
	const limit = 256

	t.Run("frame at the limit", func(t *testing.T) {
		_, ts := testhelpers.StartServer(t, func(cfg *server.Config) {
			cfg.MaxMessageSize = limit
		})
		conn := testhelpers.DialRoom(t, ts.URL, "lobby")
		testhelpers.JoinAll(t, "lobby", []*websocket.Conn{conn}, []string{"alice"})

		prefix := `{"type":"chat","text":"`
		suffix := `"}`
		text := strings.Repeat("a", limit-len(prefix)-len(suffix))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(prefix+text+suffix)))
		testhelpers.ExpectChat(t, conn, "alice", text)
	})

	t.Run("frame over the limit", func(t *testing.T) {
		_, ts := testhelpers.StartServer(t, func(cfg *server.Config) {
			cfg.MaxMessageSize = limit
		})
		conn := testhelpers.DialRoom(t, ts.URL, "lobby")
		witness := testhelpers.DialRoom(t, ts.URL, "lobby")
		testhelpers.JoinAll(t, "lobby", []*websocket.Conn{witness, conn}, []string{"bob", "alice"})

		testhelpers.Chat(t, conn, strings.Repeat("a", limit))
		testhelpers.ExpectNote(t, witness, "alice left lobby.")

		_, err := testhelpers.TryReceive(conn, testhelpers.ReadTimeout)
		require.Error(t, err)
	})
}

// TestRateLimit verifies frames beyond the burst are discarded, not fatal.
func TestRateLimit(t *testing.T) {
	_, ts := testhelpers.StartServer(t, func(cfg *server.Config) {
		cfg.RateLimit.Burst = 3
		cfg.RateLimit.RefillInterval = time.Hour
	})

	conn := testhelpers.DialRoom(t, ts.URL, "lobby")
	// The join consumes one token.
	testhelpers.JoinAll(t, "lobby", []*websocket.Conn{conn}, []string{"alice"})

	for _, text := range []string{"one", "two", "three", "four"} {
		testhelpers.Chat(t, conn, text)
	}

	testhelpers.ExpectChat(t, conn, "alice", "one")
	testhelpers.ExpectChat(t, conn, "alice", "two")
	testhelpers.ExpectNoMessage(t, conn, quietPeriod)
}
