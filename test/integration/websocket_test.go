package integration

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/server"
	"github.com/Tyrowin/roomchat/test/testhelpers"
)

const quietPeriod = 200 * time.Millisecond

// TestWebSocketChatFlow walks two members of one room through every command.
func TestWebSocketChatFlow(t *testing.T) {
	_, ts := testhelpers.StartServer(t, nil)

	alice := testhelpers.DialRoom(t, ts.URL, "lobby")
	bob := testhelpers.DialRoom(t, ts.URL, "lobby")
	testhelpers.JoinAll(t, "lobby", []*websocket.Conn{alice, bob}, []string{"alice", "bob"})

	t.Run("chat reaches every member including the sender", func(t *testing.T) {
		testhelpers.Chat(t, alice, "hello bob")
		testhelpers.ExpectChat(t, alice, "alice", "hello bob")
		testhelpers.ExpectChat(t, bob, "alice", "hello bob")
	})

	t.Run("get-members replies to the caller only", func(t *testing.T) {
		testhelpers.Send(t, bob, chat.Inbound{Type: chat.TypeGetMembers})
		msg := testhelpers.Receive(t, bob)
		assert.Equal(t, chat.ServerName, msg.Name)
		assert.Contains(t, []string{"In room: alice, bob.", "In room: bob, alice."}, msg.Text)
	})

	t.Run("get-joke replies to the caller only", func(t *testing.T) {
		testhelpers.Send(t, alice, chat.Inbound{Type: chat.TypeGetJoke})
		testhelpers.ExpectChat(t, alice, chat.ServerName, "I would tell a UDP joke, but you might not get it.")
	})

	t.Run("private reaches only the target", func(t *testing.T) {
		testhelpers.Send(t, alice, chat.Inbound{Type: chat.TypePrivate, Text: "/priv bob  psst   over here"})
		testhelpers.ExpectChat(t, bob, "alice", "psst over here")
	})

	t.Run("new-name is announced and used afterwards", func(t *testing.T) {
		testhelpers.Send(t, bob, chat.Inbound{Type: chat.TypeNewName, Text: "/name robert"})
		testhelpers.ExpectNote(t, alice, "robert has changed their username.")
		testhelpers.ExpectNote(t, bob, "robert has changed their username.")

		testhelpers.Chat(t, bob, "call me robert")
		testhelpers.ExpectChat(t, alice, "robert", "call me robert")
		testhelpers.ExpectChat(t, bob, "robert", "call me robert")
	})

	t.Run("leaving is announced to the rest of the room", func(t *testing.T) {
		require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
		testhelpers.ExpectNote(t, alice, "robert left lobby.")
	})

	// Nothing else should be pending for alice; the private message and the
	// members reply went to one connection only.
	testhelpers.ExpectNoMessage(t, alice, quietPeriod)
}

// TestRoomsAreIsolated verifies broadcasts and private lookups stay inside a
// room.
func TestRoomsAreIsolated(t *testing.T) {
	_, ts := testhelpers.StartServer(t, nil)

	red := testhelpers.DialRoom(t, ts.URL, "red")
	blue := testhelpers.DialRoom(t, ts.URL, "blue")
	testhelpers.JoinAll(t, "red", []*websocket.Conn{red}, []string{"alice"})
	testhelpers.JoinAll(t, "blue", []*websocket.Conn{blue}, []string{"bob"})

	testhelpers.Chat(t, red, "anyone?")
	testhelpers.ExpectChat(t, red, "alice", "anyone?")

	testhelpers.Send(t, red, chat.Inbound{Type: chat.TypePrivate, Text: "/priv bob hello"})
	testhelpers.Send(t, red, chat.Inbound{Type: chat.TypeGetMembers})
	testhelpers.ExpectChat(t, red, chat.ServerName, "In room: alice.")

	testhelpers.ExpectNoMessage(t, blue, quietPeriod)
}

// TestProtocolErrorClosesOnlyOffender verifies an unknown message type closes
// that connection with 1003 while the room keeps working.
func TestProtocolErrorClosesOnlyOffender(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "unknown type", frame: []byte(`{"type":"dance"}`)},
		{name: "not json", frame: []byte(`dance`)},
		{name: "join without name", frame: []byte(`{"type":"join"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := testhelpers.StartServer(t, nil)

			good := testhelpers.DialRoom(t, ts.URL, "lobby")
			bad := testhelpers.DialRoom(t, ts.URL, "lobby")
			testhelpers.JoinAll(t, "lobby", []*websocket.Conn{good}, []string{"alice"})

			require.NoError(t, bad.WriteMessage(websocket.TextMessage, tt.frame))
			_, err := testhelpers.TryReceive(bad, testhelpers.ReadTimeout)
			require.Error(t, err)
			assert.True(t, websocket.IsCloseError(err, websocket.CloseUnsupportedData), "got %v", err)

			testhelpers.Chat(t, good, "still here")
			testhelpers.ExpectChat(t, good, "alice", "still here")
		})
	}
}

// TestJokeFailureKeepsConnectionOpen verifies a failing joke service is not
// fatal to the session.
func TestJokeFailureKeepsConnectionOpen(t *testing.T) {
	_, ts := testhelpers.StartServer(t, nil, server.WithJokeTeller(testhelpers.StubJokes{Err: testhelpers.ErrJokeDown}))

	conn := testhelpers.DialRoom(t, ts.URL, "lobby")
	testhelpers.JoinAll(t, "lobby", []*websocket.Conn{conn}, []string{"alice"})

	testhelpers.Send(t, conn, chat.Inbound{Type: chat.TypeGetJoke})
	testhelpers.Chat(t, conn, "no joke then")
	testhelpers.ExpectChat(t, conn, "alice", "no joke then")
}

// TestChatBeforeJoin verifies an unjoined session may send but receives
// nothing until it joins.
func TestChatBeforeJoin(t *testing.T) {
	_, ts := testhelpers.StartServer(t, nil)

	member := testhelpers.DialRoom(t, ts.URL, "lobby")
	lurker := testhelpers.DialRoom(t, ts.URL, "lobby")
	testhelpers.JoinAll(t, "lobby", []*websocket.Conn{member}, []string{"alice"})

	testhelpers.Chat(t, lurker, "psst")
	testhelpers.ExpectChat(t, member, "", "psst")

	testhelpers.Chat(t, member, "who said that?")
	testhelpers.ExpectChat(t, member, "alice", "who said that?")
	testhelpers.ExpectNoMessage(t, lurker, quietPeriod)
}
