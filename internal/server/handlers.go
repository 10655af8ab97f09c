// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// WebSocketHandler upgrades GET /chat/{room} to a WebSocket, binds a new chat
// session to the room named in the path, and registers the client with the
// hub, which launches its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	if room == "" {
		http.Error(w, "Room name required.", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("websocket upgrade failed", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg, s.log.With(zap.String("room", room)))
	client.bindSession(chat.NewSession(s.registry, room, client, s.jokes, s.log))

	if !s.hub.registerClient(client) {
		client.writeClose(websocket.CloseGoingAway, "server shutting down")
		client.closeConnection()
		client.session.Disconnect()
	}
}

// HealthHandler responds with a plain-text status line that includes the
// number of rooms and connected sessions.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomchat server is running! rooms=%d sessions=%d",
		s.registry.Len(), s.hub.Len())
}

// TestPageHandler serves an HTML page that joins a room over WebSocket and
// speaks the chat protocol, including the slash commands.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>roomchat test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        #messageInput { width: 300px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        .note { color: gray; font-style: italic; }
        .help { color: #555; font-size: 0.9em; }
    </style>
</head>
<body>
    <h1>roomchat test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="roomInput" placeholder="Room" value="lobby">
        <input type="text" id="nameInput" placeholder="Your name">
        <button id="connectButton" onclick="toggleConnection()">Join</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>
    <p class="help">Commands: /joke, /members, /priv &lt;user&gt; &lt;message&gt;, /name &lt;new name&gt;</p>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const roomInput = document.getElementById('roomInput');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, className) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            if (className) {
                el.className = className;
            }
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected to ' + roomInput.value : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            roomInput.disabled = connected;
            nameInput.disabled = connected;
            connectButton.textContent = connected ? 'Leave' : 'Join';
        }

        function connect() {
            const room = roomInput.value.trim();
            const name = nameInput.value.trim();
            if (!room || !name) {
                addLine('Room and name are required', 'note');
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/chat/' + encodeURIComponent(room));

            ws.onopen = function() {
                ws.send(JSON.stringify({type: 'join', name: name}));
                updateStatus(true);
            };

            ws.onmessage = function(event) {
                const msg = JSON.parse(event.data);
                if (msg.type === 'note') {
                    addLine(msg.text, 'note');
                } else {
                    addLine(msg.name + ': ' + msg.text);
                }
            };

            ws.onclose = function(event) {
                addLine('Connection closed' + (event.reason ? ': ' + event.reason : ''), 'note');
                updateStatus(false);
                ws = null;
            };

            ws.onerror = function() {
                addLine('Connection error', 'note');
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function toFrame(text) {
            if (text === '/joke') {
                return {type: 'get-joke'};
            }
            if (text === '/members') {
                return {type: 'get-members'};
            }
            if (text.startsWith('/priv ')) {
                return {type: 'private', text: text};
            }
            if (text.startsWith('/name ')) {
                return {type: 'new-name', text: text};
            }
            return {type: 'chat', text: text};
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify(toFrame(text)));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
