package chat

import "fmt"

// Outbound message types.
const (
	OutChat = "chat"
	OutNote = "note"
)

// ServerName tags replies that come from the relay itself.
const ServerName = "Server"

// Outgoing is the wire shape of a frame sent to clients. Notes carry no Name.
type Outgoing struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Text string `json:"text"`
}

// Note builds a room-wide system announcement.
func Note(format string, args ...any) Outgoing {
	return Outgoing{Type: OutNote, Text: fmt.Sprintf(format, args...)}
}

// ChatFrom builds a chat line attributed to name.
func ChatFrom(name, text string) Outgoing {
	return Outgoing{Type: OutChat, Name: name, Text: text}
}

// Encode serializes m for the wire.
func (m Outgoing) Encode() ([]byte, error) {
	return json.Marshal(m)
}
