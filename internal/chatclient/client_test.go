package chatclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		room    string
		want    string
		wantErr bool
	}{
		{name: "ws", base: "ws://localhost:8080", room: "lobby", want: "ws://localhost:8080/chat/lobby"},
		{name: "http converted", base: "http://127.0.0.1:9000/", room: "lobby", want: "ws://127.0.0.1:9000/chat/lobby"},
		{name: "https converted", base: "https://chat.example.com", room: "ops", want: "wss://chat.example.com/chat/ops"},
		{name: "base path kept", base: "wss://example.com/relay", room: "a", want: "wss://example.com/relay/chat/a"},
		{name: "room escaped", base: "ws://h", room: "a b", want: "ws://h/chat/a%20b"},
		{name: "missing room", base: "ws://h", wantErr: true},
		{name: "bad scheme", base: "ftp://h", room: "a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := roomURL(tt.base, tt.room)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
