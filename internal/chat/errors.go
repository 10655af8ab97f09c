package chat

import "github.com/cockroachdb/errors"

var (
	// ErrProtocol marks inbound frames that cannot be decoded or carry an
	// unrecognized type. The transport decides the connection's fate.
	ErrProtocol = errors.New("protocol error")

	// ErrJokeUnavailable marks failures of the external joke service.
	ErrJokeUnavailable = errors.New("joke service unavailable")

	// ErrSessionClosed is returned when a frame is dispatched after Disconnect.
	ErrSessionClosed = errors.New("session closed")
)

// IsProtocolError reports whether err was caused by a malformed inbound frame.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}
