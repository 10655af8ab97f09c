package server

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrClientClosed is returned by Client.Send once the connection is gone.
	ErrClientClosed = errors.New("client closed")

	// ErrSendBufferFull is returned by Client.Send when the peer is not
	// draining its queue. The connection is closed as a slow consumer.
	ErrSendBufferFull = errors.New("send buffer full")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
