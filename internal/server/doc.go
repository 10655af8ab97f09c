// Package server implements the HTTP and WebSocket transport for roomchat.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, origin checks, routing, and HTTP handlers. Chat
// semantics (rooms, sessions, the command protocol) live in package chat;
// this package only moves frames between sockets and sessions.
package server
