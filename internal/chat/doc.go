// Package chat implements the room, membership, and broadcast core of the
// relay together with the per-connection protocol dispatcher.
//
// A Registry hands out Rooms by name. Each connection owns a Session bound to
// exactly one Room; the transport feeds raw frames to Session.Dispatch and
// supplies an Outbound capability that the core writes to. Delivery is best
// effort: a failed send to one member never affects the others.
package chat
