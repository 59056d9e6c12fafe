// Package wire holds the collaboration channel protocol shared by the server
// hub and the client sync engine.
package wire

import "strings"

// CloseInvalidated is the distinguished close code the server sends to every
// session on a room when that room's content was mutated out-of-band (REST
// PATCH or delete). Clients must discard their cache and re-hydrate. Both
// sides have to agree on this value exactly.
const CloseInvalidated = 4101

// PathPrefix is the collaboration endpoint path. Clients rely on the literal
// "/collaboration/" segment to tell collaboration sockets apart from other
// app sockets.
const PathPrefix = "/api/collaboration/"

// IsCollaborationURL reports whether a socket URL addresses the
// collaboration endpoint.
func IsCollaborationURL(u string) bool {
	return strings.Contains(u, "/collaboration/")
}

type MessageType string

const (
	// MessageSync carries the server's authoritative state. Sent once after
	// the handshake, and again whenever the server needs to rebase a client.
	MessageSync MessageType = "sync"

	// MessageUpdate carries one incremental edit, in either direction.
	MessageUpdate MessageType = "update"

	// MessageAck confirms a client update was applied to the authoritative
	// copy. Version is the room version after applying it.
	MessageAck MessageType = "ack"
)

type Message struct {
	Type    MessageType `json:"type"`
	Room    string      `json:"room"`
	Version uint64      `json:"version"`
	State   []byte      `json:"state,omitempty"`
	Delta   []byte      `json:"delta,omitempty"`
}
