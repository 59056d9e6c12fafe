package syncengine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RoomID names one document's collaborative channel. It is derived from the
// document type and id so that two document types with the same id never
// share a room (a "wiki" page and a "sprint_plan" must stay isolated).
type RoomID string

func NewRoomID(docType string, docID uuid.UUID) RoomID {
	return RoomID(docType + ":" + docID.String())
}

func (r RoomID) String() string {
	return string(r)
}

// DocumentType returns the type prefix of the room.
func (r RoomID) DocumentType() string {
	if i := strings.IndexByte(string(r), ':'); i >= 0 {
		return string(r)[:i]
	}
	return ""
}

// DocumentID returns the document id part of the room.
func (r RoomID) DocumentID() (uuid.UUID, error) {
	i := strings.IndexByte(string(r), ':')
	if i < 0 {
		return uuid.Nil, fmt.Errorf("malformed room id %q", string(r))
	}
	return uuid.Parse(string(r)[i+1:])
}

// ParseRoomID validates and returns a RoomID from its wire form.
func ParseRoomID(s string) (RoomID, error) {
	r := RoomID(s)
	if r.DocumentType() == "" {
		return "", fmt.Errorf("malformed room id %q", s)
	}
	if _, err := r.DocumentID(); err != nil {
		return "", err
	}
	return r, nil
}
