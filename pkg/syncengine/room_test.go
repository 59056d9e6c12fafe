package syncengine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomIDRoundTrip(t *testing.T) {
	id := uuid.New()
	room := NewRoomID("sprint_plan", id)

	assert.Equal(t, "sprint_plan:"+id.String(), room.String())
	assert.Equal(t, "sprint_plan", room.DocumentType())

	got, err := room.DocumentID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestRoomIDSeparatesDocumentTypes(t *testing.T) {
	// The same document id under two types must never share a room.
	id := uuid.New()
	assert.NotEqual(t, NewRoomID("wiki", id), NewRoomID("program_brief", id))
}

func TestParseRoomID(t *testing.T) {
	id := uuid.New()

	room, err := ParseRoomID("wiki:" + id.String())
	require.NoError(t, err)
	assert.Equal(t, "wiki", room.DocumentType())

	for _, bad := range []string{
		"",
		"wiki",
		":" + id.String(),
		"wiki:not-a-uuid",
	} {
		_, err := ParseRoomID(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}
