package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"propertigo/pkg/errors"
)

func TestComputeRoomIDIsCommutative(t *testing.T) {
	pairs := [][2]string{
		{"alice", "bob"},
		{"5", "12"},
		{"u-100", "u-2"},
		{"zzz", "aaa"},
	}

	for _, pair := range pairs {
		a, err := ComputeRoomID(pair[0], pair[1], "prop42")
		assert.NoError(t, err)
		b, err := ComputeRoomID(pair[1], pair[0], "prop42")
		assert.NoError(t, err)
		assert.Equal(t, a, b, "room id must not depend on initiator for pair %v", pair)
	}
}

func TestComputeRoomIDOrdersLexicographically(t *testing.T) {
	// String comparison, not numeric: "12" < "5", so buyer "5" and
	// counterparty "12" about listing "123" yields "12_5_123".
	id, err := ComputeRoomID("5", "12", "123")
	assert.NoError(t, err)
	assert.Equal(t, "12_5_123", id)

	id, err = ComputeRoomID("12", "5", "123")
	assert.NoError(t, err)
	assert.Equal(t, "12_5_123", id)
}

func TestComputeRoomIDRejectsSentinelValues(t *testing.T) {
	bad := []string{"", "0", "null", "undefined"}

	for _, v := range bad {
		_, err := ComputeRoomID(v, "12", "123")
		assert.True(t, errors.Is(err, "INVALID_IDENTITY"), "first participant %q", v)

		_, err = ComputeRoomID("5", v, "123")
		assert.True(t, errors.Is(err, "INVALID_IDENTITY"), "second participant %q", v)

		_, err = ComputeRoomID("5", "12", v)
		assert.True(t, errors.Is(err, "INVALID_IDENTITY"), "property %q", v)
	}
}

func TestParseRoomID(t *testing.T) {
	participants, propertyID, err := ParseRoomID("12_5_123")
	assert.NoError(t, err)
	assert.Equal(t, []string{"12", "5"}, participants)
	assert.Equal(t, "123", propertyID)

	_, _, err = ParseRoomID("12_5")
	assert.True(t, errors.Is(err, "INVALID_IDENTITY"))

	_, _, err = ParseRoomID("12_null_123")
	assert.True(t, errors.Is(err, "INVALID_IDENTITY"))
}

func TestRoomOtherParticipant(t *testing.T) {
	room := &Room{Participants: []string{"12", "5"}}

	assert.Equal(t, "12", room.OtherParticipant("5"))
	assert.Equal(t, "5", room.OtherParticipant("12"))
	assert.True(t, room.HasParticipant("5"))
	assert.False(t, room.HasParticipant("99"))
}

func TestRoomStatusForMissingKey(t *testing.T) {
	room := &Room{
		BuyerID:      "5",
		Participants: []string{"12", "5"},
		ReadStatus:   map[string]string{},
	}

	// The buyer created the room; everyone else starts unread.
	assert.Equal(t, StatusRead, room.StatusFor("5"))
	assert.Equal(t, StatusNew, room.StatusFor("12"))

	room.ReadStatus["12"] = StatusRead
	assert.Equal(t, StatusRead, room.StatusFor("12"))
}
