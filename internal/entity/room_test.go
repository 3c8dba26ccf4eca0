package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
)

func TestNewRoom(t *testing.T) {
	// When: a host creates a room
	room := NewRoom("room-1", "host")

	// Then: the room waits for a second player with an empty board
	expected := &Room{
		ID:            "room-1",
		Moves:         []Move{},
		CurrentPlayer: PlayerX,
		PlayerXID:     "host",
		Status:        StatusWaiting,
		Version:       1,
	}
	require.Equal(t, expected, room)
}

func TestRoom_RoleOf(t *testing.T) {
	room := &Room{PlayerXID: "host", PlayerOID: "guest"}

	t.Run("Host is X", func(t *testing.T) {
		assert.Equal(t, PlayerX, room.RoleOf("host"))
	})

	t.Run("Guest is O", func(t *testing.T) {
		assert.Equal(t, PlayerO, room.RoleOf("guest"))
	})

	t.Run("Anyone else is a spectator", func(t *testing.T) {
		assert.Equal(t, NoPlayer, room.RoleOf("stranger"))
		assert.False(t, room.IsParticipant("stranger"))
	})

	t.Run("Empty identity never matches an empty slot", func(t *testing.T) {
		waiting := &Room{PlayerXID: "host"}
		assert.Equal(t, NoPlayer, waiting.RoleOf(""))
	})
}

func TestRoom_IsMyTurn(t *testing.T) {
	t.Run("Current player in a playing room", func(t *testing.T) {
		// Given: a playing room where X moves
		room := &Room{PlayerXID: "host", PlayerOID: "guest", CurrentPlayer: PlayerX, Status: StatusPlaying}

		// Then: only X may move
		assert.True(t, room.IsMyTurn("host"))
		assert.False(t, room.IsMyTurn("guest"))
		assert.False(t, room.IsMyTurn("stranger"))
	})

	t.Run("Not while waiting", func(t *testing.T) {
		room := &Room{PlayerXID: "host", CurrentPlayer: PlayerX, Status: StatusWaiting}
		assert.False(t, room.IsMyTurn("host"))
	})

	t.Run("Not after a win", func(t *testing.T) {
		room := &Room{PlayerXID: "host", PlayerOID: "guest", CurrentPlayer: PlayerX, Winner: PlayerX, Status: StatusPlaying}
		assert.False(t, room.IsMyTurn("host"))
	})
}

func TestRoom_Clone(t *testing.T) {
	// Given: a room with one move
	room := &Room{ID: "r", Moves: []Move{{Index: 4, Player: PlayerX, Order: 0}}}

	// When: the clone is mutated
	clone := room.Clone()
	clone.Moves[0].Index = 8
	clone.Moves = append(clone.Moves, Move{Index: 1, Player: PlayerO, Order: 1})

	// Then: the original is untouched
	assert.Equal(t, 4, room.Moves[0].Index)
	assert.Len(t, room.Moves, 1)
}

func TestRoom_LastOrder(t *testing.T) {
	assert.Equal(t, -1, (&Room{}).LastOrder())
	assert.Equal(t, 7, (&Room{Moves: []Move{{Order: 5}, {Order: 7}, {Order: 6}}}).LastOrder())
}

func TestRoomPatch_Validate(t *testing.T) {
	t.Run("Accepts a well formed patch", func(t *testing.T) {
		moves := []Move{{Index: 0, Player: PlayerX, Order: 0}}
		next := PlayerO
		cleared := NoPlayer
		patch := &RoomPatch{Moves: &moves, CurrentPlayer: &next, Winner: &cleared}

		require.NoError(t, patch.Validate())
	})

	t.Run("Rejects a cell outside the board", func(t *testing.T) {
		moves := []Move{{Index: 9, Player: PlayerX}}
		patch := &RoomPatch{Moves: &moves}

		require.ErrorIs(t, patch.Validate(), apperror.ErrInvalidPatch)
	})

	t.Run("Rejects an unknown symbol", func(t *testing.T) {
		bad := Symbol("Z")
		patch := &RoomPatch{CurrentPlayer: &bad}

		require.ErrorIs(t, patch.Validate(), apperror.ErrInvalidPatch)
	})

	t.Run("Rejects an unknown status", func(t *testing.T) {
		bad := Status("finished")
		patch := &RoomPatch{Status: &bad}

		require.ErrorIs(t, patch.Validate(), apperror.ErrInvalidPatch)
	})
}

func TestRoom_Apply(t *testing.T) {
	// Given: a finished game
	room := &Room{
		ID:            "r",
		Moves:         []Move{{Index: 0, Player: PlayerX, Order: 0}},
		CurrentPlayer: PlayerO,
		Winner:        PlayerX,
		PlayerXID:     "host",
		PlayerOID:     "guest",
		Status:        StatusPlaying,
		Version:       9,
	}

	// When: a reset patch is applied
	moves := []Move{}
	first := PlayerX
	cleared := NoPlayer
	playing := StatusPlaying
	room.Apply(&RoomPatch{Moves: &moves, CurrentPlayer: &first, Winner: &cleared, Status: &playing})

	// Then: only the patched fields change
	assert.Empty(t, room.Moves)
	assert.Equal(t, PlayerX, room.CurrentPlayer)
	assert.Equal(t, NoPlayer, room.Winner)
	assert.Equal(t, "guest", room.PlayerOID)
	assert.Equal(t, int64(9), room.Version)
}
