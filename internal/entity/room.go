package entity

import (
	"fmt"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
)

// Symbol is one of the two game markers.
type Symbol string

// Status is the lifecycle stage of a room.
type Status string

const (
	PlayerX  Symbol = "X"
	PlayerO  Symbol = "O"
	NoPlayer Symbol = ""

	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
)

const (
	BoardSize = 9
	MaxMarks  = 3
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

func (that Symbol) IsValid() bool {
	return that == PlayerX || that == PlayerO
}

// Opponent returns the other symbol.
func (that Symbol) Opponent() Symbol {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (that Status) IsValid() bool {
	return that == StatusWaiting || that == StatusPlaying
}

// Move is a single placed mark. Order is strictly increasing per room and never reused.
type Move struct {
	Index  int    `json:"index"`
	Player Symbol `json:"player"`
	Order  int    `json:"order"`
}

// Room is the shared record both players synchronize against.
type Room struct {
	ID            string `json:"id"`
	Moves         []Move `json:"moves"`
	CurrentPlayer Symbol `json:"current_player"`
	Winner        Symbol `json:"winner,omitempty"`
	PlayerXID     string `json:"player_x_id"`
	PlayerOID     string `json:"player_o_id,omitempty"`
	Status        Status `json:"status"`
	Version       int64  `json:"version"`
}

func NewRoom(id, hostID string) *Room {
	return &Room{
		ID:            id,
		Moves:         []Move{},
		CurrentPlayer: PlayerX,
		Winner:        NoPlayer,
		PlayerXID:     hostID,
		Status:        StatusWaiting,
		Version:       1,
	}
}

// Clone returns a deep copy, so callers can mutate it without touching shared snapshots.
func (that *Room) Clone() *Room {
	if that == nil {
		return nil
	}

	clone := *that
	clone.Moves = make([]Move, len(that.Moves))
	copy(clone.Moves, that.Moves)

	return &clone
}

// RoleOf resolves a player identity against the two slots. NoPlayer means spectator.
func (that *Room) RoleOf(playerID string) Symbol {
	switch {
	case playerID == "":
		return NoPlayer
	case that.PlayerXID == playerID:
		return PlayerX
	case that.PlayerOID == playerID:
		return PlayerO
	default:
		return NoPlayer
	}
}

func (that *Room) IsParticipant(playerID string) bool {
	return that.RoleOf(playerID) != NoPlayer
}

func (that *Room) IsMyTurn(playerID string) bool {
	role := that.RoleOf(playerID)

	return that.IsPlaying() && role != NoPlayer && role == that.CurrentPlayer && !that.HasWinner()
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) HasWinner() bool {
	return that.Winner != NoPlayer
}

// LastOrder returns the order of the newest move, or -1 for an empty board.
func (that *Room) LastOrder() int {
	last := -1
	for _, move := range that.Moves {
		if move.Order > last {
			last = move.Order
		}
	}
	return last
}

// RoomPatch is a partial overwrite of a room. Nil fields are left untouched.
// A non-nil Winner pointing at NoPlayer clears the winner.
type RoomPatch struct {
	Moves           *[]Move `json:"moves,omitempty"`
	CurrentPlayer   *Symbol `json:"current_player,omitempty"`
	Winner          *Symbol `json:"winner,omitempty"`
	PlayerOID       *string `json:"player_o_id,omitempty"`
	Status          *Status `json:"status,omitempty"`
	ExpectedVersion int64   `json:"expected_version,omitempty"`
}

// Validate checks the shape of a patch. Game rules are not enforced here.
func (that *RoomPatch) Validate() error {
	if that.Moves != nil {
		for _, move := range *that.Moves {
			if move.Index < 0 || move.Index >= BoardSize {
				return fmt.Errorf("%w: cell %d", apperror.ErrInvalidPatch, move.Index)
			}
			if !move.Player.IsValid() {
				return fmt.Errorf("%w: move player %q", apperror.ErrInvalidPatch, move.Player)
			}
		}
	}

	if that.CurrentPlayer != nil && !that.CurrentPlayer.IsValid() {
		return fmt.Errorf("%w: current player %q", apperror.ErrInvalidPatch, *that.CurrentPlayer)
	}

	if that.Winner != nil && *that.Winner != NoPlayer && !that.Winner.IsValid() {
		return fmt.Errorf("%w: winner %q", apperror.ErrInvalidPatch, *that.Winner)
	}

	if that.Status != nil && !that.Status.IsValid() {
		return fmt.Errorf("%w: status %q", apperror.ErrInvalidPatch, *that.Status)
	}

	return nil
}

func (that *RoomPatch) IsEmpty() bool {
	return that.Moves == nil && that.CurrentPlayer == nil && that.Winner == nil &&
		that.PlayerOID == nil && that.Status == nil
}

// Apply overwrites the patched fields. Version is left to the store.
func (that *Room) Apply(patch *RoomPatch) {
	if patch.Moves != nil {
		that.Moves = make([]Move, len(*patch.Moves))
		copy(that.Moves, *patch.Moves)
	}
	if patch.CurrentPlayer != nil {
		that.CurrentPlayer = *patch.CurrentPlayer
	}
	if patch.Winner != nil {
		that.Winner = *patch.Winner
	}
	if patch.PlayerOID != nil {
		that.PlayerOID = *patch.PlayerOID
	}
	if patch.Status != nil {
		that.Status = *patch.Status
	}
}
