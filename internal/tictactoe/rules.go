package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

// NoCell marks the absence of a cell index (no eviction, no fading mark).
const NoCell = -1

// Board is the projection of a move list onto the 9 cells.
type Board [entity.BoardSize]entity.Symbol

// Turn is the outcome of one legal move.
type Turn struct {
	Moves         []entity.Move
	CurrentPlayer entity.Symbol
	Winner        entity.Symbol
	Evicted       int
}

// Project places every move's symbol on its cell; later moves overwrite earlier ones.
func Project(moves []entity.Move) Board {
	var board Board
	for _, move := range moves {
		if move.Index < 0 || move.Index >= entity.BoardSize {
			continue
		}
		board[move.Index] = move.Player
	}
	return board
}

// FindWinLine returns the first fully matching triple in WinCombos order.
func FindWinLine(board Board) ([3]int, bool) {
	for _, combo := range entity.WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.NoPlayer && a == b && b == c {
			return combo, true
		}
	}
	return [3]int{}, false
}

// CheckWinner is the authoritative win check evaluated after each appended move.
func CheckWinner(board Board) entity.Symbol {
	line, ok := FindWinLine(board)
	if !ok {
		return entity.NoPlayer
	}
	return board[line[0]]
}

// ApplyMove appends a mark for symbol at cell. The target cell must be empty.
// When symbol already holds MaxMarks marks, its oldest (lowest order) is evicted first.
func ApplyMove(moves []entity.Move, cell int, symbol entity.Symbol) ([]entity.Move, int, error) {
	if cell < 0 || cell >= entity.BoardSize {
		return nil, NoCell, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if Project(moves)[cell] != entity.NoPlayer {
		return nil, NoCell, fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, cell)
	}

	evicted := NoCell
	oldest := oldestMove(moves, symbol)
	if countMarks(moves, symbol) >= entity.MaxMarks && oldest >= 0 {
		evicted = moves[oldest].Index
	}

	next := make([]entity.Move, 0, len(moves)+1)
	maxOrder := -1
	for i, move := range moves {
		if move.Order > maxOrder {
			maxOrder = move.Order
		}
		if evicted != NoCell && i == oldest {
			continue
		}
		next = append(next, move)
	}

	next = append(next, entity.Move{Index: cell, Player: symbol, Order: maxOrder + 1})

	return next, evicted, nil
}

// MakeTurn validates that symbol may move in room and computes the resulting state.
// The room itself is not modified.
func MakeTurn(room *entity.Room, symbol entity.Symbol, cell int) (*Turn, error) {
	if room.HasWinner() {
		return nil, apperror.ErrGameFinished
	}

	if !room.IsPlaying() {
		return nil, apperror.ErrGameNotStarted
	}

	if !symbol.IsValid() || room.CurrentPlayer != symbol {
		return nil, apperror.ErrNotYourTurn
	}

	moves, evicted, err := ApplyMove(room.Moves, cell, symbol)
	if err != nil {
		return nil, fmt.Errorf("invalid turn: %w", err)
	}

	turn := &Turn{
		Moves:         moves,
		CurrentPlayer: symbol.Opponent(),
		Winner:        CheckWinner(Project(moves)),
		Evicted:       evicted,
	}

	// the current player is frozen after a win until a reset
	if turn.Winner != entity.NoPlayer {
		turn.CurrentPlayer = room.CurrentPlayer
	}

	return turn, nil
}

// Patch converts the turn into the fields written to the store.
func (that *Turn) Patch() *entity.RoomPatch {
	moves := that.Moves
	current := that.CurrentPlayer
	winner := that.Winner

	return &entity.RoomPatch{
		Moves:         &moves,
		CurrentPlayer: &current,
		Winner:        &winner,
	}
}

// ResetPatch clears the board and hands the first move back to X.
func ResetPatch() *entity.RoomPatch {
	moves := []entity.Move{}
	first := entity.PlayerX
	winner := entity.NoPlayer
	status := entity.StatusPlaying

	return &entity.RoomPatch{
		Moves:         &moves,
		CurrentPlayer: &first,
		Winner:        &winner,
		Status:        &status,
	}
}

// JoinPatch fills the second slot and starts the game.
func JoinPatch(playerID string) *entity.RoomPatch {
	status := entity.StatusPlaying

	return &entity.RoomPatch{
		PlayerOID: &playerID,
		Status:    &status,
	}
}

// FadingCell reports the current player's oldest mark when it is about to vanish.
// It is a display hint only: the cell stays occupied for legality checks.
func FadingCell(room *entity.Room) int {
	if room.HasWinner() || countMarks(room.Moves, room.CurrentPlayer) < entity.MaxMarks {
		return NoCell
	}

	oldest := oldestMove(room.Moves, room.CurrentPlayer)
	if oldest < 0 {
		return NoCell
	}
	return room.Moves[oldest].Index
}

func countMarks(moves []entity.Move, symbol entity.Symbol) int {
	count := 0
	for _, move := range moves {
		if move.Player == symbol {
			count++
		}
	}
	return count
}

// oldestMove returns the position in moves of symbol's lowest-order mark, or -1.
func oldestMove(moves []entity.Move, symbol entity.Symbol) int {
	oldest := -1
	for i, move := range moves {
		if move.Player != symbol {
			continue
		}
		if oldest < 0 || move.Order < moves[oldest].Order {
			oldest = i
		}
	}
	return oldest
}
