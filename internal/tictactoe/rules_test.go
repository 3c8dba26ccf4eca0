package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

const (
	x = entity.PlayerX
	o = entity.PlayerO
	e = entity.NoPlayer
)

func playingRoom(moves ...entity.Move) *entity.Room {
	room := entity.NewRoom("room", "host")
	room.PlayerOID = "guest"
	room.Status = entity.StatusPlaying
	room.Moves = moves
	return room
}

func TestProject(t *testing.T) {
	// Given: a move list
	moves := []entity.Move{
		{Index: 4, Player: x, Order: 0},
		{Index: 0, Player: o, Order: 1},
	}

	// When: projecting it onto the board
	board := Project(moves)

	// Then: each mark sits on its cell
	assert.Equal(t, Board{o, e, e, e, x, e, e, e, e}, board)
}

func TestFindWinLine(t *testing.T) {
	t.Run("Returns the first matching line", func(t *testing.T) {
		board := Board{x, x, x, o, o, o, e, e, e}

		line, ok := FindWinLine(board)

		require.True(t, ok)
		assert.Equal(t, [3]int{0, 1, 2}, line)
	})

	t.Run("Diagonal", func(t *testing.T) {
		board := Board{e, e, o, e, o, e, o, x, x}

		line, ok := FindWinLine(board)

		require.True(t, ok)
		assert.Equal(t, [3]int{2, 4, 6}, line)
	})

	t.Run("No line", func(t *testing.T) {
		_, ok := FindWinLine(Board{x, o, x, e, e, e, e, e, e})
		assert.False(t, ok)
	})
}

func TestCheckWinner(t *testing.T) {
	t.Run("Every fixed triple wins for its owner", func(t *testing.T) {
		for _, combo := range entity.WinCombos {
			for _, symbol := range []entity.Symbol{x, o} {
				var board Board
				for _, cell := range combo {
					board[cell] = symbol
				}

				assert.Equal(t, symbol, CheckWinner(board), "combo %v", combo)
			}
		}
	})

	t.Run("Mixed triples never win", func(t *testing.T) {
		for _, combo := range entity.WinCombos {
			var board Board
			board[combo[0]] = x
			board[combo[1]] = x
			board[combo[2]] = o

			assert.Equal(t, e, CheckWinner(board), "combo %v", combo)
		}
	})

	t.Run("Winner iff some triple is exclusively owned", func(t *testing.T) {
		// every board over {X, O, empty}: 3^9 combinations
		symbols := []entity.Symbol{e, x, o}
		for code := 0; code < 19683; code++ {
			var board Board
			n := code
			for cell := range board {
				board[cell] = symbols[n%3]
				n /= 3
			}

			owned := e
			for _, combo := range entity.WinCombos {
				a := board[combo[0]]
				if a != e && a == board[combo[1]] && a == board[combo[2]] {
					owned = a
					break
				}
			}

			require.Equal(t, owned, CheckWinner(board), "board %v", board)
		}
	})
}

func TestApplyMove(t *testing.T) {
	t.Run("Appends with the next order", func(t *testing.T) {
		// Given: an empty board
		// When: X places at the center
		moves, evicted, err := ApplyMove(nil, 4, x)

		// Then: one move with order 0 and no eviction
		require.NoError(t, err)
		assert.Equal(t, NoCell, evicted)
		assert.Equal(t, []entity.Move{{Index: 4, Player: x, Order: 0}}, moves)
	})

	t.Run("Fourth mark evicts the oldest", func(t *testing.T) {
		// Given: X holds {0,1,2}... placed in that order, with O marks between
		moves := []entity.Move{
			{Index: 0, Player: x, Order: 0},
			{Index: 5, Player: o, Order: 1},
			{Index: 1, Player: x, Order: 2},
			{Index: 7, Player: o, Order: 3},
			{Index: 2, Player: x, Order: 4},
			{Index: 8, Player: o, Order: 5},
		}

		// When: X places at cell 3
		next, evicted, err := ApplyMove(moves, 3, x)

		// Then: the mark at cell 0 is gone and X holds {1,2,3}
		require.NoError(t, err)
		assert.Equal(t, 0, evicted)
		board := Project(next)
		assert.Equal(t, Board{e, x, x, x, e, o, e, o, o}, board)
		assert.Equal(t, 6, next[len(next)-1].Order)
	})

	t.Run("Eviction follows order, not list position", func(t *testing.T) {
		// Given: X's marks listed out of order
		moves := []entity.Move{
			{Index: 6, Player: x, Order: 10},
			{Index: 7, Player: x, Order: 4},
			{Index: 8, Player: x, Order: 12},
		}

		// When: X places a fourth mark
		_, evicted, err := ApplyMove(moves, 0, x)

		// Then: the lowest-order mark is evicted
		require.NoError(t, err)
		assert.Equal(t, 7, evicted)
	})

	t.Run("Occupied cell is rejected", func(t *testing.T) {
		moves := []entity.Move{{Index: 4, Player: x, Order: 0}}

		_, _, err := ApplyMove(moves, 4, o)

		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	})

	t.Run("Own fading mark is still occupied", func(t *testing.T) {
		// Given: X holds 3 marks, the oldest at cell 0
		moves := []entity.Move{
			{Index: 0, Player: x, Order: 0},
			{Index: 1, Player: x, Order: 2},
			{Index: 2, Player: x, Order: 4},
		}

		// When: X clicks its own fading mark
		_, _, err := ApplyMove(moves, 0, x)

		// Then: occupancy is the only gate
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	})

	t.Run("Invalid cells", func(t *testing.T) {
		_, _, err := ApplyMove(nil, 9, x)
		require.ErrorIs(t, err, apperror.ErrInvalidCell)

		_, _, err = ApplyMove(nil, -1, x)
		require.ErrorIs(t, err, apperror.ErrInvalidCell)
	})
}

func TestApplyMove_Invariants(t *testing.T) {
	// Given: a long alternating game on free cells
	var moves []entity.Move
	symbol := x
	lastOrder := -1

	for step := 0; step < 60; step++ {
		board := Project(moves)
		cell := -1
		for i := 0; i < entity.BoardSize; i++ {
			candidate := (step*5 + i) % entity.BoardSize
			if board[candidate] == e {
				cell = candidate
				break
			}
		}
		require.NotEqual(t, -1, cell)

		before := countMarks(moves, symbol)
		oldest := oldestMove(moves, symbol)
		var oldestOrder int
		if oldest >= 0 {
			oldestOrder = moves[oldest].Order
		}

		// When: the mover places a mark
		next, evicted, err := ApplyMove(moves, cell, symbol)
		require.NoError(t, err)

		// Then: at most 3 marks per symbol, 6 moves in total
		assert.LessOrEqual(t, countMarks(next, x), entity.MaxMarks)
		assert.LessOrEqual(t, countMarks(next, o), entity.MaxMarks)
		assert.LessOrEqual(t, len(next), 2*entity.MaxMarks)

		// Then: the evicted mark is the mover's lowest order one
		if before == entity.MaxMarks {
			assert.Equal(t, entity.MaxMarks, countMarks(next, symbol))
			assert.NotEqual(t, NoCell, evicted)
			for _, move := range next {
				assert.NotEqual(t, oldestOrder, move.Order)
			}
		}

		// Then: orders strictly increase and are never reused
		newest := next[len(next)-1].Order
		assert.Greater(t, newest, lastOrder)
		lastOrder = newest

		moves = next
		symbol = symbol.Opponent()
	}
}

func TestMakeTurn(t *testing.T) {
	t.Run("First move at the center", func(t *testing.T) {
		// Given: an empty playing room
		room := playingRoom()

		// When: X places at cell 4
		turn, err := MakeTurn(room, x, 4)

		// Then: X is at 4, O moves next, no winner
		require.NoError(t, err)
		assert.Equal(t, x, Project(turn.Moves)[4])
		assert.Equal(t, o, turn.CurrentPlayer)
		assert.Equal(t, e, turn.Winner)
		assert.Equal(t, NoCell, turn.Evicted)
		assert.Empty(t, room.Moves)
	})

	t.Run("Winning move freezes the current player", func(t *testing.T) {
		// Given: X holds 0 and 1
		room := playingRoom(
			entity.Move{Index: 0, Player: x, Order: 0},
			entity.Move{Index: 3, Player: o, Order: 1},
			entity.Move{Index: 1, Player: x, Order: 2},
			entity.Move{Index: 4, Player: o, Order: 3},
		)

		// When: X completes the top row
		turn, err := MakeTurn(room, x, 2)

		// Then: X wins and the turn stays with X
		require.NoError(t, err)
		assert.Equal(t, x, turn.Winner)
		assert.Equal(t, x, turn.CurrentPlayer)

		// And: further moves are rejected until reset
		room.Apply(turn.Patch())
		_, err = MakeTurn(room, o, 8)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
		_, err = MakeTurn(room, x, 8)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Out of turn", func(t *testing.T) {
		_, err := MakeTurn(playingRoom(), o, 0)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Spectator", func(t *testing.T) {
		_, err := MakeTurn(playingRoom(), e, 0)
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Waiting room", func(t *testing.T) {
		room := entity.NewRoom("room", "host")

		_, err := MakeTurn(room, x, 0)

		require.ErrorIs(t, err, apperror.ErrGameNotStarted)
	})

	t.Run("Occupied cell", func(t *testing.T) {
		room := playingRoom(entity.Move{Index: 4, Player: x, Order: 0})
		room.CurrentPlayer = o

		_, err := MakeTurn(room, o, 4)

		require.ErrorIs(t, err, apperror.ErrCellOccupied)
	})
}

func TestResetPatch(t *testing.T) {
	// Given: a won game
	room := playingRoom(entity.Move{Index: 0, Player: x, Order: 0})
	room.Winner = x

	// When: applying the reset patch
	room.Apply(ResetPatch())

	// Then: the board is empty and X starts
	assert.Empty(t, room.Moves)
	assert.Equal(t, x, room.CurrentPlayer)
	assert.Equal(t, e, room.Winner)
	assert.Equal(t, entity.StatusPlaying, room.Status)
}

func TestJoinPatch(t *testing.T) {
	room := entity.NewRoom("room", "host")

	room.Apply(JoinPatch("guest"))

	assert.Equal(t, "guest", room.PlayerOID)
	assert.Equal(t, entity.StatusPlaying, room.Status)
}

func TestFadingCell(t *testing.T) {
	t.Run("Oldest mark of a full current player", func(t *testing.T) {
		room := playingRoom(
			entity.Move{Index: 2, Player: x, Order: 0},
			entity.Move{Index: 3, Player: o, Order: 1},
			entity.Move{Index: 5, Player: x, Order: 2},
			entity.Move{Index: 4, Player: o, Order: 3},
			entity.Move{Index: 6, Player: x, Order: 4},
			entity.Move{Index: 0, Player: o, Order: 5},
		)

		assert.Equal(t, 2, FadingCell(room))
	})

	t.Run("Nothing fades below three marks", func(t *testing.T) {
		room := playingRoom(entity.Move{Index: 2, Player: x, Order: 0})
		room.CurrentPlayer = x

		assert.Equal(t, NoCell, FadingCell(room))
	})

	t.Run("Nothing fades after a win", func(t *testing.T) {
		room := playingRoom(
			entity.Move{Index: 0, Player: x, Order: 0},
			entity.Move{Index: 1, Player: x, Order: 2},
			entity.Move{Index: 2, Player: x, Order: 4},
		)
		room.Winner = x

		assert.Equal(t, NoCell, FadingCell(room))
	})
}
