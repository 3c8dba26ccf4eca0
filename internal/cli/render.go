package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/tictactoe"
)

const (
	ansiReset = "\033[0m"
	ansiDim   = "\033[2m"
	ansiBold  = "\033[1m"
	ansiRed   = "\033[31m"
	ansiBlue  = "\033[34m"
)

// View is what one player sees of a room.
type View struct {
	Room     *entity.Room
	PlayerID string
	Origin   string
	Color    bool
}

// Render writes the whole room view: header, lobby or board, and the status line.
func Render(w io.Writer, view View) error {
	var b strings.Builder

	room := view.Room
	role := room.RoleOf(view.PlayerID)

	b.WriteString("Infinite Tic-Tac-Toe\n")
	switch {
	case role != entity.NoPlayer:
		fmt.Fprintf(&b, "You are %s\n", view.paint(role, string(role)))
	case room.IsPlaying():
		b.WriteString("Spectating\n")
	}
	b.WriteString("\n")

	if room.IsWaiting() {
		b.WriteString(Lobby(view.Origin, room.ID))
	} else {
		b.WriteString(view.board())
		b.WriteString("\n")
		b.WriteString(StatusLine(room, view.PlayerID))
		b.WriteString("\n")
		if room.HasWinner() {
			b.WriteString("Game over! Press r to play again in the same room.\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Lobby is shown to the host while the second slot is empty.
func Lobby(origin, roomID string) string {
	return "Waiting for opponent . . .\n" +
		"Share this link with a friend to start playing:\n" +
		"  " + RoomLink(origin, roomID) + "\n"
}

// StatusLine mirrors the headline above the board.
func StatusLine(room *entity.Room, playerID string) string {
	role := room.RoleOf(playerID)

	if room.HasWinner() {
		switch {
		case role == entity.NoPlayer:
			return fmt.Sprintf("%s wins!", room.Winner)
		case role == room.Winner:
			return "You win!"
		default:
			return fmt.Sprintf("%s wins! You lose.", room.Winner)
		}
	}

	if room.IsMyTurn(playerID) {
		return fmt.Sprintf("%s your turn", room.CurrentPlayer)
	}
	return fmt.Sprintf("%s opponent's turn", room.CurrentPlayer)
}

// board draws the grid. Empty cells show their key; with color the fading mark is dimmed
// and the winning line is bold.
func (that View) board() string {
	board := tictactoe.Project(that.Room.Moves)
	fading := tictactoe.FadingCell(that.Room)
	line, won := tictactoe.FindWinLine(board)

	onLine := func(cell int) bool {
		return won && (line[0] == cell || line[1] == cell || line[2] == cell)
	}

	var b strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			b.WriteString("---+---+---\n")
		}
		for col := 0; col < 3; col++ {
			cell := row*3 + col
			if col > 0 {
				b.WriteString("|")
			}
			b.WriteString(" " + that.cell(board[cell], cell, cell == fading, onLine(cell)) + " ")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (that View) cell(symbol entity.Symbol, cell int, fading, winning bool) string {
	if symbol == entity.NoPlayer {
		return fmt.Sprintf("%d", cell+1)
	}

	text := string(symbol)
	if !that.Color {
		// lowercase marks the mark about to vanish
		if fading {
			return strings.ToLower(text)
		}
		return text
	}

	text = that.paint(symbol, text)
	switch {
	case winning:
		return ansiBold + text + ansiReset
	case fading:
		return ansiDim + text + ansiReset
	default:
		return text
	}
}

func (that View) paint(symbol entity.Symbol, text string) string {
	if !that.Color {
		return text
	}

	if symbol == entity.PlayerX {
		return ansiRed + text + ansiReset
	}
	return ansiBlue + text + ansiReset
}
