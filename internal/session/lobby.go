package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

const (
	createFailedTitle  = "Failed to create game. Please try again."
	networkFailedTitle = "Failed to connect to the server."
)

type RoomCreator interface {
	CreateRoom(ctx context.Context, playerID string) (*entity.Room, error)
}

// CreateGame opens a new room hosted by playerID and returns its id. Failures are
// reported through feedback as well as returned.
func CreateGame(ctx context.Context, creator RoomCreator, playerID string, feedback Feedback) (string, error) {
	room, err := creator.CreateRoom(ctx, playerID)
	if err != nil {
		title := createFailedTitle
		if errors.Is(err, apperror.ErrNetwork) {
			title = networkFailedTitle
		}

		feedback.Notify(entity.EventError)
		feedback.Alert(title, "")

		return "", fmt.Errorf("failed to create game: %w", err)
	}

	return room.ID, nil
}
