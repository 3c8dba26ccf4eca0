package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/feed"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/metrics"
)

type RoomService interface {
	CreateRoom(ctx context.Context, hostID string) (*entity.Room, error)
	GetRoom(ctx context.Context, id string) (*entity.Room, error)
	UpdateRoom(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error)

	Subscribe(ctx context.Context, id string) (feed.Subscription, error)
}

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	Update(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error)
}

type roomService struct {
	logger   *slog.Logger
	roomRepo roomRepo
	feed     feed.Feed

	newID func() string
}

// NewRoomService stores rooms without judging moves: rule enforcement is up to the
// clients, the service only checks the shape of a write and announces it.
func NewRoomService(logger *slog.Logger, roomRepo roomRepo, roomFeed feed.Feed) RoomService {
	return &roomService{
		logger:   logger.With("component", "room-service"),
		roomRepo: roomRepo,
		feed:     roomFeed,
		newID:    uuid.NewString,
	}
}

func (that *roomService) CreateRoom(ctx context.Context, hostID string) (*entity.Room, error) {
	if hostID == "" {
		return nil, fmt.Errorf("host id is required: %w", apperror.ErrInvalidPatch)
	}

	room := entity.NewRoom(that.newID(), hostID)
	if err := that.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room in storage: %w", err)
	}

	metrics.RoomsCreated.Inc()
	that.publish(ctx, room)

	return room, nil
}

func (that *roomService) GetRoom(ctx context.Context, id string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve room from storage: %w", err)
	}

	return room, nil
}

func (that *roomService) UpdateRoom(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", apperror.ErrInvalidPatch)
	}

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	room, err := that.roomRepo.Update(ctx, id, patch)
	if err != nil {
		metrics.RoomUpdates.WithLabelValues(updateOutcome(err)).Inc()
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	metrics.RoomUpdates.WithLabelValues("ok").Inc()
	that.publish(ctx, room)

	return room, nil
}

func (that *roomService) Subscribe(ctx context.Context, id string) (feed.Subscription, error) {
	sub, err := that.feed.Subscribe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	return sub, nil
}

// publish is best effort: the write already happened and polling clients will see it.
func (that *roomService) publish(ctx context.Context, room *entity.Room) {
	if err := that.feed.Publish(ctx, room); err != nil {
		metrics.FeedPublishFailures.Inc()
		that.logger.Error("failed to publish room update", "roomID", room.ID, "version", room.Version, "error", err)
	}
}

func updateOutcome(err error) string {
	switch {
	case errors.Is(err, apperror.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
