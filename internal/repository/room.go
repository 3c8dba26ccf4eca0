package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

// maxTxRetries bounds optimistic WATCH retries when another writer touches the key.
const maxTxRetries = 5

var ErrRoomExists = errors.New("room already exists")

// RoomRepository is the remote room record store.
type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	// Update overwrites the patched fields and bumps the version. A non-zero
	// patch.ExpectedVersion must match the stored version or ErrVersionConflict is returned.
	Update(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type dbRoom struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRoomRepository stores each room as a JSON blob; ttl of zero disables expiry.
func NewRedisRoomRepository(client *redis.Client, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		ttl:    ttl,
	}
}

func roomKey(id string) string {
	return "room:" + id
}

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	created, err := that.client.SetNX(ctx, roomKey(room.ID), roomJSON, that.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	if !created {
		return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	return that.get(ctx, that.client, roomKey(id))
}

func (that *dbRoom) Update(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error) {
	key := roomKey(id)

	var updated *entity.Room

	txf := func(tx *redis.Tx) error {
		room, err := that.get(ctx, tx, key)
		if err != nil {
			return err
		}

		if patch.ExpectedVersion != 0 && patch.ExpectedVersion != room.Version {
			return fmt.Errorf("%w: expected version %d, got %d", apperror.ErrVersionConflict, patch.ExpectedVersion, room.Version)
		}

		room.Apply(patch)
		room.Version++

		roomJSON, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("could not marshal room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, roomJSON, that.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = room

		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to update room: %w", err)
		}

		return updated, nil
	}

	return nil, fmt.Errorf("%w: too many concurrent writers on room %s", apperror.ErrVersionConflict, id)
}

func (that *dbRoom) get(ctx context.Context, client redisGetter, key string) (*entity.Room, error) {
	response, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	if room.Moves == nil {
		room.Moves = []entity.Move{}
	}

	return &room, nil
}
