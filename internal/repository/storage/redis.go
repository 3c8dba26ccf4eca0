package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// RedisStorage backs both the room store and the pub/sub room feed.
type RedisStorage struct {
	Client *redis.Client
}

func NewRedisStorage(ctx context.Context, addr string) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("can't reach room store redis at %s: %w", addr, err)
	}

	return &RedisStorage{Client: client}, nil
}

func (that *RedisStorage) Close() error {
	if err := that.Client.Close(); err != nil {
		return fmt.Errorf("can't close room store redis: %w", err)
	}

	return nil
}
