package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

type redisFeed struct {
	logger *slog.Logger
	client *redis.Client
}

// NewRedisFeed publishes room records over Redis Pub/Sub.
func NewRedisFeed(logger *slog.Logger, client *redis.Client) Feed {
	return &redisFeed{
		logger: logger.With("component", "redis-feed"),
		client: client,
	}
}

func roomChannel(roomID string) string {
	return "room:" + roomID + ":updates"
}

func (that *redisFeed) Publish(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	if err = that.client.Publish(ctx, roomChannel(room.ID), roomJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish room update: %w", err)
	}

	return nil
}

func (that *redisFeed) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	pubsub := that.client.Subscribe(ctx, roomChannel(roomID))

	// wait for the subscription to be confirmed so no publish after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", roomID, err)
	}

	sub := newSubscription(pubsub.Close)

	go func() {
		log := that.logger.With("method", "subscription", "roomID", roomID)

		for msg := range pubsub.Channel() {
			var room entity.Room
			if err := json.Unmarshal([]byte(msg.Payload), &room); err != nil {
				log.Error("failed to unmarshal room update", "error", err)
				continue
			}

			if !sub.deliver(&room) {
				return
			}
		}
	}()

	return sub, nil
}
