package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

const natsReconnectWait = 2 * time.Second

type natsFeed struct {
	logger *slog.Logger
	conn   *nats.Conn
}

// ConnectNATS opens a connection that reconnects forever.
func ConnectNATS(logger *slog.Logger, url string) (*nats.Conn, error) {
	log := logger.With("component", "nats")

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Error("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return conn, nil
}

// NewNATSFeed publishes room records on per-room NATS subjects.
func NewNATSFeed(logger *slog.Logger, conn *nats.Conn) Feed {
	return &natsFeed{
		logger: logger.With("component", "nats-feed"),
		conn:   conn,
	}
}

func roomSubject(roomID string) string {
	return "rooms." + roomID + ".updated"
}

func (that *natsFeed) Publish(_ context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	if err = that.conn.Publish(roomSubject(room.ID), roomJSON); err != nil {
		return fmt.Errorf("failed to publish room update: %w", err)
	}

	return nil
}

func (that *natsFeed) Subscribe(_ context.Context, roomID string) (Subscription, error) {
	log := that.logger.With("method", "subscription", "roomID", roomID)

	sub := newSubscription(nil)

	natsSub, err := that.conn.Subscribe(roomSubject(roomID), func(msg *nats.Msg) {
		var room entity.Room
		if err := json.Unmarshal(msg.Data, &room); err != nil {
			log.Error("failed to unmarshal room update", "error", err)
			return
		}

		sub.deliver(&room)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", roomID, err)
	}

	sub.stop = natsSub.Unsubscribe

	// make sure the server registered the interest before callers start publishing
	if err = that.conn.Flush(); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to flush subscription: %w", err)
	}

	return sub, nil
}
