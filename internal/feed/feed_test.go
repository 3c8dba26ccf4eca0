package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
	"github.com/rocketscienceinc/infinite-tictactoe/testing/suite"
)

const waitTimeout = 5 * time.Second

func TestRedisFeed(t *testing.T) {
	ctx, st := suite.New(t)

	runFeedTests(ctx, t, NewRedisFeed(st.Logger, st.Storage))
}

func TestNATSFeed(t *testing.T) {
	ctx, st := suite.NewNATS(t)

	runFeedTests(ctx, t, NewNATSFeed(st.Logger, st.NATS))
}

func runFeedTests(ctx context.Context, t *testing.T, roomFeed Feed) {
	t.Helper()

	t.Run("Delivers the full record to room subscribers", func(t *testing.T) {
		// Given: a subscriber on room-1
		sub, err := roomFeed.Subscribe(ctx, "room-1")
		require.NoError(t, err)
		defer sub.Close()

		// When: a write to room-1 is published
		room := entity.NewRoom("room-1", "host")
		room.Moves = []entity.Move{{Index: 4, Player: entity.PlayerX, Order: 0}}
		require.NoError(t, roomFeed.Publish(ctx, room))

		// Then: the subscriber receives the same record
		select {
		case got := <-sub.Updates():
			assert.Equal(t, room, got)
		case <-time.After(waitTimeout):
			t.Fatal("no update delivered")
		}
	})

	t.Run("Does not deliver other rooms", func(t *testing.T) {
		// Given: a subscriber on room-2
		sub, err := roomFeed.Subscribe(ctx, "room-2")
		require.NoError(t, err)
		defer sub.Close()

		// When: room-3 and then room-2 are published
		require.NoError(t, roomFeed.Publish(ctx, entity.NewRoom("room-3", "host")))
		require.NoError(t, roomFeed.Publish(ctx, entity.NewRoom("room-2", "host")))

		// Then: only room-2 arrives
		select {
		case got := <-sub.Updates():
			assert.Equal(t, "room-2", got.ID)
		case <-time.After(waitTimeout):
			t.Fatal("no update delivered")
		}
	})

	t.Run("Close ends the updates channel", func(t *testing.T) {
		sub, err := roomFeed.Subscribe(ctx, "room-4")
		require.NoError(t, err)

		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())

		_, ok := <-sub.Updates()
		assert.False(t, ok)
	})
}

func TestSubscription_Deliver(t *testing.T) {
	t.Run("Drops the oldest record when the reader lags", func(t *testing.T) {
		// Given: a subscription nobody reads from
		sub := newSubscription(nil)

		// When: more records than the buffer holds are delivered
		for version := int64(1); version <= updatesBuffer+3; version++ {
			require.True(t, sub.deliver(&entity.Room{ID: "r", Version: version}))
		}

		// Then: the newest records are kept
		first := <-sub.Updates()
		assert.Equal(t, int64(4), first.Version)
	})

	t.Run("Refuses records after close", func(t *testing.T) {
		sub := newSubscription(nil)
		require.NoError(t, sub.Close())

		assert.False(t, sub.deliver(&entity.Room{ID: "r"}))
	})
}
