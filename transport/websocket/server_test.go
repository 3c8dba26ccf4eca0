package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/feed"
)

type fakeSubscription struct {
	once    sync.Once
	updates chan *entity.Room
}

func (that *fakeSubscription) Updates() <-chan *entity.Room { return that.updates }

func (that *fakeSubscription) Close() error {
	that.once.Do(func() { close(that.updates) })
	return nil
}

type fakeRooms struct {
	room *entity.Room
	sub  *fakeSubscription
}

func (that *fakeRooms) GetRoom(_ context.Context, id string) (*entity.Room, error) {
	if that.room == nil || that.room.ID != id {
		return nil, apperror.ErrNotFound
	}
	return that.room, nil
}

func (that *fakeRooms) Subscribe(context.Context, string) (feed.Subscription, error) {
	return that.sub, nil
}

func newWatchServer(t *testing.T, rooms *fakeRooms) *httptest.Server {
	t.Helper()

	server := New(slog.New(slog.NewTextHandler(io.Discard, nil)), rooms)

	r := chi.NewRouter()
	r.Route("/rooms", server.Mount)

	httpServer := httptest.NewServer(r)
	t.Cleanup(httpServer.Close)

	return httpServer
}

func readRoom(t *testing.T, conn *websocket.Conn) *entity.Room {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var message Message
	require.NoError(t, conn.ReadJSON(&message))

	room, err := message.DecodeRoom()
	require.NoError(t, err)

	return room
}

func TestServer_ServeRoom(t *testing.T) {
	t.Run("Sends the current record and later versions", func(t *testing.T) {
		// Given: a stored room and a watcher connected to it
		room := entity.NewRoom("room-1", "host")
		rooms := &fakeRooms{room: room, sub: &fakeSubscription{updates: make(chan *entity.Room, 4)}}
		server := newWatchServer(t, rooms)

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/rooms/room-1/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		// Then: the first frame is the current record
		first := readRoom(t, conn)
		assert.Equal(t, int64(1), first.Version)

		// When: a stale and a newer version are published
		stale := room.Clone()
		newer := room.Clone()
		newer.Version = 2
		newer.Status = entity.StatusPlaying
		rooms.sub.updates <- stale
		rooms.sub.updates <- newer

		// Then: only the newer one is forwarded
		next := readRoom(t, conn)
		assert.Equal(t, int64(2), next.Version)
		assert.Equal(t, entity.StatusPlaying, next.Status)
	})

	t.Run("Refuses unknown rooms before upgrading", func(t *testing.T) {
		rooms := &fakeRooms{sub: &fakeSubscription{updates: make(chan *entity.Room)}}
		server := newWatchServer(t, rooms)

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/rooms/missing/ws"
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestMessage_DecodeRoom(t *testing.T) {
	t.Run("Rejects other actions", func(t *testing.T) {
		message := &Message{Action: "game:turn"}

		_, err := message.DecodeRoom()

		require.Error(t, err)
	})
}
