package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/feed"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type roomWatcher interface {
	GetRoom(ctx context.Context, id string) (*entity.Room, error)
	Subscribe(ctx context.Context, id string) (feed.Subscription, error)
}

// Server pushes room records to watchers. It is read-only: writes go through the REST API.
type Server struct {
	logger   *slog.Logger
	rooms    roomWatcher
	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, rooms roomWatcher) *Server {
	return &Server{
		logger: logger.With("component", "websocket"),
		rooms:  rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Mount registers the watch endpoint on a /rooms router.
func (that *Server) Mount(r chi.Router) {
	r.Get("/{id}/ws", that.ServeRoom)
}

// ServeRoom sends the current record on connect and every later version of it.
func (that *Server) ServeRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	log := that.logger.With("method", "ServeRoom", "roomID", roomID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// subscribe before reading so no write between the two is lost
	sub, err := that.rooms.Subscribe(ctx, roomID)
	if err != nil {
		log.Error("failed to subscribe", "error", err)
		http.Error(w, "subscription failed", http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	room, err := that.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		log.Error("failed to load room", "error", err)
		http.Error(w, "failed to load room", http.StatusInternalServerError)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	metrics.WatchersConnected.Inc()
	defer metrics.WatchersConnected.Dec()

	log.Info("WebSocket connection established")

	go that.readPump(conn, cancel)

	if err = that.writePump(ctx, conn, room, sub.Updates()); err != nil {
		log.Info("WebSocket connection closed", "reason", err)
	}
}

// readPump only services control frames; the first read error ends the connection.
func (that *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (that *Server) writePump(ctx context.Context, conn *websocket.Conn, room *entity.Room, updates <-chan *entity.Room) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := sendRoom(conn, room); err != nil {
		return err
	}
	lastVersion := room.Version

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return ctx.Err()
		case next, ok := <-updates:
			if !ok {
				return errors.New("room feed closed")
			}
			if next.Version <= lastVersion {
				continue
			}
			if err := sendRoom(conn, next); err != nil {
				return err
			}
			lastVersion = next.Version
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}
