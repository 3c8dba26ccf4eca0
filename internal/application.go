package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/config"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/feed"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/repository"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/repository/storage"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/service"
	"github.com/rocketscienceinc/infinite-tictactoe/transport/rest"
	"github.com/rocketscienceinc/infinite-tictactoe/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the room server until SIGINT/SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Error("could not close resource", "error", err)
			}
		}
	}()

	var redisStorage *storage.RedisStorage
	if conf.Storage.Driver == config.StorageRedis || conf.Feed.Driver == config.FeedRedis {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		var err error
		if redisStorage, err = storage.NewRedisStorage(ctx, redisAddrString); err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}
		closers = append(closers, redisStorage.Close)
	}

	roomRepo, closeRepo, err := newRoomRepository(ctx, conf, redisStorage)
	if err != nil {
		return err
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	roomFeed, closeFeed, err := newRoomFeed(logger, conf, redisStorage)
	if err != nil {
		return err
	}
	if closeFeed != nil {
		closers = append(closers, closeFeed)
	}

	roomService := service.NewRoomService(logger, roomRepo, roomFeed)
	wsServer := websocket.New(logger, roomService)

	router := rest.NewRouter(logger, roomService, func(r chi.Router) {
		wsServer.Mount(r)
	})
	httpServer := rest.NewServer(logger, conf.HTTPPort, router)

	httpErrCh := make(chan error, 1)
	go func() {
		httpErrCh <- httpServer.Start()
	}()

	log.Info("Room server started", "storage", conf.Storage.Driver, "feed", conf.Feed.Driver)

	select {
	case err = <-httpErrCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Received signal, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-httpErrCh
}

func newRoomRepository(ctx context.Context, conf *config.Config, redisStorage *storage.RedisStorage) (repository.RoomRepository, func() error, error) {
	if conf.Storage.Driver == config.StorageRedis {
		return repository.NewRedisRoomRepository(redisStorage.Client, conf.Storage.RoomTTL), nil, nil
	}

	pgStorage, err := storage.NewPostgresStorage(ctx, conf.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to postgres storage: %w", err)
	}

	if err = pgStorage.Init(ctx); err != nil {
		_ = pgStorage.Close()
		return nil, nil, fmt.Errorf("could not init postgres storage: %w", err)
	}

	return repository.NewPostgresRoomRepository(pgStorage.Pool), pgStorage.Close, nil
}

func newRoomFeed(logger *slog.Logger, conf *config.Config, redisStorage *storage.RedisStorage) (feed.Feed, func() error, error) {
	if conf.Feed.Driver == config.FeedRedis {
		return feed.NewRedisFeed(logger, redisStorage.Client), nil, nil
	}

	conn, err := feed.ConnectNATS(logger, conf.NATS.URL)
	if err != nil {
		return nil, nil, err
	}

	return feed.NewNATSFeed(logger, conn), func() error {
		conn.Close()
		return nil
	}, nil
}
