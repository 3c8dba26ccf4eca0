package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const roomsSchema = `CREATE TABLE IF NOT EXISTS game_rooms (
	id             TEXT PRIMARY KEY,
	moves          JSONB NOT NULL DEFAULT '[]'::jsonb,
	current_player TEXT NOT NULL DEFAULT 'X',
	winner         TEXT,
	player_x_id    TEXT NOT NULL,
	player_o_id    TEXT,
	status         TEXT NOT NULL DEFAULT 'waiting',
	version        BIGINT NOT NULL DEFAULT 1,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresStorage struct {
	Pool *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &PostgresStorage{Pool: pool}, nil
}

// Init creates the rooms table when it does not exist yet.
func (that *PostgresStorage) Init(ctx context.Context) error {
	if _, err := that.Pool.Exec(ctx, roomsSchema); err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *PostgresStorage) Close() error {
	that.Pool.Close()
	return nil
}
