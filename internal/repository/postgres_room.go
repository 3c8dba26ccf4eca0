package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

const uniqueViolation = "23505"

const selectRoom = `SELECT id, moves, current_player, winner, player_x_id, player_o_id, status, version
	FROM game_rooms WHERE id = $1`

type pgRoom struct {
	pool *pgxpool.Pool
}

// NewPostgresRoomRepository stores rooms in the game_rooms table with moves as JSONB.
func NewPostgresRoomRepository(pool *pgxpool.Pool) RoomRepository {
	return &pgRoom{
		pool: pool,
	}
}

func (that *pgRoom) Create(ctx context.Context, room *entity.Room) error {
	query := `INSERT INTO game_rooms (id, moves, current_player, winner, player_x_id, player_o_id, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := that.pool.Exec(ctx, query,
		room.ID,
		room.Moves,
		string(room.CurrentPlayer),
		nullable(string(room.Winner)),
		room.PlayerXID,
		nullable(room.PlayerOID),
		string(room.Status),
		room.Version,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
	}

	if err != nil {
		return fmt.Errorf("can't save room: %w", err)
	}

	return nil
}

func (that *pgRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	return scanRoom(that.pool.QueryRow(ctx, selectRoom, id))
}

func (that *pgRoom) Update(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error) {
	var updated *entity.Room

	err := pgx.BeginFunc(ctx, that.pool, func(tx pgx.Tx) error {
		room, err := scanRoom(tx.QueryRow(ctx, selectRoom+" FOR UPDATE", id))
		if err != nil {
			return err
		}

		if patch.ExpectedVersion != 0 && patch.ExpectedVersion != room.Version {
			return fmt.Errorf("%w: expected version %d, got %d", apperror.ErrVersionConflict, patch.ExpectedVersion, room.Version)
		}

		room.Apply(patch)
		room.Version++

		query := `UPDATE game_rooms
			SET moves = $2, current_player = $3, winner = $4, player_o_id = $5, status = $6,
				version = $7, updated_at = now()
			WHERE id = $1`

		_, err = tx.Exec(ctx, query,
			room.ID,
			room.Moves,
			string(room.CurrentPlayer),
			nullable(string(room.Winner)),
			nullable(room.PlayerOID),
			string(room.Status),
			room.Version,
		)
		if err != nil {
			return fmt.Errorf("can't update room: %w", err)
		}

		updated = room

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	return updated, nil
}

func scanRoom(row pgx.Row) (*entity.Room, error) {
	var (
		room          entity.Room
		currentPlayer string
		winner        *string
		playerOID     *string
		status        string
	)

	err := row.Scan(&room.ID, &room.Moves, &currentPlayer, &winner, &room.PlayerXID, &playerOID, &status, &room.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find room: %w", err)
	}

	room.CurrentPlayer = entity.Symbol(currentPlayer)
	room.Status = entity.Status(status)
	if winner != nil {
		room.Winner = entity.Symbol(*winner)
	}
	if playerOID != nil {
		room.PlayerOID = *playerOID
	}
	if room.Moves == nil {
		room.Moves = []entity.Move{}
	}

	return &room, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
