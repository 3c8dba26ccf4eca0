package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/roomsync"
	"github.com/rocketscienceinc/infinite-tictactoe/internal/tictactoe"
)

// RoomStore is the remote side of a session.
type RoomStore interface {
	FetchRoom(ctx context.Context, id string) (*entity.Room, error)
	UpdateRoom(ctx context.Context, id string, patch *entity.RoomPatch) (*entity.Room, error)
	Subscribe(ctx context.Context, id string) (<-chan *entity.Room, error)
}

// Feedback turns session outcomes into something the player notices.
type Feedback interface {
	roomsync.Notifier
	Alert(title, description string)
}

// Controller drives one player's view of one room.
type Controller struct {
	logger       *slog.Logger
	playerID     string
	store        RoomStore
	feedback     Feedback
	clock        clockwork.Clock
	pollInterval time.Duration

	mu      sync.Mutex
	roomID  string
	syncer  *roomsync.Synchronizer
	loading bool
	err     error
	active  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// serializes local writes so two actions never build on the same snapshot
	writeMu sync.Mutex
}

func New(logger *slog.Logger, playerID string, store RoomStore, feedback Feedback, clock clockwork.Clock, pollInterval time.Duration) *Controller {
	return &Controller{
		logger:       logger.With("component", "session", "playerID", playerID),
		playerID:     playerID,
		store:        store,
		feedback:     feedback,
		clock:        clock,
		pollInterval: pollInterval,
	}
}

// Open loads the room and starts following it until Close.
func (that *Controller) Open(ctx context.Context, roomID string) error {
	log := that.logger.With("method", "Open", "roomID", roomID)

	that.mu.Lock()
	if that.active {
		that.mu.Unlock()
		return fmt.Errorf("session already open for room %s", that.roomID)
	}
	that.roomID = roomID
	that.active = true
	that.loading = true
	that.err = nil
	runCtx, cancel := context.WithCancel(ctx)
	that.cancel = cancel
	that.mu.Unlock()

	room, err := that.store.FetchRoom(runCtx, roomID)
	if err != nil {
		cancel()
		that.mu.Lock()
		that.loading = false
		that.active = false
		that.err = err
		that.mu.Unlock()
		log.Error("failed to load room", "error", err)
		return fmt.Errorf("failed to load room: %w", err)
	}

	syncer := roomsync.New(that.logger, roomID, that.store, that.feedback, that.clock, that.pollInterval)
	syncer.Apply(room)

	push, err := that.store.Subscribe(runCtx, roomID)
	if err != nil {
		log.Warn("push subscription unavailable, polling only", "error", err)
		push = nil
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.active {
		return nil
	}

	that.syncer = syncer
	that.loading = false

	that.wg.Add(1)
	go func() {
		defer that.wg.Done()
		syncer.Run(runCtx, push)
	}()

	log.Info("room opened", "version", room.Version)

	return nil
}

// Close stops polling and the push subscription and waits for them to finish. Results
// of writes still in flight are dropped.
func (that *Controller) Close() {
	that.mu.Lock()
	that.active = false
	if that.cancel != nil {
		that.cancel()
	}
	that.mu.Unlock()

	that.wg.Wait()
}

func (that *Controller) Snapshot() *entity.Room {
	syncer := that.synchronizer()
	if syncer == nil {
		return nil
	}
	return syncer.Snapshot()
}

// Updates delivers the snapshot after every change; nil before the room is loaded.
func (that *Controller) Updates() <-chan *entity.Room {
	syncer := that.synchronizer()
	if syncer == nil {
		return nil
	}
	return syncer.Updates()
}

func (that *Controller) Loading() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.loading
}

func (that *Controller) Err() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.err
}

func (that *Controller) PlayerID() string {
	return that.playerID
}

// MyRole is the local player's symbol, NoPlayer for spectators.
func (that *Controller) MyRole() entity.Symbol {
	room := that.Snapshot()
	if room == nil {
		return entity.NoPlayer
	}
	return room.RoleOf(that.playerID)
}

func (that *Controller) IsMyTurn() bool {
	room := that.Snapshot()
	return room != nil && room.IsMyTurn(that.playerID)
}

// Join takes the second slot. Participants are left alone; a room paired with someone
// else fails with ErrRoomFull and is not touched.
func (that *Controller) Join(ctx context.Context) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	return that.join(ctx, true)
}

func (that *Controller) join(ctx context.Context, retryOnConflict bool) error {
	room := that.Snapshot()
	if room == nil {
		return apperror.ErrRoomNotLoaded
	}

	if room.IsParticipant(that.playerID) {
		return nil
	}

	if room.PlayerOID != "" {
		that.fail("Room is full", "This game already has two players.", apperror.ErrRoomFull)
		return apperror.ErrRoomFull
	}

	patch := tictactoe.JoinPatch(that.playerID)
	patch.ExpectedVersion = room.Version

	updated, err := that.store.UpdateRoom(ctx, room.ID, patch)
	if errors.Is(err, apperror.ErrVersionConflict) && retryOnConflict {
		if err = that.refresh(ctx); err == nil {
			return that.join(ctx, false)
		}
	}

	if !that.isActive() {
		return nil
	}

	if err != nil {
		that.fail("Failed to join game", "Please try again.", err)
		return fmt.Errorf("failed to join room: %w", err)
	}

	if that.commit(room, patch, updated) {
		that.feedback.Notify(entity.EventPlayerJoined)
	}

	return nil
}

// Move places the local player's mark on cell. Out-of-turn moves and moves on a finished
// game are rejected locally without a write.
func (that *Controller) Move(ctx context.Context, cell int) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	return that.move(ctx, cell, true)
}

func (that *Controller) move(ctx context.Context, cell int, retryOnConflict bool) error {
	room := that.Snapshot()
	if room == nil {
		return apperror.ErrRoomNotLoaded
	}

	if !room.HasWinner() && !room.IsMyTurn(that.playerID) {
		return apperror.ErrNotYourTurn
	}

	turn, err := tictactoe.MakeTurn(room, room.RoleOf(that.playerID), cell)
	if err != nil {
		return err
	}

	patch := turn.Patch()
	patch.ExpectedVersion = room.Version

	updated, err := that.store.UpdateRoom(ctx, room.ID, patch)
	if errors.Is(err, apperror.ErrVersionConflict) && retryOnConflict {
		that.logger.Info("room changed under the move, re-evaluating", "cell", cell)
		if err = that.refresh(ctx); err == nil {
			return that.move(ctx, cell, false)
		}
	}

	if !that.isActive() {
		return nil
	}

	if err != nil {
		that.fail("Failed to make move", "Please try again.", err)
		return fmt.Errorf("failed to make move: %w", err)
	}

	committed := that.commit(room, patch, updated)

	// the feed never reports evictions, so this cue is always local
	if turn.Evicted != tictactoe.NoCell {
		that.feedback.Notify(entity.EventMarkRemoved)
	}
	if committed {
		that.feedback.Notify(entity.EventMarkPlaced)
		if turn.Winner != entity.NoPlayer {
			that.feedback.Notify(entity.EventWin)
		}
	}

	return nil
}

// Reset clears the board for a new game. It is not version guarded: the last reset wins.
func (that *Controller) Reset(ctx context.Context) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	room := that.Snapshot()
	if room == nil {
		return apperror.ErrRoomNotLoaded
	}

	patch := tictactoe.ResetPatch()

	updated, err := that.store.UpdateRoom(ctx, room.ID, patch)
	if !that.isActive() {
		return nil
	}

	if err != nil {
		that.fail("Failed to reset game", "Please try again.", err)
		return fmt.Errorf("failed to reset room: %w", err)
	}

	// a reset is not visible in the feed diff, so it is always signalled here
	that.commit(room, patch, updated)
	that.feedback.Notify(entity.EventReset)

	return nil
}

// refresh pulls the current record after a conflict so the next attempt sees it.
func (that *Controller) refresh(ctx context.Context) error {
	room, err := that.store.FetchRoom(ctx, that.currentRoomID())
	if err != nil {
		return fmt.Errorf("failed to refresh room: %w", err)
	}

	if syncer := that.synchronizer(); syncer != nil {
		syncer.Apply(room)
	}

	return nil
}

// commit applies the written patch to the snapshot it was computed from. Local state
// changes only here, after the store accepted the write. It returns false when the
// feed already delivered the confirmed record and its events.
func (that *Controller) commit(base *entity.Room, patch *entity.RoomPatch, confirmed *entity.Room) bool {
	local := base.Clone()
	local.Apply(patch)
	if confirmed != nil {
		local.Version = confirmed.Version
	}

	committed := true
	if syncer := that.synchronizer(); syncer != nil {
		committed = syncer.Commit(local)
	}

	that.mu.Lock()
	that.err = nil
	that.mu.Unlock()

	return committed
}

func (that *Controller) fail(title, description string, err error) {
	that.logger.Error(title, "error", err)

	that.mu.Lock()
	that.err = err
	that.mu.Unlock()

	that.feedback.Notify(entity.EventError)
	that.feedback.Alert(title, description)
}

func (that *Controller) isActive() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.active
}

func (that *Controller) synchronizer() *roomsync.Synchronizer {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.syncer
}

func (that *Controller) currentRoomID() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.roomID
}
