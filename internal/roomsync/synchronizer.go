package roomsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

const DefaultPollInterval = 1500 * time.Millisecond

type Fetcher interface {
	FetchRoom(ctx context.Context, id string) (*entity.Room, error)
}

// Notifier receives feedback-worthy events, typically to play a cue.
type Notifier interface {
	Notify(event entity.Event)
}

// markers are the values the last accepted record was compared on.
type markers struct {
	moves     int
	lastOrder int
	winner    entity.Symbol
	status    entity.Status
}

func markersOf(room *entity.Room) markers {
	return markers{
		moves:     len(room.Moves),
		lastOrder: room.LastOrder(),
		winner:    room.Winner,
		status:    room.Status,
	}
}

// Synchronizer keeps the local snapshot of one room in step with the store. Push
// deliveries and periodic polls go through the same reducer, so a record seen twice
// never produces events twice.
type Synchronizer struct {
	logger   *slog.Logger
	roomID   string
	fetcher  Fetcher
	notifier Notifier
	clock    clockwork.Clock
	interval time.Duration

	mu       sync.Mutex
	snapshot *entity.Room
	prev     markers

	updates chan *entity.Room
}

func New(logger *slog.Logger, roomID string, fetcher Fetcher, notifier Notifier, clock clockwork.Clock, interval time.Duration) *Synchronizer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Synchronizer{
		logger:   logger.With("component", "roomsync", "roomID", roomID),
		roomID:   roomID,
		fetcher:  fetcher,
		notifier: notifier,
		clock:    clock,
		interval: interval,
		updates:  make(chan *entity.Room, 1),
	}
}

// Snapshot returns a copy of the current record, nil before the first load.
func (that *Synchronizer) Snapshot() *entity.Room {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshot.Clone()
}

// Updates delivers the latest snapshot after every change. Intermediate values may be
// skipped by slow readers.
func (that *Synchronizer) Updates() <-chan *entity.Room {
	return that.updates
}

// Apply reconciles an incoming record and returns the events it caused. The first
// record only sets the baseline.
func (that *Synchronizer) Apply(room *entity.Room) []entity.Event {
	if room == nil {
		return nil
	}

	that.mu.Lock()
	if that.isStale(room) {
		that.mu.Unlock()
		that.logger.Debug("ignoring stale record", "version", room.Version)
		return nil
	}

	var events []entity.Event
	if that.snapshot != nil {
		events = diff(that.prev, markersOf(room))
	}

	that.replace(room)
	that.mu.Unlock()

	if that.notifier != nil {
		for _, event := range events {
			that.notifier.Notify(event)
		}
	}

	return events
}

// ApplyPolled is Apply for poll results: records equal to the snapshot are dropped early.
func (that *Synchronizer) ApplyPolled(room *entity.Room) []entity.Event {
	that.mu.Lock()
	changed := room != nil && differs(that.snapshot, room)
	that.mu.Unlock()

	if !changed {
		return nil
	}

	return that.Apply(room)
}

// Commit stores a record this client wrote itself; markers move without events. It
// reports false when the snapshot already holds this version or a newer one, which
// happens when the feed delivered the write before the store answered. Apply has then
// emitted the events already.
func (that *Synchronizer) Commit(room *entity.Room) bool {
	if room == nil {
		return false
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.isStale(room) || that.alreadyApplied(room) {
		return false
	}

	that.replace(room)

	return true
}

// Run merges push deliveries and the poll ticker until ctx ends. A closed push channel
// leaves polling in charge.
func (that *Synchronizer) Run(ctx context.Context, push <-chan *entity.Room) {
	log := that.logger.With("method", "Run")

	ticker := that.clock.NewTicker(that.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case room, ok := <-push:
			if !ok {
				log.Info("push channel closed, continuing with polling")
				push = nil
				continue
			}
			that.Apply(room)
		case <-ticker.Chan():
			that.poll(ctx)
		}
	}
}

func (that *Synchronizer) poll(ctx context.Context) {
	room, err := that.fetcher.FetchRoom(ctx, that.roomID)
	if err != nil {
		if ctx.Err() == nil {
			that.logger.Warn("poll failed", "error", err)
		}
		return
	}

	that.ApplyPolled(room)
}

// isStale must be called with mu held. Unversioned records are always accepted.
func (that *Synchronizer) isStale(room *entity.Room) bool {
	return that.snapshot != nil && room.Version != 0 && room.Version < that.snapshot.Version
}

// alreadyApplied must be called with mu held.
func (that *Synchronizer) alreadyApplied(room *entity.Room) bool {
	return that.snapshot != nil && room.Version != 0 && room.Version == that.snapshot.Version
}

// replace must be called with mu held.
func (that *Synchronizer) replace(room *entity.Room) {
	that.snapshot = room.Clone()
	that.prev = markersOf(room)

	latest := room.Clone()
	for {
		select {
		case that.updates <- latest:
			return
		default:
		}

		select {
		case <-that.updates:
		default:
		}
	}
}

func diff(prev, next markers) []entity.Event {
	var events []entity.Event

	// with eviction the move count saturates at six, so a newer order also means a placement
	if next.moves > prev.moves || (next.moves > 0 && next.lastOrder > prev.lastOrder) {
		events = append(events, entity.EventMarkPlaced)
	}

	if prev.winner == entity.NoPlayer && next.winner != entity.NoPlayer {
		events = append(events, entity.EventWin)
	}

	if prev.status == entity.StatusWaiting && next.status == entity.StatusPlaying {
		events = append(events, entity.EventPlayerJoined)
	}

	return events
}

func differs(snapshot, room *entity.Room) bool {
	if snapshot == nil {
		return true
	}

	return len(snapshot.Moves) != len(room.Moves) ||
		snapshot.LastOrder() != room.LastOrder() ||
		snapshot.Status != room.Status ||
		snapshot.CurrentPlayer != room.CurrentPlayer ||
		snapshot.Winner != room.Winner ||
		snapshot.PlayerOID != room.PlayerOID ||
		snapshot.Version != room.Version
}
