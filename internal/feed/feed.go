package feed

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/infinite-tictactoe/internal/entity"
)

const updatesBuffer = 16

// Feed is the change-notification channel: every write to a room is published as the
// full record and delivered to every subscriber of that room.
type Feed interface {
	Publish(ctx context.Context, room *entity.Room) error
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
}

type Subscription interface {
	Updates() <-chan *entity.Room
	Close() error
}

// subscription fans decoded records into a buffered channel. When the reader falls
// behind the oldest pending record is dropped, later records carry the full state anyway.
type subscription struct {
	mu      sync.Mutex
	closed  bool
	updates chan *entity.Room
	stop    func() error
}

func newSubscription(stop func() error) *subscription {
	return &subscription{
		updates: make(chan *entity.Room, updatesBuffer),
		stop:    stop,
	}
}

func (that *subscription) Updates() <-chan *entity.Room {
	return that.updates
}

func (that *subscription) deliver(room *entity.Room) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false
	}

	for {
		select {
		case that.updates <- room:
			return true
		default:
		}

		select {
		case <-that.updates:
		default:
		}
	}
}

func (that *subscription) Close() error {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return nil
	}
	that.closed = true
	close(that.updates)
	that.mu.Unlock()

	if that.stop == nil {
		return nil
	}

	return that.stop()
}
