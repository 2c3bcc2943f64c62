package events

import (
	"context"
	"log/slog"
	"sync"
)

const localBufferSize = 64

// LocalBus delivers events inside one process. It backs single-instance
// deployments that run without Redis.
type LocalBus struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subscribers: make(map[chan Event]struct{})}
}

// Publish never blocks; a subscriber whose buffer is full misses the event.
func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			slog.WarnContext(ctx, "Dropping event for slow subscriber", "event.type", event.Type)
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, localBufferSize)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}
