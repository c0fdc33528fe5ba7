package broadcast

import (
	"sync"

	"imposter/internal/reconcile"
)

// Broadcaster fans one room's snapshot stream out to any number of
// connected clients (SSE handlers, WebSocket pushers). Subscribers that
// fall behind skip intermediate snapshots; the latest always arrives.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[chan reconcile.Snapshot]bool
	closed  bool
}

// NewBroadcaster starts fanning out the given update stream, typically a
// Reconciler's Updates channel. When the stream closes, every subscriber
// channel is closed too, so consumers ranging over them terminate.
func NewBroadcaster(updates <-chan reconcile.Snapshot) *Broadcaster {
	b := &Broadcaster{
		clients: make(map[chan reconcile.Snapshot]bool),
	}
	go func() {
		for snap := range updates {
			b.Broadcast(snap)
		}
		b.mu.Lock()
		b.closed = true
		for ch := range b.clients {
			delete(b.clients, ch)
			close(ch)
		}
		b.mu.Unlock()
	}()
	return b
}

func (b *Broadcaster) Subscribe() chan reconcile.Snapshot {
	ch := make(chan reconcile.Snapshot, 10)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.clients[ch] = true
	}
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan reconcile.Snapshot) {
	b.mu.Lock()
	if b.clients[ch] {
		delete(b.clients, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Broadcast delivers a snapshot to every subscriber. Non-blocking: a
// client with a full channel gets the next snapshot instead.
func (b *Broadcaster) Broadcast(snap reconcile.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- snap:
		default:
			// skip clients with full channels
		}
	}
}

// Len reports the current subscriber count.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
