package events

import "sync"

// Table identifies which entity a change notification refers to.
type Table string

const (
	TableRooms   = Table("rooms")
	TablePlayers = Table("players")
)

// Change says "something about this room (or its players) changed". It
// deliberately carries no row data: payloads from a change feed may be
// partial or already superseded, so consumers refetch instead.
type Change struct {
	Table  Table
	RoomID string
}

// Feed fans change notifications out to per-room subscribers.
type Feed struct {
	mu   sync.Mutex
	subs map[string]map[chan Change]bool
}

func NewFeed() *Feed {
	return &Feed{
		subs: make(map[string]map[chan Change]bool),
	}
}

// Subscribe registers for changes touching roomID and returns the channel
// plus a cancel func. Cancel is safe to call more than once; after it
// returns no further notifications are delivered.
func (f *Feed) Subscribe(roomID string) (<-chan Change, func()) {
	ch := make(chan Change, 32)

	f.mu.Lock()
	if f.subs[roomID] == nil {
		f.subs[roomID] = make(map[chan Change]bool)
	}
	f.subs[roomID][ch] = true
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.subs[roomID][ch] {
			delete(f.subs[roomID], ch)
			if len(f.subs[roomID]) == 0 {
				delete(f.subs, roomID)
			}
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers ch to every subscriber of its room. Sends never block:
// a full buffer already holds a pending notification, and consumers
// refetch current state on any of them, so coalescing loses nothing.
func (f *Feed) Publish(ch Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs[ch.RoomID] {
		select {
		case sub <- ch:
		default:
			// coalesced
		}
	}
}
