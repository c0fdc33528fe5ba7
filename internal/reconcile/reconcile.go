// Package reconcile keeps a client's cached room projection consistent
// with the store. Change notifications are only treated as hints: on any
// of them the full current rows are refetched, so unordered, duplicated
// or coalesced delivery cannot corrupt the projection.
package reconcile

import (
	"context"
	"errors"
	"log"
	"sync"

	"imposter/internal/events"
	"imposter/internal/players"
	"imposter/internal/rooms"
	"imposter/internal/store"
)

// Status is the subscription state, surfaced so a consumer can tell a
// healthy feed from a stalled one.
type Status string

const (
	StatusIdle       = Status("idle")
	StatusConnecting = Status("connecting")
	StatusSubscribed = Status("subscribed")
	StatusError      = Status("error")
)

// Snapshot is the read-only projection handed to consumers. Room is nil
// until the first successful fetch.
type Snapshot struct {
	Room    *rooms.Room
	Players []players.Player
	Status  Status
}

// Reconciler follows one room on behalf of one local player. SelfID may
// be empty when nobody local is in the room (a pure observer).
type Reconciler struct {
	store  store.Store
	roomID string
	selfID string

	mu          sync.Mutex
	room        *rooms.Room
	roster      []players.Player
	roomVersion int64
	status      Status
	evicted     bool

	updates   chan Snapshot
	evictedCh chan struct{}

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New builds the reconciler and starts its loop immediately.
func New(st store.Store, roomID, selfID string) *Reconciler {
	r := &Reconciler{
		store:     st,
		roomID:    roomID,
		selfID:    selfID,
		status:    StatusIdle,
		updates:   make(chan Snapshot, 16),
		evictedCh: make(chan struct{}),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// Snapshot returns the current projection.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() Snapshot {
	snap := Snapshot{Status: r.status}
	if r.room != nil {
		room := *r.room
		snap.Room = &room
	}
	snap.Players = append([]players.Player(nil), r.roster...)
	return snap
}

// Updates delivers a fresh snapshot after every applied change. The
// channel is closed when the reconciler shuts down. Slow consumers miss
// intermediate snapshots, never the latest: they can always call
// Snapshot().
func (r *Reconciler) Updates() <-chan Snapshot {
	return r.updates
}

// Evicted is closed once when the local player turns out to be absent
// from a confirmed non-empty roster: "I was removed from this room". The
// owning client should drop its session identity and go idle.
func (r *Reconciler) Evicted() <-chan struct{} {
	return r.evictedCh
}

// Close tears the subscription down. Safe to call repeatedly; after it
// returns no further snapshot mutation happens.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
	})
	<-r.done
}

func (r *Reconciler) run() {
	defer close(r.done)
	defer close(r.updates)

	r.setStatus(StatusConnecting)

	ch, cancel := r.store.Subscribe(r.roomID)
	defer cancel()

	ctx := context.Background()

	// Initial full fetch; failures flip status to error and are retried
	// on the next notification.
	ok := r.refetchRoom(ctx)
	ok = r.refetchRoster(ctx) && ok
	if ok {
		r.setStatus(StatusSubscribed)
	}

	for {
		select {
		case <-r.stop:
			return
		case ev, open := <-ch:
			if !open {
				r.setStatus(StatusError)
				return
			}
			// after a failed fetch the whole projection is suspect, so
			// the next notification refetches everything
			r.mu.Lock()
			recovering := r.status == StatusError
			r.mu.Unlock()

			ok := true
			switch {
			case recovering:
				ok = r.refetchRoom(ctx)
				ok = r.refetchRoster(ctx) && ok
			case ev.Table == events.TableRooms:
				ok = r.refetchRoom(ctx)
			case ev.Table == events.TablePlayers:
				ok = r.refetchRoster(ctx)
			default:
				ok = r.refetchRoom(ctx)
				ok = r.refetchRoster(ctx) && ok
			}
			if ok {
				r.setStatus(StatusSubscribed)
			}
		}
	}
}

func (r *Reconciler) setStatus(s Status) {
	r.mu.Lock()
	changed := r.status != s
	r.status = s
	snap := r.snapshotLocked()
	r.mu.Unlock()
	if changed {
		r.publish(snap)
	}
}

func (r *Reconciler) publish(snap Snapshot) {
	select {
	case r.updates <- snap:
	default:
		// consumer lagging; it can recover via Snapshot()
	}
}

func (r *Reconciler) refetchRoom(ctx context.Context) bool {
	room, err := r.store.GetRoom(ctx, r.roomID)
	if errors.Is(err, store.ErrNotFound) {
		// room cleaned up externally; keep the last known state
		return true
	}
	if err != nil {
		log.Printf("[Reconcile] Room %s fetch failed: %v\n", r.roomID, err)
		r.setStatus(StatusError)
		return false
	}

	r.mu.Lock()
	applied := r.applyRoomLocked(room)
	snap := r.snapshotLocked()
	r.mu.Unlock()
	if applied {
		r.publish(snap)
	}
	return true
}

// applyRoomLocked installs a fetched room unless a newer version has
// already been applied: two racing notifications must not let state
// regress to an older row.
func (r *Reconciler) applyRoomLocked(room rooms.Room) bool {
	if room.Version < r.roomVersion {
		return false
	}
	r.roomVersion = room.Version
	r.room = &room
	return true
}

func (r *Reconciler) refetchRoster(ctx context.Context) bool {
	list, err := r.store.ListPlayers(ctx, r.roomID)
	if err != nil {
		log.Printf("[Reconcile] Roster %s fetch failed: %v\n", r.roomID, err)
		r.setStatus(StatusError)
		return false
	}

	r.mu.Lock()
	r.roster = list
	evict := false
	// A still-empty roster means "not yet loaded", never "removed".
	if r.selfID != "" && !r.evicted && len(list) > 0 && players.FindByID(list, r.selfID) == nil {
		r.evicted = true
		evict = true
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.publish(snap)
	if evict {
		log.Printf("[Reconcile] Player %s no longer in room %s\n", r.selfID, r.roomID)
		close(r.evictedCh)
	}
	return true
}
