package game

import (
	"context"

	"imposter/internal/rooms"
)

type transitionResult struct {
	room rooms.Room
	err  error
}

type transition struct {
	ctx   context.Context
	run   func(ctx context.Context) (rooms.Room, error)
	reply chan transitionResult
}

// roomActor serializes every transition touching one room. The requests
// channel is unbuffered on purpose: a send only succeeds while the actor
// is alive, so a swept actor can never strand queued work.
type roomActor struct {
	roomID   string
	requests chan transition
	stop     chan struct{}
	done     chan struct{}
}

func newRoomActor(roomID string) *roomActor {
	return &roomActor{
		roomID:   roomID,
		requests: make(chan transition),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (a *roomActor) loop() {
	defer close(a.done)
	for {
		select {
		case t := <-a.requests:
			room, err := t.run(t.ctx)
			t.reply <- transitionResult{room: room, err: err}
		case <-a.stop:
			return
		}
	}
}
