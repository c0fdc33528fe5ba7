package broadcast

import (
	"testing"
	"time"

	"imposter/internal/reconcile"
	"imposter/internal/rooms"
)

func snapshotWithCode(code string) reconcile.Snapshot {
	return reconcile.Snapshot{
		Room:   &rooms.Room{Code: code, Status: rooms.StatusLobby},
		Status: reconcile.StatusSubscribed,
	}
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	updates := make(chan reconcile.Snapshot)
	defer close(updates)
	b := NewBroadcaster(updates)

	ch := b.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() returned nil")
	}
	if got := b.Len(); got != 1 {
		t.Errorf("subscriber count = %d, want 1", got)
	}

	b.Unsubscribe(ch)
	if got := b.Len(); got != 0 {
		t.Errorf("subscriber count after unsubscribe = %d, want 0", got)
	}

	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestBroadcaster_FanOut(t *testing.T) {
	updates := make(chan reconcile.Snapshot)
	defer close(updates)
	b := NewBroadcaster(updates)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	updates <- snapshotWithCode("1234")

	for i, ch := range []chan reconcile.Snapshot{ch1, ch2} {
		select {
		case snap := <-ch:
			if snap.Room == nil || snap.Room.Code != "1234" {
				t.Errorf("subscriber %d got %+v, want room code 1234", i+1, snap)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("subscriber %d timed out", i+1)
		}
	}

	b.Unsubscribe(ch1)
	b.Unsubscribe(ch2)
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	updates := make(chan reconcile.Snapshot)
	defer close(updates)
	b := NewBroadcaster(updates)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill the channel buffer (capacity 10) and then some
	done := make(chan bool)
	go func() {
		for i := 0; i < 15; i++ {
			b.Broadcast(snapshotWithCode("9999"))
		}
		done <- true
	}()

	select {
	case <-done:
		// did not block
	case <-time.After(1 * time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}
}

func TestBroadcaster_ClosesSubscribersWhenStreamEnds(t *testing.T) {
	updates := make(chan reconcile.Snapshot)
	b := NewBroadcaster(updates)

	ch := b.Subscribe()
	close(updates)

	deadline := time.After(1 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel not closed after update stream ended")
		}
	}
}

func TestBroadcaster_SubscribeAfterClosed(t *testing.T) {
	updates := make(chan reconcile.Snapshot)
	b := NewBroadcaster(updates)
	close(updates)

	// wait for the pump to observe the close
	deadline := time.Now().Add(1 * time.Second)
	for {
		ch := b.Subscribe()
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-time.After(10 * time.Millisecond):
			// pump not done yet; drop this subscription and retry
			b.Unsubscribe(ch)
		}
		if time.Now().After(deadline) {
			t.Fatal("Subscribe after stream end should return a closed channel")
		}
	}
}
