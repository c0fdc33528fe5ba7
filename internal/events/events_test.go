package events

import (
	"testing"
	"time"
)

func TestFeed_PublishReachesSubscriber(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe("room-1")
	defer cancel()

	f.Publish(Change{Table: TableRooms, RoomID: "room-1"})

	select {
	case got := <-ch:
		if got.Table != TableRooms || got.RoomID != "room-1" {
			t.Errorf("received %+v", got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestFeed_OtherRoomNotDelivered(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe("room-1")
	defer cancel()

	f.Publish(Change{Table: TablePlayers, RoomID: "room-2"})

	select {
	case got := <-ch:
		t.Errorf("received change for wrong room: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeed_CancelIdempotent(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe("room-1")

	cancel()
	cancel() // must not panic or double-close

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}

	// Publishing after cancel must not panic or deliver
	f.Publish(Change{Table: TableRooms, RoomID: "room-1"})
}

func TestFeed_FullBufferCoalesces(t *testing.T) {
	f := NewFeed()
	ch, cancel := f.Subscribe("room-1")
	defer cancel()

	// Far more publishes than the buffer holds; none may block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			f.Publish(Change{Table: TablePlayers, RoomID: "room-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if len(ch) == 0 {
		t.Error("expected at least one pending notification")
	}
}
