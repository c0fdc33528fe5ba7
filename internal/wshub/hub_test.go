package wshub

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestRegisterAndBroadcast(t *testing.T) {
	h := NewHub()

	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 16)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 16)}

	h.Register(c1)
	h.Register(c2)

	h.Broadcast(func(playerID string) ([]byte, error) {
		return json.Marshal(map[string]string{"for": playerID})
	})

	// each client gets its own rendering
	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.Send:
			var got map[string]string
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got["for"] != c.PlayerID {
				t.Errorf("client %s got rendering for %q", c.PlayerID, got["for"])
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client %s did not receive message", c.PlayerID)
		}
	}
}

func TestBroadcastSkipsRenderErrors(t *testing.T) {
	h := NewHub()

	ok := &Client{PlayerID: "ok", Send: make(chan []byte, 16)}
	bad := &Client{PlayerID: "bad", Send: make(chan []byte, 16)}
	h.Register(ok)
	h.Register(bad)

	h.Broadcast(func(playerID string) ([]byte, error) {
		if playerID == "bad" {
			return nil, fmt.Errorf("render failed")
		}
		return []byte("payload"), nil
	})

	select {
	case data := <-ok.Send:
		if string(data) != "payload" {
			t.Errorf("got %q, want %q", data, "payload")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("healthy client did not receive message")
	}

	select {
	case <-bad.Send:
		t.Fatal("failed rendering should not be delivered")
	default:
		// expected
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := NewHub()

	c := NewClient("p1", nil)
	h.Register(c)
	if h.Len() != 1 {
		t.Fatalf("client count = %d, want 1", h.Len())
	}

	h.Unregister(c)
	if h.Len() != 0 {
		t.Errorf("client count after unregister = %d, want 0", h.Len())
	}

	if _, open := <-c.Send; open {
		t.Fatal("Send should be closed after unregister")
	}

	// Should not panic on a second unregister
	h.Unregister(c)
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub()

	c := &Client{PlayerID: "p1", Send: make(chan []byte, 1)}
	h.Register(c)

	c.Send <- []byte("filler")

	// This should not block even though the channel is full
	h.Broadcast(func(string) ([]byte, error) {
		return []byte("dropped"), nil
	})

	if data := <-c.Send; string(data) != "filler" {
		t.Fatalf("expected filler, got: %s", data)
	}

	select {
	case <-c.Send:
		t.Fatal("should be empty after draining filler")
	default:
		// expected
	}
}
