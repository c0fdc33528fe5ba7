package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"imposter/internal/events"
	"imposter/internal/players"
	"imposter/internal/rooms"
	"imposter/internal/store"
)

func getTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	database, err := Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	st, err := NewStore(database, dsn)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() {
		database.conn.Exec("DELETE FROM players")
		database.conn.Exec("DELETE FROM rooms")
		database.conn.Exec("DELETE FROM rounds")
		st.Close()
		database.Close()
	})
	return st
}

func testRoom(code string) rooms.Room {
	return rooms.Room{
		ID:     uuid.New().String(),
		Code:   code,
		HostID: uuid.New().String(),
		Status: rooms.StatusLobby,
	}
}

func TestCreateAndGetRoom(t *testing.T) {
	st := getTestStore(t)
	ctx := context.Background()

	created, err := st.CreateRoom(ctx, testRoom("1001"))
	if err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if created.Version != 1 {
		t.Errorf("version = %d, want 1", created.Version)
	}

	got, err := st.GetRoom(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRoom() error: %v", err)
	}
	if got.Code != "1001" || got.Status != rooms.StatusLobby {
		t.Errorf("got %+v", got)
	}

	byCode, err := st.FindRoomByCode(ctx, "1001")
	if err != nil {
		t.Fatalf("FindRoomByCode() error: %v", err)
	}
	if byCode.ID != created.ID {
		t.Errorf("FindRoomByCode id = %q, want %q", byCode.ID, created.ID)
	}
}

func TestCreateRoom_DuplicateCode(t *testing.T) {
	st := getTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateRoom(ctx, testRoom("1002")); err != nil {
		t.Fatal(err)
	}
	_, err := st.CreateRoom(ctx, testRoom("1002"))
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestUpdateRoom_PatchAndVersion(t *testing.T) {
	st := getTestStore(t)
	ctx := context.Background()

	created, err := st.CreateRoom(ctx, testRoom("1003"))
	if err != nil {
		t.Fatal(err)
	}

	status := rooms.StatusPlaying
	word := "Pizza"
	turn := 0
	updated, err := st.UpdateRoom(ctx, created.ID, store.RoomPatch{
		Status:      &status,
		SecretWord:  &word,
		CurrentTurn: &turn,
	})
	if err != nil {
		t.Fatalf("UpdateRoom() error: %v", err)
	}
	if updated.Status != rooms.StatusPlaying || updated.SecretWord != "Pizza" {
		t.Errorf("got %+v", updated)
	}
	if updated.Version != created.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, created.Version+1)
	}
	// untouched column survives the patch
	if updated.HostID != created.HostID {
		t.Errorf("host id changed: %q -> %q", created.HostID, updated.HostID)
	}
}

func TestPlayersRoundTrip(t *testing.T) {
	st := getTestStore(t)
	ctx := context.Background()

	room, err := st.CreateRoom(ctx, testRoom("1004"))
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		p, err := st.CreatePlayer(ctx, players.Player{
			ID:     uuid.New().String(),
			RoomID: room.ID,
			Name:   name,
			IsHost: name == "Alice",
		})
		if err != nil {
			t.Fatalf("CreatePlayer(%s) error: %v", name, err)
		}
		ids = append(ids, p.ID)
		time.Sleep(5 * time.Millisecond) // distinct joined_at for ordering
	}

	list, err := st.ListPlayers(ctx, room.ID)
	if err != nil {
		t.Fatalf("ListPlayers() error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("roster size = %d, want 3", len(list))
	}
	for i, want := range []string{"Alice", "Bob", "Carol"} {
		if list[i].Name != want {
			t.Errorf("roster[%d] = %q, want %q (join order)", i, list[i].Name, want)
		}
	}

	if _, err := st.UpdatePlayerVote(ctx, ids[1], ids[0]); err != nil {
		t.Fatalf("UpdatePlayerVote() error: %v", err)
	}
	voted, err := st.GetPlayer(ctx, ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if voted.Vote != ids[0] {
		t.Errorf("vote = %q, want %q", voted.Vote, ids[0])
	}

	if err := st.ClearVotes(ctx, room.ID); err != nil {
		t.Fatalf("ClearVotes() error: %v", err)
	}
	cleared, _ := st.GetPlayer(ctx, ids[1])
	if cleared.Vote != "" {
		t.Errorf("vote after clear = %q, want empty", cleared.Vote)
	}

	if err := st.RemovePlayer(ctx, ids[2]); err != nil {
		t.Fatalf("RemovePlayer() error: %v", err)
	}
	if err := st.RemovePlayer(ctx, ids[2]); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second remove error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRoom_CascadesPlayers(t *testing.T) {
	st := getTestStore(t)
	ctx := context.Background()

	room, err := st.CreateRoom(ctx, testRoom("1005"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := st.CreatePlayer(ctx, players.Player{ID: uuid.New().String(), RoomID: room.ID, Name: "Alice"})
	if err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("DeleteRoom() error: %v", err)
	}
	if _, err := st.GetPlayer(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("player error = %v, want ErrNotFound after cascade", err)
	}
}

func TestSubscribe_NotifiesOnRoomChange(t *testing.T) {
	st := getTestStore(t)
	ctx := context.Background()

	room, err := st.CreateRoom(ctx, testRoom("1006"))
	if err != nil {
		t.Fatal(err)
	}

	ch, cancel := st.Subscribe(room.ID)
	defer cancel()

	status := rooms.StatusPlaying
	if _, err := st.UpdateRoom(ctx, room.ID, store.RoomPatch{Status: &status}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.RoomID != room.ID {
				continue
			}
			if ev.Table == events.TableRooms {
				return
			}
		case <-deadline:
			t.Fatal("no room change notification received")
		}
	}
}
