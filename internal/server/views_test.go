package server

import (
	"testing"

	"imposter/internal/players"
	"imposter/internal/reconcile"
	"imposter/internal/rooms"
)

func playingSnapshot(status rooms.Status) reconcile.Snapshot {
	return reconcile.Snapshot{
		Room: &rooms.Room{
			ID:         "r1",
			Code:       "4711",
			HostID:     "p1",
			Status:     status,
			SecretWord: "Pizza",
			ImposterID: "p2",
		},
		Players: []players.Player{
			{ID: "p1", Name: "Alice", IsHost: true, Vote: "p2"},
			{ID: "p2", Name: "Bob", Vote: "p1"},
			{ID: "p3", Name: "Carol"},
		},
		Status: reconcile.StatusSubscribed,
	}
}

func TestViewFor_PlayerSeesWord(t *testing.T) {
	view := viewFor(playingSnapshot(rooms.StatusPlaying), "p1")

	if view.Role != RolePlayer {
		t.Errorf("role = %q, want %q", view.Role, RolePlayer)
	}
	if view.SecretWord != "Pizza" {
		t.Errorf("secret word = %q, want %q", view.SecretWord, "Pizza")
	}
	if view.Results != nil {
		t.Error("results must not exist before reveal")
	}
}

func TestViewFor_ImposterSeesNoWord(t *testing.T) {
	view := viewFor(playingSnapshot(rooms.StatusPlaying), "p2")

	if view.Role != RoleImposter {
		t.Errorf("role = %q, want %q", view.Role, RoleImposter)
	}
	if view.SecretWord != "" {
		t.Errorf("imposter got secret word %q", view.SecretWord)
	}
}

func TestViewFor_SpectatorSeesNothingSecret(t *testing.T) {
	for _, viewer := range []string{"", "someone-else"} {
		view := viewFor(playingSnapshot(rooms.StatusVoting), viewer)
		if view.Role != "" || view.SecretWord != "" {
			t.Errorf("viewer %q got role %q word %q", viewer, view.Role, view.SecretWord)
		}
	}
}

func TestViewFor_VotesHiddenUntilResults(t *testing.T) {
	view := viewFor(playingSnapshot(rooms.StatusVoting), "p1")

	for _, p := range view.Players {
		if p.Vote != "" {
			t.Errorf("player %s vote %q exposed before results", p.Name, p.Vote)
		}
	}
	if !view.Players[0].HasVoted || view.Players[2].HasVoted {
		t.Error("hasVoted flags wrong")
	}
	if view.AllVoted {
		t.Error("allVoted should be false while Carol has not voted")
	}
}

func TestViewFor_Results(t *testing.T) {
	view := viewFor(playingSnapshot(rooms.StatusResults), "p3")

	r := view.Results
	if r == nil {
		t.Fatal("results view missing")
	}
	if r.ImposterID != "p2" || r.SecretWord != "Pizza" {
		t.Errorf("results not fully revealed: %+v", r)
	}
	// p1 and p2 each got one vote: a tie, imposter not caught
	if !r.IsTie {
		t.Error("expected a tie")
	}
	if r.ImposterCaught {
		t.Error("tie must not count as caught")
	}
	if r.Winner != "tie" {
		t.Errorf("winner = %q, want %q", r.Winner, "tie")
	}

	// individual votes are visible now
	if view.Players[0].Vote != "p2" {
		t.Errorf("vote = %q, want %q", view.Players[0].Vote, "p2")
	}
}

func TestViewFor_NoRoomYet(t *testing.T) {
	view := viewFor(reconcile.Snapshot{Status: reconcile.StatusConnecting}, "p1")
	if view.Room != nil {
		t.Error("room view should be nil before the first fetch")
	}
	if view.Feed != string(reconcile.StatusConnecting) {
		t.Errorf("feed = %q, want %q", view.Feed, reconcile.StatusConnecting)
	}
}
