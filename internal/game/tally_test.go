package game

import (
	"math/rand"
	"testing"

	"imposter/internal/players"
)

func TestTally_UniqueMaximum(t *testing.T) {
	roster := []players.Player{
		{ID: "a", Vote: "b"},
		{ID: "b", Vote: "a"},
		{ID: "c", Vote: "b"},
	}

	res := Tally(roster, "b")

	if res.Counts["b"] != 2 || res.Counts["a"] != 1 {
		t.Errorf("Counts = %v, want b:2 a:1", res.Counts)
	}
	if res.IsTie {
		t.Error("IsTie = true, want false")
	}
	if res.MostVotedID != "b" {
		t.Errorf("MostVotedID = %q, want b", res.MostVotedID)
	}
	if !res.ImposterCaught {
		t.Error("ImposterCaught = false, want true")
	}
}

func TestTally_SplitVoteIsTie(t *testing.T) {
	// 4 players, votes split 2/2 between two non-imposters
	roster := []players.Player{
		{ID: "a", Vote: "b"},
		{ID: "b", Vote: "a"},
		{ID: "c", Vote: "b"},
		{ID: "d", Vote: "a"},
	}

	res := Tally(roster, "c")

	if !res.IsTie {
		t.Error("IsTie = false, want true")
	}
	if res.MostVotedID != "" {
		t.Errorf("MostVotedID = %q, want empty on tie", res.MostVotedID)
	}
	if res.ImposterCaught {
		t.Error("ImposterCaught = true on a tie")
	}
	if DetermineWinner(res.ImposterCaught, res.IsTie) != WinnerTie {
		t.Error("a split vote must yield a tie regardless of the imposter")
	}
}

func TestTally_NoVotesIsTie(t *testing.T) {
	roster := []players.Player{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	res := Tally(roster, "a")

	if len(res.Counts) != 0 {
		t.Errorf("Counts = %v, want empty", res.Counts)
	}
	if !res.IsTie {
		t.Error("zero votes must count as everyone tied at 0")
	}
}

func TestTally_AbsentTargetStillCounted(t *testing.T) {
	// votes for a player no longer in the roster still tally
	roster := []players.Player{
		{ID: "a", Vote: "gone"},
		{ID: "b", Vote: "gone"},
		{ID: "c", Vote: "a"},
	}

	res := Tally(roster, "gone")

	if res.Counts["gone"] != 2 {
		t.Errorf("Counts[gone] = %d, want 2", res.Counts["gone"])
	}
	if res.MostVotedID != "gone" || !res.ImposterCaught {
		t.Errorf("result = %+v, want departed imposter caught", res)
	}
}

func TestTally_OrderInvariant(t *testing.T) {
	roster := []players.Player{
		{ID: "a", Vote: "b"},
		{ID: "b", Vote: "a"},
		{ID: "c", Vote: "b"},
		{ID: "d", Vote: "b"},
	}

	want := Tally(roster, "b")

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]players.Player, len(roster))
		copy(shuffled, roster)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := Tally(shuffled, "b")
		if got.MostVotedID != want.MostVotedID || got.IsTie != want.IsTie || got.ImposterCaught != want.ImposterCaught {
			t.Fatalf("tally changed under reordering: got %+v, want %+v", got, want)
		}
		for id, n := range want.Counts {
			if got.Counts[id] != n {
				t.Fatalf("Counts[%s] = %d, want %d", id, got.Counts[id], n)
			}
		}
	}
}

func TestDetermineWinner(t *testing.T) {
	cases := []struct {
		caught, tie bool
		want        Winner
	}{
		{caught: true, tie: false, want: WinnerPlayers},
		{caught: false, tie: false, want: WinnerImposter},
		{caught: false, tie: true, want: WinnerTie},
		// a tie dominates even a nominal catch
		{caught: true, tie: true, want: WinnerTie},
	}
	for _, c := range cases {
		if got := DetermineWinner(c.caught, c.tie); got != c.want {
			t.Errorf("DetermineWinner(%v, %v) = %q, want %q", c.caught, c.tie, got, c.want)
		}
	}
}
