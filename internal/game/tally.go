package game

import "imposter/internal/players"

// Winner is the outcome of a round.
type Winner string

const (
	WinnerPlayers  = Winner("players")
	WinnerImposter = Winner("imposter")
	WinnerTie      = Winner("tie")
)

// TallyResult aggregates the roster's votes at reveal time.
type TallyResult struct {
	// Counts maps player id to votes received; players nobody voted for
	// are absent (implicitly 0).
	Counts         map[string]int
	MostVotedID    string
	IsTie          bool
	ImposterCaught bool
}

// Tally counts the roster's votes and resolves the most-voted player.
// Two or more candidates sharing the maximum is a tie, as is a round with
// no votes cast at all (everyone tied at zero).
func Tally(roster []players.Player, imposterID string) TallyResult {
	counts := make(map[string]int)
	for i := range roster {
		if roster[i].Vote != "" {
			counts[roster[i].Vote]++
		}
	}

	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	var leaders []string
	for id, n := range counts {
		if n == max {
			leaders = append(leaders, id)
		}
	}

	res := TallyResult{Counts: counts}
	if max == 0 || len(leaders) > 1 {
		res.IsTie = true
		return res
	}
	res.MostVotedID = leaders[0]
	res.ImposterCaught = res.MostVotedID == imposterID
	return res
}

// DetermineWinner maps a tally outcome to the round's winner. A tie always
// wins out: a tied vote cannot simultaneously be a catch.
func DetermineWinner(imposterCaught, isTie bool) Winner {
	if isTie {
		return WinnerTie
	}
	if imposterCaught {
		return WinnerPlayers
	}
	return WinnerImposter
}
