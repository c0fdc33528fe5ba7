package game

import (
	"math/rand"

	"imposter/internal/players"
)

// MinPlayers is the smallest roster a round can start with.
const MinPlayers = 3

// NextTurn returns the turn index after currentTurn. The wrap back to 0 is
// how a completed round is detected, not an error.
func NextTurn(currentTurn, playerCount int) int {
	return (currentTurn + 1) % playerCount
}

// SelectImposter picks one player uniformly from the roster, the host
// included. Returns ErrTooFewPlayers on an empty roster.
func SelectImposter(rng *rand.Rand, roster []players.Player) (players.Player, error) {
	if len(roster) == 0 {
		return players.Player{}, ErrTooFewPlayers
	}
	return roster[rng.Intn(len(roster))], nil
}
