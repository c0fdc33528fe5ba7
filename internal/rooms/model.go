package rooms

import "time"

// Status is the lifecycle phase of a room. The only legal walk is
// lobby -> playing -> voting -> results -> lobby.
type Status string

const (
	StatusLobby   = Status("lobby")
	StatusPlaying = Status("playing")
	StatusVoting  = Status("voting")
	StatusResults = Status("results")
)

// Room is one game session as stored in the rooms table. SecretWord and
// ImposterID are empty outside a round; Version increases on every update
// so stale fetches can be discarded.
type Room struct {
	ID          string
	Code        string
	HostID      string
	Status      Status
	SecretWord  string
	ImposterID  string
	CurrentTurn int
	CreatedAt   time.Time
	Version     int64
}

// CanTransition reports whether moving from to next is a legal edge.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusLobby:
		return to == StatusPlaying
	case StatusPlaying:
		return to == StatusVoting
	case StatusVoting:
		return to == StatusResults
	case StatusResults:
		return to == StatusLobby
	}
	return false
}
