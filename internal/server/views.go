package server

import (
	"imposter/internal/game"
	"imposter/internal/players"
	"imposter/internal/reconcile"
	"imposter/internal/rooms"
)

type RoomView struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	HostID      string `json:"hostId"`
	Status      string `json:"status"`
	CurrentTurn int    `json:"currentTurn"`
	Version     int64  `json:"version"`
}

type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsHost   bool   `json:"isHost"`
	Color    string `json:"color"`
	HasVoted bool   `json:"hasVoted"`
	Vote     string `json:"vote,omitempty"` // only populated at results
}

type ResultsView struct {
	Counts         map[string]int `json:"counts"`
	MostVotedID    string         `json:"mostVotedId,omitempty"`
	IsTie          bool           `json:"isTie"`
	ImposterCaught bool           `json:"imposterCaught"`
	Winner         string         `json:"winner"`
	ImposterID     string         `json:"imposterId"`
	SecretWord     string         `json:"secretWord"`
}

// StateView is the room as one particular player is allowed to see it.
// While a round is live the secret word goes only to non-imposters and
// the imposter's identity to nobody; everything is revealed at results.
type StateView struct {
	Room       *RoomView    `json:"room"`
	Players    []PlayerView `json:"players"`
	Feed       string       `json:"feed"`
	Role       string       `json:"role,omitempty"`
	SecretWord string       `json:"secretWord,omitempty"`
	AllVoted   bool         `json:"allVoted,omitempty"`
	Results    *ResultsView `json:"results,omitempty"`
}

const (
	RoleImposter = "imposter"
	RolePlayer   = "player"
)

func viewFor(snap reconcile.Snapshot, viewerID string) StateView {
	view := StateView{Feed: string(snap.Status)}

	atResults := snap.Room != nil && snap.Room.Status == rooms.StatusResults
	view.Players = make([]PlayerView, 0, len(snap.Players))
	for _, p := range snap.Players {
		pv := PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			IsHost:   p.IsHost,
			Color:    p.Color,
			HasVoted: p.Vote != "",
		}
		if atResults {
			pv.Vote = p.Vote
		}
		view.Players = append(view.Players, pv)
	}

	if snap.Room == nil {
		return view
	}
	room := snap.Room
	view.Room = &RoomView{
		ID:          room.ID,
		Code:        room.Code,
		HostID:      room.HostID,
		Status:      string(room.Status),
		CurrentTurn: room.CurrentTurn,
		Version:     room.Version,
	}

	if room.Status == rooms.StatusVoting {
		view.AllVoted = players.AllVoted(snap.Players)
	}

	switch room.Status {
	case rooms.StatusPlaying, rooms.StatusVoting:
		// spectators and absent viewers learn nothing secret
		if viewerID == "" || players.FindByID(snap.Players, viewerID) == nil {
			break
		}
		if viewerID == room.ImposterID {
			view.Role = RoleImposter
		} else {
			view.Role = RolePlayer
			view.SecretWord = room.SecretWord
		}
	case rooms.StatusResults:
		tally := game.Tally(snap.Players, room.ImposterID)
		view.Results = &ResultsView{
			Counts:         tally.Counts,
			MostVotedID:    tally.MostVotedID,
			IsTie:          tally.IsTie,
			ImposterCaught: tally.ImposterCaught,
			Winner:         string(game.DetermineWinner(tally.ImposterCaught, tally.IsTie)),
			ImposterID:     room.ImposterID,
			SecretWord:     room.SecretWord,
		}
	}
	return view
}
