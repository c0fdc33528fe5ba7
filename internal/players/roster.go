package players

import "sort"

// SortRoster orders players by join time, ties broken by id. Every client
// must compute the same turn order from the same rows, so the sort has to
// be deterministic.
func SortRoster(list []Player) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].JoinedAt.Before(list[j].JoinedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// FindByID returns the player with the given id, or nil.
func FindByID(list []Player, id string) *Player {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

// IsHost reports whether the given player id is the host within list.
func IsHost(list []Player, id string) bool {
	p := FindByID(list, id)
	return p != nil && p.IsHost
}

// AllVoted reports whether every player in list has a vote recorded.
// An empty roster counts as not voted.
func AllVoted(list []Player) bool {
	if len(list) == 0 {
		return false
	}
	for i := range list {
		if list[i].Vote == "" {
			return false
		}
	}
	return true
}
