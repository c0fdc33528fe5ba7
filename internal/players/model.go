package players

import "time"

// Player is one participant row. Vote is the id of the player they voted
// for, empty until they vote; it is only ever cleared by a room-wide
// "play again" reset. Version increases on every update.
type Player struct {
	ID       string
	RoomID   string
	Name     string
	IsHost   bool
	Vote     string
	Color    string
	JoinedAt time.Time
	Version  int64
}
