package game

import "errors"

var (
	ErrEmptyName         = errors.New("name must not be empty")
	ErrBadCode           = errors.New("room code must be four digits")
	ErrRoomNotFound      = errors.New("room not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrGameInProgress    = errors.New("game already in progress")
	ErrTooFewPlayers     = errors.New("need at least 3 players to start")
	ErrNoThemes          = errors.New("no themes in the selected packs")
	ErrNotHost           = errors.New("only the host can do that")
	ErrInvalidTransition = errors.New("action not allowed in the current phase")
)
