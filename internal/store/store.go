// Package store defines the contract every room/player backend satisfies:
// row CRUD plus a change feed. The store is the only source of truth; all
// clients hold cached projections reconciled against it.
package store

import (
	"context"
	"errors"

	"imposter/internal/events"
	"imposter/internal/players"
	"imposter/internal/rooms"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// RoomPatch is a partial room update. Nil fields are left untouched;
// pointing at a zero value clears the column.
type RoomPatch struct {
	Status      *rooms.Status
	HostID      *string
	SecretWord  *string
	ImposterID  *string
	CurrentTurn *int
}

// Store is the external datastore contract. Every mutation notifies the
// change feed; UpdateRoom applies its patch atomically to a single row.
type Store interface {
	CreateRoom(ctx context.Context, room rooms.Room) (rooms.Room, error)
	GetRoom(ctx context.Context, id string) (rooms.Room, error)
	FindRoomByCode(ctx context.Context, code string) (rooms.Room, error)
	UpdateRoom(ctx context.Context, id string, patch RoomPatch) (rooms.Room, error)
	DeleteRoom(ctx context.Context, id string) error

	CreatePlayer(ctx context.Context, p players.Player) (players.Player, error)
	GetPlayer(ctx context.Context, id string) (players.Player, error)
	// ListPlayers returns the room's roster in deterministic turn order
	// (joined_at ascending, ties by id).
	ListPlayers(ctx context.Context, roomID string) ([]players.Player, error)
	UpdatePlayerVote(ctx context.Context, playerID, votedForID string) (players.Player, error)
	ClearVotes(ctx context.Context, roomID string) error
	RemovePlayer(ctx context.Context, playerID string) error

	// Subscribe delivers change notifications for one room: at least
	// once, unordered, possibly duplicated or coalesced. Cancel is safe
	// to call repeatedly.
	Subscribe(roomID string) (<-chan events.Change, func())
}
