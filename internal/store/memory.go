package store

import (
	"context"
	"sync"
	"time"

	"imposter/internal/events"
	"imposter/internal/players"
	"imposter/internal/rooms"
)

// Memory is an in-process Store, used in tests and when no database is
// configured. It keeps the same semantics as the Postgres store: per-row
// versions, code uniqueness among live rooms, change notifications on
// every mutation.
type Memory struct {
	mu      sync.Mutex
	rooms   map[string]rooms.Room
	players map[string]players.Player
	feed    *events.Feed
}

func NewMemory() *Memory {
	return &Memory{
		rooms:   make(map[string]rooms.Room),
		players: make(map[string]players.Player),
		feed:    events.NewFeed(),
	}
}

func (m *Memory) CreateRoom(ctx context.Context, room rooms.Room) (rooms.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[room.ID]; exists {
		return rooms.Room{}, ErrConflict
	}
	for _, r := range m.rooms {
		if r.Code == room.Code {
			return rooms.Room{}, ErrConflict
		}
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	room.Version = 1
	m.rooms[room.ID] = room

	m.feed.Publish(events.Change{Table: events.TableRooms, RoomID: room.ID})
	return room, nil
}

func (m *Memory) GetRoom(ctx context.Context, id string) (rooms.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[id]
	if !ok {
		return rooms.Room{}, ErrNotFound
	}
	return room, nil
}

func (m *Memory) FindRoomByCode(ctx context.Context, code string) (rooms.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rooms {
		if r.Code == code {
			return r, nil
		}
	}
	return rooms.Room{}, ErrNotFound
}

func (m *Memory) UpdateRoom(ctx context.Context, id string, patch RoomPatch) (rooms.Room, error) {
	m.mu.Lock()
	room, ok := m.rooms[id]
	if !ok {
		m.mu.Unlock()
		return rooms.Room{}, ErrNotFound
	}

	if patch.Status != nil {
		room.Status = *patch.Status
	}
	if patch.HostID != nil {
		room.HostID = *patch.HostID
	}
	if patch.SecretWord != nil {
		room.SecretWord = *patch.SecretWord
	}
	if patch.ImposterID != nil {
		room.ImposterID = *patch.ImposterID
	}
	if patch.CurrentTurn != nil {
		room.CurrentTurn = *patch.CurrentTurn
	}
	room.Version++
	m.rooms[id] = room
	m.mu.Unlock()

	m.feed.Publish(events.Change{Table: events.TableRooms, RoomID: id})
	return room, nil
}

func (m *Memory) DeleteRoom(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.rooms[id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.rooms, id)
	for pid, p := range m.players {
		if p.RoomID == id {
			delete(m.players, pid)
		}
	}
	m.mu.Unlock()

	m.feed.Publish(events.Change{Table: events.TableRooms, RoomID: id})
	m.feed.Publish(events.Change{Table: events.TablePlayers, RoomID: id})
	return nil
}

func (m *Memory) CreatePlayer(ctx context.Context, p players.Player) (players.Player, error) {
	m.mu.Lock()
	if _, exists := m.players[p.ID]; exists {
		m.mu.Unlock()
		return players.Player{}, ErrConflict
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	p.Version = 1
	m.players[p.ID] = p
	m.mu.Unlock()

	m.feed.Publish(events.Change{Table: events.TablePlayers, RoomID: p.RoomID})
	return p, nil
}

func (m *Memory) GetPlayer(ctx context.Context, id string) (players.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return players.Player{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPlayers(ctx context.Context, roomID string) ([]players.Player, error) {
	m.mu.Lock()
	list := make([]players.Player, 0)
	for _, p := range m.players {
		if p.RoomID == roomID {
			list = append(list, p)
		}
	}
	m.mu.Unlock()

	players.SortRoster(list)
	return list, nil
}

func (m *Memory) UpdatePlayerVote(ctx context.Context, playerID, votedForID string) (players.Player, error) {
	m.mu.Lock()
	p, ok := m.players[playerID]
	if !ok {
		m.mu.Unlock()
		return players.Player{}, ErrNotFound
	}
	p.Vote = votedForID
	p.Version++
	m.players[playerID] = p
	m.mu.Unlock()

	m.feed.Publish(events.Change{Table: events.TablePlayers, RoomID: p.RoomID})
	return p, nil
}

func (m *Memory) ClearVotes(ctx context.Context, roomID string) error {
	m.mu.Lock()
	for id, p := range m.players {
		if p.RoomID == roomID && p.Vote != "" {
			p.Vote = ""
			p.Version++
			m.players[id] = p
		}
	}
	m.mu.Unlock()

	m.feed.Publish(events.Change{Table: events.TablePlayers, RoomID: roomID})
	return nil
}

func (m *Memory) RemovePlayer(ctx context.Context, playerID string) error {
	m.mu.Lock()
	p, ok := m.players[playerID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.players, playerID)
	m.mu.Unlock()

	m.feed.Publish(events.Change{Table: events.TablePlayers, RoomID: p.RoomID})
	return nil
}

func (m *Memory) Subscribe(roomID string) (<-chan events.Change, func()) {
	return m.feed.Subscribe(roomID)
}
