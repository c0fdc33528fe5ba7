package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"imposter/internal/events"
	"imposter/internal/players"
	"imposter/internal/rooms"
	"imposter/internal/store"
)

// Store is the PostgreSQL implementation of store.Store. Change
// notifications ride on LISTEN/NOTIFY (see listener.go), so every client
// process connected to the same database observes the same feed.
type Store struct {
	db       *DB
	feed     *events.Feed
	listener *changeListener
}

// NewStore wraps an already-connected, migrated database and starts the
// notification listener on the same DSN.
func NewStore(database *DB, dsn string) (*Store, error) {
	s := &Store{
		db:   database,
		feed: events.NewFeed(),
	}
	l, err := newChangeListener(dsn, s.feed)
	if err != nil {
		return nil, err
	}
	s.listener = l
	return s, nil
}

// Close stops the notification listener. The wrapped DB is closed by its
// owner.
func (s *Store) Close() error {
	return s.listener.close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *Store) CreateRoom(ctx context.Context, room rooms.Room) (rooms.Room, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		INSERT INTO rooms (id, code, host_id, status, secret_word, imposter_id, current_turn)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, code, host_id, status, secret_word, imposter_id, current_turn, version, created_at
	`, room.ID, room.Code, room.HostID, string(room.Status), room.SecretWord, room.ImposterID, room.CurrentTurn)

	created, err := scanRoom(row)
	if isUniqueViolation(err) {
		return rooms.Room{}, store.ErrConflict
	}
	if err != nil {
		return rooms.Room{}, fmt.Errorf("inserting room: %w", err)
	}
	return created, nil
}

func (s *Store) GetRoom(ctx context.Context, id string) (rooms.Room, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, code, host_id, status, secret_word, imposter_id, current_turn, version, created_at
		FROM rooms WHERE id = $1
	`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rooms.Room{}, store.ErrNotFound
	}
	if err != nil {
		return rooms.Room{}, fmt.Errorf("selecting room: %w", err)
	}
	return room, nil
}

func (s *Store) FindRoomByCode(ctx context.Context, code string) (rooms.Room, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, code, host_id, status, secret_word, imposter_id, current_turn, version, created_at
		FROM rooms WHERE code = $1
	`, code)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rooms.Room{}, store.ErrNotFound
	}
	if err != nil {
		return rooms.Room{}, fmt.Errorf("selecting room by code: %w", err)
	}
	return room, nil
}

func (s *Store) UpdateRoom(ctx context.Context, id string, patch store.RoomPatch) (rooms.Room, error) {
	sets := []string{"version = version + 1"}
	args := []any{id}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Status != nil {
		sets = append(sets, "status = "+arg(string(*patch.Status)))
	}
	if patch.HostID != nil {
		sets = append(sets, "host_id = "+arg(*patch.HostID))
	}
	if patch.SecretWord != nil {
		sets = append(sets, "secret_word = "+arg(*patch.SecretWord))
	}
	if patch.ImposterID != nil {
		sets = append(sets, "imposter_id = "+arg(*patch.ImposterID))
	}
	if patch.CurrentTurn != nil {
		sets = append(sets, "current_turn = "+arg(*patch.CurrentTurn))
	}

	row := s.db.conn.QueryRowContext(ctx, `
		UPDATE rooms SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING id, code, host_id, status, secret_word, imposter_id, current_turn, version, created_at
	`, args...)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rooms.Room{}, store.ErrNotFound
	}
	if err != nil {
		return rooms.Room{}, fmt.Errorf("updating room: %w", err)
	}
	return room, nil
}

func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePlayer(ctx context.Context, p players.Player) (players.Player, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		INSERT INTO players (id, room_id, name, is_host, vote, color)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, room_id, name, is_host, vote, color, version, joined_at
	`, p.ID, p.RoomID, p.Name, p.IsHost, p.Vote, p.Color)

	created, err := scanPlayer(row)
	if isUniqueViolation(err) {
		return players.Player{}, store.ErrConflict
	}
	if err != nil {
		return players.Player{}, fmt.Errorf("inserting player: %w", err)
	}
	return created, nil
}

func (s *Store) GetPlayer(ctx context.Context, id string) (players.Player, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, room_id, name, is_host, vote, color, version, joined_at
		FROM players WHERE id = $1
	`, id)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return players.Player{}, store.ErrNotFound
	}
	if err != nil {
		return players.Player{}, fmt.Errorf("selecting player: %w", err)
	}
	return p, nil
}

func (s *Store) ListPlayers(ctx context.Context, roomID string) ([]players.Player, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, room_id, name, is_host, vote, color, version, joined_at
		FROM players WHERE room_id = $1
		ORDER BY joined_at ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	list := make([]players.Player, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *Store) UpdatePlayerVote(ctx context.Context, playerID, votedForID string) (players.Player, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		UPDATE players SET vote = $2, version = version + 1
		WHERE id = $1
		RETURNING id, room_id, name, is_host, vote, color, version, joined_at
	`, playerID, votedForID)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return players.Player{}, store.ErrNotFound
	}
	if err != nil {
		return players.Player{}, fmt.Errorf("updating vote: %w", err)
	}
	return p, nil
}

func (s *Store) ClearVotes(ctx context.Context, roomID string) error {
	_, err := s.db.conn.ExecContext(ctx, `
		UPDATE players SET vote = '', version = version + 1
		WHERE room_id = $1 AND vote <> ''
	`, roomID)
	if err != nil {
		return fmt.Errorf("clearing votes: %w", err)
	}
	return nil
}

func (s *Store) RemovePlayer(ctx context.Context, playerID string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("removing player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Subscribe(roomID string) (<-chan events.Change, func()) {
	return s.feed.Subscribe(roomID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (rooms.Room, error) {
	var r rooms.Room
	var status string
	err := row.Scan(&r.ID, &r.Code, &r.HostID, &status, &r.SecretWord, &r.ImposterID, &r.CurrentTurn, &r.Version, &r.CreatedAt)
	if err != nil {
		return rooms.Room{}, err
	}
	r.Status = rooms.Status(status)
	return r, nil
}

func scanPlayer(row scanner) (players.Player, error) {
	var p players.Player
	err := row.Scan(&p.ID, &p.RoomID, &p.Name, &p.IsHost, &p.Vote, &p.Color, &p.Version, &p.JoinedAt)
	if err != nil {
		return players.Player{}, err
	}
	return p, nil
}
