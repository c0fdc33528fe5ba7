package history

import (
	"context"
	"fmt"
	"time"

	"imposter/internal/db"
	"imposter/internal/game"
)

// Round is one finished round as stored in the rounds table.
type Round struct {
	ID           int64     `json:"id"`
	RoomCode     string    `json:"roomCode"`
	SecretWord   string    `json:"secretWord"`
	ImposterName string    `json:"imposterName"`
	Winner       string    `json:"winner"`
	PlayerCount  int       `json:"playerCount"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// Store persists finished rounds. It satisfies game.RoundRecorder.
type Store struct {
	DB *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{DB: database}
}

func (s *Store) RecordRound(ctx context.Context, rec game.RoundRecord) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO rounds (room_code, secret_word, imposter_name, winner, player_count)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.RoomCode, rec.SecretWord, rec.ImposterName, string(rec.Winner), rec.PlayerCount)
	if err != nil {
		return fmt.Errorf("recording round: %w", err)
	}
	return nil
}

// Recent returns the most recently finished rounds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, room_code, secret_word, imposter_name, winner, player_count, finished_at
		FROM rounds
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	defer rows.Close()

	var list []Round
	for rows.Next() {
		var r Round
		if err := rows.Scan(&r.ID, &r.RoomCode, &r.SecretWord, &r.ImposterName, &r.Winner, &r.PlayerCount, &r.FinishedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}
