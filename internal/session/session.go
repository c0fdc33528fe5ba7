// Package session persists the local client's identity (player id and
// name, current room) across restarts, and propagates changes made by
// another instance of the same client sharing the file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Session is the durable identity blob.
type Session struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	RoomID     string `json:"roomId"`
}

const defaultPollInterval = 500 * time.Millisecond

// Store reads and writes one session file. A polling watcher picks up
// writes by other instances and emits the new session on Changes.
type Store struct {
	path string
	poll time.Duration

	mu      sync.Mutex
	current Session
	lastMod time.Time

	changes chan Session

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// Open loads (or initializes) the session file at path and starts the
// cross-instance watcher.
func Open(path string) (*Store, error) {
	return open(path, defaultPollInterval)
}

func open(path string, poll time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}

	s := &Store{
		path:    path,
		poll:    poll,
		changes: make(chan Session, 4),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	sess, mod, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current = sess
	s.lastMod = mod

	go s.watch()
	return s, nil
}

// Restore returns the session as loaded at startup or last observed.
func (s *Store) Restore() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Changes delivers sessions written by other instances of this client.
func (s *Store) Changes() <-chan Session {
	return s.changes
}

// RememberPlayer records the local player's identity.
func (s *Store) RememberPlayer(id, name string) error {
	return s.update(func(sess *Session) {
		sess.PlayerID = id
		sess.PlayerName = name
	})
}

// RememberRoom records which room the local player is in.
func (s *Store) RememberRoom(roomID string) error {
	return s.update(func(sess *Session) {
		sess.RoomID = roomID
	})
}

// ForgetRoom drops the room reference but keeps the player identity.
func (s *Store) ForgetRoom() error {
	return s.update(func(sess *Session) {
		sess.RoomID = ""
	})
}

// ForgetAll wipes the whole identity, e.g. after self-eviction.
func (s *Store) ForgetAll() error {
	return s.update(func(sess *Session) {
		*sess = Session{}
	})
}

// Close stops the watcher. Safe to call repeatedly.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *Store) update(mutate func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	mutate(&next)

	if err := s.write(next); err != nil {
		return err
	}
	s.current = next
	if info, err := os.Stat(s.path); err == nil {
		// remember our own write so the watcher doesn't echo it back
		s.lastMod = info.ModTime()
	}
	return nil
}

// write lands atomically: temp file in the same directory, then rename.
func (s *Store) write(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

func (s *Store) load() (Session, time.Time, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, time.Time{}, nil
	}
	if err != nil {
		return Session{}, time.Time{}, fmt.Errorf("reading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// a corrupt file is treated as no session rather than a fatal error
		log.Printf("[Session] Corrupt session file %s: %v\n", s.path, err)
		return Session{}, time.Time{}, nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return sess, time.Time{}, nil
	}
	return sess, info.ModTime(), nil
}

func (s *Store) watch() {
	defer close(s.done)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.checkFile()
		}
	}
}

func (s *Store) checkFile() {
	info, err := os.Stat(s.path)
	if err != nil {
		return
	}

	s.mu.Lock()
	if !info.ModTime().After(s.lastMod) {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	sess, mod, err := s.load()
	if err != nil {
		log.Printf("[Session] Reloading %s failed: %v\n", s.path, err)
		return
	}

	s.mu.Lock()
	s.lastMod = mod
	changed := sess != s.current
	s.current = sess
	s.mu.Unlock()

	if changed {
		select {
		case s.changes <- sess:
		default:
		}
	}
}
