package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"imposter/internal/players"
	"imposter/internal/rooms"
	"imposter/internal/store"
	"imposter/internal/utility"
	"imposter/internal/words"
)

const (
	codeAttempts = 10
	actorIdleTTL = 1 * time.Hour
)

// RoundRecord is what gets written to history when results are revealed.
type RoundRecord struct {
	RoomCode     string
	SecretWord   string
	ImposterName string
	Winner       Winner
	PlayerCount  int
}

// RoundRecorder persists finished rounds. May be nil (no database).
type RoundRecorder interface {
	RecordRound(ctx context.Context, rec RoundRecord) error
}

// Coordinator is the authority for all room transitions. Each active room
// gets one actor goroutine; callers' requests are serialized through it,
// so two racing transitions are resolved at the point of mutation instead
// of by last-write-wins. The store stays the source of truth: the actor
// always re-reads current rows before validating a transition.
type Coordinator struct {
	store    store.Store
	recorder RoundRecorder

	rngMu sync.Mutex
	rng   *rand.Rand

	mu     sync.Mutex
	actors map[string]*actorEntry
	closed bool
	sweep  chan struct{}
}

type actorEntry struct {
	actor    *roomActor
	lastUsed time.Time
}

// NewCoordinator wires the coordinator to its store. recorder may be nil.
// rng may be nil, in which case a time-seeded source is used; tests pass
// a seeded one for deterministic imposter and theme draws.
func NewCoordinator(st store.Store, recorder RoundRecorder, rng *rand.Rand) *Coordinator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c := &Coordinator{
		store:    st,
		recorder: recorder,
		rng:      rng,
		actors:   make(map[string]*actorEntry),
		sweep:    make(chan struct{}),
	}
	go c.sweepIdle()
	return c
}

// Close stops every room actor and the idle sweeper. Safe to call more
// than once; transitions dispatched afterwards fail.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sweep)
	for id, e := range c.actors {
		close(e.actor.stop)
		delete(c.actors, id)
	}
}

func (c *Coordinator) sweepIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.sweep:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for id, e := range c.actors {
				if now.Sub(e.lastUsed) > actorIdleTTL {
					delete(c.actors, id)
					close(e.actor.stop)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *Coordinator) actor(roomID string) (*roomActor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("coordinator closed")
	}
	e, ok := c.actors[roomID]
	if !ok {
		e = &actorEntry{actor: newRoomActor(roomID)}
		c.actors[roomID] = e
		go e.actor.loop()
	}
	e.lastUsed = time.Now()
	return e.actor, nil
}

// dispatch runs fn on the room's actor and waits for the result.
func (c *Coordinator) dispatch(ctx context.Context, roomID string, run func(ctx context.Context) (rooms.Room, error)) (rooms.Room, error) {
	for {
		a, err := c.actor(roomID)
		if err != nil {
			return rooms.Room{}, err
		}
		t := transition{ctx: ctx, run: run, reply: make(chan transitionResult, 1)}
		select {
		case a.requests <- t:
			select {
			case res := <-t.reply:
				return res.room, res.err
			case <-ctx.Done():
				return rooms.Room{}, ctx.Err()
			}
		case <-a.done:
			// the actor was swept between lookup and send; grab a fresh one
			continue
		case <-ctx.Done():
			return rooms.Room{}, ctx.Err()
		}
	}
}

func (c *Coordinator) randomTheme(packIDs []string) string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return words.RandomTheme(c.rng, packIDs)
}

func (c *Coordinator) pickImposter(roster []players.Player) (players.Player, error) {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return SelectImposter(c.rng, roster)
}

func (c *Coordinator) getRoom(ctx context.Context, roomID string) (rooms.Room, error) {
	room, err := c.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return rooms.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return rooms.Room{}, fmt.Errorf("loading room: %w", err)
	}
	return room, nil
}

// CreateRoomResult is what a successful CreateRoom hands back to the
// client: the fresh room plus its host player.
type CreateRoomResult struct {
	Room rooms.Room
	Host players.Player
}

// CreateRoom allocates a lobby room with a fresh 4-digit code and its host
// as first player. The host id is generated up front so the room row is
// inserted with its final host reference; if the player insert fails the
// room is deleted again, leaving no room with a dangling host visible.
func (c *Coordinator) CreateRoom(ctx context.Context, hostName string) (CreateRoomResult, error) {
	name := strings.TrimSpace(hostName)
	if name == "" {
		return CreateRoomResult{}, ErrEmptyName
	}

	hostID := uuid.New().String()
	var room rooms.Room
	created := false
	for i := 0; i < codeAttempts; i++ {
		code, err := rooms.GenerateCode()
		if err != nil {
			return CreateRoomResult{}, fmt.Errorf("generating room code: %w", err)
		}
		room, err = c.store.CreateRoom(ctx, rooms.Room{
			ID:     uuid.New().String(),
			Code:   code,
			HostID: hostID,
			Status: rooms.StatusLobby,
		})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return CreateRoomResult{}, fmt.Errorf("creating room: %w", err)
		}
		created = true
		break
	}
	if !created {
		return CreateRoomResult{}, fmt.Errorf("no unused room code after %d attempts", codeAttempts)
	}

	host, err := c.store.CreatePlayer(ctx, players.Player{
		ID:     hostID,
		RoomID: room.ID,
		Name:   name,
		IsHost: true,
		Color:  utility.RandomColorHex(),
	})
	if err != nil {
		if delErr := c.store.DeleteRoom(ctx, room.ID); delErr != nil {
			log.Printf("[Game] Orphaned room %s could not be deleted: %v\n", room.ID, delErr)
		}
		return CreateRoomResult{}, fmt.Errorf("creating host player: %w", err)
	}

	return CreateRoomResult{Room: room, Host: host}, nil
}

// JoinRoomResult is the room joined plus the caller's new player row.
type JoinRoomResult struct {
	Room   rooms.Room
	Player players.Player
}

// JoinRoom adds a non-host player to the lobby room with the given code.
// The membership insert is serialized through the room's actor so a join
// cannot slip past a concurrent game start.
func (c *Coordinator) JoinRoom(ctx context.Context, code, playerName string) (JoinRoomResult, error) {
	name := strings.TrimSpace(playerName)
	if name == "" {
		return JoinRoomResult{}, ErrEmptyName
	}
	if !rooms.ValidCode(code) {
		return JoinRoomResult{}, ErrBadCode
	}

	found, err := c.store.FindRoomByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return JoinRoomResult{}, ErrRoomNotFound
	}
	if err != nil {
		return JoinRoomResult{}, fmt.Errorf("looking up room code: %w", err)
	}

	var player players.Player
	room, err := c.dispatch(ctx, found.ID, func(ctx context.Context) (rooms.Room, error) {
		room, err := c.getRoom(ctx, found.ID)
		if err != nil {
			return rooms.Room{}, err
		}
		if room.Status != rooms.StatusLobby {
			return rooms.Room{}, ErrGameInProgress
		}
		player, err = c.store.CreatePlayer(ctx, players.Player{
			ID:     uuid.New().String(),
			RoomID: room.ID,
			Name:   name,
			Color:  utility.RandomColorHex(),
		})
		if err != nil {
			return rooms.Room{}, fmt.Errorf("creating player: %w", err)
		}
		return room, nil
	})
	if err != nil {
		return JoinRoomResult{}, err
	}
	return JoinRoomResult{Room: room, Player: player}, nil
}

// StartGame draws a secret word from the given theme packs (all packs when
// empty), picks the imposter uniformly over the roster and moves the room
// to playing. A room already playing is treated as a lost race: the call
// is a stale no-op returning current state.
func (c *Coordinator) StartGame(ctx context.Context, roomID string, packIDs []string) (rooms.Room, error) {
	return c.dispatch(ctx, roomID, func(ctx context.Context) (rooms.Room, error) {
		room, err := c.getRoom(ctx, roomID)
		if err != nil {
			return rooms.Room{}, err
		}
		if room.Status == rooms.StatusPlaying {
			// another caller won the start race
			return room, nil
		}
		if !rooms.CanTransition(room.Status, rooms.StatusPlaying) {
			return rooms.Room{}, ErrInvalidTransition
		}

		roster, err := c.store.ListPlayers(ctx, roomID)
		if err != nil {
			return rooms.Room{}, fmt.Errorf("loading roster: %w", err)
		}
		if len(roster) < MinPlayers {
			return rooms.Room{}, ErrTooFewPlayers
		}

		word := c.randomTheme(packIDs)
		if word == "" {
			return rooms.Room{}, ErrNoThemes
		}
		imposter, err := c.pickImposter(roster)
		if err != nil {
			return rooms.Room{}, err
		}

		status := rooms.StatusPlaying
		turn := 0
		updated, err := c.store.UpdateRoom(ctx, roomID, store.RoomPatch{
			Status:      &status,
			SecretWord:  &word,
			ImposterID:  &imposter.ID,
			CurrentTurn: &turn,
		})
		if err != nil {
			return rooms.Room{}, fmt.Errorf("starting game: %w", err)
		}
		log.Printf("[Game] Room %s started: %d players\n", updated.Code, len(roster))
		return updated, nil
	})
}

// AdvanceTurn moves to the next speaker. When the turn index wraps back to
// zero the round is complete and the room transitions to voting instead.
func (c *Coordinator) AdvanceTurn(ctx context.Context, roomID string) (rooms.Room, error) {
	return c.dispatch(ctx, roomID, func(ctx context.Context) (rooms.Room, error) {
		room, err := c.getRoom(ctx, roomID)
		if err != nil {
			return rooms.Room{}, err
		}
		if room.Status != rooms.StatusPlaying {
			return rooms.Room{}, ErrInvalidTransition
		}

		roster, err := c.store.ListPlayers(ctx, roomID)
		if err != nil {
			return rooms.Room{}, fmt.Errorf("loading roster: %w", err)
		}
		if len(roster) == 0 {
			return rooms.Room{}, ErrInvalidTransition
		}

		next := NextTurn(room.CurrentTurn, len(roster))
		if next == 0 {
			status := rooms.StatusVoting
			updated, err := c.store.UpdateRoom(ctx, roomID, store.RoomPatch{Status: &status})
			if err != nil {
				return rooms.Room{}, fmt.Errorf("moving to voting: %w", err)
			}
			return updated, nil
		}
		updated, err := c.store.UpdateRoom(ctx, roomID, store.RoomPatch{CurrentTurn: &next})
		if err != nil {
			return rooms.Room{}, fmt.Errorf("advancing turn: %w", err)
		}
		return updated, nil
	})
}

// SkipToVoting is the host's shortcut out of the speaking phase.
func (c *Coordinator) SkipToVoting(ctx context.Context, roomID, callerID string) (rooms.Room, error) {
	return c.dispatch(ctx, roomID, func(ctx context.Context) (rooms.Room, error) {
		room, err := c.getRoom(ctx, roomID)
		if err != nil {
			return rooms.Room{}, err
		}
		if !rooms.CanTransition(room.Status, rooms.StatusVoting) {
			return rooms.Room{}, ErrInvalidTransition
		}
		roster, err := c.store.ListPlayers(ctx, roomID)
		if err != nil {
			return rooms.Room{}, fmt.Errorf("loading roster: %w", err)
		}
		if !players.IsHost(roster, callerID) {
			return rooms.Room{}, ErrNotHost
		}

		status := rooms.StatusVoting
		updated, err := c.store.UpdateRoom(ctx, roomID, store.RoomPatch{Status: &status})
		if err != nil {
			return rooms.Room{}, fmt.Errorf("moving to voting: %w", err)
		}
		return updated, nil
	})
}

// SubmitVote records who playerID suspects. Re-voting overwrites; voting
// for yourself is allowed (policy carried over, see DESIGN.md).
func (c *Coordinator) SubmitVote(ctx context.Context, playerID, votedForID string) error {
	p, err := c.store.GetPlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrPlayerNotFound
	}
	if err != nil {
		return fmt.Errorf("loading player: %w", err)
	}

	_, err = c.dispatch(ctx, p.RoomID, func(ctx context.Context) (rooms.Room, error) {
		room, err := c.getRoom(ctx, p.RoomID)
		if err != nil {
			return rooms.Room{}, err
		}
		if room.Status != rooms.StatusVoting {
			return rooms.Room{}, ErrInvalidTransition
		}
		if _, err := c.store.UpdatePlayerVote(ctx, playerID, votedForID); err != nil {
			return rooms.Room{}, fmt.Errorf("recording vote: %w", err)
		}
		return room, nil
	})
	return err
}

// RevealResults is the host's move from voting to results. It does not
// wait for every vote: host control outranks vote completeness. The
// finished round is recorded to history when a recorder is configured.
func (c *Coordinator) RevealResults(ctx context.Context, roomID, callerID string) (rooms.Room, error) {
	return c.dispatch(ctx, roomID, func(ctx context.Context) (rooms.Room, error) {
		room, err := c.getRoom(ctx, roomID)
		if err != nil {
			return rooms.Room{}, err
		}
		if !rooms.CanTransition(room.Status, rooms.StatusResults) {
			return rooms.Room{}, ErrInvalidTransition
		}
		roster, err := c.store.ListPlayers(ctx, roomID)
		if err != nil {
			return rooms.Room{}, fmt.Errorf("loading roster: %w", err)
		}
		if !players.IsHost(roster, callerID) {
			return rooms.Room{}, ErrNotHost
		}

		status := rooms.StatusResults
		updated, err := c.store.UpdateRoom(ctx, roomID, store.RoomPatch{Status: &status})
		if err != nil {
			return rooms.Room{}, fmt.Errorf("revealing results: %w", err)
		}

		if c.recorder != nil {
			tally := Tally(roster, room.ImposterID)
			rec := RoundRecord{
				RoomCode:    room.Code,
				SecretWord:  room.SecretWord,
				Winner:      DetermineWinner(tally.ImposterCaught, tally.IsTie),
				PlayerCount: len(roster),
			}
			if imp := players.FindByID(roster, room.ImposterID); imp != nil {
				rec.ImposterName = imp.Name
			}
			if err := c.recorder.RecordRound(ctx, rec); err != nil {
				log.Printf("[Game] Recording round for room %s failed: %v\n", room.Code, err)
			}
		}
		return updated, nil
	})
}

// ResetToLobby is "play again": votes cleared, word and imposter wiped,
// roster kept.
func (c *Coordinator) ResetToLobby(ctx context.Context, roomID string) (rooms.Room, error) {
	return c.dispatch(ctx, roomID, func(ctx context.Context) (rooms.Room, error) {
		room, err := c.getRoom(ctx, roomID)
		if err != nil {
			return rooms.Room{}, err
		}
		if !rooms.CanTransition(room.Status, rooms.StatusLobby) {
			return rooms.Room{}, ErrInvalidTransition
		}

		if err := c.store.ClearVotes(ctx, roomID); err != nil {
			return rooms.Room{}, fmt.Errorf("clearing votes: %w", err)
		}

		status := rooms.StatusLobby
		empty := ""
		turn := 0
		updated, err := c.store.UpdateRoom(ctx, roomID, store.RoomPatch{
			Status:      &status,
			SecretWord:  &empty,
			ImposterID:  &empty,
			CurrentTurn: &turn,
		})
		if err != nil {
			return rooms.Room{}, fmt.Errorf("resetting room: %w", err)
		}
		return updated, nil
	})
}

// LeaveRoom removes a player. Remaining clients notice through the change
// feed; the removed player's own client detects its eviction there too.
func (c *Coordinator) LeaveRoom(ctx context.Context, playerID string) error {
	err := c.store.RemovePlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrPlayerNotFound
	}
	if err != nil {
		return fmt.Errorf("removing player: %w", err)
	}
	return nil
}
