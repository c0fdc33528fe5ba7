package server

import (
	"encoding/json"
	"sync"

	"imposter/internal/broadcast"
	"imposter/internal/db"
	"imposter/internal/game"
	"imposter/internal/history"
	"imposter/internal/reconcile"
	"imposter/internal/store"
	"imposter/internal/wshub"
)

type Server struct {
	Coord     *game.Coordinator
	Store     store.Store
	DB        *db.DB         // nil if no database configured
	History   *history.Store // nil if no database configured
	PublicURL string

	mu    sync.Mutex
	feeds map[string]*roomFeed
}

// roomFeed is the live fan-out machinery for one room: a single
// reconciler follows the store, a broadcaster feeds the SSE handlers and
// a hub pushes per-player renderings over WebSocket. Reference counted so
// the reconciler shuts down once the last client disconnects.
type roomFeed struct {
	rec  *reconcile.Reconciler
	bc   *broadcast.Broadcaster
	hub  *wshub.Hub
	refs int
}

func NewServer(coord *game.Coordinator, st store.Store) *Server {
	return &Server{
		Coord: coord,
		Store: st,
		feeds: make(map[string]*roomFeed),
	}
}

func (s *Server) acquireFeed(roomID string) *roomFeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[roomID]
	if !ok {
		rec := reconcile.New(s.Store, roomID, "")
		f = &roomFeed{
			rec: rec,
			bc:  broadcast.NewBroadcaster(rec.Updates()),
			hub: wshub.NewHub(),
		}
		s.feeds[roomID] = f
		go pumpHub(f.bc, f.hub)
	}
	f.refs++
	return f
}

func (s *Server) releaseFeed(roomID string) {
	s.mu.Lock()
	f, ok := s.feeds[roomID]
	if ok {
		f.refs--
		if f.refs <= 0 {
			delete(s.feeds, roomID)
		} else {
			f = nil
		}
	}
	s.mu.Unlock()

	// closing the reconciler ends its Updates stream, which closes the
	// broadcaster's subscribers and the hub pump with it
	if ok && f != nil {
		f.rec.Close()
	}
}

func pumpHub(bc *broadcast.Broadcaster, hub *wshub.Hub) {
	ch := bc.Subscribe()
	for snap := range ch {
		hub.Broadcast(func(playerID string) ([]byte, error) {
			return json.Marshal(viewFor(snap, playerID))
		})
	}
}
