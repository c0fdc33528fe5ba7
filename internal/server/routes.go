package server

import (
	"fmt"
	"log"
	"net/http"

	"imposter/internal/config"
	"imposter/internal/db"
	"imposter/internal/game"
	"imposter/internal/history"
	"imposter/internal/store"
)

func Run() error {
	cfg := config.Load()

	var st store.Store
	var database *db.DB
	var rounds *history.Store

	// Optional database connection; without one the in-memory store keeps
	// a single process fully playable.
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("[DB] Failed to connect: %v (running without database)\n", err)
		} else {
			if err := conn.Migrate(); err != nil {
				log.Printf("[DB] Migration failed: %v\n", err)
			}
			pgStore, err := db.NewStore(conn, cfg.DatabaseURL)
			if err != nil {
				log.Printf("[DB] Change listener failed: %v (running without database)\n", err)
				conn.Close()
			} else {
				st = pgStore
				database = conn
				rounds = history.NewStore(conn)
				log.Println("[DB] Database connected and migrations applied")
			}
		}
	} else {
		log.Println("[DB] DATABASE_URL not set, running without database")
	}
	if st == nil {
		st = store.NewMemory()
	}

	var recorder game.RoundRecorder
	if rounds != nil {
		recorder = rounds
	}
	coord := game.NewCoordinator(st, recorder, nil)

	srv := NewServer(coord, st)
	srv.DB = database
	srv.History = rounds
	srv.PublicURL = cfg.PublicURL

	addr := "0.0.0.0:" + cfg.Port
	fmt.Printf("Server listening on http://localhost:%s\n", cfg.Port)
	return http.ListenAndServe(addr, srv.Routes(cfg))
}

// Routes builds the full handler tree, with the API behind a per-client
// rate limit. Streaming endpoints sit outside the limiter: one held-open
// connection is not a burst.
func (s *Server) Routes(cfg config.Config) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	api.HandleFunc("POST /api/rooms/join", s.handleJoinRoom)
	api.HandleFunc("GET /api/rooms/{id}/state", s.handleState)
	api.HandleFunc("POST /api/rooms/{id}/start", s.handleStartGame)
	api.HandleFunc("POST /api/rooms/{id}/advance", s.handleAdvanceTurn)
	api.HandleFunc("POST /api/rooms/{id}/skip-to-voting", s.handleSkipToVoting)
	api.HandleFunc("POST /api/rooms/{id}/vote", s.handleVote)
	api.HandleFunc("POST /api/rooms/{id}/reveal", s.handleReveal)
	api.HandleFunc("POST /api/rooms/{id}/play-again", s.handlePlayAgain)
	api.HandleFunc("POST /api/rooms/{id}/leave", s.handleLeave)
	api.HandleFunc("GET /api/rooms/{id}/qr.png", s.handleRoomQR)
	api.HandleFunc("GET /api/packs", s.handlePacks)
	api.HandleFunc("GET /api/history", s.handleHistory)

	limiter := newRateLimiter(cfg.RateLimit, cfg.RateBurst)

	mux := http.NewServeMux()
	mux.Handle("/api/", limiter.middleware(api))
	mux.HandleFunc("GET /api/rooms/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/rooms/{id}/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}
