package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	qrcode "github.com/skip2/go-qrcode"

	"imposter/internal/game"
	"imposter/internal/players"
	"imposter/internal/reconcile"
	"imposter/internal/rooms"
	"imposter/internal/store"
	"imposter/internal/words"
	"imposter/internal/wshub"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handle] Encoding response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrEmptyName),
		errors.Is(err, game.ErrBadCode):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrRoomNotFound),
		errors.Is(err, game.ErrPlayerNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, game.ErrGameInProgress),
		errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrTooFewPlayers),
		errors.Is(err, game.ErrNoThemes):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

type playerPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
	Color  string `json:"color"`
}

func toPlayerPayload(p players.Player) playerPayload {
	return playerPayload{ID: p.ID, Name: p.Name, IsHost: p.IsHost, Color: p.Color}
}

func toRoomView(room rooms.Room) RoomView {
	return RoomView{
		ID:          room.ID,
		Code:        room.Code,
		HostID:      room.HostID,
		Status:      string(room.Status),
		CurrentTurn: room.CurrentTurn,
		Version:     room.Version,
	}
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	fmt.Println("[Handle:CreateRoom] Request Received")

	var req struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	res, err := s.Coord.CreateRoom(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	fmt.Printf("[Handle:CreateRoom] Created room %s\n", res.Room.Code)
	writeJSON(w, http.StatusCreated, map[string]any{
		"room":   toRoomView(res.Room),
		"player": toPlayerPayload(res.Host),
	})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	fmt.Println("[Handle:JoinRoom] Request Received")

	var req struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	res, err := s.Coord.JoinRoom(r.Context(), strings.TrimSpace(req.Code), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room":   toRoomView(res.Room),
		"player": toPlayerPayload(res.Player),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	viewerID := r.URL.Query().Get("player")

	room, err := s.Store.GetRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	roster, err := s.Store.ListPlayers(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}

	snap := reconcile.Snapshot{Room: &room, Players: roster, Status: reconcile.StatusSubscribed}
	writeJSON(w, http.StatusOK, viewFor(snap, viewerID))
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	fmt.Println("[Handle:StartGame] Request Received")

	var req struct {
		Packs []string `json:"packs"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	room, err := s.Coord.StartGame(r.Context(), r.PathValue("id"), req.Packs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": toRoomView(room)})
}

func (s *Server) handleAdvanceTurn(w http.ResponseWriter, r *http.Request) {
	room, err := s.Coord.AdvanceTurn(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": toRoomView(room)})
}

func (s *Server) handleSkipToVoting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	room, err := s.Coord.SkipToVoting(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": toRoomView(room)})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID   string `json:"playerId"`
		VotedForID string `json:"votedForId"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	if err := s.Coord.SubmitVote(r.Context(), req.PlayerID, req.VotedForID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	fmt.Println("[Handle:Reveal] Request Received")

	var req struct {
		PlayerID string `json:"playerId"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	room, err := s.Coord.RevealResults(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": toRoomView(room)})
}

func (s *Server) handlePlayAgain(w http.ResponseWriter, r *http.Request) {
	fmt.Println("[Handle:PlayAgain] Request Received")

	room, err := s.Coord.ResetToLobby(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": toRoomView(room)})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	if err := s.Coord.LeaveRoom(r.Context(), req.PlayerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvents streams per-player state snapshots over SSE. Every client
// of the same room shares one reconciler through the room feed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	viewerID := r.URL.Query().Get("player")

	if _, err := s.Store.GetRoom(r.Context(), roomID); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	feed := s.acquireFeed(roomID)
	defer s.releaseFeed(roomID)

	ch := feed.bc.Subscribe()
	defer feed.bc.Unsubscribe(ch)

	writeStateEvent(w, feed.rec.Snapshot(), viewerID)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-ch:
			if !open {
				return
			}
			writeStateEvent(w, snap, viewerID)
			flusher.Flush()
		}
	}
}

func writeStateEvent(w http.ResponseWriter, snap reconcile.Snapshot, viewerID string) {
	data, err := json.Marshal(viewFor(snap, viewerID))
	if err != nil {
		log.Printf("[Handle:Events] Marshal error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
}

// handleWS is the WebSocket flavor of the state feed. The read side only
// watches for the client going away; all traffic is server to client.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	viewerID := r.URL.Query().Get("player")

	if _, err := s.Store.GetRoom(r.Context(), roomID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[Handle:WS] Accept error: %v\n", err)
		return
	}
	defer conn.CloseNow()

	feed := s.acquireFeed(roomID)
	defer s.releaseFeed(roomID)

	client := wshub.NewClient(viewerID, conn)
	feed.hub.Register(client)
	defer feed.hub.Unregister(client)

	if data, err := json.Marshal(viewFor(feed.rec.Snapshot(), viewerID)); err == nil {
		select {
		case client.Send <- data:
		default:
		}
	}

	ctx := r.Context()
	go client.WritePump(ctx)

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// handleRoomQR renders the join URL for a room as a PNG QR code.
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	room, err := s.Store.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	joinURL := fmt.Sprintf("%s/join?code=%s", strings.TrimRight(s.PublicURL, "/"), room.Code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		log.Printf("[Handle:QR] Encode error: %v\n", err)
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		log.Println(err)
	}
}

// handlePacks lists the theme packs a start request can choose from.
func (s *Server) handlePacks(w http.ResponseWriter, r *http.Request) {
	type packInfo struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Themes int    `json:"themes"`
	}
	list := make([]packInfo, 0, len(words.AllPacks))
	for _, p := range words.AllPacks {
		list = append(list, packInfo{ID: p.ID, Name: p.Name, Themes: len(p.Themes)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"packs": list})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history requires a database"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			limit = i
		}
	}

	list, err := s.History.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("[Handle:History] %v\n", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rounds": list})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			status = "db_error"
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"%s","error":"%s"}`, status, err.Error())
			return
		}
	}
	fmt.Fprintf(w, `{"status":"%s"}`, status)
}
