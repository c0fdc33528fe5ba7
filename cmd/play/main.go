package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"imposter/internal/server"
	"imposter/internal/session"
)

// play is a terminal client for the imposter game server. Identity and
// room membership persist in a session file, so a restarted client
// rejoins the room it was in.
type client struct {
	base string
	http *http.Client
	sess *session.Store

	playerID string
	roomID   string

	mu   sync.Mutex
	last server.StateView
}

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "base URL of the game server")
		name      = flag.String("name", "", "display name when creating or joining")
		create    = flag.Bool("create", false, "create a new room")
		code      = flag.String("code", "", "join the room with this 4-digit code")
		packs     = flag.StringSlice("packs", nil, "theme packs for new rounds (default: all)")
		sessPath  = flag.String("session", defaultSessionPath(), "session file")
	)
	flag.Parse()

	sess, err := session.Open(*sessPath)
	if err != nil {
		log.Fatalf("opening session file: %v", err)
	}
	defer sess.Close()

	c := &client{
		base: strings.TrimRight(*serverURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		sess: sess,
	}

	restored := sess.Restore()
	switch {
	case *create:
		if err := c.createRoom(pickName(*name, restored)); err != nil {
			log.Fatal(err)
		}
	case *code != "":
		if err := c.joinRoom(*code, pickName(*name, restored)); err != nil {
			log.Fatal(err)
		}
	case restored.RoomID != "":
		c.playerID = restored.PlayerID
		c.roomID = restored.RoomID
		fmt.Printf("Resuming room %s as %s\n", c.roomID, restored.PlayerName)
	default:
		fmt.Println("Nothing to resume. Use --create or --code to get into a room.")
		flag.Usage()
		os.Exit(2)
	}

	evicted := make(chan struct{}, 1)
	go c.followEvents(evicted)

	// another client sharing the session file may leave the room; follow it
	go func() {
		for s := range sess.Changes() {
			if s.RoomID == "" {
				fmt.Println("\nSession left the room elsewhere.")
				os.Exit(0)
			}
		}
	}()

	go func() {
		<-evicted
		fmt.Println("\nYou were removed from the room.")
		if err := c.sess.ForgetRoom(); err != nil {
			log.Printf("forgetting room: %v", err)
		}
		os.Exit(0)
	}()

	c.commandLoop(*packs)
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".imposter-session.json"
	}
	return filepath.Join(home, ".imposter-session.json")
}

func pickName(flagName string, restored session.Session) string {
	if flagName != "" {
		return flagName
	}
	return restored.PlayerName
}

func (c *client) createRoom(name string) error {
	var res struct {
		Room   server.RoomView `json:"room"`
		Player struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"player"`
	}
	if err := c.post("/api/rooms", map[string]any{"name": name}, &res); err != nil {
		return err
	}
	c.playerID = res.Player.ID
	c.roomID = res.Room.ID
	c.remember(res.Player.ID, res.Player.Name, res.Room.ID)
	fmt.Printf("Created room %s. Share the code with the others.\n", res.Room.Code)
	return nil
}

func (c *client) joinRoom(code, name string) error {
	var res struct {
		Room   server.RoomView `json:"room"`
		Player struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"player"`
	}
	if err := c.post("/api/rooms/join", map[string]any{"code": code, "name": name}, &res); err != nil {
		return err
	}
	c.playerID = res.Player.ID
	c.roomID = res.Room.ID
	c.remember(res.Player.ID, res.Player.Name, res.Room.ID)
	fmt.Printf("Joined room %s.\n", res.Room.Code)
	return nil
}

func (c *client) remember(playerID, name, roomID string) {
	if err := c.sess.RememberPlayer(playerID, name); err != nil {
		log.Printf("saving session: %v", err)
	}
	if err := c.sess.RememberRoom(roomID); err != nil {
		log.Printf("saving session: %v", err)
	}
}

func (c *client) post(path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// followEvents tails the server's SSE state feed, reconnecting on
// failure. Signals evicted once the roster confirms we are gone.
func (c *client) followEvents(evicted chan<- struct{}) {
	streamURL := fmt.Sprintf("%s/api/rooms/%s/events?player=%s", c.base, c.roomID, url.QueryEscape(c.playerID))
	for {
		if err := c.streamOnce(streamURL, evicted); err != nil {
			log.Printf("event stream: %v (retrying)", err)
		}
		time.Sleep(2 * time.Second)
	}
}

func (c *client) streamOnce(streamURL string, evicted chan<- struct{}) error {
	resp, err := http.Get(streamURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var view server.StateView
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &view); err != nil {
			log.Printf("decoding state: %v", err)
			continue
		}
		c.apply(view, evicted)
	}
	return scanner.Err()
}

func (c *client) apply(view server.StateView, evicted chan<- struct{}) {
	c.mu.Lock()
	prev := c.last
	c.last = view
	c.mu.Unlock()

	if len(view.Players) > 0 {
		found := false
		for _, p := range view.Players {
			if p.ID == c.playerID {
				found = true
				break
			}
		}
		if !found {
			select {
			case evicted <- struct{}{}:
			default:
			}
			return
		}
	}

	if changed(prev, view) {
		printState(view, c.playerID)
	}
}

func changed(a, b server.StateView) bool {
	if (a.Room == nil) != (b.Room == nil) {
		return true
	}
	if a.Room != nil && b.Room != nil && a.Room.Version != b.Room.Version {
		return true
	}
	if len(a.Players) != len(b.Players) {
		return true
	}
	for i := range a.Players {
		if a.Players[i] != b.Players[i] {
			return true
		}
	}
	return false
}

func printState(view server.StateView, selfID string) {
	if view.Room == nil {
		fmt.Println("\n--- waiting for room state ---")
		return
	}
	fmt.Printf("\n--- room %s | %s ---\n", view.Room.Code, view.Room.Status)

	for i, p := range view.Players {
		marks := ""
		if p.IsHost {
			marks += " (host)"
		}
		if p.ID == selfID {
			marks += " (you)"
		}
		if view.Room.Status == "voting" && p.HasVoted {
			marks += " [voted]"
		}
		turn := "  "
		if view.Room.Status == "playing" && i == view.Room.CurrentTurn {
			turn = "> "
		}
		fmt.Printf("%s%d. %s%s\n", turn, i+1, p.Name, marks)
	}

	switch view.Room.Status {
	case "playing", "voting":
		if view.Role == server.RoleImposter {
			fmt.Println("You are the IMPOSTER. Blend in.")
		} else if view.SecretWord != "" {
			fmt.Printf("Secret word: %s\n", view.SecretWord)
		}
		if view.Room.Status == "voting" {
			fmt.Println("Vote with: vote <number>")
		}
	case "results":
		if r := view.Results; r != nil {
			fmt.Printf("The word was %q.\n", r.SecretWord)
			imposterName := r.ImposterID
			for _, p := range view.Players {
				if p.ID == r.ImposterID {
					imposterName = p.Name
				}
			}
			fmt.Printf("The imposter was %s.\n", imposterName)
			switch {
			case r.IsTie:
				fmt.Println("The vote was a tie. The imposter escapes.")
			case r.ImposterCaught:
				fmt.Println("The imposter was caught!")
			default:
				fmt.Println("The imposter got away.")
			}
		}
	}
}

func (c *client) commandLoop(packs []string) {
	fmt.Println("Commands: start, next, skip, vote <number>, reveal, again, leave, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "start":
			err = c.post("/api/rooms/"+c.roomID+"/start", map[string]any{"packs": packs}, nil)
		case "next":
			err = c.post("/api/rooms/"+c.roomID+"/advance", map[string]any{}, nil)
		case "skip":
			err = c.post("/api/rooms/"+c.roomID+"/skip-to-voting", map[string]any{"playerId": c.playerID}, nil)
		case "vote":
			err = c.vote(fields)
		case "reveal":
			err = c.post("/api/rooms/"+c.roomID+"/reveal", map[string]any{"playerId": c.playerID}, nil)
		case "again":
			err = c.post("/api/rooms/"+c.roomID+"/play-again", map[string]any{}, nil)
		case "leave":
			err = c.post("/api/rooms/"+c.roomID+"/leave", map[string]any{"playerId": c.playerID}, nil)
			if err == nil {
				if err := c.sess.ForgetRoom(); err != nil {
					log.Printf("forgetting room: %v", err)
				}
				return
			}
		case "quit", "exit":
			return
		case "help":
			fmt.Println("Commands: start, next, skip, vote <number>, reveal, again, leave, quit")
		default:
			fmt.Printf("Unknown command %q. Try help.\n", fields[0])
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func (c *client) vote(fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("usage: vote <number>")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("usage: vote <number>")
	}

	c.mu.Lock()
	roster := c.last.Players
	c.mu.Unlock()
	if n < 1 || n > len(roster) {
		return fmt.Errorf("no player %d", n)
	}

	return c.post("/api/rooms/"+c.roomID+"/vote", map[string]any{
		"playerId":   c.playerID,
		"votedForId": roster[n-1].ID,
	}, nil)
}
