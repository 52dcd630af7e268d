// Package session tracks live connections and pairing state. It is the
// only component that knows which socket belongs to which nickname; the
// durable game record lives in storage.
package session

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"seabattle/internal/server/core"
)

// NoGame is the game ID value while no game is active.
const NoGame int64 = -1

// MaxPlayers is the number of players a game slot holds.
const MaxPlayers = 2

// pushTimeout bounds a push write. The registry mutex is held while
// writing, so a client that stops reading must not stall it forever.
const pushTimeout = 10 * time.Second

// Registry maps nicknames to connections and tracks the single game slot:
// who is queued, who confirmed readiness, and the active game ID.
// All state is in-memory and mutex-guarded.
type Registry struct {
	mu        sync.Mutex
	clients   map[string]net.Conn
	nicknames map[net.Conn]string
	queued    []string
	ready     map[string]struct{}
	gameID    int64
}

// Snapshot is a point-in-time copy of the registry state for observability.
type Snapshot struct {
	Connected []string `json:"connected"`
	Queued    []string `json:"queued"`
	Ready     []string `json:"ready"`
	GameID    int64    `json:"game_id"`
}

func NewRegistry() *Registry {
	return &Registry{
		clients:   make(map[string]net.Conn),
		nicknames: make(map[net.Conn]string),
		ready:     make(map[string]struct{}),
		gameID:    NoGame,
	}
}

// RegisterClient binds a nickname to a connection. A reconnect with the
// same nickname evicts and closes the stale connection.
func (r *Registry) RegisterClient(nickname string, conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.clients[nickname]; ok && old != conn {
		log.Printf("Nickname %s reconnected, closing stale connection", nickname)
		delete(r.nicknames, old)
		old.Close()
	}
	r.clients[nickname] = conn
	r.nicknames[conn] = nickname
}

// UnregisterClient removes the connection's player from all session state.
// If the player had an opponent, the opponent is notified with a gameover
// push and the game slot is reset.
func (r *Registry) UnregisterClient(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nickname, ok := r.nicknames[conn]
	if !ok {
		return
	}
	delete(r.nicknames, conn)
	if r.clients[nickname] == conn {
		delete(r.clients, nickname)
	}
	r.removeQueuedLocked(nickname)
	delete(r.ready, nickname)

	if opponent := r.opponentLocked(nickname); opponent != "" {
		notice := core.GameOverNotice{
			Type:    core.TypeGameOver,
			Status:  core.StatusDisconnected,
			Message: "Opponent disconnected",
		}
		if err := r.sendLocked(opponent, notice); err != nil {
			log.Printf("Failed to notify %s about disconnect: %v", opponent, err)
		}
		r.resetLocked()
	}
	log.Printf("Client %s unregistered", nickname)
}

// Nickname returns the nickname bound to conn, or "".
func (r *Registry) Nickname(conn net.Conn) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nicknames[conn]
}

// IsRegistered reports whether the nickname has a live connection.
func (r *Registry) IsRegistered(nickname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[nickname]
	return ok
}

// AddPlayerToGame queues a player for the game slot, idempotently, and
// returns the queued count.
func (r *Registry) AddPlayerToGame(nickname string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.queued {
		if p == nickname {
			return len(r.queued)
		}
	}
	r.queued = append(r.queued, nickname)
	log.Printf("Player queued for game: %s", nickname)
	return len(r.queued)
}

// QueuedCount returns the number of queued players.
func (r *Registry) QueuedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queued)
}

// IsQueued reports whether the nickname has requested a game.
func (r *Registry) IsQueued(nickname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.queued {
		if p == nickname {
			return true
		}
	}
	return false
}

// GetOpponent returns the other queued player, or "".
func (r *Registry) GetOpponent(nickname string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opponentLocked(nickname)
}

// FirstPlayer returns the first queued player; the game's initial turn
// belongs to them.
func (r *Registry) FirstPlayer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queued) == 0 {
		return ""
	}
	return r.queued[0]
}

// SetGameID records the active game for the current pair.
func (r *Registry) SetGameID(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gameID = id
}

// GameID returns the active game ID, or NoGame.
func (r *Registry) GameID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameID
}

// MarkReady flags the player as battle-ready. It returns true when both
// queued players are ready and a game exists: the moment the battle starts.
func (r *Registry) MarkReady(nickname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready[nickname] = struct{}{}
	return len(r.ready) == MaxPlayers && len(r.queued) == MaxPlayers && r.gameID != NoGame
}

// SendToUser encodes v and writes it to the player's connection. An
// unknown or unreachable target is logged and dropped, not surfaced:
// losing a push must not fail the request that produced it.
func (r *Registry) SendToUser(nickname string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendLocked(nickname, v)
}

func (r *Registry) sendLocked(nickname string, v any) error {
	conn, ok := r.clients[nickname]
	if !ok {
		log.Printf("User %s not connected, dropping message", nickname)
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(pushTimeout))
	if err := core.WriteLine(conn, v); err != nil {
		log.Printf("Failed to send to %s, dropping connection: %v", nickname, err)
		conn.Close()
		return fmt.Errorf("send to %s: %w", nickname, err)
	}
	return nil
}

// ResetGame clears the queued players, the ready set and the active game
// ID. Used after a game ends or a player disconnects mid-game.
func (r *Registry) ResetGame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

// Snapshot returns a copy of the current session state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{GameID: r.gameID}
	for nick := range r.clients {
		snap.Connected = append(snap.Connected, nick)
	}
	snap.Queued = append(snap.Queued, r.queued...)
	for nick := range r.ready {
		snap.Ready = append(snap.Ready, nick)
	}
	return snap
}

func (r *Registry) opponentLocked(nickname string) string {
	for _, p := range r.queued {
		if p != nickname {
			return p
		}
	}
	return ""
}

func (r *Registry) removeQueuedLocked(nickname string) {
	for i, p := range r.queued {
		if p == nickname {
			r.queued = append(r.queued[:i], r.queued[i+1:]...)
			return
		}
	}
}

func (r *Registry) resetLocked() {
	r.queued = nil
	r.ready = make(map[string]struct{})
	r.gameID = NoGame
	log.Printf("Game slot reset")
}
