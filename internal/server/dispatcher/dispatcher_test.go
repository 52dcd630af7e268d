package dispatcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"seabattle/internal/server/core"
	"seabattle/internal/server/service"
	"seabattle/internal/server/session"
	"seabattle/internal/server/storage"
)

type mockConn struct {
	buf    bytes.Buffer
	closed bool
}

func (m *mockConn) Read(b []byte) (int, error)         { return 0, nil }
func (m *mockConn) Write(b []byte) (int, error)        { return m.buf.Write(b) }
func (m *mockConn) Close() error                       { m.closed = true; return nil }
func (m *mockConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (m *mockConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (m *mockConn) SetDeadline(t time.Time) error      { return nil }
func (m *mockConn) SetReadDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

// pushes decodes every line pushed to the connection so far and clears it.
func (m *mockConn) pushes(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(m.buf.String(), "\r\n") {
		if line == "" {
			continue
		}
		var msg map[string]any
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("invalid JSON pushed: %q: %v", line, err)
		}
		out = append(out, msg)
	}
	m.buf.Reset()
	return out
}

type fixture struct {
	d        *Dispatcher
	registry *session.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.InitDB(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	registry := session.NewRegistry()
	return &fixture{d: New(service.New(store), registry), registry: registry}
}

func (f *fixture) dispatch(t *testing.T, conn net.Conn, line string) map[string]any {
	t.Helper()
	reply := f.d.HandleLine(conn, []byte(line))
	raw, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("reply does not marshal: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("reply is not an object: %v", err)
	}
	return msg
}

func (f *fixture) mustSucceed(t *testing.T, conn net.Conn, line string) map[string]any {
	t.Helper()
	msg := f.dispatch(t, conn, line)
	if msg["status"] == core.StatusError {
		t.Fatalf("request %q rejected: %v", line, msg["message"])
	}
	return msg
}

func registerLine(nickname string) string {
	return fmt.Sprintf(`{"type":"register","nickname":%q,"email":"%s@example.com","password":"secret123"}`, nickname, nickname)
}

// pairUp registers both players and queues them into a game, returning
// the game ID announced in the game_ready push.
func (f *fixture) pairUp(t *testing.T, alice, bob *mockConn) int64 {
	t.Helper()
	f.mustSucceed(t, alice, registerLine("alice"))
	f.mustSucceed(t, bob, registerLine("bob"))

	msg := f.mustSucceed(t, alice, `{"type":"start_game","nickname":"alice"}`)
	if msg["status"] != core.StatusWaiting {
		t.Fatalf("first start_game status = %v, want waiting", msg["status"])
	}
	f.mustSucceed(t, bob, `{"type":"start_game","nickname":"bob"}`)

	ready := alice.pushes(t)
	if len(ready) != 1 || ready[0]["type"] != core.TypeGameReady {
		t.Fatalf("alice pushes = %v, want one game_ready", ready)
	}
	if ready[0]["opponent"] != "bob" {
		t.Errorf("alice's opponent = %v, want bob", ready[0]["opponent"])
	}
	bobReady := bob.pushes(t)
	if len(bobReady) != 1 || bobReady[0]["opponent"] != "alice" {
		t.Fatalf("bob pushes = %v, want game_ready with opponent alice", bobReady)
	}
	return int64(ready[0]["game_id"].(float64))
}

func (f *fixture) placeAndReady(t *testing.T, conn *mockConn, nickname string, gameID int64) {
	t.Helper()
	f.mustSucceed(t, conn, fmt.Sprintf(
		`{"type":"place_ship","nickname":%q,"game_id":%d,"x":0,"y":0,"size":2,"is_horizontal":true}`,
		nickname, gameID))
	f.mustSucceed(t, conn, fmt.Sprintf(`{"type":"ready_to_battle","nickname":%q,"game_id":%d}`, nickname, gameID))
}

func TestProtocolErrors(t *testing.T) {
	f := newFixture(t)
	conn := &mockConn{}

	tests := []struct {
		name, line, wantType, wantMsg string
	}{
		{"invalid json", `{not json`, "error", "Invalid JSON format"},
		{"missing type", `{"nickname":"alice"}`, "error", "Missing type field"},
		{"unknown command", `{"type":"dance"}`, "error", "Unknown command"},
		{"bad registration", `{"type":"register","nickname":"alice"}`, "register", "Invalid registration data"},
		{"bad login", `{"type":"login","nickname":"alice"}`, "login", "Invalid login data"},
		{"missing nickname", `{"type":"start_game"}`, "start_game", "Missing nickname"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := f.dispatch(t, conn, tt.line)
			if msg["type"] != tt.wantType || msg["status"] != core.StatusError || msg["message"] != tt.wantMsg {
				t.Errorf("reply = %v, want %s/error/%q", msg, tt.wantType, tt.wantMsg)
			}
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	conn := &mockConn{}

	msg := f.dispatch(t, conn, registerLine("alice"))
	if msg["status"] != core.StatusSuccess || msg["nickname"] != "alice" {
		t.Fatalf("register reply = %v", msg)
	}
	msg = f.dispatch(t, conn, registerLine("alice"))
	if msg["message"] != "User already exists" {
		t.Fatalf("duplicate register reply = %v", msg)
	}

	msg = f.dispatch(t, conn, `{"type":"login","nickname":"alice","password":"secret123"}`)
	if msg["status"] != core.StatusSuccess || msg["message"] != "Login successful" {
		t.Fatalf("login reply = %v", msg)
	}
	msg = f.dispatch(t, conn, `{"type":"login","nickname":"alice","password":"nope"}`)
	if msg["message"] != "Invalid nickname or password" {
		t.Fatalf("bad login reply = %v", msg)
	}
}

func TestPairingAndBattleStart(t *testing.T) {
	f := newFixture(t)
	alice, bob := &mockConn{}, &mockConn{}
	gameID := f.pairUp(t, alice, bob)
	if gameID <= 0 {
		t.Fatalf("game ID = %d, want positive", gameID)
	}

	f.placeAndReady(t, alice, "alice", gameID)
	if got := alice.pushes(t); len(got) != 0 {
		t.Fatalf("game started with one ready player: %v", got)
	}
	f.placeAndReady(t, bob, "bob", gameID)

	// Both players get game_start; the first to request the game opens.
	for name, conn := range map[string]*mockConn{"alice": alice, "bob": bob} {
		got := conn.pushes(t)
		if len(got) != 1 || got[0]["type"] != core.TypeGameStart {
			t.Fatalf("%s pushes = %v, want one game_start", name, got)
		}
		if got[0]["current_turn"] != "alice" {
			t.Errorf("current_turn = %v, want alice", got[0]["current_turn"])
		}
	}
}

func TestPlaceShipRejections(t *testing.T) {
	f := newFixture(t)
	alice, bob := &mockConn{}, &mockConn{}
	gameID := f.pairUp(t, alice, bob)

	tests := []struct {
		name, payload, wantMsg string
	}{
		{"missing fields", `{"type":"place_ship","nickname":"alice","game_id":%d,"x":0,"y":0}`, "Missing required fields"},
		{"oversized", `{"type":"place_ship","nickname":"alice","game_id":%d,"x":0,"y":0,"size":5,"is_horizontal":true}`, "Invalid ship coordinates or size"},
		{"horizontal overflow", `{"type":"place_ship","nickname":"alice","game_id":%d,"x":8,"y":0,"size":4,"is_horizontal":true}`, "Ship exceeds horizontal board limits"},
		{"vertical overflow", `{"type":"place_ship","nickname":"alice","game_id":%d,"x":0,"y":8,"size":4,"is_horizontal":false}`, "Ship exceeds vertical board limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := f.dispatch(t, alice, fmt.Sprintf(tt.payload, gameID))
			if msg["message"] != tt.wantMsg {
				t.Errorf("message = %v, want %q", msg["message"], tt.wantMsg)
			}
		})
	}
}

func TestMakeMoveFlow(t *testing.T) {
	f := newFixture(t)
	alice, bob := &mockConn{}, &mockConn{}
	gameID := f.pairUp(t, alice, bob)
	f.placeAndReady(t, alice, "alice", gameID)
	f.placeAndReady(t, bob, "bob", gameID)
	alice.pushes(t)
	bob.pushes(t)

	move := func(nickname string, x, y int) string {
		return fmt.Sprintf(`{"type":"make_move","nickname":%q,"game_id":%d,"x":%d,"y":%d}`, nickname, gameID, x, y)
	}

	// Bob cannot open.
	msg := f.dispatch(t, bob, move("bob", 0, 0))
	if msg["message"] != "Not your turn" {
		t.Fatalf("out-of-turn reply = %v", msg)
	}

	// Alice hits bob's ship at (0,0) and keeps the turn.
	msg = f.dispatch(t, alice, move("alice", 0, 0))
	if msg["type"] != core.TypeMakeMove || msg["status"] != "hit" || msg["current_turn"] != "alice" {
		t.Fatalf("hit reply = %v", msg)
	}
	pushed := bob.pushes(t)
	if len(pushed) != 1 || pushed[0]["type"] != core.TypeMoveResult || pushed[0]["status"] != "hit" {
		t.Fatalf("opponent push = %v, want move_result/hit", pushed)
	}

	// Repeat shot is rejected.
	msg = f.dispatch(t, alice, move("alice", 0, 0))
	if msg["message"] != "Cell already shot" {
		t.Fatalf("duplicate shot reply = %v", msg)
	}

	// Out-of-range coordinates never reach the board.
	msg = f.dispatch(t, alice, move("alice", 12, 0))
	if msg["message"] != "Invalid move coordinates" {
		t.Fatalf("range reply = %v", msg)
	}

	// A game_id other than the active slot is rejected before any lookup.
	msg = f.dispatch(t, alice, fmt.Sprintf(`{"type":"make_move","nickname":"alice","game_id":%d,"x":0,"y":0}`, gameID+7))
	if msg["message"] != "Invalid game ID" {
		t.Fatalf("stale game reply = %v", msg)
	}

	// Sinking the last ship delivers the ack and the gameover push on the
	// shooter's connection; the reply channel is not used.
	if reply := f.d.HandleLine(alice, []byte(move("alice", 1, 0))); reply != nil {
		t.Fatalf("winning move returned a reply: %v", reply)
	}
	alicePushes := alice.pushes(t)
	if len(alicePushes) != 2 {
		t.Fatalf("alice pushes = %v, want make_move then gameover", alicePushes)
	}
	if alicePushes[0]["type"] != core.TypeMakeMove || alicePushes[0]["status"] != "sunk" {
		t.Errorf("shooter ack = %v, want make_move/sunk", alicePushes[0])
	}
	if alicePushes[1]["type"] != core.TypeGameOver || alicePushes[1]["status"] != core.StatusVictory {
		t.Errorf("winner push = %v, want gameover/victory", alicePushes[1])
	}
	bobPushes := bob.pushes(t)
	if len(bobPushes) != 2 {
		t.Fatalf("bob pushes = %v, want move_result then gameover", bobPushes)
	}
	if bobPushes[1]["type"] != core.TypeGameOver || bobPushes[1]["status"] != core.StatusDefeat {
		t.Errorf("loser push = %v, want gameover/defeat", bobPushes[1])
	}

	// The slot is free for the next pair.
	if f.registry.GameID() != session.NoGame || f.registry.QueuedCount() != 0 {
		t.Error("game slot not reset after victory")
	}
}

func TestReadyRejectsIllegalFleet(t *testing.T) {
	f := newFixture(t)
	alice, bob := &mockConn{}, &mockConn{}
	gameID := f.pairUp(t, alice, bob)

	// Two touching ships.
	f.mustSucceed(t, alice, fmt.Sprintf(
		`{"type":"place_ship","nickname":"alice","game_id":%d,"x":0,"y":0,"size":2,"is_horizontal":true}`, gameID))
	f.mustSucceed(t, alice, fmt.Sprintf(
		`{"type":"place_ship","nickname":"alice","game_id":%d,"x":2,"y":0,"size":2,"is_horizontal":true}`, gameID))

	msg := f.dispatch(t, alice, fmt.Sprintf(`{"type":"ready_to_battle","nickname":"alice","game_id":%d}`, gameID))
	if msg["status"] != core.StatusError {
		t.Fatalf("adjacent fleet accepted: %v", msg)
	}
}

func TestReadyRequiresRegistration(t *testing.T) {
	f := newFixture(t)
	conn := &mockConn{}
	msg := f.dispatch(t, conn, `{"type":"ready_to_battle","nickname":"ghost","game_id":1}`)
	if msg["message"] != "Player not registered" {
		t.Fatalf("reply = %v, want Player not registered", msg)
	}
}
