package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"seabattle/internal/server/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.InitDB(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return store
}

func addUser(t *testing.T, store *Store, nickname string) {
	t.Helper()
	err := store.CreateUser(UserRecord{
		Nickname:     nickname,
		Email:        nickname + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to create user %s: %v", nickname, err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	store := newTestStore(t)
	addUser(t, store, "alice")

	err := store.CreateUser(UserRecord{
		Nickname:     "alice",
		Email:        "second@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate nickname: got %v, want ErrUserExists", err)
	}

	// Nickname comparison is case-insensitive.
	err = store.CreateUser(UserRecord{
		Nickname:     "ALICE",
		Email:        "third@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("case-folded nickname: got %v, want ErrUserExists", err)
	}
}

func TestUpdateLastLogin(t *testing.T) {
	store := newTestStore(t)
	addUser(t, store, "alice")

	when := time.Now().UTC().Truncate(time.Second)
	if err := store.UpdateLastLogin("alice", when); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}
	rec, err := store.GetUserByNickname("alice")
	if err != nil {
		t.Fatalf("GetUserByNickname: %v", err)
	}
	if rec.LastLoginAt == nil {
		t.Fatal("last login not recorded")
	}
}

func TestCreateGameInitialTurn(t *testing.T) {
	store := newTestStore(t)
	addUser(t, store, "alice")
	addUser(t, store, "bob")

	gameID, err := store.CreateGame("alice", "bob")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if gameID <= 0 {
		t.Fatalf("game ID = %d, want positive", gameID)
	}

	turn, err := store.GetCurrentTurn(gameID)
	if err != nil {
		t.Fatalf("GetCurrentTurn: %v", err)
	}
	if turn != "alice" {
		t.Fatalf("initial turn = %q, want alice", turn)
	}
}

func TestCheckMoveClassification(t *testing.T) {
	store := newTestStore(t)
	addUser(t, store, "alice")
	addUser(t, store, "bob")
	gameID, err := store.CreateGame("alice", "bob")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	// Bob's fleet: horizontal 3-cell ship at (2,5) and vertical 2-cell at (8,0).
	if err := store.SaveShip(gameID, "bob", 2, 5, 3, true); err != nil {
		t.Fatalf("SaveShip: %v", err)
	}
	if err := store.SaveShip(gameID, "bob", 8, 0, 2, false); err != nil {
		t.Fatalf("SaveShip: %v", err)
	}

	shoot := func(x, y int) core.ShotResult {
		t.Helper()
		var result core.ShotResult
		err := store.WithTx(func(tx *sql.Tx) error {
			res, opponent, err := store.CheckMoveTx(tx, gameID, "alice", x, y)
			if err != nil {
				return err
			}
			if opponent != "bob" {
				t.Fatalf("opponent = %q, want bob", opponent)
			}
			result = res
			if res.Persistable() {
				return store.SaveMoveTx(tx, gameID, "alice", x, y, res)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("shot (%d,%d): %v", x, y, err)
		}
		return result
	}

	if got := shoot(0, 0); got != core.ShotMiss {
		t.Fatalf("open water = %q, want miss", got)
	}
	if got := shoot(2, 5); got != core.ShotHit {
		t.Fatalf("first hit = %q, want hit", got)
	}
	if got := shoot(2, 5); got != core.ShotAlreadyShot {
		t.Fatalf("repeat = %q, want already_shot", got)
	}
	if got := shoot(3, 5); got != core.ShotHit {
		t.Fatalf("second hit = %q, want hit", got)
	}
	if got := shoot(4, 5); got != core.ShotSunk {
		t.Fatalf("final hit = %q, want sunk", got)
	}

	// The vertical ship sinks independently.
	if got := shoot(8, 0); got != core.ShotHit {
		t.Fatalf("vertical hit = %q, want hit", got)
	}
	if got := shoot(8, 1); got != core.ShotSunk {
		t.Fatalf("vertical sink = %q, want sunk", got)
	}

	// Two sunk ships on record for the shooter.
	err = store.WithTx(func(tx *sql.Tx) error {
		sunk, err := store.SunkCountTx(tx, gameID, "alice")
		if err != nil {
			return err
		}
		if sunk != 2 {
			t.Fatalf("sunk count = %d, want 2", sunk)
		}
		fleet, err := store.ShipCountTx(tx, gameID, "bob")
		if err != nil {
			return err
		}
		if fleet != 2 {
			t.Fatalf("fleet count = %d, want 2", fleet)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("count check: %v", err)
	}
}

func TestTurnUpdate(t *testing.T) {
	store := newTestStore(t)
	addUser(t, store, "alice")
	addUser(t, store, "bob")
	gameID, err := store.CreateGame("alice", "bob")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	if err := store.UpdateTurn(gameID, "bob"); err != nil {
		t.Fatalf("UpdateTurn: %v", err)
	}
	turn, err := store.GetCurrentTurn(gameID)
	if err != nil {
		t.Fatalf("GetCurrentTurn: %v", err)
	}
	if turn != "bob" {
		t.Fatalf("turn = %q, want bob", turn)
	}
}

func TestQueryGamesFilter(t *testing.T) {
	store := newTestStore(t)
	addUser(t, store, "alice")
	addUser(t, store, "bob")
	addUser(t, store, "carol")
	if _, err := store.CreateGame("alice", "bob"); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, err := store.CreateGame("bob", "carol"); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	all, err := store.QueryGames("*")
	if err != nil {
		t.Fatalf("QueryGames(*): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all games = %d, want 2", len(all))
	}

	mine, err := store.QueryGames("alice")
	if err != nil {
		t.Fatalf("QueryGames(alice): %v", err)
	}
	if len(mine) != 1 || mine[0].Player1 != "alice" {
		t.Fatalf("alice's games = %+v, want the alice/bob game", mine)
	}
}
