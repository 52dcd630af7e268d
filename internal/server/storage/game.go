package storage

import (
	"database/sql"
	"fmt"

	"seabattle/internal/server/board"
	"seabattle/internal/server/core"
)

// CreateGame inserts a game row between two players; the first player
// holds the initial turn.
func (s *Store) CreateGame(player1, player2 string) (int64, error) {
	query := `INSERT INTO games (player1, player2, current_turn) VALUES (?, ?, ?)`
	result, err := s.db.Exec(query, player1, player2, player1)
	if err != nil {
		return 0, fmt.Errorf("failed to create game: %w", err)
	}
	return result.LastInsertId()
}

// GetGame retrieves a game row by ID.
func (s *Store) GetGame(gameID int64) (*GameRecord, error) {
	var g GameRecord
	query := `SELECT game_id, player1, player2, current_turn, started_at FROM games WHERE game_id = ?`
	err := s.db.QueryRow(query, gameID).Scan(&g.GameID, &g.Player1, &g.Player2, &g.CurrentTurn, &g.StartedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SaveShip records a ship placement for a player.
func (s *Store) SaveShip(gameID int64, player string, x, y, size int, horizontal bool) error {
	query := `INSERT INTO ships (game_id, player, x, y, size, is_horizontal) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, gameID, player, x, y, size, horizontal); err != nil {
		return fmt.Errorf("failed to save ship: %w", err)
	}
	return nil
}

// ShipsFor returns all ships a player placed in a game.
func (s *Store) ShipsFor(gameID int64, player string) ([]ShipRecord, error) {
	query := `SELECT ship_id, game_id, player, x, y, size, is_horizontal
		FROM ships WHERE game_id = ? AND player = ?`

	rows, err := s.db.Query(query, gameID, player)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ships: %w", err)
	}
	defer rows.Close()

	var ships []ShipRecord
	for rows.Next() {
		var sr ShipRecord
		if err := rows.Scan(&sr.ShipID, &sr.GameID, &sr.Player, &sr.X, &sr.Y, &sr.Size, &sr.IsHorizontal); err != nil {
			return nil, err
		}
		ships = append(ships, sr)
	}
	return ships, rows.Err()
}

// GetCurrentTurn returns the nickname holding the turn.
func (s *Store) GetCurrentTurn(gameID int64) (string, error) {
	var turn string
	query := `SELECT current_turn FROM games WHERE game_id = ?`
	if err := s.db.QueryRow(query, gameID).Scan(&turn); err != nil {
		return "", fmt.Errorf("failed to fetch current turn: %w", err)
	}
	return turn, nil
}

// CurrentTurnTx is GetCurrentTurn within a caller-owned transaction.
func (s *Store) CurrentTurnTx(tx *sql.Tx, gameID int64) (string, error) {
	var turn string
	query := `SELECT current_turn FROM games WHERE game_id = ?`
	if err := tx.QueryRow(query, gameID).Scan(&turn); err != nil {
		return "", fmt.Errorf("failed to fetch current turn: %w", err)
	}
	return turn, nil
}

// UpdateTurn hands the turn to nextPlayer outside any caller transaction.
func (s *Store) UpdateTurn(gameID int64, nextPlayer string) error {
	query := `UPDATE games SET current_turn = ? WHERE game_id = ?`
	if _, err := s.db.Exec(query, nextPlayer, gameID); err != nil {
		return fmt.Errorf("failed to update turn: %w", err)
	}
	return nil
}

// UpdateTurnTx is UpdateTurn within a caller-owned transaction.
func (s *Store) UpdateTurnTx(tx *sql.Tx, gameID int64, nextPlayer string) error {
	query := `UPDATE games SET current_turn = ? WHERE game_id = ?`
	if _, err := tx.Exec(query, nextPlayer, gameID); err != nil {
		return fmt.Errorf("failed to update turn: %w", err)
	}
	return nil
}

// CheckMoveTx classifies a shot without persisting it. It resolves the
// opponent from the game row, rejects duplicate coordinates, finds the
// opponent ship covering (x, y) if any, and classifies via the board
// hit-count rule. It must run in the same transaction as the SaveMoveTx
// that follows, so a concurrent shot at the same cell cannot slip between
// the check and the insert.
func (s *Store) CheckMoveTx(tx *sql.Tx, gameID int64, shooter string, x, y int) (core.ShotResult, string, error) {
	var player1, player2 string
	err := tx.QueryRow(`SELECT player1, player2 FROM games WHERE game_id = ?`, gameID).Scan(&player1, &player2)
	if err != nil {
		return core.ShotError, "", fmt.Errorf("failed to fetch game %d: %w", gameID, err)
	}
	opponent := player1
	if shooter == player1 {
		opponent = player2
	}

	var dup int
	err = tx.QueryRow(`SELECT COUNT(*) FROM moves WHERE game_id = ? AND player = ? AND x = ? AND y = ?`,
		gameID, shooter, x, y).Scan(&dup)
	if err != nil {
		return core.ShotError, opponent, fmt.Errorf("failed to check for duplicate shot: %w", err)
	}
	if dup > 0 {
		return core.ShotAlreadyShot, opponent, nil
	}

	// Drain the ship rows before issuing further queries: the transaction
	// holds a single connection and cannot run a query while a cursor is
	// still open on it.
	rows, err := tx.Query(`SELECT x, y, size, is_horizontal FROM ships WHERE game_id = ? AND player = ?`,
		gameID, opponent)
	if err != nil {
		return core.ShotError, opponent, fmt.Errorf("failed to fetch opponent ships: %w", err)
	}
	var ships []board.Ship
	for rows.Next() {
		var sh board.Ship
		if err := rows.Scan(&sh.X, &sh.Y, &sh.SizeCells, &sh.Horizontal); err != nil {
			rows.Close()
			return core.ShotError, opponent, err
		}
		ships = append(ships, sh)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.ShotError, opponent, err
	}

	var target board.Ship
	found := false
	for _, sh := range ships {
		if sh.Covers(x, y) {
			target = sh
			found = true
			break
		}
	}
	if !found {
		return core.ShotMiss, opponent, nil
	}

	priorHits, err := s.hitCountTx(tx, gameID, shooter, target)
	if err != nil {
		return core.ShotError, opponent, err
	}

	return board.ClassifyShot(target, priorHits, x, y), opponent, nil
}

// hitCountTx counts resolved hits on the cells of one specific ship.
func (s *Store) hitCountTx(tx *sql.Tx, gameID int64, shooter string, sh board.Ship) (int, error) {
	var query string
	var args []any
	if sh.Horizontal {
		query = `SELECT COUNT(*) FROM moves WHERE game_id = ? AND player = ? AND result IN ('hit', 'sunk')
			AND y = ? AND x >= ? AND x < ?`
		args = []any{gameID, shooter, sh.Y, sh.X, sh.X + sh.SizeCells}
	} else {
		query = `SELECT COUNT(*) FROM moves WHERE game_id = ? AND player = ? AND result IN ('hit', 'sunk')
			AND x = ? AND y >= ? AND y < ?`
		args = []any{gameID, shooter, sh.X, sh.Y, sh.Y + sh.SizeCells}
	}

	var count int
	if err := tx.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count hits: %w", err)
	}
	return count, nil
}

// SaveMoveTx appends a resolved move within a caller-owned transaction.
func (s *Store) SaveMoveTx(tx *sql.Tx, gameID int64, player string, x, y int, result core.ShotResult) error {
	query := `INSERT INTO moves (game_id, player, x, y, result) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.Exec(query, gameID, player, x, y, string(result)); err != nil {
		return fmt.Errorf("failed to save move: %w", err)
	}
	return nil
}

// SunkCountTx returns how many opponent ships the shooter has fully sunk.
// Each ship yields exactly one 'sunk' move, so counting those rows equals
// counting destroyed ships.
func (s *Store) SunkCountTx(tx *sql.Tx, gameID int64, shooter string) (int, error) {
	var count int
	err := tx.QueryRow(`SELECT COUNT(*) FROM moves WHERE game_id = ? AND player = ? AND result = 'sunk'`,
		gameID, shooter).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sunk ships: %w", err)
	}
	return count, nil
}

// ShipCountTx returns the number of ships a player placed in a game.
func (s *Store) ShipCountTx(tx *sql.Tx, gameID int64, player string) (int, error) {
	var count int
	err := tx.QueryRow(`SELECT COUNT(*) FROM ships WHERE game_id = ? AND player = ?`,
		gameID, player).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ships: %w", err)
	}
	return count, nil
}

// QueryGames retrieves games with optional player filtering.
func (s *Store) QueryGames(player string) ([]GameRecord, error) {
	query := `SELECT game_id, player1, player2, current_turn, started_at FROM games`
	var args []any

	if player != "" && player != "*" {
		query += ` WHERE player1 = ? OR player2 = ?`
		args = append(args, player, player)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		if err := rows.Scan(&g.GameID, &g.Player1, &g.Player2, &g.CurrentTurn, &g.StartedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return games, nil
}

// MovesForGame returns the full move history of a game, oldest first.
func (s *Store) MovesForGame(gameID int64) ([]MoveRecord, error) {
	query := `SELECT move_id, game_id, player, x, y, result, played_at
		FROM moves WHERE game_id = ? ORDER BY move_id ASC`

	rows, err := s.db.Query(query, gameID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(&m.MoveID, &m.GameID, &m.Player, &m.X, &m.Y, &m.Result, &m.PlayedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}
