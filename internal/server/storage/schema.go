package storage

import "time"

// UserRecord represents a user account in the database
type UserRecord struct {
	Nickname     string     `db:"nickname"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}

// GameRecord represents a row in the games table
type GameRecord struct {
	GameID      int64     `db:"game_id"`
	Player1     string    `db:"player1"`
	Player2     string    `db:"player2"`
	CurrentTurn string    `db:"current_turn"`
	StartedAt   time.Time `db:"started_at"`
}

// ShipRecord represents a row in the ships table
type ShipRecord struct {
	ShipID       int64  `db:"ship_id"`
	GameID       int64  `db:"game_id"`
	Player       string `db:"player"`
	X            int    `db:"x"`
	Y            int    `db:"y"`
	Size         int    `db:"size"`
	IsHorizontal bool   `db:"is_horizontal"`
}

// MoveRecord represents a row in the moves table
type MoveRecord struct {
	MoveID   int64     `db:"move_id"`
	GameID   int64     `db:"game_id"`
	Player   string    `db:"player"`
	X        int       `db:"x"`
	Y        int       `db:"y"`
	Result   string    `db:"result"`
	PlayedAt time.Time `db:"played_at"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	nickname TEXT PRIMARY KEY COLLATE NOCASE,
	email TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_login_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

CREATE TABLE IF NOT EXISTS games (
	game_id INTEGER PRIMARY KEY AUTOINCREMENT,
	player1 TEXT NOT NULL,
	player2 TEXT NOT NULL,
	current_turn TEXT NOT NULL,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (player1) REFERENCES users(nickname),
	FOREIGN KEY (player2) REFERENCES users(nickname)
);

CREATE INDEX IF NOT EXISTS idx_games_player1 ON games(player1);
CREATE INDEX IF NOT EXISTS idx_games_player2 ON games(player2);

CREATE TABLE IF NOT EXISTS ships (
	ship_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id INTEGER NOT NULL,
	player TEXT NOT NULL,
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	size INTEGER NOT NULL,
	is_horizontal INTEGER NOT NULL,
	FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE,
	FOREIGN KEY (player) REFERENCES users(nickname)
);

CREATE INDEX IF NOT EXISTS idx_ships_game_player ON ships(game_id, player);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id INTEGER NOT NULL,
	player TEXT NOT NULL,
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	result TEXT NOT NULL CHECK(result IN ('hit', 'miss', 'sunk')),
	played_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE,
	FOREIGN KEY (player) REFERENCES users(nickname),
	UNIQUE(game_id, player, x, y)
);

CREATE INDEX IF NOT EXISTS idx_moves_game_player ON moves(game_id, player);
`
