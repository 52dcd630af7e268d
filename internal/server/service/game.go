package service

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"seabattle/internal/server/board"
	"seabattle/internal/server/core"
	"seabattle/internal/server/storage"
)

// Placement and move rejections carry the exact message sent on the wire.
var (
	ErrInvalidShip       = errors.New("Invalid ship coordinates or size")
	ErrShipHorizontalOOB = errors.New("Ship exceeds horizontal board limits")
	ErrShipVerticalOOB   = errors.New("Ship exceeds vertical board limits")
	ErrNotYourTurn       = errors.New("Not your turn")
)

// MoveOutcome is the result of a resolved shot.
type MoveOutcome struct {
	Result   core.ShotResult
	NextTurn string
	Opponent string
	GameOver bool
	Winner   string
}

// CreateGame opens a game between the paired players; player1 shoots first.
func (s *Service) CreateGame(player1, player2 string) (int64, error) {
	if s.store == nil {
		return 0, fmt.Errorf("storage disabled")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CreateGame(player1, player2)
}

// SetTurn hands the turn to player, regardless of who holds it. Used
// when the battle starts to give the opening shot to the first player
// who requested the game.
func (s *Service) SetTurn(gameID int64, player string) error {
	if s.store == nil {
		return fmt.Errorf("storage disabled")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdateTurn(gameID, player)
}

// PlaceShip validates the ship against the board edges and persists it.
// Fleet-level rules are deferred to ReadyToBattle: a player places one
// ship at a time and geometry across ships only settles once the fleet
// is declared complete.
func (s *Service) PlaceShip(gameID int64, nickname string, x, y, size int, horizontal bool) error {
	if s.store == nil {
		return fmt.Errorf("storage disabled")
	}
	if x < 0 || y < 0 || x >= board.Size || y >= board.Size || size < 1 || size > board.MaxShipSize {
		return ErrInvalidShip
	}
	if horizontal && x+size > board.Size {
		return ErrShipHorizontalOOB
	}
	if !horizontal && y+size > board.Size {
		return ErrShipVerticalOOB
	}
	return s.store.SaveShip(gameID, nickname, x, y, size, horizontal)
}

// ReadyToBattle checks the player's persisted fleet before they enter
// battle. Geometry violations (overlap, adjacency, out of bounds,
// oversized ships) reject readiness; an incomplete fleet is tolerated
// and only logged, so a player may sail with fewer ships.
func (s *Service) ReadyToBattle(gameID int64, nickname string) error {
	if s.store == nil {
		return fmt.Errorf("storage disabled")
	}

	records, err := s.store.ShipsFor(gameID, nickname)
	if err != nil {
		return fmt.Errorf("failed to load fleet: %w", err)
	}
	ships := make([]board.Ship, 0, len(records))
	for _, rec := range records {
		ships = append(ships, board.Ship{
			X:          rec.X,
			Y:          rec.Y,
			SizeCells:  rec.Size,
			Horizontal: rec.IsHorizontal,
		})
	}

	if err := board.ValidateFleet(ships); err != nil {
		var perr *board.PlacementError
		if errors.As(err, &perr) && perr.Kind == board.WrongShipCount {
			log.Printf("Player %s enters battle with %d/%d ships", nickname, len(ships), board.TotalShips)
			return nil
		}
		return err
	}
	return nil
}

// ResolveMove checks, classifies and persists a shot atomically. The
// shooter keeps the turn on hit and sunk; a miss hands the turn to the
// opponent. A duplicate shot changes nothing and keeps the turn with
// the shooter. When the sunk count reaches the opponent's fleet size
// the game is over and the shooter wins.
func (s *Service) ResolveMove(gameID int64, nickname string, x, y int) (MoveOutcome, error) {
	if s.store == nil {
		return MoveOutcome{}, fmt.Errorf("storage disabled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out MoveOutcome
	err := s.store.WithTx(func(tx *sql.Tx) error {
		turn, err := s.store.CurrentTurnTx(tx, gameID)
		if err != nil {
			return err
		}
		if turn != nickname {
			return ErrNotYourTurn
		}

		result, opponent, err := s.store.CheckMoveTx(tx, gameID, nickname, x, y)
		if err != nil {
			return err
		}
		out.Result = result
		out.Opponent = opponent
		out.NextTurn = nickname

		if !result.Persistable() {
			return nil
		}
		if err := s.store.SaveMoveTx(tx, gameID, nickname, x, y, result); err != nil {
			return err
		}
		if !result.KeepsTurn() {
			if err := s.store.UpdateTurnTx(tx, gameID, opponent); err != nil {
				return err
			}
			out.NextTurn = opponent
			return nil
		}

		if result == core.ShotSunk {
			sunk, err := s.store.SunkCountTx(tx, gameID, nickname)
			if err != nil {
				return err
			}
			fleet, err := s.store.ShipCountTx(tx, gameID, opponent)
			if err != nil {
				return err
			}
			if fleet > 0 && sunk >= fleet {
				out.GameOver = true
				out.Winner = nickname
			}
		}
		return nil
	})
	if err != nil {
		return MoveOutcome{}, err
	}
	return out, nil
}

// Games returns the persisted games for a player; "*" or "" means all.
func (s *Service) Games(player string) ([]storage.GameRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("storage disabled")
	}
	return s.store.QueryGames(player)
}

// Moves returns the persisted move history of a game.
func (s *Service) Moves(gameID int64) ([]storage.MoveRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("storage disabled")
	}
	return s.store.MovesForGame(gameID)
}
