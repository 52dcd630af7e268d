// Package board implements the pure placement and shot geometry for a
// 10x10 sea-battle grid. It performs no I/O and holds no game state.
package board

import (
	"fmt"

	"seabattle/internal/server/core"
)

// Size is the board edge length; cells are 0-indexed.
const Size = 10

// FleetComposition maps ship size to the number of ships of that size a
// complete fleet must contain.
var FleetComposition = map[int]int{4: 1, 3: 2, 2: 3, 1: 4}

// MaxShipSize is the longest ship a fleet may contain.
const MaxShipSize = 4

// TotalShips is the number of ships in a complete fleet.
const TotalShips = 10

// Cell is a single board coordinate.
type Cell struct {
	X int
	Y int
}

// Ship is a placed ship: its anchor cell, length and orientation.
// A horizontal ship occupies (x..x+size-1, y), a vertical one (x, y..y+size-1).
type Ship struct {
	X          int
	Y          int
	SizeCells  int
	Horizontal bool
}

// Cells returns the cells the ship occupies, anchor first.
func (s Ship) Cells() []Cell {
	cells := make([]Cell, 0, s.SizeCells)
	for i := 0; i < s.SizeCells; i++ {
		if s.Horizontal {
			cells = append(cells, Cell{X: s.X + i, Y: s.Y})
		} else {
			cells = append(cells, Cell{X: s.X, Y: s.Y + i})
		}
	}
	return cells
}

// Covers reports whether the ship occupies (x, y).
func (s Ship) Covers(x, y int) bool {
	if s.Horizontal {
		return y == s.Y && x >= s.X && x < s.X+s.SizeCells
	}
	return x == s.X && y >= s.Y && y < s.Y+s.SizeCells
}

// InBounds reports whether the ship lies entirely on the board.
func (s Ship) InBounds() bool {
	if s.X < 0 || s.Y < 0 || s.SizeCells < 1 {
		return false
	}
	if s.Horizontal {
		return s.Y < Size && s.X+s.SizeCells <= Size
	}
	return s.X < Size && s.Y+s.SizeCells <= Size
}

// PlacementErrorKind distinguishes fleet validation failures.
type PlacementErrorKind int

const (
	WrongShipCount PlacementErrorKind = iota
	ShipTooLong
	ShipsAdjacent
	OutOfBounds
)

func (k PlacementErrorKind) String() string {
	switch k {
	case WrongShipCount:
		return "wrong ship count"
	case ShipTooLong:
		return "ship too long"
	case ShipsAdjacent:
		return "ships adjacent"
	case OutOfBounds:
		return "ship out of bounds"
	default:
		return "invalid placement"
	}
}

// PlacementError reports why a fleet is illegal, naming the offending cells.
type PlacementError struct {
	Kind  PlacementErrorKind
	Cells []Cell
}

func (e *PlacementError) Error() string {
	if len(e.Cells) == 0 {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s at %v", e.Kind, e.Cells)
}

// ValidateFleet verifies that ships form a legal complete fleet: every ship
// within bounds and at most MaxShipSize long, exactly the FleetComposition
// counts, and no two ships sharing an edge or corner (overlap included).
func ValidateFleet(ships []Ship) error {
	counts := make(map[int]int)
	for _, s := range ships {
		if s.SizeCells > MaxShipSize {
			return &PlacementError{Kind: ShipTooLong, Cells: s.Cells()}
		}
		if !s.InBounds() {
			return &PlacementError{Kind: OutOfBounds, Cells: s.Cells()}
		}
		counts[s.SizeCells]++
	}

	if err := checkSeparation(ships); err != nil {
		return err
	}

	for size, want := range FleetComposition {
		if counts[size] != want {
			return &PlacementError{Kind: WrongShipCount}
		}
	}
	return nil
}

// checkSeparation rejects any pair of ships that overlap or touch
// orthogonally or diagonally.
func checkSeparation(ships []Ship) error {
	for i := 0; i < len(ships); i++ {
		for j := i + 1; j < len(ships); j++ {
			for _, a := range ships[i].Cells() {
				for _, b := range ships[j].Cells() {
					if abs(a.X-b.X) <= 1 && abs(a.Y-b.Y) <= 1 {
						return &PlacementError{Kind: ShipsAdjacent, Cells: []Cell{a, b}}
					}
				}
			}
		}
	}
	return nil
}

// ClassifyShot classifies a shot at (x, y) against a single ship.
// priorHits is the count of earlier resolved hits on that ship's cells;
// the current shot is counted on top of it.
func ClassifyShot(s Ship, priorHits, x, y int) core.ShotResult {
	if !s.Covers(x, y) {
		return core.ShotMiss
	}
	if priorHits+1 >= s.SizeCells {
		return core.ShotSunk
	}
	return core.ShotHit
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
