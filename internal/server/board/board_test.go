package board

import (
	"errors"
	"testing"

	"seabattle/internal/server/core"
)

// legalFleet returns a complete fleet with at least one empty cell between
// any two ships: 1x4, 2x3, 3x2, 4x1.
func legalFleet() []Ship {
	return []Ship{
		{X: 0, Y: 0, SizeCells: 4, Horizontal: true},
		{X: 5, Y: 0, SizeCells: 3, Horizontal: true},
		{X: 0, Y: 2, SizeCells: 3, Horizontal: true},
		{X: 4, Y: 2, SizeCells: 2, Horizontal: true},
		{X: 7, Y: 2, SizeCells: 2, Horizontal: true},
		{X: 0, Y: 4, SizeCells: 2, Horizontal: true},
		{X: 3, Y: 4, SizeCells: 1, Horizontal: true},
		{X: 5, Y: 4, SizeCells: 1, Horizontal: true},
		{X: 7, Y: 4, SizeCells: 1, Horizontal: true},
		{X: 9, Y: 4, SizeCells: 1, Horizontal: true},
	}
}

func TestShipCells(t *testing.T) {
	h := Ship{X: 2, Y: 5, SizeCells: 3, Horizontal: true}
	want := []Cell{{2, 5}, {3, 5}, {4, 5}}
	got := h.Cells()
	if len(got) != len(want) {
		t.Fatalf("expected %d cells, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	v := Ship{X: 9, Y: 7, SizeCells: 3, Horizontal: false}
	if !v.InBounds() {
		t.Errorf("vertical ship ending at y=9 should be in bounds, got out")
	}
	v.Y = 8
	if v.InBounds() {
		t.Errorf("vertical size-3 ship at y=8 extends past the board")
	}
}

func TestShipCovers(t *testing.T) {
	s := Ship{X: 3, Y: 3, SizeCells: 2, Horizontal: false}
	for _, c := range []Cell{{3, 3}, {3, 4}} {
		if !s.Covers(c.X, c.Y) {
			t.Errorf("expected ship to cover %v", c)
		}
	}
	for _, c := range []Cell{{3, 5}, {4, 3}, {2, 3}, {3, 2}} {
		if s.Covers(c.X, c.Y) {
			t.Errorf("expected ship not to cover %v", c)
		}
	}
}

func TestValidateFleetAcceptsLegal(t *testing.T) {
	if err := ValidateFleet(legalFleet()); err != nil {
		t.Fatalf("expected legal fleet to validate, got %v", err)
	}
}

func TestValidateFleetRejectsWrongCounts(t *testing.T) {
	// Drop one single-cell ship
	fleet := legalFleet()[:9]
	err := ValidateFleet(fleet)
	var perr *PlacementError
	if !errors.As(err, &perr) || perr.Kind != WrongShipCount {
		t.Fatalf("expected WrongShipCount, got %v", err)
	}

	// Swap a size-2 for an extra size-3, keeping it clear of its neighbours
	// so the count check is what fails.
	fleet = legalFleet()
	fleet[4] = Ship{X: 7, Y: 2, SizeCells: 3, Horizontal: true}
	err = ValidateFleet(fleet)
	if !errors.As(err, &perr) || perr.Kind != WrongShipCount {
		t.Fatalf("expected WrongShipCount, got %v", err)
	}
}

func TestValidateFleetRejectsTooLong(t *testing.T) {
	fleet := legalFleet()
	fleet[0] = Ship{X: 0, Y: 0, SizeCells: 5, Horizontal: true}
	err := ValidateFleet(fleet)
	var perr *PlacementError
	if !errors.As(err, &perr) || perr.Kind != ShipTooLong {
		t.Fatalf("expected ShipTooLong, got %v", err)
	}
}

func TestValidateFleetRejectsAdjacency(t *testing.T) {
	cases := []struct {
		name string
		a, b Ship
	}{
		{"shared edge", Ship{0, 0, 2, true}, Ship{0, 1, 2, true}},
		{"shared corner", Ship{0, 0, 2, true}, Ship{2, 1, 2, true}},
		{"overlap", Ship{0, 0, 3, true}, Ship{2, 0, 2, false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkSeparation([]Ship{tc.a, tc.b})
			var perr *PlacementError
			if !errors.As(err, &perr) || perr.Kind != ShipsAdjacent {
				t.Fatalf("expected ShipsAdjacent, got %v", err)
			}
			if len(perr.Cells) != 2 {
				t.Errorf("expected offending cell pair, got %v", perr.Cells)
			}
		})
	}
}

func TestValidateFleetRejectsOutOfBounds(t *testing.T) {
	fleet := legalFleet()
	fleet[9] = Ship{X: 9, Y: 9, SizeCells: 2, Horizontal: true}
	err := ValidateFleet(fleet)
	var perr *PlacementError
	if !errors.As(err, &perr) || perr.Kind != OutOfBounds {
		t.Fatalf("expected OutOfBounds, got %v", err)
	}
}

func TestClassifyShot(t *testing.T) {
	s := Ship{X: 0, Y: 0, SizeCells: 3, Horizontal: true}

	cases := []struct {
		name      string
		priorHits int
		x, y      int
		want      core.ShotResult
	}{
		{"off the ship", 0, 5, 5, core.ShotMiss},
		{"first hit", 0, 0, 0, core.ShotHit},
		{"second hit", 1, 1, 0, core.ShotHit},
		{"final hit sinks", 2, 2, 0, core.ShotSunk},
		{"same row wrong column", 0, 3, 0, core.ShotMiss},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyShot(s, tc.priorHits, tc.x, tc.y); got != tc.want {
				t.Errorf("ClassifyShot(%d, %d, %d) = %q, expected %q", tc.priorHits, tc.x, tc.y, got, tc.want)
			}
		})
	}
}

func TestClassifyShotSingleCell(t *testing.T) {
	s := Ship{X: 4, Y: 4, SizeCells: 1, Horizontal: false}
	if got := ClassifyShot(s, 0, 4, 4); got != core.ShotSunk {
		t.Errorf("single-cell ship should sink on first hit, got %q", got)
	}
}
