package core

// ShotResult classifies the outcome of a shot as stored in the moves table
// and reported on the wire.
type ShotResult string

const (
	ShotMiss        ShotResult = "miss"
	ShotHit         ShotResult = "hit"
	ShotSunk        ShotResult = "sunk"
	ShotAlreadyShot ShotResult = "already_shot"
	ShotError       ShotResult = "error"
)

// Persistable reports whether the result is one that gets a moves row.
// already_shot and error are rejections, never stored.
func (r ShotResult) Persistable() bool {
	return r == ShotMiss || r == ShotHit || r == ShotSunk
}

// KeepsTurn reports whether the shooter retains the turn after this result.
func (r ShotResult) KeepsTurn() bool {
	return r == ShotHit || r == ShotSunk
}
