package engine

import "time"

// NewGameState creates an empty rows×cols field with a freshly spawned piece.
func NewGameState(rows, cols int, spawner Spawner) *GameState {
	gs := &GameState{
		Grid:    NewGrid(rows, cols),
		History: []ActionEntry{},
	}
	gs.Active = Spawn(spawner, cols)
	gs.PiecesSpawned = 1
	if gs.Grid.Collides(gs.Active.Shape, gs.Active.Position) {
		gs.GameOver = true
	}
	return gs
}

// Status returns the step machine state.
func (gs *GameState) Status() Status {
	if gs.GameOver {
		return StatusGameOver
	}
	return StatusRunning
}

// CanPlace checks if shape fits at pos on the current grid
func (gs *GameState) CanPlace(shape Shape, pos Position) bool {
	return !gs.Grid.Collides(shape, pos)
}

// Tick applies gravity. A piece that can fall moves down one row; a piece
// that cannot is locked, full rows are cleared and the next piece spawns.
// Game over is decided against the grid after the lock and the clear.
func (gs *GameState) Tick(spawner Spawner) Outcome {
	if gs.GameOver {
		return OutcomeIgnored
	}
	gs.Ticks++

	next := gs.Active.Position.Add(1, 0)
	if gs.CanPlace(gs.Active.Shape, next) {
		gs.Active.Position = next
		return OutcomeMoved
	}

	gs.Grid.Lock(gs.Active.Shape, gs.Active.Position)
	gs.Grid = gs.Grid.ClearLines()

	gs.Active = Spawn(spawner, gs.Grid.Cols())
	gs.PiecesSpawned++
	if !gs.CanPlace(gs.Active.Shape, gs.Active.Position) {
		gs.GameOver = true
		return OutcomeGameOver
	}
	return OutcomeLocked
}

// Move shifts the active piece by dRow, dCol if the target is free.
func (gs *GameState) Move(dRow, dCol int) Outcome {
	if gs.GameOver {
		return OutcomeIgnored
	}
	next := gs.Active.Position.Add(dRow, dCol)
	if !gs.CanPlace(gs.Active.Shape, next) {
		return OutcomeRejected
	}
	gs.Active.Position = next
	return OutcomeMoved
}

// Rotate turns the active piece clockwise in place. There is no kick: a
// rotation that collides at the current position is rejected.
func (gs *GameState) Rotate() Outcome {
	if gs.GameOver {
		return OutcomeIgnored
	}
	rotated := Rotate(gs.Active.Shape)
	if !gs.CanPlace(rotated, gs.Active.Position) {
		return OutcomeRejected
	}
	gs.Active.Shape = rotated
	return OutcomeMoved
}

// AddActionToHistory records an action, trimming the oldest entries once
// MaxHistoryEntries is exceeded.
func (gs *GameState) AddActionToHistory(action Action, outcome Outcome, piece ShapeName, fromPos, toPos Position, spawned ShapeName) {
	entry := ActionEntry{
		Action:       action,
		Outcome:      outcome,
		Piece:        piece,
		FromPosition: fromPos,
		ToPosition:   toPos,
		Spawned:      spawned,
		Timestamp:    time.Now().Unix(),
		ActionNumber: gs.TotalActions + 1,
	}
	gs.History = append(gs.History, entry)
	gs.TotalActions++

	if over := len(gs.History) - MaxHistoryEntries; over > 0 {
		gs.History = append([]ActionEntry(nil), gs.History[over:]...)
	}
}
