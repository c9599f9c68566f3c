package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Action is a named engine operation.
type Action string

const (
	ActionTick   Action = "tick"
	ActionLeft   Action = "left"
	ActionRight  Action = "right"
	ActionDown   Action = "down"
	ActionRotate Action = "rotate"
	ActionMove   Action = "move" // arbitrary offset, recorded by Move
	ActionReset  Action = "reset"
)

var ErrUnknownAction = errors.New("unknown action")

// Actions lists the actions a player or timer may send.
func Actions() []Action {
	return []Action{ActionLeft, ActionRight, ActionDown, ActionRotate, ActionTick}
}

// ParseAction converts a case-insensitive name into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionTick, ActionLeft, ActionRight, ActionDown, ActionRotate:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Delta returns the row/col offset for the directional actions.
func (a Action) Delta() (dRow, dCol int, ok bool) {
	switch a {
	case ActionLeft:
		return 0, -1, true
	case ActionRight:
		return 0, 1, true
	case ActionDown:
		return 1, 0, true
	}
	return 0, 0, false
}

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Snapshot() Snapshot
	Reset() *GameState
	IsGameOver() bool
	GetActivePiece() ActivePiece

	// Step machine
	Tick() Outcome
	Move(dRow, dCol int) Outcome
	Rotate() Outcome
	Apply(action Action) (Outcome, error)

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetHistory() []ActionEntry
	GetLastAction() *ActionEntry
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state   *GameState
	config  *GameConfig
	spawner Spawner
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return NewEngineWithSpawner(config, NewRandomSpawner(config.Seed))
}

// NewEngineWithSpawner creates an engine that draws pieces from spawner.
func NewEngineWithSpawner(config *GameConfig, spawner Spawner) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	if spawner == nil {
		return nil, fmt.Errorf("spawner cannot be nil")
	}

	engine := &GameEngine{
		config:  config,
		spawner: spawner,
	}
	engine.state = InitGameStateFromConfig(config, spawner)
	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults() *GameEngine {
	config := DefaultConfig()
	engine, err := NewEngine(config)
	if err != nil {
		panic(fmt.Sprintf("engine: default config invalid: %v", err))
	}
	return engine
}

// GetState returns the live game state. Callers must not retain it across
// goroutines; use Snapshot for that.
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a deep copy of the observable state
func (e *GameEngine) Snapshot() Snapshot {
	return e.state.Snapshot()
}

// Reset re-initialises the field and spawns a new piece. History is kept.
func (e *GameEngine) Reset() *GameState {
	prevHistory := e.state.History
	prevTotal := e.state.TotalActions

	e.state = InitGameStateFromConfig(e.config, e.spawner)

	e.state.History = prevHistory
	e.state.TotalActions = prevTotal
	e.state.AddActionToHistory(ActionReset, OutcomeReset, e.state.Active.Name,
		e.state.Active.Position, e.state.Active.Position, e.state.Active.Name)

	return e.state
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// GetActivePiece returns a copy of the falling piece
func (e *GameEngine) GetActivePiece() ActivePiece {
	return e.state.Active.Clone()
}

// Tick advances gravity by one row
func (e *GameEngine) Tick() Outcome {
	return e.record(ActionTick, func() Outcome {
		return e.state.Tick(e.spawner)
	})
}

// Move shifts the active piece by an arbitrary offset
func (e *GameEngine) Move(dRow, dCol int) Outcome {
	action := ActionMove
	switch {
	case dRow == 0 && dCol == -1:
		action = ActionLeft
	case dRow == 0 && dCol == 1:
		action = ActionRight
	case dRow == 1 && dCol == 0:
		action = ActionDown
	}
	return e.record(action, func() Outcome {
		return e.state.Move(dRow, dCol)
	})
}

// Rotate turns the active piece clockwise
func (e *GameEngine) Rotate() Outcome {
	return e.record(ActionRotate, e.state.Rotate)
}

// Apply executes a named action
func (e *GameEngine) Apply(action Action) (Outcome, error) {
	switch action {
	case ActionTick:
		return e.Tick(), nil
	case ActionRotate:
		return e.Rotate(), nil
	case ActionReset:
		e.Reset()
		return OutcomeReset, nil
	}
	if dRow, dCol, ok := action.Delta(); ok {
		return e.Move(dRow, dCol), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// BulkApply executes actions in sequence, stopping at game over or at the
// first unknown action.
func (e *GameEngine) BulkApply(actions []Action) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(actions))

	for _, action := range actions {
		if e.IsGameOver() {
			break
		}
		outcome, err := e.Apply(action)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	e.config = config
	e.state = InitGameStateFromConfig(config, e.spawner)
	return nil
}

// GetHistory returns the recorded actions, oldest first
func (e *GameEngine) GetHistory() []ActionEntry {
	return e.state.History
}

// GetLastAction returns the last recorded action, or nil if none
func (e *GameEngine) GetLastAction() *ActionEntry {
	if len(e.state.History) == 0 {
		return nil
	}
	return &e.state.History[len(e.state.History)-1]
}

// record runs op and appends a history entry. Ignored operations leave the
// state, history included, untouched.
func (e *GameEngine) record(action Action, op func() Outcome) Outcome {
	before := e.state.Active
	outcome := op()
	if outcome == OutcomeIgnored {
		return outcome
	}

	var spawned ShapeName
	toPos := e.state.Active.Position
	if outcome == OutcomeLocked || outcome == OutcomeGameOver {
		spawned = e.state.Active.Name
		toPos = before.Position
	}
	if outcome == OutcomeGameOver {
		e.state.Message = e.config.Messages.GameOver
	}

	e.state.AddActionToHistory(action, outcome, before.Name, before.Position, toPos, spawned)
	return outcome
}
