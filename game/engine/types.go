package engine

// Cell is a single grid square. Zero is empty, any other value is occupied.
type Cell int

const (
	Empty  Cell = 0
	Filled Cell = 1

	// Validation constants
	MinRows             = 4
	MaxRows             = 100
	MinCols             = 4
	MaxCols             = 100
	MaxDropIntervalMS   = 10000
	MaxBulkActions      = 50
	MaxHistoryEntries   = 1000
	DefaultRows         = 20
	DefaultCols         = 10
	DefaultDropMS       = 500
	WebSocketBufferSize = 256
)

// Position is the top-left anchor of a piece's bounding box within the grid.
// Row and Col may be negative or out of range while a move is only proposed.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Add returns p offset by dRow, dCol.
func (p Position) Add(dRow, dCol int) Position {
	return Position{Row: p.Row + dRow, Col: p.Col + dCol}
}

// ActivePiece is the falling shape and where it sits.
type ActivePiece struct {
	Name     ShapeName `json:"name"`
	Shape    Shape     `json:"shape"`
	Position Position  `json:"position"`
}

// Clone returns a deep copy of the piece.
func (p ActivePiece) Clone() ActivePiece {
	return ActivePiece{Name: p.Name, Shape: p.Shape.Clone(), Position: p.Position}
}

// Status is the step machine state.
type Status string

const (
	StatusRunning  Status = "running"
	StatusGameOver Status = "game_over"
)

// Outcome reports what a single engine operation did.
type Outcome string

const (
	OutcomeMoved    Outcome = "moved"    // piece moved, rotated or fell one row
	OutcomeRejected Outcome = "rejected" // blocked; state unchanged
	OutcomeLocked   Outcome = "locked"   // piece landed and a new one spawned
	OutcomeGameOver Outcome = "game_over"
	OutcomeIgnored  Outcome = "ignored" // game already over
	OutcomeReset    Outcome = "reset"
)

// Changed reports whether the outcome mutated the state.
func (o Outcome) Changed() bool {
	switch o {
	case OutcomeMoved, OutcomeLocked, OutcomeGameOver, OutcomeReset:
		return true
	}
	return false
}

// GameConfig is the game configuration loaded from JSON or YAML.
type GameConfig struct {
	Name           string              `json:"name" yaml:"name"`
	Description    string              `json:"description" yaml:"description"`
	Rows           int                 `json:"rows" yaml:"rows"`
	Cols           int                 `json:"cols" yaml:"cols"`
	DropIntervalMS int                 `json:"drop_interval_ms" yaml:"drop_interval_ms"`
	Seed           uint64              `json:"seed,omitempty" yaml:"seed,omitempty"`
	Controls       map[string][]string `json:"controls,omitempty" yaml:"controls,omitempty"`
	Messages       struct {
		Welcome  string `json:"welcome" yaml:"welcome"`
		GameOver string `json:"game_over" yaml:"game_over"`
	} `json:"messages" yaml:"messages"`
}

// GameState is the complete mutable game state.
type GameState struct {
	Grid          Grid        `json:"grid"`
	Active        ActivePiece `json:"active"`
	GameOver      bool        `json:"game_over"`
	Message       string      `json:"message"`
	ConfigName    string      `json:"config_name"`
	PiecesSpawned int         `json:"pieces_spawned"`
	Ticks         int         `json:"ticks"`

	// History is cumulative across resets; TotalActions counts every
	// recorded action even after old entries are trimmed.
	History      []ActionEntry `json:"history,omitempty"`
	TotalActions int           `json:"total_actions"`
}

// Snapshot is a read-only copy of the observable state handed to renderers.
type Snapshot struct {
	Rows          int         `json:"rows"`
	Cols          int         `json:"cols"`
	Grid          Grid        `json:"grid"`
	Active        ActivePiece `json:"active"`
	GameOver      bool        `json:"game_over"`
	Status        Status      `json:"status"`
	Message       string      `json:"message"`
	ConfigName    string      `json:"config_name"`
	PiecesSpawned int         `json:"pieces_spawned"`
	Ticks         int         `json:"ticks"`
	TotalActions  int         `json:"total_actions"`

	// Board is a rendered view: '.' empty, '#' settled, '@' active piece.
	Board []string `json:"board,omitempty"`
}

// ActionEntry is one recorded engine operation.
type ActionEntry struct {
	Action       Action    `json:"action"`
	Outcome      Outcome   `json:"outcome"`
	Piece        ShapeName `json:"piece"`
	FromPosition Position  `json:"from_position"`
	ToPosition   Position  `json:"to_position"`
	Spawned      ShapeName `json:"spawned,omitempty"`
	Timestamp    int64     `json:"timestamp"`
	ActionNumber int       `json:"action_number"`
}
