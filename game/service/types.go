package service

import (
	"time"

	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	DropIntervalMS int                `json:"drop_interval_ms"`
	GameState      *engine.Snapshot   `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// ActionResult contains the result of a single action
type ActionResult struct {
	Success   bool                `json:"success"` // the action changed the state
	Action    engine.Action       `json:"action"`
	Outcome   engine.Outcome      `json:"outcome"`
	GameState *engine.Snapshot    `json:"game_state"`
	Message   string              `json:"message"`
	Events    []GameEvent         `json:"events,omitempty"`
	Entry     *engine.ActionEntry `json:"entry,omitempty"`
}

// BulkActionResult contains the result of multiple actions
type BulkActionResult struct {
	// Summary
	RequestedActions int              `json:"requested_actions"`
	ActionsExecuted  int              `json:"actions_executed"`
	Success          bool             `json:"success"` // every executed action changed the state
	GameState        *engine.Snapshot `json:"game_state"`
	Events           []GameEvent      `json:"events"`
	StoppedReason    string           `json:"stopped_reason,omitempty"`
	StopReasonCode   string           `json:"stop_reason_code,omitempty"` // game_over
	StoppedOnAction  int              `json:"stopped_on_action,omitempty"`
	Truncated        bool             `json:"truncated,omitempty"`
	Limit            int              `json:"limit,omitempty"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Aggregates
	Rejected     int  `json:"rejected"`
	PiecesLocked int  `json:"pieces_locked"`
	GameOver     bool `json:"game_over"`

	Message string `json:"message,omitempty"`
}

// StepInfo is a compact record for each executed action in a bulk call
type StepInfo struct {
	Idx     int              `json:"idx"`
	Action  engine.Action    `json:"action"`
	Outcome engine.Outcome   `json:"outcome"`
	Piece   engine.ShapeName `json:"piece"`
	From    engine.Position  `json:"from"`
	To      engine.Position  `json:"to"`
	Spawned engine.ShapeName `json:"spawned,omitempty"`
}

// Event types
const (
	EventMoved    = "moved"
	EventRejected = "rejected"
	EventLocked   = "locked"
	EventSpawned  = "spawned"
	EventGameOver = "game_over"
	EventReset    = "reset"
)

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Piece     engine.ShapeName `json:"piece,omitempty"`
	Position  *engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Actions      []engine.ActionEntry `json:"actions"`
	TotalActions int                  `json:"total_actions"` // every action ever recorded
	Retained     int                  `json:"retained"`      // entries still held
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalPages   int                  `json:"total_pages"`
	HasNext      bool                 `json:"has_next"`
	HasPrevious  bool                 `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename       string `json:"filename"`
	ConfigID       string `json:"config_id"` // The identifier to use for session creation
	Name           string `json:"name"`      // Display name
	Description    string `json:"description"`
	Rows           int    `json:"rows"`
	Cols           int    `json:"cols"`
	DropIntervalMS int    `json:"drop_interval_ms"`
}
