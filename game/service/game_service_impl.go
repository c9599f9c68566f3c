package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wricardo/mcp-training/blockfall/game/driver"
	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

// gameServiceImpl implements the GameService interface. It holds no lock of
// its own: each session's driver serialises access to that session's engine.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	// Load configuration
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Prefer the requested identifier, otherwise look it up by display name
	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	return s.sessionInfo(ctx, session, configID)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(ctx, session, s.getConfigID(session.Config.Name))
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		info, err := s.sessionInfo(ctx, sess, s.getConfigID(sess.Config.Name))
		if err != nil {
			if errors.Is(err, driver.ErrStopped) {
				// deleted while we were listing
				continue
			}
			return nil, err
		}
		result = append(result, info)
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// Act executes a single named action for a session
func (s *gameServiceImpl) Act(ctx context.Context, sessionID, action string, reset bool) (*ActionResult, error) {
	parsed, err := engine.ParseAction(action)
	if err != nil {
		return nil, err
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if !reset {
		res, err := sess.Driver.Apply(ctx, parsed)
		if err != nil {
			return nil, err
		}
		return newActionResult(parsed, res), nil
	}

	// Reset and action share one driver turn so no tick lands in between
	results, err := sess.Driver.ApplyAll(ctx, engine.ActionReset, parsed)
	if err != nil {
		return nil, err
	}
	resetRes, res := results[0], results[1]

	result := newActionResult(parsed, res)
	result.Events = append(eventsFor(engine.ActionReset, resetRes.Outcome, resetRes.Entry, time.Now()), result.Events...)
	return result, nil
}

// Move shifts the active piece by an arbitrary offset
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, dRow, dCol int) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Driver.Move(ctx, dRow, dCol)
	if err != nil {
		return nil, err
	}

	action := engine.ActionMove
	if res.Entry != nil {
		action = res.Entry.Action
	}
	return newActionResult(action, res), nil
}

// BulkAct executes up to engine.MaxBulkActions actions in one driver
// turn, so no timer tick can interleave. Execution stops at game over.
func (s *gameServiceImpl) BulkAct(ctx context.Context, sessionID string, actions []string, reset bool) (*BulkActionResult, error) {
	parsed := make([]engine.Action, 0, len(actions))
	for i, a := range actions {
		action, err := engine.ParseAction(a)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		parsed = append(parsed, action)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkActionResult{
		RequestedActions: len(parsed),
		Events:           make([]GameEvent, 0),
		Success:          true,
	}

	// Limit actions to prevent abuse
	if len(parsed) > engine.MaxBulkActions {
		result.Truncated = true
		result.Limit = engine.MaxBulkActions
		parsed = parsed[:engine.MaxBulkActions]
	}

	err = sess.Driver.Do(ctx, func(eng *engine.GameEngine) bool {
		changed := false
		if reset {
			eng.Reset()
			changed = true
			result.Events = append(result.Events, eventsFor(engine.ActionReset, engine.OutcomeReset, eng.GetLastAction(), time.Now())...)
		}

		for i, action := range parsed {
			if eng.IsGameOver() {
				result.StoppedReason = fmt.Sprintf("game over before action %d", i+1)
				result.StopReasonCode = "game_over"
				result.StoppedOnAction = i + 1
				break
			}

			outcome, err := eng.Apply(action)
			if err != nil {
				// parsed above, cannot happen
				log.Printf("[SERVICE] bulk action %q failed: %v", action, err)
				break
			}
			result.ActionsExecuted++

			entry := eng.GetLastAction()
			result.Events = append(result.Events, eventsFor(action, outcome, entry, time.Now())...)
			if entry != nil {
				result.Steps = append(result.Steps, StepInfo{
					Idx:     i + 1,
					Action:  action,
					Outcome: outcome,
					Piece:   entry.Piece,
					From:    entry.FromPosition,
					To:      entry.ToPosition,
					Spawned: entry.Spawned,
				})
			}

			switch outcome {
			case engine.OutcomeRejected:
				result.Rejected++
				result.Success = false
			case engine.OutcomeLocked, engine.OutcomeGameOver:
				result.PiecesLocked++
			}
			if outcome.Changed() {
				changed = true
			}
		}

		snap := eng.Snapshot()
		result.GameState = &snap
		result.GameOver = snap.GameOver
		result.Message = snap.Message
		return changed
	})
	if err != nil {
		return nil, err
	}

	if result.GameOver && result.StopReasonCode == "" {
		result.StopReasonCode = "game_over"
	}

	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Driver.Reset(ctx)
	if err != nil {
		return nil, err
	}
	return &res.Snapshot, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	snap, err := sess.Driver.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetActionHistory returns paginated action history
func (s *gameServiceImpl) GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var (
		history []engine.ActionEntry
		total   int
	)
	err = sess.Driver.Do(ctx, func(eng *engine.GameEngine) bool {
		history = append([]engine.ActionEntry(nil), eng.GetHistory()...)
		total = eng.GetState().TotalActions
		return false
	})
	if err != nil {
		return nil, err
	}

	retained := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (retained + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > retained {
		end = retained
	}

	var actions []engine.ActionEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := retained - 1 - start; i >= 0 && i >= retained-end; i-- {
			actions = append(actions, history[i])
		}
	} else if start < retained {
		actions = history[start:end]
	}

	if actions == nil {
		actions = []engine.ActionEntry{}
	}

	return &HistoryResponse{
		Actions:      actions,
		TotalActions: total,
		Retained:     retained,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// session looks up a session and marks it as accessed
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) sessionInfo(ctx context.Context, sess *Session, configID string) (*SessionInfo, error) {
	snap, err := sess.Driver.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		DropIntervalMS: int(sess.Driver.DropInterval().Milliseconds()),
		GameState:      &snap,
		GameConfig:     sess.Config,
	}, nil
}

func newActionResult(action engine.Action, res driver.Result) *ActionResult {
	snap := res.Snapshot
	return &ActionResult{
		Success:   res.Outcome.Changed(),
		Action:    action,
		Outcome:   res.Outcome,
		GameState: &snap,
		Message:   snap.Message,
		Events:    eventsFor(action, res.Outcome, res.Entry, time.Now()),
		Entry:     res.Entry,
	}
}

// eventsFor expands one outcome into the events it implies. A lock that
// spawns a piece yields both "locked" and "spawned"; a lock whose spawn
// collides yields "locked" and "game_over".
func eventsFor(action engine.Action, outcome engine.Outcome, entry *engine.ActionEntry, now time.Time) []GameEvent {
	var piece engine.ShapeName
	var from, to *engine.Position
	if entry != nil {
		piece = entry.Piece
		f, t := entry.FromPosition, entry.ToPosition
		from, to = &f, &t
	}

	switch outcome {
	case engine.OutcomeMoved:
		msg := fmt.Sprintf("%s: %s moved", action, piece)
		if to != nil {
			msg = fmt.Sprintf("%s: %s to (%d,%d)", action, piece, to.Row, to.Col)
		}
		return []GameEvent{{Type: EventMoved, Message: msg, Timestamp: now, Piece: piece, Position: to}}

	case engine.OutcomeRejected:
		return []GameEvent{{Type: EventRejected, Message: fmt.Sprintf("%s blocked", action), Timestamp: now, Piece: piece, Position: from}}

	case engine.OutcomeLocked, engine.OutcomeGameOver:
		events := []GameEvent{{Type: EventLocked, Message: fmt.Sprintf("%s locked", piece), Timestamp: now, Piece: piece, Position: from}}
		var spawned engine.ShapeName
		if entry != nil {
			spawned = entry.Spawned
		}
		if outcome == engine.OutcomeGameOver {
			return append(events, GameEvent{Type: EventGameOver, Message: fmt.Sprintf("%s does not fit at spawn", spawned), Timestamp: now, Piece: spawned})
		}
		return append(events, GameEvent{Type: EventSpawned, Message: fmt.Sprintf("%s spawned", spawned), Timestamp: now, Piece: spawned})

	case engine.OutcomeReset:
		return []GameEvent{{Type: EventReset, Message: "Game reset to initial state", Timestamp: now, Piece: piece}}
	}
	return nil
}
