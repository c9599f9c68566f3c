package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/blockfall/game/driver"
	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Act(ctx context.Context, sessionID, action string, reset bool) (*ActionResult, error)
	Move(ctx context.Context, sessionID string, dRow, dCol int) (*ActionResult, error)
	BulkAct(ctx context.Context, sessionID string, actions []string, reset bool) (*BulkActionResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session. All engine access goes
// through Driver.
type Session struct {
	ID        string
	Driver    *driver.Driver
	Config    *engine.GameConfig
	CreatedAt time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	stop         context.CancelFunc
}

// StartSession wraps eng in a driver and starts its loop. The loop stops
// when parent is cancelled or Close is called.
func StartSession(parent context.Context, id string, eng *engine.GameEngine, opts ...driver.Option) *Session {
	ctx, cancel := context.WithCancel(parent)
	d := driver.New(eng, opts...)
	go d.Run(ctx)

	now := time.Now()
	return &Session{
		ID:           id,
		Driver:       d,
		Config:       eng.GetConfig(),
		CreatedAt:    now,
		lastAccessed: now,
		stop:         cancel,
	}
}

// Touch records an access at t.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	s.lastAccessed = t
	s.mu.Unlock()
}

// LastAccessed returns the time of the most recent access.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Close stops the session's driver and waits for it to exit.
func (s *Session) Close() {
	if s.stop == nil {
		return
	}
	s.stop()
	<-s.Driver.Done()
}
