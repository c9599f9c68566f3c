package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default welcome and game over messages
const (
	DefaultWelcomeMessage  = "Blocks are falling. Clear full rows to keep the stack down!"
	DefaultGameOverMessage = "Game over! The stack reached the top."
)

// DefaultControls maps actions to key names: arrow keys and WASD.
func DefaultControls() map[string][]string {
	return map[string][]string{
		string(ActionLeft):   {"Left", "a"},
		string(ActionRight):  {"Right", "d"},
		string(ActionDown):   {"Down", "s"},
		string(ActionRotate): {"Up", "w"},
	}
}

// DefaultConfig returns the classic 20x10 field with a 500ms drop.
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:           "classic",
		Description:    "Classic 20x10 field with a 500ms drop",
		Rows:           DefaultRows,
		Cols:           DefaultCols,
		DropIntervalMS: DefaultDropMS,
		Controls:       DefaultControls(),
	}
	config.Messages.Welcome = DefaultWelcomeMessage
	config.Messages.GameOver = DefaultGameOverMessage
	return config
}

// ApplyDefaults fills zero-valued dimensions, controls and messages.
// DropIntervalMS is left alone since zero means manual ticks.
func ApplyDefaults(config *GameConfig) {
	if config.Rows == 0 {
		config.Rows = DefaultRows
	}
	if config.Cols == 0 {
		config.Cols = DefaultCols
	}
	if len(config.Controls) == 0 {
		config.Controls = DefaultControls()
	}
	if config.Messages.Welcome == "" {
		config.Messages.Welcome = DefaultWelcomeMessage
	}
	if config.Messages.GameOver == "" {
		config.Messages.GameOver = DefaultGameOverMessage
	}
}

// DropInterval returns the auto-drop period. Zero disables auto-drop.
func (c *GameConfig) DropInterval() time.Duration {
	return time.Duration(c.DropIntervalMS) * time.Millisecond
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	// Validate field size
	if config.Rows < MinRows || config.Rows > MaxRows {
		return fmt.Errorf("config validation: rows must be between %d and %d, got %d", MinRows, MaxRows, config.Rows)
	}
	if config.Cols < MinCols || config.Cols > MaxCols {
		return fmt.Errorf("config validation: cols must be between %d and %d, got %d", MinCols, MaxCols, config.Cols)
	}

	// Validate timing
	if config.DropIntervalMS < 0 || config.DropIntervalMS > MaxDropIntervalMS {
		return fmt.Errorf("config validation: drop_interval_ms must be between 0 and %d, got %d",
			MaxDropIntervalMS, config.DropIntervalMS)
	}

	// Validate controls
	boundTo := make(map[string]string)
	for action, keys := range config.Controls {
		if _, err := ParseAction(action); err != nil {
			return fmt.Errorf("config validation: controls has unknown action '%s'", action)
		}
		for _, key := range keys {
			if key == "" {
				return fmt.Errorf("config validation: controls['%s'] contains an empty key", action)
			}
			if prev, ok := boundTo[key]; ok && prev != action {
				return fmt.Errorf("config validation: key '%s' is bound to both '%s' and '%s'", key, prev, action)
			}
			boundTo[key] = action
		}
	}

	return nil
}

// SpawnWarnings reports shapes whose spawn position already collides on an
// empty field of this size. Such a config is valid but ends instantly when
// that shape is drawn.
func SpawnWarnings(config *GameConfig) []string {
	grid := NewGrid(config.Rows, config.Cols)
	pos := SpawnPosition(config.Cols)

	var warnings []string
	for _, name := range ShapeNames() {
		if grid.Collides(MustShape(name), pos) {
			warnings = append(warnings, fmt.Sprintf("shape %s does not fit at spawn column %d on a %d-wide field",
				name, pos.Col, config.Cols))
		}
	}
	return warnings
}

// ParseGameConfig decodes config data. YAML is used for .yaml/.yml names,
// JSON otherwise.
func ParseGameConfig(filename string, data []byte) (*GameConfig, error) {
	var config GameConfig
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}

	ApplyDefaults(&config)
	if config.Name == "" {
		config.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return &config, nil
}

// LoadGameConfig loads a game configuration from a JSON or YAML file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	config, err := ParseGameConfig(configPath, data)
	if err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// InitGameStateFromConfig creates a new game state using the provided configuration
func InitGameStateFromConfig(config *GameConfig, spawner Spawner) *GameState {
	if config == nil {
		config = DefaultConfig()
	}

	state := NewGameState(config.Rows, config.Cols, spawner)
	state.ConfigName = config.Name
	state.Message = config.Messages.Welcome
	if state.GameOver {
		state.Message = config.Messages.GameOver
	}
	return state
}
