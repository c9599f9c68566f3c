package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createValidConfig() *GameConfig {
	config := &GameConfig{
		Name:           "Test Config",
		Description:    "A valid test configuration",
		Rows:           8,
		Cols:           6,
		DropIntervalMS: 0,
		Controls: map[string][]string{
			"left":   {"Left"},
			"right":  {"Right"},
			"down":   {"Down"},
			"rotate": {"Up"},
		},
	}
	config.Messages.Welcome = "Welcome to the test game!"
	config.Messages.GameOver = "Topped out!"
	return config
}

func TestValidateGameConfig_ValidConfig(t *testing.T) {
	config := createValidConfig()
	if err := ValidateGameConfig(config); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidateGameConfig_DefaultConfig(t *testing.T) {
	if err := ValidateGameConfig(DefaultConfig()); err != nil {
		t.Errorf("Expected default config to pass validation, got error: %v", err)
	}
}

func TestValidateGameConfig_Nil(t *testing.T) {
	if err := ValidateGameConfig(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestValidateGameConfig_MissingName(t *testing.T) {
	config := createValidConfig()
	config.Name = ""

	err := ValidateGameConfig(config)
	if err == nil {
		t.Fatal("Expected error for missing name")
	}
	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("Expected name error, got: %v", err)
	}
}

func TestValidateGameConfig_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name string
		rows int
		cols int
		want string
	}{
		{"too few rows", 3, 10, "rows must be between"},
		{"too many rows", 101, 10, "rows must be between"},
		{"too few cols", 20, 3, "cols must be between"},
		{"too many cols", 20, 101, "cols must be between"},
		{"zero rows", 0, 10, "rows must be between"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidConfig()
			config.Rows = tt.rows
			config.Cols = tt.cols

			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatalf("Expected error for %dx%d", tt.rows, tt.cols)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidateGameConfig_DropInterval(t *testing.T) {
	config := createValidConfig()

	config.DropIntervalMS = -1
	if err := ValidateGameConfig(config); err == nil {
		t.Error("Expected error for negative drop interval")
	}

	config.DropIntervalMS = MaxDropIntervalMS + 1
	if err := ValidateGameConfig(config); err == nil {
		t.Error("Expected error for drop interval above maximum")
	}

	config.DropIntervalMS = MaxDropIntervalMS
	if err := ValidateGameConfig(config); err != nil {
		t.Errorf("Expected maximum drop interval to be valid, got: %v", err)
	}
}

func TestValidateGameConfig_Controls(t *testing.T) {
	config := createValidConfig()
	config.Controls["jump"] = []string{"Space"}
	err := ValidateGameConfig(config)
	if err == nil || !strings.Contains(err.Error(), "unknown action") {
		t.Errorf("Expected unknown action error, got: %v", err)
	}

	config = createValidConfig()
	config.Controls["rotate"] = []string{"Left"}
	err = ValidateGameConfig(config)
	if err == nil || !strings.Contains(err.Error(), "bound to both") {
		t.Errorf("Expected duplicate key error, got: %v", err)
	}

	config = createValidConfig()
	config.Controls["down"] = []string{""}
	if err := ValidateGameConfig(config); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestSpawnWarnings(t *testing.T) {
	config := createValidConfig()
	if warnings := SpawnWarnings(config); len(warnings) != 0 {
		t.Errorf("Expected no warnings for 6 columns, got %v", warnings)
	}

	// On a 4-wide field the spawn column is 1, so the 4-wide I piece
	// overhangs the right wall.
	config.Cols = 4
	warnings := SpawnWarnings(config)
	if len(warnings) != 1 || !strings.Contains(warnings[0], "shape I") {
		t.Errorf("Expected a single I warning, got %v", warnings)
	}
}

func TestApplyDefaults(t *testing.T) {
	config := &GameConfig{Name: "sparse"}
	ApplyDefaults(config)

	if config.Rows != DefaultRows || config.Cols != DefaultCols {
		t.Errorf("Expected %dx%d, got %dx%d", DefaultRows, DefaultCols, config.Rows, config.Cols)
	}
	if config.DropIntervalMS != 0 {
		t.Errorf("Expected drop interval to stay 0, got %d", config.DropIntervalMS)
	}
	if len(config.Controls) != 4 {
		t.Errorf("Expected default controls, got %v", config.Controls)
	}
	if config.Messages.Welcome == "" || config.Messages.GameOver == "" {
		t.Error("Expected default messages to be filled")
	}
}

func TestLoadGameConfig(t *testing.T) {
	dir := t.TempDir()

	jsonFile := filepath.Join(dir, "test_config.json")
	jsonContent := `{
		"name": "Test Config",
		"description": "Test description",
		"rows": 12,
		"cols": 8,
		"drop_interval_ms": 250,
		"seed": 42,
		"messages": {
			"welcome": "Welcome!",
			"game_over": "Done!"
		}
	}`
	if err := os.WriteFile(jsonFile, []byte(jsonContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := LoadGameConfig(jsonFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.Name != "Test Config" {
		t.Errorf("Expected config name 'Test Config', got '%s'", config.Name)
	}
	if config.Rows != 12 || config.Cols != 8 {
		t.Errorf("Expected 12x8, got %dx%d", config.Rows, config.Cols)
	}
	if config.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", config.Seed)
	}
	if config.DropInterval().Milliseconds() != 250 {
		t.Errorf("Expected 250ms drop interval, got %v", config.DropInterval())
	}

	yamlFile := filepath.Join(dir, "practice.yaml")
	yamlContent := `name: practice
description: Manual ticks only
rows: 10
cols: 6
drop_interval_ms: 0
controls:
  left: [Left]
  right: [Right]
  down: [Down]
  rotate: [Up]
  tick: [" "]
`
	if err := os.WriteFile(yamlFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to create yaml config file: %v", err)
	}

	config, err = LoadGameConfig(yamlFile)
	if err != nil {
		t.Fatalf("Failed to load yaml config: %v", err)
	}
	if config.Name != "practice" || config.Rows != 10 || config.Cols != 6 {
		t.Errorf("Unexpected yaml config: %+v", config)
	}
	if config.Messages.Welcome != DefaultWelcomeMessage {
		t.Errorf("Expected default welcome message, got %q", config.Messages.Welcome)
	}

	// Test loading non-existent file
	if _, err := LoadGameConfig(filepath.Join(dir, "nonexistent.json")); err == nil {
		t.Error("Expected error for non-existent file")
	}

	// Test loading an invalid config
	badFile := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badFile, []byte(`{"name":"bad","rows":2,"cols":10}`), 0644); err != nil {
		t.Fatalf("Failed to create bad config file: %v", err)
	}
	if _, err := LoadGameConfig(badFile); err == nil {
		t.Error("Expected validation error for 2-row config")
	}
}

func TestLoadGameConfig_ConfigDirEnv(t *testing.T) {
	dir := t.TempDir()
	content := `{"name": "env", "rows": 10, "cols": 10}`
	if err := os.WriteFile(filepath.Join(dir, "env.json"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}
	t.Setenv("CONFIG_DIR", dir)

	config, err := LoadGameConfig("configs/env.json")
	if err != nil {
		t.Fatalf("Failed to load config via CONFIG_DIR: %v", err)
	}
	if config.Name != "env" {
		t.Errorf("Expected name 'env', got %q", config.Name)
	}
}

func TestParseGameConfig_NameFromFilename(t *testing.T) {
	config, err := ParseGameConfig("narrow.yml", []byte("cols: 6\n"))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	if config.Name != "narrow" {
		t.Errorf("Expected name from filename, got %q", config.Name)
	}
	if config.Cols != 6 || config.Rows != DefaultRows {
		t.Errorf("Expected %dx6, got %dx%d", DefaultRows, config.Rows, config.Cols)
	}
}

func TestInitGameStateFromConfig(t *testing.T) {
	config := createValidConfig()
	state := InitGameStateFromConfig(config, NewSequenceSpawner(ShapeT))

	if state.Grid.Rows() != config.Rows || state.Grid.Cols() != config.Cols {
		t.Errorf("Expected %dx%d grid, got %dx%d", config.Rows, config.Cols, state.Grid.Rows(), state.Grid.Cols())
	}
	if state.Message != config.Messages.Welcome {
		t.Errorf("Expected welcome message, got %q", state.Message)
	}
	if state.ConfigName != config.Name {
		t.Errorf("Expected config name %q, got %q", config.Name, state.ConfigName)
	}
	if state.Active.Name != ShapeT {
		t.Errorf("Expected T piece, got %s", state.Active.Name)
	}
	if state.Active.Position != SpawnPosition(config.Cols) {
		t.Errorf("Expected spawn position %v, got %v", SpawnPosition(config.Cols), state.Active.Position)
	}

	// nil config falls back to defaults
	state = InitGameStateFromConfig(nil, NewSequenceSpawner(ShapeO))
	if state.Grid.Rows() != DefaultRows || state.Grid.Cols() != DefaultCols {
		t.Errorf("Expected default grid, got %dx%d", state.Grid.Rows(), state.Grid.Cols())
	}
}
