// Package config provides configuration management for Blockfall.
//
// The config package handles:
//   - Loading game configurations from JSON or YAML files
//   - Configuration validation and verification
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Game configurations are stored in the configs directory as .json, .yaml
// or .yml files. The file name without extension is the config ID used to
// create sessions. Each configuration defines:
//   - Field size (rows and cols)
//   - Drop interval in milliseconds, 0 for manual ticks
//   - An optional spawner seed for reproducible games
//   - Key bindings per action
//   - Welcome and game over messages
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("practice")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// The default is "classic" when present, otherwise the first valid file,
// otherwise engine.DefaultConfig.
package config
