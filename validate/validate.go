// Command validate checks the game configuration files in a directory
// (../configs by default). For each .json, .yaml or .yml file it checks:
//   - the file parses and has no unknown fields
//   - field size, drop interval and control bindings are within limits
//   - every shape fits at the spawn position of an empty field
//   - every steerable action has at least one key
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found. Warnings never make a
// file invalid.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// decodeStrict decodes data into config, rejecting fields the schema does
// not know about.
func decodeStrict(filePath string, data []byte, config *engine.GameConfig) error {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(config); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(config); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return nil
}

// validateConfig loads and validates a single configuration file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var raw engine.GameConfig
	if err := decodeStrict(filePath, data, &raw); err != nil {
		result.fail("%v", err)
		return result
	}

	// Fields the loader fills in are worth pointing out, not rejecting
	if raw.Name == "" {
		result.warn("name not set, the file name will be used")
	}
	if raw.Rows == 0 {
		result.warn("rows not set, defaulting to %d", engine.DefaultRows)
	}
	if raw.Cols == 0 {
		result.warn("cols not set, defaulting to %d", engine.DefaultCols)
	}
	if raw.Messages.Welcome == "" || raw.Messages.GameOver == "" {
		result.warn("messages incomplete, defaults will be used")
	}

	config, err := engine.ParseGameConfig(filePath, data)
	if err != nil {
		result.fail("Failed to parse: %v", err)
		return result
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), "config validation: "))
		return result
	}

	for _, w := range engine.SpawnWarnings(config) {
		result.warn("%s", w)
	}

	for _, action := range []engine.Action{engine.ActionLeft, engine.ActionRight, engine.ActionDown, engine.ActionRotate} {
		if len(config.Controls[string(action)]) == 0 {
			result.warn("action '%s' has no key binding", action)
		}
	}

	drop := "manual ticks"
	if config.DropIntervalMS > 0 {
		drop = fmt.Sprintf("%dms", config.DropIntervalMS)
	}
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Field: %dx%d", config.Rows, config.Cols))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Drop: %s", drop))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Spawn column: %d", engine.SpawnPosition(config.Cols).Col))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Controls: %d actions bound", len(config.Controls)))
	if config.Seed != 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Seed: %d", config.Seed))
	}

	return result
}

// configFiles lists the configuration files in dir, sorted by name.
func configFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// validateDir validates every configuration in dir, prints a report and
// reports whether all of them are valid.
func validateDir(dir string) (bool, error) {
	files, err := configFiles(dir)
	if err != nil {
		return false, fmt.Errorf("error finding config files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no config files found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
		for _, w := range result.Warnings {
			fmt.Println("  ⚠️  " + w)
		}
	}

	return allValid, nil
}

// main validates every config in the directory, printing a concise report
// and exiting with non-zero status if any are invalid.
func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate Blockfall configuration files",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "../configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("config-dir")
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}

			allValid, err := validateDir(dir)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			fmt.Printf("\n%s\n", strings.Repeat("=", 40))
			if !allValid {
				return cli.Exit("❌ Some configurations have errors", 1)
			}
			fmt.Println("✅ All configurations are valid!")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
