// Command analyze plays seeded headless games on each configuration in the
// configs directory and prints how long a simple bot survives: pieces
// spawned, gravity ticks and rows cleared before game over.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/mcp-training/blockfall/game/config"
	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

// GameResult summarises one simulated game.
type GameResult struct {
	Seed   uint64
	Pieces int
	Ticks  int
	Lines  int
	Capped bool // stopped at the piece limit, not by game over
}

// Summary aggregates the games played on one configuration.
type Summary struct {
	Config    string
	Rows      int
	Cols      int
	Games     int
	MinPieces int
	MaxPieces int
	AvgPieces float64
	AvgTicks  float64
	AvgLines  float64
	Capped    int
}

// Simulation holds the knobs shared by every game.
type Simulation struct {
	Strategy  Strategy
	Games     int
	BaseSeed  uint64
	MaxPieces int
}

// PlayGame runs one game to game over, or until maxPieces have spawned.
func PlayGame(cfg *engine.GameConfig, strategy Strategy, seed uint64, maxPieces int) (GameResult, error) {
	eng, err := engine.NewEngineWithSpawner(cfg, engine.NewRandomSpawner(seed))
	if err != nil {
		return GameResult{}, err
	}

	result := GameResult{Seed: seed}
	state := eng.GetState()
	cells := 0

	for !eng.IsGameOver() {
		if maxPieces > 0 && state.PiecesSpawned >= maxPieces {
			result.Capped = true
			break
		}

		active := eng.GetActivePiece()
		if plan, ok := strategy.Plan(state.Grid, active); ok {
			for i := 0; i < plan.Rotations; i++ {
				eng.Rotate()
			}
			step := 1
			if plan.DCol < 0 {
				step = -1
			}
			for i := 0; i != plan.DCol; i += step {
				eng.Move(0, step)
			}
		}

		cells = state.Grid.OccupiedCount() + len(active.Shape.Cells())
		for {
			outcome := eng.Tick()
			if outcome != engine.OutcomeMoved {
				break
			}
		}
		result.Lines += (cells - state.Grid.OccupiedCount()) / state.Grid.Cols()
	}

	result.Pieces = state.PiecesSpawned
	result.Ticks = state.Ticks
	return result, nil
}

// Run plays sim.Games games on cfg in parallel. Game i uses seed
// BaseSeed+i, so a run is reproducible.
func (sim Simulation) Run(ctx context.Context, cfg *engine.GameConfig) ([]GameResult, error) {
	results := make([]GameResult, sim.Games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < sim.Games; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := PlayGame(cfg, sim.Strategy, sim.BaseSeed+uint64(i), sim.MaxPieces)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summarize aggregates results for one configuration.
func Summarize(cfg *engine.GameConfig, results []GameResult) Summary {
	s := Summary{Config: cfg.Name, Rows: cfg.Rows, Cols: cfg.Cols, Games: len(results)}
	if len(results) == 0 {
		return s
	}

	s.MinPieces = results[0].Pieces
	var pieces, ticks, lines int
	for _, r := range results {
		pieces += r.Pieces
		ticks += r.Ticks
		lines += r.Lines
		if r.Pieces < s.MinPieces {
			s.MinPieces = r.Pieces
		}
		if r.Pieces > s.MaxPieces {
			s.MaxPieces = r.Pieces
		}
		if r.Capped {
			s.Capped++
		}
	}

	n := float64(len(results))
	s.AvgPieces = float64(pieces) / n
	s.AvgTicks = float64(ticks) / n
	s.AvgLines = float64(lines) / n
	return s
}

// loadConfigs resolves names through the config manager; no names means
// every configuration in the directory.
func loadConfigs(dir string, names []string) ([]*engine.GameConfig, error) {
	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
		sort.Strings(names)
	}

	configs := make([]*engine.GameConfig, 0, len(names))
	for _, name := range names {
		cfg, err := manager.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func printSummaries(summaries []Summary, strategy string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CONFIG\tFIELD\tGAMES\tPIECES (min/avg/max)\tTICKS (avg)\tLINES (avg)\tCAPPED\n")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%dx%d\t%d\t%d/%.1f/%d\t%.1f\t%.1f\t%d\n",
			s.Config, s.Rows, s.Cols, s.Games, s.MinPieces, s.AvgPieces, s.MaxPieces, s.AvgTicks, s.AvgLines, s.Capped)
	}
	w.Flush()
	fmt.Printf("\nstrategy: %s\n", strategy)

	for _, s := range summaries {
		if s.Games > 0 && s.MaxPieces <= 2 {
			fmt.Printf("⚠️  %s: games end within two pieces; check spawn fit\n", s.Config)
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Simulate seeded games on each configuration",
		ArgsUsage: "[config ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:  "games",
				Value: 20,
				Usage: "Games per configuration",
			},
			&cli.IntFlag{
				Name:  "seed",
				Value: 1,
				Usage: "Seed of the first game",
			},
			&cli.IntFlag{
				Name:  "max-pieces",
				Value: 1000,
				Usage: "Stop a game after this many pieces (0 = no limit)",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Value: "greedy",
				Usage: "Bot strategy: greedy or drop",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			strategy, err := NewStrategy(cmd.String("strategy"))
			if err != nil {
				return err
			}
			if cmd.Int("seed") < 1 {
				return fmt.Errorf("seed must be at least 1")
			}

			configs, err := loadConfigs(cmd.String("config-dir"), cmd.Args().Slice())
			if err != nil {
				return err
			}

			sim := Simulation{
				Strategy:  strategy,
				Games:     int(cmd.Int("games")),
				BaseSeed:  uint64(cmd.Int("seed")),
				MaxPieces: int(cmd.Int("max-pieces")),
			}

			summaries := make([]Summary, 0, len(configs))
			for _, cfg := range configs {
				results, err := sim.Run(ctx, cfg)
				if err != nil {
					return fmt.Errorf("%s: %w", cfg.Name, err)
				}
				summaries = append(summaries, Summarize(cfg, results))
			}

			printSummaries(summaries, strategy.Name())
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
