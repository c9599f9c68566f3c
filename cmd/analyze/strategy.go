package main

import (
	"fmt"

	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

// Placement is a plan for the active piece: rotate, shift, then tick until
// it locks.
type Placement struct {
	Rotations int
	DCol      int
	Score     float64
	Lines     int
}

// Strategy decides where the active piece should go.
type Strategy interface {
	Name() string
	Plan(grid engine.Grid, active engine.ActivePiece) (Placement, bool)
}

// NewStrategy returns the strategy registered under name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "greedy":
		return GreedyStrategy{}, nil
	case "drop":
		return DropStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (use greedy or drop)", name)
}

// DropStrategy never steers; pieces fall where they spawn.
type DropStrategy struct{}

func (DropStrategy) Name() string { return "drop" }

func (DropStrategy) Plan(grid engine.Grid, active engine.ActivePiece) (Placement, bool) {
	return Placement{}, true
}

// Heuristic weights for GreedyStrategy.
const (
	weightHeight    = -0.51
	weightLines     = 0.76
	weightHoles     = -0.36
	weightBumpiness = -0.18
)

// GreedyStrategy tries every rotation and reachable column from the spawn
// row and keeps the placement whose resulting field scores best.
type GreedyStrategy struct{}

func (GreedyStrategy) Name() string { return "greedy" }

func (GreedyStrategy) Plan(grid engine.Grid, active engine.ActivePiece) (Placement, bool) {
	var best Placement
	found := false

	shape := active.Shape
	pos := active.Position
	for r := 0; r < 4; r++ {
		if r > 0 {
			shape = engine.Rotate(shape)
			if grid.Collides(shape, pos) {
				break
			}
		}

		for _, step := range []int{-1, 1} {
			for dCol := 0; ; dCol += step {
				if dCol == 0 && step == 1 {
					continue
				}
				at := pos.Add(0, dCol)
				if grid.Collides(shape, at) {
					break
				}

				score, lines := evaluate(grid, shape, at)
				if !found || score > best.Score {
					best = Placement{Rotations: r, DCol: dCol, Score: score, Lines: lines}
					found = true
				}
			}
		}
	}

	return best, found
}

// evaluate drops shape from at, locks it on a copy of grid and scores the
// result. It also returns the number of rows the lock clears.
func evaluate(grid engine.Grid, shape engine.Shape, at engine.Position) (float64, int) {
	for !grid.Collides(shape, at.Add(1, 0)) {
		at = at.Add(1, 0)
	}

	field := grid.Clone()
	field.Lock(shape, at)
	before := field.OccupiedCount()
	field = field.ClearLines()
	lines := (before - field.OccupiedCount()) / field.Cols()

	heights := engine.ColumnHeights(field)
	aggregate, bumpiness := 0, 0
	for c, h := range heights {
		aggregate += h
		if c > 0 {
			bumpiness += abs(h - heights[c-1])
		}
	}

	return weightHeight*float64(aggregate) +
		weightLines*float64(lines) +
		weightHoles*float64(countHoles(field)) +
		weightBumpiness*float64(bumpiness), lines
}

// countHoles counts empty cells with a settled cell somewhere above them.
func countHoles(grid engine.Grid) int {
	holes := 0
	for c := 0; c < grid.Cols(); c++ {
		covered := false
		for r := 0; r < grid.Rows(); r++ {
			if grid[r][c] != engine.Empty {
				covered = true
			} else if covered {
				holes++
			}
		}
	}
	return holes
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
