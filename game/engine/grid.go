package engine

import "fmt"

// Grid is the settled-cell field, indexed [row][col].
type Grid [][]Cell

// NewGrid creates an empty rows×cols grid. Non-positive dimensions are a
// programming error.
func NewGrid(rows, cols int) Grid {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("engine: invalid grid size %dx%d", rows, cols))
	}
	grid := make(Grid, rows)
	for i := range grid {
		grid[i] = make([]Cell, cols)
	}
	return grid
}

// Rows returns the number of rows.
func (g Grid) Rows() int {
	return len(g)
}

// Cols returns the number of columns.
func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = make([]Cell, len(row))
		copy(out[i], row)
	}
	return out
}

// Collides reports whether shape anchored at pos overlaps a wall, the floor
// or a settled cell. Cells above row 0 are only checked against the side
// walls and the floor, which lets a piece spawn partly above the field.
func (g Grid) Collides(shape Shape, pos Position) bool {
	rows, cols := g.Rows(), g.Cols()
	for r, row := range shape {
		for c, cell := range row {
			if cell == Empty {
				continue
			}
			targetRow := pos.Row + r
			targetCol := pos.Col + c

			if targetRow >= rows || targetCol < 0 || targetCol >= cols {
				return true
			}
			if targetRow >= 0 && g[targetRow][targetCol] != Empty {
				return true
			}
		}
	}
	return false
}

// Collides is the free-function form of Grid.Collides.
func Collides(shape Shape, pos Position, grid Grid) bool {
	return grid.Collides(shape, pos)
}

// Lock writes the occupied cells of shape at pos into g. Cells that are
// still above the field are dropped.
func (g Grid) Lock(shape Shape, pos Position) {
	rows, cols := g.Rows(), g.Cols()
	for r, row := range shape {
		for c, cell := range row {
			if cell == Empty {
				continue
			}
			targetRow := pos.Row + r
			targetCol := pos.Col + c
			if targetRow < 0 || targetRow >= rows || targetCol < 0 || targetCol >= cols {
				continue
			}
			g[targetRow][targetCol] = cell
		}
	}
}

// IsRowFull reports whether row has no empty cell.
func (g Grid) IsRowFull(row int) bool {
	for _, cell := range g[row] {
		if cell == Empty {
			return false
		}
	}
	return true
}

// ClearLines returns a new grid with every full row removed and the same
// number of empty rows added on top. Remaining rows keep their order.
func (g Grid) ClearLines() Grid {
	rows, cols := g.Rows(), g.Cols()
	kept := make(Grid, 0, rows)
	for i, row := range g {
		if g.IsRowFull(i) {
			continue
		}
		kept = append(kept, append([]Cell(nil), row...))
	}

	cleared := rows - len(kept)
	out := make(Grid, 0, rows)
	for range cleared {
		out = append(out, make([]Cell, cols))
	}
	return append(out, kept...)
}

// OccupiedCount returns the number of non-empty cells.
func (g Grid) OccupiedCount() int {
	count := 0
	for _, row := range g {
		for _, cell := range row {
			if cell != Empty {
				count++
			}
		}
	}
	return count
}
