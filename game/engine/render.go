package engine

import "strings"

// Board characters used by RenderBoard.
const (
	BoardEmpty   = '.'
	BoardSettled = '#'
	BoardActive  = '@'
)

// Snapshot returns a deep copy of the observable state.
func (gs *GameState) Snapshot() Snapshot {
	return Snapshot{
		Rows:          gs.Grid.Rows(),
		Cols:          gs.Grid.Cols(),
		Grid:          gs.Grid.Clone(),
		Active:        gs.Active.Clone(),
		GameOver:      gs.GameOver,
		Status:        gs.Status(),
		Message:       gs.Message,
		ConfigName:    gs.ConfigName,
		PiecesSpawned: gs.PiecesSpawned,
		Ticks:         gs.Ticks,
		TotalActions:  gs.TotalActions,
		Board:         RenderBoard(gs.Grid, gs.Active),
	}
}

// RenderBoard draws the grid with the active piece overlaid, one string per
// row. Active cells above the field are not drawn.
func RenderBoard(grid Grid, active ActivePiece) []string {
	rows, cols := grid.Rows(), grid.Cols()
	board := make([][]byte, rows)
	for r, row := range grid {
		board[r] = make([]byte, cols)
		for c, cell := range row {
			if cell != Empty {
				board[r][c] = BoardSettled
			} else {
				board[r][c] = BoardEmpty
			}
		}
	}

	for _, off := range active.Shape.Cells() {
		r, c := active.Position.Row+off.Row, active.Position.Col+off.Col
		if r >= 0 && r < rows && c >= 0 && c < cols {
			board[r][c] = BoardActive
		}
	}

	lines := make([]string, rows)
	for r := range board {
		lines[r] = string(board[r])
	}
	return lines
}

// ActiveCells returns the absolute grid positions of the active piece,
// including any that are still above the field.
func (s Snapshot) ActiveCells() []Position {
	cells := s.Active.Shape.Cells()
	for i := range cells {
		cells[i] = cells[i].Add(s.Active.Position.Row, s.Active.Position.Col)
	}
	return cells
}

// String renders the board as a newline-separated block.
func (s Snapshot) String() string {
	board := s.Board
	if board == nil {
		board = RenderBoard(s.Grid, s.Active)
	}
	return strings.Join(board, "\n")
}

// ColumnHeights returns, per column, the number of rows from the floor up
// to the highest settled cell.
func ColumnHeights(grid Grid) []int {
	rows, cols := grid.Rows(), grid.Cols()
	heights := make([]int, cols)
	for c := range cols {
		for r := range rows {
			if grid[r][c] != Empty {
				heights[c] = rows - r
				break
			}
		}
	}
	return heights
}
