package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/mcp-training/blockfall/game/engine"
)

var shapeColors = map[engine.ShapeName]tcell.Color{
	engine.ShapeI: tcell.ColorAqua,
	engine.ShapeO: tcell.ColorYellow,
	engine.ShapeT: tcell.ColorPurple,
	engine.ShapeS: tcell.ColorGreen,
	engine.ShapeZ: tcell.ColorRed,
	engine.ShapeJ: tcell.ColorBlue,
	engine.ShapeL: tcell.ColorOrange,
}

// View is everything the screen shows besides the field itself.
type View struct {
	Title   string
	Status  string
	Keys    string
	Cleared int
}

// layout renders the field with a border and a side panel, one string per
// screen row. Field cells keep the board characters '.', '#' and '@'.
func layout(snap *engine.Snapshot, v View) []string {
	board := snap.Board
	if board == nil {
		board = engine.RenderBoard(snap.Grid, snap.Active)
	}

	panel := []string{
		v.Title,
		"",
		fmt.Sprintf("Piece:  %s", snap.Active.Name),
		fmt.Sprintf("Pieces: %d", snap.PiecesSpawned),
		fmt.Sprintf("Ticks:  %d", snap.Ticks),
		fmt.Sprintf("Rows:   %d", v.Cleared),
		"",
	}
	panel = append(panel, strings.Split(v.Keys, "\n")...)

	border := "+" + strings.Repeat("-", snap.Cols) + "+"
	lines := []string{border}
	for _, row := range board {
		lines = append(lines, "|"+row+"|")
	}
	lines = append(lines, border)

	for i := range lines {
		if i < len(panel) && panel[i] != "" {
			lines[i] += "  " + panel[i]
		}
	}

	status := v.Status
	if snap.GameOver {
		status = "GAME OVER  r: reset  q: quit"
	}
	if status != "" {
		lines = append(lines, status)
	}
	if snap.Message != "" {
		lines = append(lines, snap.Message)
	}
	return lines
}

// cellStyle picks the glyph and style for one character of the layout.
// Only the first cols+2 columns belong to the field.
func cellStyle(ch rune, x, cols int, active engine.ShapeName) (rune, tcell.Style) {
	base := tcell.StyleDefault
	if x > cols+1 {
		return ch, base
	}
	switch ch {
	case engine.BoardEmpty:
		return '·', base.Foreground(tcell.ColorGray)
	case engine.BoardSettled:
		return '▓', base.Foreground(tcell.ColorSilver)
	case engine.BoardActive:
		color, ok := shapeColors[active]
		if !ok {
			color = tcell.ColorWhite
		}
		return '█', base.Foreground(color)
	}
	return ch, base
}

// draw paints the layout at the top-left of the screen.
func draw(screen tcell.Screen, snap *engine.Snapshot, v View) {
	screen.Clear()
	for y, line := range layout(snap, v) {
		x := 0
		for _, ch := range line {
			glyph, style := ch, tcell.StyleDefault
			if y >= 1 && y <= snap.Rows {
				glyph, style = cellStyle(ch, x, snap.Cols, snap.Active.Name)
			}
			screen.SetContent(x, y, glyph, nil, style)
			x++
		}
	}
	screen.Show()
}

// clearedRows infers how many rows a lock removed by comparing occupancy
// before and after.
func clearedRows(prev, next *engine.Snapshot) int {
	if prev == nil || next.Cols == 0 || prev.Cols != next.Cols {
		return 0
	}
	locked := prev.Grid.OccupiedCount() + len(prev.Active.Shape.Cells())
	cleared := (locked - next.Grid.OccupiedCount()) / next.Cols
	if cleared < 0 {
		return 0
	}
	return cleared
}

// keyHelp describes the bindings for the side panel.
func keyHelp(controls map[string][]string) string {
	var b strings.Builder
	for _, action := range engine.Actions() {
		keys, ok := controls[string(action)]
		if !ok || len(keys) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%-7s %s\n", action+":", strings.Join(keys, " "))
	}
	b.WriteString("reset:  r\nquit:   q Esc")
	return b.String()
}
