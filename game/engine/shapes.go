package engine

// ShapeName identifies one of the seven tetrominoes.
type ShapeName string

const (
	ShapeI ShapeName = "I"
	ShapeO ShapeName = "O"
	ShapeT ShapeName = "T"
	ShapeS ShapeName = "S"
	ShapeZ ShapeName = "Z"
	ShapeJ ShapeName = "J"
	ShapeL ShapeName = "L"
)

// Shape is one rotation state of a tetromino: a rectangular 0/1 matrix.
type Shape [][]Cell

var shapeOrder = []ShapeName{ShapeI, ShapeO, ShapeT, ShapeS, ShapeZ, ShapeJ, ShapeL}

var catalog = map[ShapeName]Shape{
	ShapeI: {
		{1, 1, 1, 1},
	},
	ShapeO: {
		{1, 1},
		{1, 1},
	},
	ShapeT: {
		{0, 1, 0},
		{1, 1, 1},
	},
	ShapeS: {
		{0, 1, 1},
		{1, 1, 0},
	},
	ShapeZ: {
		{1, 1, 0},
		{0, 1, 1},
	},
	ShapeJ: {
		{1, 0, 0},
		{1, 1, 1},
	},
	ShapeL: {
		{0, 0, 1},
		{1, 1, 1},
	},
}

// ShapeNames returns the catalog names in a fixed order.
func ShapeNames() []ShapeName {
	names := make([]ShapeName, len(shapeOrder))
	copy(names, shapeOrder)
	return names
}

// LookupShape returns a copy of the named template so callers can never
// mutate the catalog.
func LookupShape(name ShapeName) (Shape, bool) {
	shape, ok := catalog[name]
	if !ok {
		return nil, false
	}
	return shape.Clone(), true
}

// MustShape is LookupShape for names known at compile time.
func MustShape(name ShapeName) Shape {
	shape, ok := LookupShape(name)
	if !ok {
		panic("engine: unknown shape " + string(name))
	}
	return shape
}

// Rotate returns s turned 90 degrees clockwise. Row i of the result is
// column i of s read from bottom to top, so an R×C shape becomes C×R.
func Rotate(s Shape) Shape {
	if len(s) == 0 {
		return Shape{}
	}
	rows, cols := len(s), len(s[0])
	rotated := make(Shape, cols)
	for i := range cols {
		rotated[i] = make([]Cell, rows)
		for j := range rows {
			rotated[i][j] = s[rows-1-j][i]
		}
	}
	return rotated
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	out := make(Shape, len(s))
	for i, row := range s {
		out[i] = make([]Cell, len(row))
		copy(out[i], row)
	}
	return out
}

// Equal compares two shapes cell for cell.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if len(s[i]) != len(other[i]) {
			return false
		}
		for j := range s[i] {
			if s[i][j] != other[i][j] {
				return false
			}
		}
	}
	return true
}

// Height returns the number of rows in the bounding box.
func (s Shape) Height() int {
	return len(s)
}

// Width returns the number of columns in the bounding box.
func (s Shape) Width() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// Cells returns the offsets of every occupied cell, row-major.
func (s Shape) Cells() []Position {
	var cells []Position
	for r, row := range s {
		for c, cell := range row {
			if cell != Empty {
				cells = append(cells, Position{Row: r, Col: c})
			}
		}
	}
	return cells
}
