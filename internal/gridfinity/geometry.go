// Package gridfinity models the Gridfinity baseplate grid of a storage container:
// geometry, a validated placement store and the auto-layout heuristic.
package gridfinity

import (
	"fmt"
	"math"
)

// UnitMM is the edge length of one Gridfinity grid cell in millimeters.
const UnitMM = 42

// MaxGridUnits bounds each grid axis. A 250 unit axis is 10.5 m of baseplate.
const MaxGridUnits = 250

// MaxContainerMM is the smallest dimension that would exceed MaxGridUnits.
const MaxContainerMM = (MaxGridUnits + 1) * UnitMM

// Cell is a single grid cell addressed by zero-based column and row.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a footprint in grid units.
type Size struct {
	Width int `json:"width_units"`
	Depth int `json:"depth_units"`
}

// Valid reports whether both dimensions are at least one unit.
func (s Size) Valid() bool {
	return s.Width >= 1 && s.Depth >= 1
}

// Grid is the discrete cell grid derived from a container's inner dimensions.
type Grid struct {
	Columns int `json:"grid_columns"`
	Rows    int `json:"grid_rows"`
}

// Cells returns the number of cells in the grid.
func (g Grid) Cells() int {
	return g.Columns * g.Rows
}

// Bounded reports whether both axes are between zero and MaxGridUnits.
func (g Grid) Bounded() bool {
	return g.Columns >= 0 && g.Rows >= 0 && g.Columns <= MaxGridUnits && g.Rows <= MaxGridUnits
}

// Contains reports whether the cell lies inside the grid.
func (g Grid) Contains(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Columns && c.Y < g.Rows
}

// ToGridUnits converts physical dimensions to whole grid units. Anything smaller
// than one unit in an axis yields zero in that axis; NaN counts as zero and
// each axis is capped at MaxGridUnits.
func ToGridUnits(widthMM, depthMM float64) (columns, rows int) {
	return toUnits(widthMM), toUnits(depthMM)
}

func toUnits(mm float64) int {
	if !(mm > 0) {
		return 0
	}
	u := math.Floor(mm / UnitMM)
	if u > MaxGridUnits {
		return MaxGridUnits
	}
	return int(u)
}

// ValidateDimensions checks container dimensions before a grid is derived from
// them. Non-finite, negative and oversized values wrap ErrInvalidSize.
func ValidateDimensions(widthMM, depthMM, heightMM float64) error {
	for _, d := range []struct {
		name string
		mm   float64
	}{{"width", widthMM}, {"depth", depthMM}, {"height", heightMM}} {
		switch {
		case math.IsNaN(d.mm) || math.IsInf(d.mm, 0):
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidSize, d.name)
		case d.mm < 0:
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidSize, d.name)
		case d.mm >= MaxContainerMM:
			return fmt.Errorf("%w: %s must be below %d mm", ErrInvalidSize, d.name, MaxContainerMM)
		}
	}
	return nil
}

// GridFor returns the grid for a container of the given inner dimensions.
func GridFor(widthMM, depthMM float64) Grid {
	c, r := ToGridUnits(widthMM, depthMM)
	return Grid{Columns: c, Rows: r}
}

// Rect is an axis-aligned rectangle of cells.
type Rect struct {
	X     int `json:"grid_x"`
	Y     int `json:"grid_y"`
	Width int `json:"width_units"`
	Depth int `json:"depth_units"`
}

// NewRect builds a rectangle from an origin cell and a size.
func NewRect(at Cell, size Size) Rect {
	return Rect{X: at.X, Y: at.Y, Width: size.Width, Depth: size.Depth}
}

// Origin returns the top-left cell.
func (r Rect) Origin() Cell { return Cell{X: r.X, Y: r.Y} }

// Size returns the footprint of the rectangle.
func (r Rect) Size() Size { return Size{Width: r.Width, Depth: r.Depth} }

// Overlaps reports whether two rectangles share at least one cell.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width &&
		r.X+r.Width > o.X &&
		r.Y < o.Y+o.Depth &&
		r.Y+r.Depth > o.Y
}

// FitsIn reports whether the rectangle lies fully inside the grid.
func (r Rect) FitsIn(g Grid) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.Width >= 1 && r.Depth >= 1 &&
		r.X+r.Width <= g.Columns &&
		r.Y+r.Depth <= g.Rows
}

// ContainsCell reports whether the cell is covered by the rectangle.
func (r Rect) ContainsCell(c Cell) bool {
	return c.X >= r.X && c.X < r.X+r.Width && c.Y >= r.Y && c.Y < r.Y+r.Depth
}

// Cells enumerates every covered cell in row-major order.
func (r Rect) Cells() []Cell {
	if r.Width <= 0 || r.Depth <= 0 {
		return nil
	}
	cells := make([]Cell, 0, r.Width*r.Depth)
	for y := r.Y; y < r.Y+r.Depth; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			cells = append(cells, Cell{X: x, Y: y})
		}
	}
	return cells
}

// Overlaps is the free-function form of Rect.Overlaps for placements.
func Overlaps(a, b Placement) bool {
	return a.Rect().Overlaps(b.Rect())
}

// FitsInBounds reports whether a placement lies inside a columns×rows grid.
func FitsInBounds(p Placement, columns, rows int) bool {
	return p.Rect().FitsIn(Grid{Columns: columns, Rows: rows})
}

// CellsOccupiedBy enumerates every cell a placement covers.
func CellsOccupiedBy(p Placement) []Cell {
	return p.Rect().Cells()
}
