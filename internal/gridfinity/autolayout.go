package gridfinity

// LayoutItem is an unplaced item offered to AutoLayout. Recommended is the
// collaborator's suggested footprint; a zero or non-positive size means none.
type LayoutItem struct {
	ItemID      string `json:"item_id"`
	Recommended Size   `json:"recommended"`
}

// Assignment is a position chosen by AutoLayout for one item.
type Assignment struct {
	ItemID     string `json:"item_id"`
	GridX      int    `json:"grid_x"`
	GridY      int    `json:"grid_y"`
	WidthUnits int    `json:"width_units"`
	DepthUnits int    `json:"depth_units"`
}

// Rect returns the cell rectangle of the assignment.
func (a Assignment) Rect() Rect {
	return Rect{X: a.GridX, Y: a.GridY, Width: a.WidthUnits, Depth: a.DepthUnits}
}

// LayoutResult lists what AutoLayout could and could not place.
type LayoutResult struct {
	Placed   []Assignment `json:"placed"`
	Unplaced []string     `json:"unplaced"`
	// AlreadyPlaced holds items that have a placement in the container already
	// (or were listed twice) and were skipped.
	AlreadyPlaced []string `json:"already_placed,omitempty"`
}

// TargetSize returns the footprint AutoLayout uses for a recommendation: the
// recommendation itself when valid, otherwise 1×1.
func TargetSize(recommended Size) Size {
	if recommended.Valid() {
		return recommended
	}
	return Size{Width: 1, Depth: 1}
}

// AutoLayout assigns positions to items by row-major first fit. For each item,
// in input order, it picks the first cell (y ascending, then x ascending) where
// the item's footprint fits the grid without touching an existing placement or
// one assigned earlier in the run. Items that fit nowhere are reported as
// unplaced. The result depends only on its inputs. A grid beyond MaxGridUnits
// holds nothing.
func AutoLayout(grid Grid, existing []Placement, items []LayoutItem) LayoutResult {
	res := LayoutResult{Placed: []Assignment{}, Unplaced: []string{}}
	occ := newOccupancy(grid)

	seen := make(map[string]bool, len(existing)+len(items))
	for _, p := range existing {
		occ.mark(p.Rect())
		seen[p.ItemID] = true
	}

	for _, it := range items {
		if seen[it.ItemID] {
			res.AlreadyPlaced = append(res.AlreadyPlaced, it.ItemID)
			continue
		}
		seen[it.ItemID] = true

		size := TargetSize(it.Recommended)
		at, ok := occ.firstFit(size)
		if !ok {
			res.Unplaced = append(res.Unplaced, it.ItemID)
			continue
		}
		r := NewRect(at, size)
		occ.mark(r)
		res.Placed = append(res.Placed, Assignment{
			ItemID:     it.ItemID,
			GridX:      r.X,
			GridY:      r.Y,
			WidthUnits: r.Width,
			DepthUnits: r.Depth,
		})
	}
	return res
}

// occupancy is a row-major bitmap of used cells. cursor is the first free cell;
// every cell before it is used, so no footprint can start there.
type occupancy struct {
	grid   Grid
	used   []bool
	cursor int
}

func newOccupancy(g Grid) *occupancy {
	if !g.Bounded() {
		g = Grid{}
	}
	return &occupancy{grid: g, used: make([]bool, g.Cells())}
}

// mark covers the part of r that lies inside the grid
func (o *occupancy) mark(r Rect) {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.Width, o.grid.Columns), min(r.Y+r.Depth, o.grid.Rows)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			o.used[y*o.grid.Columns+x] = true
		}
	}
	for o.cursor < len(o.used) && o.used[o.cursor] {
		o.cursor++
	}
}

func (o *occupancy) free(r Rect) bool {
	for y := r.Y; y < r.Y+r.Depth; y++ {
		row := y * o.grid.Columns
		for x := r.X; x < r.X+r.Width; x++ {
			if o.used[row+x] {
				return false
			}
		}
	}
	return true
}

func (o *occupancy) firstFit(size Size) (Cell, bool) {
	if o.grid.Columns == 0 {
		return Cell{}, false
	}
	for i := o.cursor; i < len(o.used); i++ {
		at := Cell{X: i % o.grid.Columns, Y: i / o.grid.Columns}
		if at.Y+size.Depth > o.grid.Rows {
			break
		}
		r := NewRect(at, size)
		if r.FitsIn(o.grid) && o.free(r) {
			return at, true
		}
	}
	return Cell{}, false
}
