package gridfinity

// Presets are the bin footprints offered when sizing a placement, width×depth.
var Presets = []Size{
	{Width: 1, Depth: 1},
	{Width: 1, Depth: 2},
	{Width: 2, Depth: 1},
	{Width: 2, Depth: 2},
	{Width: 2, Depth: 3},
	{Width: 3, Depth: 2},
	{Width: 3, Depth: 3},
}

// PresetsFor returns the presets that could be placed at the cell without
// leaving the grid or overlapping a neighbour. exclude is the placement being
// resized, if any.
func PresetsFor(s *Store, at Cell, exclude string) []Size {
	var out []Size
	for _, size := range Presets {
		if s.CanPlace(NewRect(at, size), exclude) == nil {
			out = append(out, size)
		}
	}
	return out
}

// RemainingSpace returns how many units remain from the cell to the grid edge
// in each axis.
func RemainingSpace(g Grid, at Cell) Size {
	return Size{Width: g.Columns - at.X, Depth: g.Rows - at.Y}
}

// ClampSize clamps free-form input to [1, remaining space] per axis.
func ClampSize(g Grid, at Cell, size Size) Size {
	rem := RemainingSpace(g, at)
	return Size{Width: clamp(size.Width, 1, rem.Width), Depth: clamp(size.Depth, 1, rem.Depth)}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
