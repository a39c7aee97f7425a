package gridfinity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Placement is one item occupying a rectangle of cells in a container.
type Placement struct {
	ID         string `json:"id"`
	ItemID     string `json:"item_id"`
	GridX      int    `json:"grid_x"`
	GridY      int    `json:"grid_y"`
	WidthUnits int    `json:"width_units"`
	DepthUnits int    `json:"depth_units"`
}

// Rect returns the cell rectangle covered by the placement.
func (p Placement) Rect() Rect {
	return Rect{X: p.GridX, Y: p.GridY, Width: p.WidthUnits, Depth: p.DepthUnits}
}

func (p Placement) withRect(r Rect) Placement {
	p.GridX, p.GridY, p.WidthUnits, p.DepthUnits = r.X, r.Y, r.Width, r.Depth
	return p
}

// Store is the placement set of a single container. Every mutation is validated
// against the grid bounds, the other placements and item uniqueness before it is
// applied; a rejected mutation leaves the store untouched.
//
// A Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	grid       Grid
	placements []Placement
	newID      func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides how new placement identifiers are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// NewStore returns an empty store for the grid.
func NewStore(grid Grid, opts ...Option) *Store {
	s := &Store{
		grid:  grid,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadStore rebuilds a store from persisted placements. It refuses a set that
// already violates bounds, overlap or item uniqueness.
func LoadStore(grid Grid, placements []Placement, opts ...Option) (*Store, error) {
	s := NewStore(grid, opts...)
	for _, p := range placements {
		if p.ID == "" {
			return nil, fmt.Errorf("placement for item %s has no id", p.ItemID)
		}
		if _, ok := s.indexOf(p.ID); ok {
			return nil, fmt.Errorf("duplicate placement id %s", p.ID)
		}
		if err := s.validate(p.ItemID, p.Rect(), ""); err != nil {
			return nil, fmt.Errorf("placement %s: %w", p.ID, err)
		}
		s.placements = append(s.placements, p)
	}
	return s, nil
}

// Grid returns the container grid.
func (s *Store) Grid() Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid
}

// Len returns the number of placements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.placements)
}

// Add places an item at (x, y) with the given footprint.
func (s *Store) Add(itemID string, x, y, width, depth int) (Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Rect{X: x, Y: y, Width: width, Depth: depth}
	if err := s.validate(itemID, r, ""); err != nil {
		return Placement{}, err
	}

	p := Placement{ID: s.newID(), ItemID: itemID}.withRect(r)
	s.placements = append(s.placements, p)
	return p, nil
}

// Move relocates a placement keeping its footprint. The placement's own cells
// count as free.
func (s *Store) Move(id string, x, y int) (Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOf(id)
	if !ok {
		return Placement{}, notFound(id)
	}
	r := s.placements[i].Rect()
	r.X, r.Y = x, y
	return s.apply(i, r)
}

// Resize changes a placement's footprint keeping its origin.
func (s *Store) Resize(id string, width, depth int) (Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOf(id)
	if !ok {
		return Placement{}, notFound(id)
	}
	r := s.placements[i].Rect()
	r.Width, r.Depth = width, depth
	return s.apply(i, r)
}

// Update moves and resizes a placement in one validated step.
func (s *Store) Update(id string, r Rect) (Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOf(id)
	if !ok {
		return Placement{}, notFound(id)
	}
	return s.apply(i, r)
}

// Remove deletes a placement. Removing an unknown id is an error.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexOf(id)
	if !ok {
		return notFound(id)
	}
	s.placements = append(s.placements[:i], s.placements[i+1:]...)
	return nil
}

// Query returns the placement covering cell (x, y), if any.
func (s *Store) Query(x, y int) (Placement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Cell{X: x, Y: y}
	for _, p := range s.placements {
		if p.Rect().ContainsCell(c) {
			return p, true
		}
	}
	return Placement{}, false
}

// Get returns a placement by id.
func (s *Store) Get(id string) (Placement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.indexOf(id)
	if !ok {
		return Placement{}, false
	}
	return s.placements[i], true
}

// ByItem returns the placement holding the item, if any.
func (s *Store) ByItem(itemID string) (Placement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.placements {
		if p.ItemID == itemID {
			return p, true
		}
	}
	return Placement{}, false
}

// CanPlace validates a rectangle against bounds and the other placements without
// mutating anything. exclude names a placement whose cells count as free.
func (s *Store) CanPlace(r Rect, exclude string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkGeometry(r, exclude)
}

// Placements returns a copy of the placements in insertion order.
func (s *Store) Placements() []Placement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Placement, len(s.placements))
	copy(out, s.placements)
	return out
}

// Snapshot returns the placements ordered by row, column and id.
func (s *Store) Snapshot() []Placement {
	out := s.Placements()
	SortPlacements(out)
	return out
}

// Occupancy maps every occupied cell to the id of the placement covering it.
func (s *Store) Occupancy() map[Cell]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	occ := make(map[Cell]string)
	for _, p := range s.placements {
		for _, c := range CellsOccupiedBy(p) {
			occ[c] = p.ID
		}
	}
	return occ
}

// FreeCells returns the number of unoccupied cells.
func (s *Store) FreeCells() int {
	used := 0
	for _, p := range s.Placements() {
		used += p.WidthUnits * p.DepthUnits
	}
	return s.Grid().Cells() - used
}

// SortPlacements orders placements row-major by origin, then by id.
func SortPlacements(ps []Placement) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].GridY != ps[j].GridY {
			return ps[i].GridY < ps[j].GridY
		}
		if ps[i].GridX != ps[j].GridX {
			return ps[i].GridX < ps[j].GridX
		}
		return ps[i].ID < ps[j].ID
	})
}

func (s *Store) apply(i int, r Rect) (Placement, error) {
	cur := s.placements[i]
	if err := s.checkGeometry(r, cur.ID); err != nil {
		return Placement{}, err
	}
	s.placements[i] = cur.withRect(r)
	return s.placements[i], nil
}

func (s *Store) validate(itemID string, r Rect, exclude string) error {
	if err := s.checkGeometry(r, exclude); err != nil {
		return err
	}
	for _, p := range s.placements {
		if p.ID != exclude && p.ItemID == itemID {
			return fmt.Errorf("%w: item %s is held by placement %s", ErrDuplicateItem, itemID, p.ID)
		}
	}
	return nil
}

func (s *Store) checkGeometry(r Rect, exclude string) error {
	if !r.Size().Valid() {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidSize, r.Width, r.Depth)
	}
	if !r.FitsIn(s.grid) {
		return outOfBounds(r, s.grid)
	}
	for _, p := range s.placements {
		if p.ID == exclude {
			continue
		}
		if r.Overlaps(p.Rect()) {
			return overlapWith(r, p)
		}
	}
	return nil
}

func (s *Store) indexOf(id string) (int, bool) {
	for i, p := range s.placements {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
