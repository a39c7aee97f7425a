// Package controller implements the drag-and-drop placement editor for one
// container. It mirrors the backend's last confirmed state and refetches it
// after every mutation.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/recommend"
)

// State of the editor
type State int

const (
	Idle State = iota
	// Pressed: pointer is down on a subject but has not moved far enough to drag
	Pressed
	Dragging
	// Confirming: an unplaced item was dropped and waits for a size
	Confirming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case Dragging:
		return "dragging"
	case Confirming:
		return "confirming"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultActivationDistance is the pointer travel, in pixels, that turns a
// press into a drag
const DefaultActivationDistance = 8.0

// ErrInvalidState is returned for a gesture that does not apply in the current state
var ErrInvalidState = errors.New("operation not allowed in current state")

// Subject is what is being dragged: an unplaced item or an existing placement
type Subject struct {
	ItemID      string
	PlacementID string
}

// IsPlacement reports whether the subject is an existing placement
func (s Subject) IsPlacement() bool { return s.PlacementID != "" }

// Point is a pointer position in screen coordinates
type Point struct {
	X, Y float64
}

// Preview describes what dropping at a cell would do
type Preview struct {
	Cell  gridfinity.Cell
	Size  gridfinity.Size
	Valid bool
	Err   error
}

// Reason is the user-visible text for an invalid preview
func (p Preview) Reason() string {
	if p.Valid {
		return ""
	}
	return gridfinity.Message(p.Err)
}

// Pending is an unplaced item dropped on a cell, waiting for confirmation
type Pending struct {
	ItemID         string
	Cell           gridfinity.Cell
	Size           gridfinity.Size
	Recommendation *recommend.Recommendation
}

// Option configures a Controller
type Option func(*Controller)

// WithActivationDistance sets the drag threshold in pixels
func WithActivationDistance(d float64) Option {
	return func(c *Controller) { c.threshold = d }
}

// WithOnChange registers a callback fired after the mirrored layout changes
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller drives placement gestures for one container
type Controller struct {
	backend   Backend
	threshold float64
	onChange  func()

	mu      sync.Mutex
	state   State
	subject Subject
	origin  Point
	pending Pending
	store   *gridfinity.Store
	recs    map[string]recommend.Recommendation

	inflight atomic.Int32
}

// New creates a controller; call Refresh to load the layout
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:   backend,
		threshold: DefaultActivationDistance,
		store:     gridfinity.NewStore(gridfinity.Grid{}),
		recs:      make(map[string]recommend.Recommendation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh replaces the mirrored layout with the backend's current state
func (c *Controller) Refresh(ctx context.Context) error {
	grid, placements, err := c.backend.Load(ctx)
	if err != nil {
		return err
	}
	store, err := gridfinity.LoadStore(grid, placements)
	if err != nil {
		return fmt.Errorf("loading layout: %w", err)
	}

	c.mu.Lock()
	c.store = store
	if c.subject.IsPlacement() && c.state != Idle {
		if _, ok := store.Get(c.subject.PlacementID); !ok {
			c.reset()
		}
	}
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange()
	}
	return nil
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subject returns the subject of the current gesture
func (c *Controller) Subject() Subject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subject
}

// Grid returns the container grid
func (c *Controller) Grid() gridfinity.Grid {
	return c.layout().Grid()
}

// Placements returns the mirrored placements in row-major order
func (c *Controller) Placements() []gridfinity.Placement {
	return c.layout().Snapshot()
}

// PlacementAt returns the placement covering a cell
func (c *Controller) PlacementAt(cell gridfinity.Cell) (gridfinity.Placement, bool) {
	return c.layout().Query(cell.X, cell.Y)
}

// Busy reports whether a mutation is in flight
func (c *Controller) Busy() bool {
	return c.inflight.Load() > 0
}

func (c *Controller) layout() *gridfinity.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// --- Drag gestures ---

// Press records a pointer-down on a subject. The gesture becomes a drag once
// the pointer travels the activation distance.
func (c *Controller) Press(subject Subject, at Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return ErrInvalidState
	}
	if err := c.checkSubject(subject); err != nil {
		return err
	}
	c.state = Pressed
	c.subject = subject
	c.origin = at
	return nil
}

// PointerMove updates the pointer position; it returns true once a drag is active
func (c *Controller) PointerMove(at Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Pressed && math.Hypot(at.X-c.origin.X, at.Y-c.origin.Y) >= c.threshold {
		c.state = Dragging
	}
	return c.state == Dragging
}

// Release ends a press. A press that never became a drag is a click and its
// subject is returned; releasing a drag away from the grid cancels it.
func (c *Controller) Release() (Subject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, clicked := c.subject, c.state == Pressed
	if c.state == Pressed || c.state == Dragging {
		c.reset()
	}
	return s, clicked
}

// BeginDrag starts a drag without the activation threshold
func (c *Controller) BeginDrag(subject Subject) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle && c.state != Pressed {
		return ErrInvalidState
	}
	if err := c.checkSubject(subject); err != nil {
		return err
	}
	c.state = Dragging
	c.subject = subject
	return nil
}

// Hover previews a drop at cell. The subject's own cells count as free.
func (c *Controller) Hover(cell gridfinity.Cell) (Preview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Dragging {
		return Preview{}, ErrInvalidState
	}
	size := c.subjectSize(cell)
	err := c.store.CanPlace(gridfinity.NewRect(cell, size), c.subject.PlacementID)
	return Preview{Cell: cell, Size: size, Valid: err == nil, Err: err}, nil
}

// Cancel abandons the current gesture or confirmation without mutating anything
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Drop ends a drag over cell. An existing placement is moved right away; the
// editor returns to Idle whether or not the move succeeds. An unplaced item
// enters Confirming with a default size. Dropping outside the grid cancels.
func (c *Controller) Drop(ctx context.Context, cell gridfinity.Cell) (gridfinity.Placement, error) {
	c.mu.Lock()
	if c.state != Dragging {
		c.mu.Unlock()
		return gridfinity.Placement{}, ErrInvalidState
	}
	subject := c.subject
	if !c.store.Grid().Contains(cell) {
		c.reset()
		c.mu.Unlock()
		return gridfinity.Placement{}, nil
	}

	if subject.IsPlacement() {
		c.reset()
		c.mu.Unlock()
		return c.mutate(ctx, func() (gridfinity.Placement, error) {
			return c.backend.Move(ctx, subject.PlacementID, cell.X, cell.Y)
		})
	}
	c.mu.Unlock()

	rec := c.recommendation(ctx, subject.ItemID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Dragging || c.subject != subject {
		return gridfinity.Placement{}, ErrInvalidState
	}
	c.state = Confirming
	c.pending = Pending{ItemID: subject.ItemID, Cell: cell, Size: c.defaultSize(rec, cell), Recommendation: rec}
	return gridfinity.Placement{}, nil
}

// --- Placement confirmation ---

// Pending returns the item waiting for confirmation
func (c *Controller) Pending() (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.state == Confirming
}

// PendingPresets lists the preset sizes that fit at the pending cell
func (c *Controller) PendingPresets() []gridfinity.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Confirming {
		return nil
	}
	return gridfinity.PresetsFor(c.store, c.pending.Cell, "")
}

// SetPendingSize changes the confirmation size, clamped to the space left in
// each axis. It returns the size actually applied.
func (c *Controller) SetPendingSize(size gridfinity.Size) (gridfinity.Size, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Confirming {
		return gridfinity.Size{}, ErrInvalidState
	}
	c.pending.Size = gridfinity.ClampSize(c.store.Grid(), c.pending.Cell, size)
	return c.pending.Size, nil
}

// CheckPending validates the pending placement against the mirrored layout
func (c *Controller) CheckPending() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Confirming {
		return ErrInvalidState
	}
	return c.checkPending()
}

// Confirm commits the pending placement. Confirmation is refused while the
// pending size is invalid; otherwise the request is sent and the editor
// returns to Idle.
func (c *Controller) Confirm(ctx context.Context) (gridfinity.Placement, error) {
	c.mu.Lock()
	if c.state != Confirming {
		c.mu.Unlock()
		return gridfinity.Placement{}, ErrInvalidState
	}
	if err := c.checkPending(); err != nil {
		c.mu.Unlock()
		return gridfinity.Placement{}, err
	}
	p := c.pending
	c.reset()
	c.mu.Unlock()

	return c.mutate(ctx, func() (gridfinity.Placement, error) {
		return c.backend.Add(ctx, gridfinity.Assignment{
			ItemID:     p.ItemID,
			GridX:      p.Cell.X,
			GridY:      p.Cell.Y,
			WidthUnits: p.Size.Width,
			DepthUnits: p.Size.Depth,
		})
	})
}

// CancelConfirmation closes the confirmation step; nothing is sent
func (c *Controller) CancelConfirmation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Confirming {
		c.reset()
	}
}

// Remove deletes a placement
func (c *Controller) Remove(ctx context.Context, placementID string) error {
	_, err := c.mutate(ctx, func() (gridfinity.Placement, error) {
		return gridfinity.Placement{}, c.backend.Remove(ctx, placementID)
	})
	return err
}

// --- helpers ---

// mutate runs one backend mutation and refetches the layout once it settles.
// A transport failure skips the refetch; the mirrored layout is kept.
func (c *Controller) mutate(ctx context.Context, fn func() (gridfinity.Placement, error)) (gridfinity.Placement, error) {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	p, err := fn()
	if errors.Is(err, gridfinity.ErrCommitFailed) {
		return p, err
	}
	if rerr := c.Refresh(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return p, err
}

func (c *Controller) reset() {
	c.state = Idle
	c.subject = Subject{}
	c.pending = Pending{}
}

func (c *Controller) checkSubject(s Subject) error {
	if s.IsPlacement() {
		if _, ok := c.store.Get(s.PlacementID); !ok {
			return fmt.Errorf("%w: %s", gridfinity.ErrNotFound, s.PlacementID)
		}
		return nil
	}
	if s.ItemID == "" {
		return errors.New("subject has neither item nor placement")
	}
	return nil
}

func (c *Controller) checkPending() error {
	r := gridfinity.NewRect(c.pending.Cell, c.pending.Size)
	if err := c.store.CanPlace(r, ""); err != nil {
		return err
	}
	if existing, ok := c.store.ByItem(c.pending.ItemID); ok {
		return fmt.Errorf("%w: placement %s", gridfinity.ErrDuplicateItem, existing.ID)
	}
	return nil
}

// subjectSize is the footprint used for a drag preview: the placement's size,
// or the default size an unplaced item would get at cell
func (c *Controller) subjectSize(cell gridfinity.Cell) gridfinity.Size {
	if c.subject.IsPlacement() {
		if p, ok := c.store.Get(c.subject.PlacementID); ok {
			return p.Rect().Size()
		}
	}
	var rec *recommend.Recommendation
	if r, ok := c.recs[c.subject.ItemID]; ok {
		rec = &r
	}
	return c.defaultSize(rec, cell)
}

// defaultSize is the recommendation when it is valid and fits at cell, else 1×1
func (c *Controller) defaultSize(rec *recommend.Recommendation, cell gridfinity.Cell) gridfinity.Size {
	unit := gridfinity.Size{Width: 1, Depth: 1}
	if rec == nil || !rec.Valid() {
		return unit
	}
	if c.store.CanPlace(gridfinity.NewRect(cell, rec.Size()), "") != nil {
		return unit
	}
	return rec.Size()
}

// recommendation returns the cached recommendation for an item, asking the
// backend once. Failures mean no recommendation.
func (c *Controller) recommendation(ctx context.Context, itemID string) *recommend.Recommendation {
	c.mu.Lock()
	r, ok := c.recs[itemID]
	c.mu.Unlock()
	if ok {
		return &r
	}

	recs, err := c.backend.Recommend(ctx, []string{itemID})
	if err != nil {
		return nil
	}
	r, ok = recommend.Find(recs, itemID)
	if !ok {
		return nil
	}
	c.mu.Lock()
	c.recs[itemID] = r
	c.mu.Unlock()
	return &r
}

// Prefetch loads recommendations for items before they are dragged
func (c *Controller) Prefetch(ctx context.Context, itemIDs []string) error {
	recs, err := c.backend.Recommend(ctx, itemIDs)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range recs {
		c.recs[r.ItemID] = r
	}
	return nil
}
