package controller

import (
	"context"
	"fmt"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
)

// ResizeEditor is the size dialog opened by selecting a placement
type ResizeEditor struct {
	c         *Controller
	placement gridfinity.Placement
	size      gridfinity.Size
}

// OpenResize starts editing the size of a placement
func (c *Controller) OpenResize(placementID string) (*ResizeEditor, error) {
	p, ok := c.layout().Get(placementID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", gridfinity.ErrNotFound, placementID)
	}
	return &ResizeEditor{c: c, placement: p, size: p.Rect().Size()}, nil
}

// Placement returns the placement being edited
func (e *ResizeEditor) Placement() gridfinity.Placement { return e.placement }

// Size returns the pending size
func (e *ResizeEditor) Size() gridfinity.Size { return e.size }

// Presets lists the preset sizes that fit without leaving the grid or
// overlapping a neighbour
func (e *ResizeEditor) Presets() []gridfinity.Size {
	return gridfinity.PresetsFor(e.c.layout(), e.placement.Rect().Origin(), e.placement.ID)
}

// SetSize applies free-form input clamped to [1, remaining space] per axis
func (e *ResizeEditor) SetSize(width, depth int) gridfinity.Size {
	g := e.c.Grid()
	e.size = gridfinity.ClampSize(g, e.placement.Rect().Origin(), gridfinity.Size{Width: width, Depth: depth})
	return e.size
}

// Check is the live validity check of the pending size
func (e *ResizeEditor) Check() error {
	return e.c.layout().CanPlace(gridfinity.NewRect(e.placement.Rect().Origin(), e.size), e.placement.ID)
}

// CanConfirm reports whether confirmation is enabled
func (e *ResizeEditor) CanConfirm() bool {
	return e.Check() == nil
}

// Confirm sends the resize. An invalid pending size is refused without a request.
func (e *ResizeEditor) Confirm(ctx context.Context) (gridfinity.Placement, error) {
	if err := e.Check(); err != nil {
		return gridfinity.Placement{}, err
	}
	id, size := e.placement.ID, e.size
	p, err := e.c.mutate(ctx, func() (gridfinity.Placement, error) {
		return e.c.backend.Resize(ctx, id, size.Width, size.Depth)
	})
	if err == nil {
		e.placement = p
	}
	return p, err
}
