package client

import (
	"context"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/recommend"
)

// UnitBackend binds the client to one container so an editor can drive it
type UnitBackend struct {
	c  *Client
	id int64
}

// Unit returns the backend for container id
func (c *Client) Unit(id int64) *UnitBackend {
	return &UnitBackend{c: c, id: id}
}

// Load fetches the grid and placements
func (u *UnitBackend) Load(ctx context.Context) (gridfinity.Grid, []gridfinity.Placement, error) {
	l, err := u.c.Layout(ctx, u.id)
	if err != nil {
		return gridfinity.Grid{}, nil, err
	}
	return l.Grid(), l.Placements, nil
}

// Add places an item
func (u *UnitBackend) Add(ctx context.Context, a gridfinity.Assignment) (gridfinity.Placement, error) {
	return u.c.AddPlacement(ctx, u.id, a)
}

// Move changes a placement's origin
func (u *UnitBackend) Move(ctx context.Context, id string, x, y int) (gridfinity.Placement, error) {
	return u.c.UpdatePlacement(ctx, id, PlacementPatch{GridX: &x, GridY: &y})
}

// Resize changes a placement's size
func (u *UnitBackend) Resize(ctx context.Context, id string, width, depth int) (gridfinity.Placement, error) {
	return u.c.UpdatePlacement(ctx, id, PlacementPatch{WidthUnits: &width, DepthUnits: &depth})
}

// Remove deletes a placement
func (u *UnitBackend) Remove(ctx context.Context, id string) error {
	return u.c.DeletePlacement(ctx, id)
}

// Recommend fetches cached bin-size recommendations
func (u *UnitBackend) Recommend(ctx context.Context, itemIDs []string) ([]recommend.Recommendation, error) {
	return u.c.RecommendBins(ctx, itemIDs, false)
}

// AutoLayout asks the server to compute positions for the items
func (u *UnitBackend) AutoLayout(ctx context.Context, itemIDs []string) ([]gridfinity.Assignment, error) {
	return u.c.AutoLayout(ctx, u.id, itemIDs)
}
