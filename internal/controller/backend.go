package controller

import (
	"context"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/recommend"
)

// Backend is the authority for one container's placements. Every mutation is
// validated by the backend against its current state.
type Backend interface {
	Load(ctx context.Context) (gridfinity.Grid, []gridfinity.Placement, error)
	Add(ctx context.Context, a gridfinity.Assignment) (gridfinity.Placement, error)
	Move(ctx context.Context, id string, x, y int) (gridfinity.Placement, error)
	Resize(ctx context.Context, id string, width, depth int) (gridfinity.Placement, error)
	Remove(ctx context.Context, id string) error
	Recommend(ctx context.Context, itemIDs []string) ([]recommend.Recommendation, error)
	AutoLayout(ctx context.Context, itemIDs []string) ([]gridfinity.Assignment, error)
}

// LocalBackend serves a controller from an in-process store
type LocalBackend struct {
	Store           *gridfinity.Store
	Recommendations []recommend.Recommendation
}

// NewLocalBackend wraps a store
func NewLocalBackend(s *gridfinity.Store, recs ...recommend.Recommendation) *LocalBackend {
	return &LocalBackend{Store: s, Recommendations: recs}
}

func (b *LocalBackend) Load(ctx context.Context) (gridfinity.Grid, []gridfinity.Placement, error) {
	return b.Store.Grid(), b.Store.Placements(), nil
}

func (b *LocalBackend) Add(ctx context.Context, a gridfinity.Assignment) (gridfinity.Placement, error) {
	return b.Store.Add(a.ItemID, a.GridX, a.GridY, a.WidthUnits, a.DepthUnits)
}

func (b *LocalBackend) Move(ctx context.Context, id string, x, y int) (gridfinity.Placement, error) {
	return b.Store.Move(id, x, y)
}

func (b *LocalBackend) Resize(ctx context.Context, id string, width, depth int) (gridfinity.Placement, error) {
	return b.Store.Resize(id, width, depth)
}

func (b *LocalBackend) Remove(ctx context.Context, id string) error {
	return b.Store.Remove(id)
}

func (b *LocalBackend) Recommend(ctx context.Context, itemIDs []string) ([]recommend.Recommendation, error) {
	var out []recommend.Recommendation
	for _, id := range itemIDs {
		if r, ok := recommend.Find(b.Recommendations, id); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (b *LocalBackend) AutoLayout(ctx context.Context, itemIDs []string) ([]gridfinity.Assignment, error) {
	res := gridfinity.AutoLayout(b.Store.Grid(), b.Store.Placements(), recommend.LayoutItems(itemIDs, b.Recommendations))
	return res.Placed, nil
}
