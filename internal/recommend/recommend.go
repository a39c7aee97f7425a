// Package recommend supplies bin-size recommendations for inventory items. The
// recommender behind it is a black box; the layout core only consumes the
// resulting width, depth and reasoning.
package recommend

import (
	"context"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/models"
)

// Recommendation is the suggested footprint for one item.
type Recommendation struct {
	ItemID                string `json:"item_id"`
	RecommendedWidthUnits int    `json:"recommended_width_units"`
	RecommendedDepthUnits int    `json:"recommended_depth_units"`
	Reasoning             string `json:"reasoning"`

	Source string `json:"-"`
	Raw    []byte `json:"-"`
}

// Size returns the recommended footprint.
func (r Recommendation) Size() gridfinity.Size {
	return gridfinity.Size{Width: r.RecommendedWidthUnits, Depth: r.RecommendedDepthUnits}
}

// Valid reports whether both recommended dimensions are positive.
func (r Recommendation) Valid() bool {
	return r.Size().Valid()
}

// Recommender suggests footprints for items. Items it has no opinion on are
// simply absent from the result.
type Recommender interface {
	Recommend(ctx context.Context, items []models.Item) ([]Recommendation, error)
}

// Refresher is a Recommender that can ignore previously cached answers.
type Refresher interface {
	Recommender
	Refresh(ctx context.Context, items []models.Item) ([]Recommendation, error)
}

// None never recommends anything, so every item defaults to 1×1.
type None struct{}

// Recommend implements Recommender.
func (None) Recommend(ctx context.Context, items []models.Item) ([]Recommendation, error) {
	return []Recommendation{}, nil
}

// LayoutItems builds auto-layout input in the order of itemIDs, attaching the
// matching recommendation when there is one.
func LayoutItems(itemIDs []string, recs []Recommendation) []gridfinity.LayoutItem {
	byID := make(map[string]gridfinity.Size, len(recs))
	for _, r := range recs {
		byID[r.ItemID] = r.Size()
	}
	out := make([]gridfinity.LayoutItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		out = append(out, gridfinity.LayoutItem{ItemID: id, Recommended: byID[id]})
	}
	return out
}

// Find returns the recommendation for an item, if present.
func Find(recs []Recommendation, itemID string) (Recommendation, bool) {
	for _, r := range recs {
		if r.ItemID == itemID {
			return r, true
		}
	}
	return Recommendation{}, false
}
