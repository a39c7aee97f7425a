package recommend

import (
	"context"
	"log"

	"github.com/xelth-com/eckgrid/internal/database"
	"github.com/xelth-com/eckgrid/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// Cached serves recommendations from the bin_recommendations table and asks the
// wrapped recommender only for items without a cached row.
type Cached struct {
	db   *database.DB
	next Recommender
}

// NewCached wraps next with a database cache.
func NewCached(db *database.DB, next Recommender) *Cached {
	return &Cached{db: db, next: next}
}

// Recommend implements Recommender.
func (c *Cached) Recommend(ctx context.Context, items []models.Item) ([]Recommendation, error) {
	return c.recommend(ctx, items, false)
}

// Refresh ignores cached rows and overwrites them with fresh results.
func (c *Cached) Refresh(ctx context.Context, items []models.Item) ([]Recommendation, error) {
	return c.recommend(ctx, items, true)
}

func (c *Cached) recommend(ctx context.Context, items []models.Item, refresh bool) ([]Recommendation, error) {
	if len(items) == 0 {
		return []Recommendation{}, nil
	}

	cached := map[string]Recommendation{}
	if !refresh {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		var rows []models.BinRecommendation
		if err := c.db.WithContext(ctx).Where("item_id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			cached[row.ItemID] = fromRow(row)
		}
	}

	var misses []models.Item
	for _, it := range items {
		if _, ok := cached[it.ID]; !ok {
			misses = append(misses, it)
		}
	}

	if len(misses) > 0 {
		fresh, err := c.next.Recommend(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, r := range fresh {
			cached[r.ItemID] = r
			c.store(ctx, r)
		}
	}

	out := make([]Recommendation, 0, len(items))
	for _, it := range items {
		if r, ok := cached[it.ID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Cached) store(ctx context.Context, r Recommendation) {
	row := models.BinRecommendation{
		ItemID:                r.ItemID,
		RecommendedWidthUnits: r.RecommendedWidthUnits,
		RecommendedDepthUnits: r.RecommendedDepthUnits,
		Reasoning:             r.Reasoning,
		Source:                r.Source,
		RawResponse:           datatypes.JSON(r.Raw),
	}
	if len(row.RawResponse) == 0 {
		row.RawResponse = datatypes.JSON("{}")
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		log.Printf("⚠️ Recommend: failed to cache %s: %v", r.ItemID, err)
	}
}

func fromRow(row models.BinRecommendation) Recommendation {
	return Recommendation{
		ItemID:                row.ItemID,
		RecommendedWidthUnits: row.RecommendedWidthUnits,
		RecommendedDepthUnits: row.RecommendedDepthUnits,
		Reasoning:             row.Reasoning,
		Source:                row.Source,
		Raw:                   []byte(row.RawResponse),
	}
}
