package models

import (
	"time"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"gorm.io/datatypes"
)

// BinRecommendation caches the suggested footprint for an item
type BinRecommendation struct {
	ItemID                string         `gorm:"primaryKey;type:varchar(64)" json:"item_id"`
	RecommendedWidthUnits int            `json:"recommended_width_units"`
	RecommendedDepthUnits int            `json:"recommended_depth_units"`
	Reasoning             string         `gorm:"type:text" json:"reasoning"`
	Source                string         `gorm:"type:varchar(100)" json:"source,omitempty"`
	RawResponse           datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

func (BinRecommendation) TableName() string { return "bin_recommendations" }

// Size returns the recommended footprint
func (r BinRecommendation) Size() gridfinity.Size {
	return gridfinity.Size{Width: r.RecommendedWidthUnits, Depth: r.RecommendedDepthUnits}
}
