package models

import (
	"time"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"gorm.io/gorm"
)

// GridfinityUnit is a physical container (drawer, tray, bin) holding a Gridfinity baseplate
type GridfinityUnit struct {
	ID                int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID           string  `gorm:"type:varchar(36);index" json:"owner_id,omitempty"`
	Name              string  `gorm:"type:varchar(100);not null" json:"name"`
	ContainerWidthMM  float64 `gorm:"not null" json:"container_width_mm"`
	ContainerDepthMM  float64 `gorm:"not null" json:"container_depth_mm"`
	ContainerHeightMM float64 `gorm:"default:0" json:"container_height_mm"`

	// Derived from the physical dimensions, see Recompute
	GridColumns int `gorm:"not null;default:0" json:"grid_columns"`
	GridRows    int `gorm:"not null;default:0" json:"grid_rows"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Placements []GridfinityPlacement `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE" json:"placements,omitempty"`
}

func (GridfinityUnit) TableName() string { return "gridfinity_units" }

// Recompute derives the grid from the physical dimensions
func (u *GridfinityUnit) Recompute() {
	u.GridColumns, u.GridRows = gridfinity.ToGridUnits(u.ContainerWidthMM, u.ContainerDepthMM)
}

// Grid returns the cell grid of the container
func (u *GridfinityUnit) Grid() gridfinity.Grid {
	return gridfinity.Grid{Columns: u.GridColumns, Rows: u.GridRows}
}

// BeforeSave keeps the grid in step with the dimensions
func (u *GridfinityUnit) BeforeSave(tx *gorm.DB) error {
	u.Recompute()
	return nil
}

// GridfinityPlacement is one inventory item occupying a rectangle of cells.
// ItemID references an Item by identifier only.
type GridfinityPlacement struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UnitID     int64  `gorm:"not null;uniqueIndex:idx_unit_item" json:"unit_id"`
	ItemID     string `gorm:"type:varchar(64);not null;uniqueIndex:idx_unit_item" json:"item_id"`
	GridX      int    `gorm:"not null" json:"grid_x"`
	GridY      int    `gorm:"not null" json:"grid_y"`
	WidthUnits int    `gorm:"not null;default:1" json:"width_units"`
	DepthUnits int    `gorm:"not null;default:1" json:"depth_units"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GridfinityPlacement) TableName() string { return "gridfinity_placements" }

// Core converts the row into the placement store's representation
func (p GridfinityPlacement) Core() gridfinity.Placement {
	return gridfinity.Placement{
		ID:         p.ID,
		ItemID:     p.ItemID,
		GridX:      p.GridX,
		GridY:      p.GridY,
		WidthUnits: p.WidthUnits,
		DepthUnits: p.DepthUnits,
	}
}

// NewGridfinityPlacement builds a row from a store placement
func NewGridfinityPlacement(unitID int64, p gridfinity.Placement) GridfinityPlacement {
	return GridfinityPlacement{
		ID:         p.ID,
		UnitID:     unitID,
		ItemID:     p.ItemID,
		GridX:      p.GridX,
		GridY:      p.GridY,
		WidthUnits: p.WidthUnits,
		DepthUnits: p.DepthUnits,
	}
}
