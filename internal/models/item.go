package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item is an inventory record. The layout core only refers to it by ID; name and
// dimensions feed bin-size recommendations and exports.
type Item struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OwnerID     string         `gorm:"type:varchar(36);index" json:"owner_id,omitempty"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Category    string         `gorm:"type:varchar(100)" json:"category"`
	Quantity    int            `gorm:"default:1" json:"quantity"`
	WidthMM     float64        `json:"width_mm,omitempty"`
	DepthMM     float64        `json:"depth_mm,omitempty"`
	HeightMM    float64        `json:"height_mm,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Item model
func (Item) TableName() string {
	return "items"
}

// BeforeCreate assigns an ID when none was given
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
