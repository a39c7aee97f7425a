package layout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/xelth-com/eckgrid/internal/database"
	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/models"
	"github.com/xelth-com/eckgrid/internal/recommend"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnitNotFound is returned for an unknown container id
var ErrUnitNotFound = fmt.Errorf("%w: container", gridfinity.ErrNotFound)

// Notifier receives layout change events (the websocket hub)
type Notifier interface {
	Broadcast(message interface{})
}

// Event tells open editors to refetch a container layout
type Event struct {
	Type        string `json:"type"`
	UnitID      int64  `json:"unitId"`
	Action      string `json:"action"`
	PlacementID string `json:"placementId,omitempty"`
}

// TargetUnit scopes the event to its container
func (e Event) TargetUnit() int64 { return e.UnitID }

// View is the full layout of one container
type View struct {
	ID               int64                  `json:"id"`
	Name             string                 `json:"name"`
	GridColumns      int                    `json:"grid_columns"`
	GridRows         int                    `json:"grid_rows"`
	ContainerWidthMM float64                `json:"container_width_mm"`
	ContainerDepthMM float64                `json:"container_depth_mm"`
	Placements       []gridfinity.Placement `json:"placements"`
}

// Grid returns the grid of the viewed container
func (v *View) Grid() gridfinity.Grid {
	return gridfinity.Grid{Columns: v.GridColumns, Rows: v.GridRows}
}

// UnitInput creates a container
type UnitInput struct {
	Name     string  `json:"name"`
	WidthMM  float64 `json:"width_mm"`
	DepthMM  float64 `json:"depth_mm"`
	HeightMM float64 `json:"height_mm"`
}

// UnitPatch edits a container; nil fields are left alone
type UnitPatch struct {
	Name     *string  `json:"name"`
	WidthMM  *float64 `json:"width_mm"`
	DepthMM  *float64 `json:"depth_mm"`
	HeightMM *float64 `json:"height_mm"`
}

// PlacementInput creates a placement
type PlacementInput struct {
	ItemID     string `json:"item_id"`
	GridX      int    `json:"grid_x"`
	GridY      int    `json:"grid_y"`
	WidthUnits int    `json:"width_units"`
	DepthUnits int    `json:"depth_units"`
}

// PlacementPatch moves and/or resizes a placement; nil fields are left alone
type PlacementPatch struct {
	GridX      *int `json:"grid_x"`
	GridY      *int `json:"grid_y"`
	WidthUnits *int `json:"width_units"`
	DepthUnits *int `json:"depth_units"`
}

// Service persists containers and placements. Each mutation reloads the
// container's placements inside a transaction holding a row lock on the
// container, validates against that state and only then writes. Every call is
// scoped to the owner passed in; another owner's containers, placements and
// items read as not found.
type Service struct {
	db          *database.DB
	recommender recommend.Recommender
	notifier    Notifier
}

// NewService creates a layout service
func NewService(db *database.DB, recommender recommend.Recommender) *Service {
	if recommender == nil {
		recommender = recommend.None{}
	}
	return &Service{db: db, recommender: recommender}
}

// SetNotifier registers the receiver of change events
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) notify(unitID int64, action, placementID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(Event{Type: "LAYOUT_CHANGED", UnitID: unitID, Action: action, PlacementID: placementID})
}

// --- Containers ---

// ListUnits returns the containers of an owner
func (s *Service) ListUnits(ctx context.Context, ownerID string) ([]models.GridfinityUnit, error) {
	var units []models.GridfinityUnit
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name, id").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// CreateUnit stores a new container and derives its grid
func (s *Service) CreateUnit(ctx context.Context, ownerID string, in UnitInput) (*models.GridfinityUnit, error) {
	if err := gridfinity.ValidateDimensions(in.WidthMM, in.DepthMM, in.HeightMM); err != nil {
		return nil, err
	}
	unit := &models.GridfinityUnit{
		OwnerID:           ownerID,
		Name:              in.Name,
		ContainerWidthMM:  in.WidthMM,
		ContainerDepthMM:  in.DepthMM,
		ContainerHeightMM: in.HeightMM,
	}
	unit.Recompute()
	if err := s.db.WithContext(ctx).Create(unit).Error; err != nil {
		return nil, err
	}
	log.Printf("📐 Container %d created: %s (%dx%d)", unit.ID, unit.Name, unit.GridColumns, unit.GridRows)
	return unit, nil
}

// GetUnit loads a container without its placements
func (s *Service) GetUnit(ctx context.Context, ownerID string, id int64) (*models.GridfinityUnit, error) {
	var unit models.GridfinityUnit
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&unit, id).Error; err != nil {
		return nil, unitErr(err)
	}
	return &unit, nil
}

// UpdateUnit edits a container. Changing the dimensions recomputes the grid and
// is refused when an existing placement would fall outside it.
func (s *Service) UpdateUnit(ctx context.Context, ownerID string, id int64, patch UnitPatch) (*models.GridfinityUnit, error) {
	var updated models.GridfinityUnit
	err := s.withUnit(ctx, ownerID, id, func(tx *gorm.DB, unit *models.GridfinityUnit, store *gridfinity.Store) error {
		next, err := patchUnit(*unit, patch, store.Placements())
		if err != nil {
			return err
		}
		if err := tx.Save(&next).Error; err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(id, "unit_updated", "")
	return &updated, nil
}

// DeleteUnit removes a container together with its placements
func (s *Service) DeleteUnit(ctx context.Context, ownerID string, id int64) error {
	err := s.withUnit(ctx, ownerID, id, func(tx *gorm.DB, unit *models.GridfinityUnit, _ *gridfinity.Store) error {
		if err := tx.Where("unit_id = ?", unit.ID).Delete(&models.GridfinityPlacement{}).Error; err != nil {
			return err
		}
		return tx.Delete(unit).Error
	})
	if err != nil {
		return err
	}
	s.notify(id, "unit_deleted", "")
	return nil
}

// --- Layout ---

// Layout loads a container with its full placement set
func (s *Service) Layout(ctx context.Context, ownerID string, id int64) (*View, error) {
	unit, err := s.GetUnit(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	rows, err := loadPlacements(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	ps := corePlacements(rows)
	gridfinity.SortPlacements(ps)
	return &View{
		ID:               unit.ID,
		Name:             unit.Name,
		GridColumns:      unit.GridColumns,
		GridRows:         unit.GridRows,
		ContainerWidthMM: unit.ContainerWidthMM,
		ContainerDepthMM: unit.ContainerDepthMM,
		Placements:       ps,
	}, nil
}

// AddPlacement validates and stores a new placement
func (s *Service) AddPlacement(ctx context.Context, ownerID string, unitID int64, in PlacementInput) (gridfinity.Placement, error) {
	p, err := s.addPlacement(ctx, ownerID, unitID, in)
	if err != nil {
		return p, err
	}
	s.notify(unitID, "placement_added", p.ID)
	return p, nil
}

func (s *Service) addPlacement(ctx context.Context, ownerID string, unitID int64, in PlacementInput) (gridfinity.Placement, error) {
	var created gridfinity.Placement
	err := s.withUnit(ctx, ownerID, unitID, func(tx *gorm.DB, unit *models.GridfinityUnit, store *gridfinity.Store) error {
		p, err := store.Add(in.ItemID, in.GridX, in.GridY, in.WidthUnits, in.DepthUnits)
		if err != nil {
			return err
		}
		row := models.NewGridfinityPlacement(unit.ID, p)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return gridfinity.Placement{}, err
	}
	log.Printf("📦 Placed item %s in container %d at (%d,%d) %dx%d",
		created.ItemID, unitID, created.GridX, created.GridY, created.WidthUnits, created.DepthUnits)
	return created, nil
}

// UpdatePlacement moves and/or resizes a placement. The placement's own cells
// count as free during validation.
func (s *Service) UpdatePlacement(ctx context.Context, ownerID string, placementID string, patch PlacementPatch) (gridfinity.Placement, error) {
	unitID, err := s.unitOf(ctx, ownerID, placementID)
	if err != nil {
		return gridfinity.Placement{}, err
	}

	var updated gridfinity.Placement
	err = s.withUnit(ctx, ownerID, unitID, func(tx *gorm.DB, _ *models.GridfinityUnit, store *gridfinity.Store) error {
		cur, ok := store.Get(placementID)
		if !ok {
			return fmt.Errorf("%w: %s", gridfinity.ErrNotFound, placementID)
		}
		p, err := store.Update(placementID, patchRect(cur.Rect(), patch))
		if err != nil {
			return err
		}
		if err := tx.Model(&models.GridfinityPlacement{}).Where("id = ?", placementID).Updates(map[string]interface{}{
			"grid_x":      p.GridX,
			"grid_y":      p.GridY,
			"width_units": p.WidthUnits,
			"depth_units": p.DepthUnits,
		}).Error; err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return gridfinity.Placement{}, err
	}
	s.notify(unitID, "placement_updated", placementID)
	return updated, nil
}

// DeletePlacement removes a placement; an unknown id is an error
func (s *Service) DeletePlacement(ctx context.Context, ownerID string, placementID string) error {
	unitID, err := s.unitOf(ctx, ownerID, placementID)
	if err != nil {
		return err
	}
	err = s.withUnit(ctx, ownerID, unitID, func(tx *gorm.DB, _ *models.GridfinityUnit, store *gridfinity.Store) error {
		if err := store.Remove(placementID); err != nil {
			return err
		}
		return tx.Delete(&models.GridfinityPlacement{}, "id = ?", placementID).Error
	})
	if err != nil {
		return err
	}
	s.notify(unitID, "placement_deleted", placementID)
	return nil
}

// UnplacedItems lists the owner's items without a placement in the container
func (s *Service) UnplacedItems(ctx context.Context, ownerID string, unitID int64) ([]models.Item, error) {
	if _, err := s.GetUnit(ctx, ownerID, unitID); err != nil {
		return nil, err
	}
	placed := s.db.Model(&models.GridfinityPlacement{}).Select("item_id").Where("unit_id = ?", unitID)

	var items []models.Item
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND id NOT IN (?)", ownerID, placed).
		Order("name, id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Location is one container holding an item
type Location struct {
	UnitID    int64                `json:"unit_id"`
	UnitName  string               `json:"unit_name"`
	Placement gridfinity.Placement `json:"placement"`
}

// Locate finds the owner's containers an item is placed in. An item the owner
// does not have is not found; an unplaced one yields no locations.
func (s *Service) Locate(ctx context.Context, ownerID string, itemID string) ([]Location, error) {
	var item models.Item
	if err := s.db.WithContext(ctx).Select("id").Where("owner_id = ?", ownerID).First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: item %s", gridfinity.ErrNotFound, itemID)
		}
		return nil, err
	}

	var units []models.GridfinityUnit
	if err := s.db.WithContext(ctx).Select("id", "name").Where("owner_id = ?", ownerID).Find(&units).Error; err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return []Location{}, nil
	}
	ids := make([]int64, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}

	var rows []models.GridfinityPlacement
	if err := s.db.WithContext(ctx).Where("item_id = ? AND unit_id IN ?", itemID, ids).Order("unit_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return locations(rows, units), nil
}

// --- Recommendations & auto-layout ---

// Recommend returns bin-size recommendations for the items. refresh bypasses
// the cache when the recommender has one.
func (s *Service) Recommend(ctx context.Context, ownerID string, itemIDs []string, refresh bool) ([]recommend.Recommendation, error) {
	items, err := s.itemsFor(ctx, ownerID, itemIDs)
	if err != nil {
		return nil, err
	}
	if r, ok := s.recommender.(recommend.Refresher); ok && refresh {
		return r.Refresh(ctx, items)
	}
	return s.recommender.Recommend(ctx, items)
}

// AutoLayout computes first-fit positions for the items against the current
// layout. Nothing is written.
func (s *Service) AutoLayout(ctx context.Context, ownerID string, unitID int64, itemIDs []string) (gridfinity.LayoutResult, error) {
	view, err := s.Layout(ctx, ownerID, unitID)
	if err != nil {
		return gridfinity.LayoutResult{}, err
	}

	recs, err := s.Recommend(ctx, ownerID, itemIDs, false)
	if err != nil {
		// Recommendations are hints; lay out with 1×1 bins instead
		log.Printf("⚠️ Auto-layout: recommendations unavailable, using 1x1: %v", err)
		recs = nil
	}

	return gridfinity.AutoLayout(view.Grid(), view.Placements, recommend.LayoutItems(itemIDs, recs)), nil
}

// ApplyAutoLayout computes a layout and commits every assignment through the
// same validated path as a manual placement. Failed commits are collected.
func (s *Service) ApplyAutoLayout(ctx context.Context, ownerID string, unitID int64, itemIDs []string) (gridfinity.BatchResult, error) {
	res, err := s.AutoLayout(ctx, ownerID, unitID, itemIDs)
	if err != nil {
		return gridfinity.BatchResult{}, err
	}

	batch := commitLayout(ctx, res, func(ctx context.Context, a gridfinity.Assignment) (gridfinity.Placement, error) {
		return s.addPlacement(ctx, ownerID, unitID, PlacementInput{
			ItemID:     a.ItemID,
			GridX:      a.GridX,
			GridY:      a.GridY,
			WidthUnits: a.WidthUnits,
			DepthUnits: a.DepthUnits,
		})
	})

	log.Printf("🧩 Auto-layout for container %d: %s", unitID, batch.Summary())
	s.notify(unitID, "auto_layout", "")
	return batch, nil
}

// --- helpers ---

// withUnit runs fn in a transaction holding a row lock on the owner's
// container, with a store rebuilt from the placements committed so far
func (s *Service) withUnit(ctx context.Context, ownerID string, unitID int64, fn func(tx *gorm.DB, unit *models.GridfinityUnit, store *gridfinity.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit models.GridfinityUnit
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ?", ownerID).
			First(&unit, unitID).Error
		if err != nil {
			return unitErr(err)
		}
		rows, err := loadPlacements(tx, unit.ID)
		if err != nil {
			return err
		}
		store, err := storeFor(&unit, rows)
		if err != nil {
			return err
		}
		return fn(tx, &unit, store)
	})
}

// unitOf resolves the container of a placement owned by ownerID
func (s *Service) unitOf(ctx context.Context, ownerID string, placementID string) (int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Table("gridfinity_placements AS p").
		Joins("JOIN gridfinity_units AS u ON u.id = p.unit_id").
		Where("p.id = ? AND u.owner_id = ?", placementID, ownerID).
		Pluck("p.unit_id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: %s", gridfinity.ErrNotFound, placementID)
	}
	return ids[0], nil
}

// itemsFor loads the owner's items and keeps other ids as bare references, in
// the requested order
func (s *Service) itemsFor(ctx context.Context, ownerID string, ids []string) ([]models.Item, error) {
	var found []models.Item
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Where("owner_id = ? AND id IN ?", ownerID, ids).Find(&found).Error; err != nil {
			return nil, err
		}
	}
	byID := make(map[string]models.Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}
	items := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			items = append(items, it)
		} else {
			items = append(items, models.Item{ID: id})
		}
	}
	return items, nil
}

// ItemNames maps the owner's item ids to their names for labels and exports
func (s *Service) ItemNames(ctx context.Context, ownerID string, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var items []models.Item
	if err := s.db.WithContext(ctx).Select("id", "name").Where("owner_id = ? AND id IN ?", ownerID, ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, it := range items {
		names[it.ID] = it.Name
	}
	return names, nil
}

// patchUnit applies a container edit to a copy of unit. The new dimensions
// must be valid and every placement must still fit the recomputed grid.
func patchUnit(unit models.GridfinityUnit, patch UnitPatch, placements []gridfinity.Placement) (models.GridfinityUnit, error) {
	if patch.Name != nil {
		unit.Name = *patch.Name
	}
	if patch.WidthMM != nil {
		unit.ContainerWidthMM = *patch.WidthMM
	}
	if patch.DepthMM != nil {
		unit.ContainerDepthMM = *patch.DepthMM
	}
	if patch.HeightMM != nil {
		unit.ContainerHeightMM = *patch.HeightMM
	}
	if err := gridfinity.ValidateDimensions(unit.ContainerWidthMM, unit.ContainerDepthMM, unit.ContainerHeightMM); err != nil {
		return unit, err
	}
	unit.Recompute()
	if _, err := gridfinity.LoadStore(unit.Grid(), placements); err != nil {
		return unit, err
	}
	return unit, nil
}

// patchRect overlays the set fields of patch on cur
func patchRect(cur gridfinity.Rect, patch PlacementPatch) gridfinity.Rect {
	if patch.GridX != nil {
		cur.X = *patch.GridX
	}
	if patch.GridY != nil {
		cur.Y = *patch.GridY
	}
	if patch.WidthUnits != nil {
		cur.Width = *patch.WidthUnits
	}
	if patch.DepthUnits != nil {
		cur.Depth = *patch.DepthUnits
	}
	return cur
}

// storeFor rebuilds the store of a container from its committed rows
func storeFor(unit *models.GridfinityUnit, rows []models.GridfinityPlacement) (*gridfinity.Store, error) {
	store, err := gridfinity.LoadStore(unit.Grid(), corePlacements(rows))
	if err != nil {
		return nil, fmt.Errorf("stored layout of container %d is inconsistent: %w", unit.ID, err)
	}
	return store, nil
}

// commitLayout commits the assignments of an auto-layout run and carries its
// unplaced items over
func commitLayout(ctx context.Context, res gridfinity.LayoutResult, commit gridfinity.CommitFunc) gridfinity.BatchResult {
	batch := gridfinity.CommitAll(ctx, res.Placed, commit)
	batch.Unplaced = append(batch.Unplaced, res.Unplaced...)
	return batch
}

func locations(rows []models.GridfinityPlacement, units []models.GridfinityUnit) []Location {
	names := make(map[int64]string, len(units))
	for _, u := range units {
		names[u.ID] = u.Name
	}
	out := make([]Location, 0, len(rows))
	for _, r := range rows {
		out = append(out, Location{UnitID: r.UnitID, UnitName: names[r.UnitID], Placement: r.Core()})
	}
	return out
}

func loadPlacements(db *gorm.DB, unitID int64) ([]models.GridfinityPlacement, error) {
	var rows []models.GridfinityPlacement
	if err := db.Where("unit_id = ?", unitID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func corePlacements(rows []models.GridfinityPlacement) []gridfinity.Placement {
	out := make([]gridfinity.Placement, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Core())
	}
	return out
}

func unitErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnitNotFound
	}
	return err
}
