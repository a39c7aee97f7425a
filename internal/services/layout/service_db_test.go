package layout

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckgrid/internal/config"
	"github.com/xelth-com/eckgrid/internal/database"
	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testDBPort = 54329

var (
	testDB    *database.DB
	testDBErr error
)

func TestMain(m *testing.M) {
	flag.Parse()

	var pg *embeddedpostgres.EmbeddedPostgres
	var dir string
	if !testing.Short() {
		pg, dir, testDB, testDBErr = startTestDB()
	}

	code := m.Run()

	if pg != nil {
		_ = pg.Stop()
	}
	if dir != "" {
		os.RemoveAll(dir)
	}
	os.Exit(code)
}

func startTestDB() (*embeddedpostgres.EmbeddedPostgres, string, *database.DB, error) {
	dir, err := os.MkdirTemp("", "eckgrid-layout-")
	if err != nil {
		return nil, "", nil, err
	}
	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(testDBPort).
		DataPath(filepath.Join(dir, "data")).
		RuntimePath(filepath.Join(dir, "runtime")).
		StartTimeout(time.Minute).
		Logger(io.Discard))
	if err := pg.Start(); err != nil {
		return nil, dir, nil, fmt.Errorf("embedded postgres: %w", err)
	}

	dsn := database.DSN(config.DatabaseConfig{
		Host:     "localhost",
		Port:     fmt.Sprint(testDBPort),
		Username: "postgres",
		Password: "postgres",
		Database: "postgres",
	})
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return pg, dir, nil, err
	}
	db := &database.DB{DB: gdb}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return pg, dir, nil, err
	}
	return pg, dir, db, nil
}

// newDBService returns a service over an emptied database
func newDBService(t *testing.T) *Service {
	t.Helper()
	if testing.Short() {
		t.Skip("database tests skipped in short mode")
	}
	if testDBErr != nil || testDB == nil {
		t.Skipf("database unavailable: %v", testDBErr)
	}
	require.NoError(t, testDB.Exec("TRUNCATE gridfinity_placements, gridfinity_units, bin_recommendations, items RESTART IDENTITY CASCADE").Error)
	return NewService(testDB, nil)
}

func seedItems(t *testing.T, ownerID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, testDB.Create(&models.Item{ID: id, OwnerID: ownerID, Name: "Item " + id}).Error)
	}
}

func TestServiceUpdateUnitRefusesShrink(t *testing.T) {
	s := newDBService(t)
	ctx := context.Background()

	unit, err := s.CreateUnit(ctx, "alice", UnitInput{Name: "Drawer", WidthMM: 168, DepthMM: 126})
	require.NoError(t, err)
	assert.Equal(t, gridfinity.Grid{Columns: 4, Rows: 3}, unit.Grid())

	_, err = s.AddPlacement(ctx, "alice", unit.ID, PlacementInput{ItemID: "i", GridX: 3, GridY: 0, WidthUnits: 1, DepthUnits: 1})
	require.NoError(t, err)

	_, err = s.UpdateUnit(ctx, "alice", unit.ID, UnitPatch{WidthMM: floatp(126)})
	assert.ErrorIs(t, err, gridfinity.ErrOutOfBounds)
	_, err = s.UpdateUnit(ctx, "alice", unit.ID, UnitPatch{WidthMM: floatp(1e7)})
	assert.ErrorIs(t, err, gridfinity.ErrInvalidSize)

	got, err := s.GetUnit(ctx, "alice", unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.GridColumns, "refused edits are not saved")

	updated, err := s.UpdateUnit(ctx, "alice", unit.ID, UnitPatch{DepthMM: floatp(84)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.GridRows)
}

func TestServiceRevalidatesCommittedRows(t *testing.T) {
	s := newDBService(t)
	ctx := context.Background()

	unit, err := s.CreateUnit(ctx, "alice", UnitInput{Name: "Tray", WidthMM: 126, DepthMM: 84})
	require.NoError(t, err)

	// committed behind the service's back
	row := models.NewGridfinityPlacement(unit.ID, gridfinity.Placement{ID: "direct", ItemID: "x", GridX: 0, GridY: 0, WidthUnits: 2, DepthUnits: 2})
	require.NoError(t, testDB.Create(&row).Error)

	_, err = s.AddPlacement(ctx, "alice", unit.ID, PlacementInput{ItemID: "y", GridX: 1, GridY: 1, WidthUnits: 1, DepthUnits: 1})
	assert.ErrorIs(t, err, gridfinity.ErrOverlap)

	p, err := s.AddPlacement(ctx, "alice", unit.ID, PlacementInput{ItemID: "y", GridX: 2, GridY: 0, WidthUnits: 1, DepthUnits: 2})
	require.NoError(t, err)

	_, err = s.UpdatePlacement(ctx, "alice", p.ID, PlacementPatch{GridX: intp(1)})
	assert.ErrorIs(t, err, gridfinity.ErrOverlap)

	view, err := s.Layout(ctx, "alice", unit.ID)
	require.NoError(t, err)
	assert.Len(t, view.Placements, 2)
}

func TestServiceApplyAutoLayout(t *testing.T) {
	s := newDBService(t)
	ctx := context.Background()
	seedItems(t, "alice", "a", "b", "c", "d", "e")

	unit, err := s.CreateUnit(ctx, "alice", UnitInput{Name: "Box", WidthMM: 84, DepthMM: 84})
	require.NoError(t, err)

	batch, err := s.ApplyAutoLayout(ctx, "alice", unit.ID, []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, batch.Placed, 4)
	assert.Empty(t, batch.Failed)
	assert.Equal(t, []string{"e"}, batch.Unplaced)

	unplaced, err := s.UnplacedItems(ctx, "alice", unit.ID)
	require.NoError(t, err)
	require.Len(t, unplaced, 1)
	assert.Equal(t, "e", unplaced[0].ID)
}

func TestServiceScopesEveryCallToTheOwner(t *testing.T) {
	s := newDBService(t)
	ctx := context.Background()
	seedItems(t, "alice", "i")

	unit, err := s.CreateUnit(ctx, "alice", UnitInput{Name: "Drawer", WidthMM: 168, DepthMM: 126})
	require.NoError(t, err)
	p, err := s.AddPlacement(ctx, "alice", unit.ID, PlacementInput{ItemID: "i", WidthUnits: 1, DepthUnits: 1})
	require.NoError(t, err)

	units, err := s.ListUnits(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, units)

	_, err = s.GetUnit(ctx, "bob", unit.ID)
	assert.ErrorIs(t, err, gridfinity.ErrNotFound)
	_, err = s.Layout(ctx, "bob", unit.ID)
	assert.ErrorIs(t, err, gridfinity.ErrNotFound)
	_, err = s.UpdateUnit(ctx, "bob", unit.ID, UnitPatch{WidthMM: floatp(42)})
	assert.ErrorIs(t, err, gridfinity.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUnit(ctx, "bob", unit.ID), gridfinity.ErrNotFound)
	_, err = s.AddPlacement(ctx, "bob", unit.ID, PlacementInput{ItemID: "z", GridX: 3, GridY: 2, WidthUnits: 1, DepthUnits: 1})
	assert.ErrorIs(t, err, gridfinity.ErrNotFound)
	_, err = s.UpdatePlacement(ctx, "bob", p.ID, PlacementPatch{GridX: intp(2)})
	assert.ErrorIs(t, err, gridfinity.ErrNotFound)
	assert.ErrorIs(t, s.DeletePlacement(ctx, "bob", p.ID), gridfinity.ErrNotFound)
	_, err = s.AutoLayout(ctx, "bob", unit.ID, []string{"z"})
	assert.ErrorIs(t, err, gridfinity.ErrNotFound)
	_, err = s.Locate(ctx, "bob", "i")
	assert.ErrorIs(t, err, gridfinity.ErrNotFound)

	view, err := s.Layout(ctx, "alice", unit.ID)
	require.NoError(t, err)
	require.Len(t, view.Placements, 1)
	assert.Equal(t, p, view.Placements[0])
}

func TestServiceLocate(t *testing.T) {
	s := newDBService(t)
	ctx := context.Background()
	seedItems(t, "alice", "i", "loose")

	unit, err := s.CreateUnit(ctx, "alice", UnitInput{Name: "Drawer", WidthMM: 168, DepthMM: 126})
	require.NoError(t, err)
	p, err := s.AddPlacement(ctx, "alice", unit.ID, PlacementInput{ItemID: "i", GridX: 1, GridY: 1, WidthUnits: 2, DepthUnits: 1})
	require.NoError(t, err)

	locs, err := s.Locate(ctx, "alice", "i")
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, Location{UnitID: unit.ID, UnitName: "Drawer", Placement: p}, locs[0])

	locs, err = s.Locate(ctx, "alice", "loose")
	require.NoError(t, err)
	assert.Empty(t, locs)

	_, err = s.Locate(ctx, "alice", "does-not-exist")
	assert.ErrorIs(t, err, gridfinity.ErrNotFound)
}
