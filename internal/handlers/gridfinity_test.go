package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckgrid/internal/config"
	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/models"
	"github.com/xelth-com/eckgrid/internal/recommend"
	"github.com/xelth-com/eckgrid/internal/services/layout"
	"github.com/xelth-com/eckgrid/internal/utils"
)

const testSecret = "test-secret"

// memLayouts serves a single container from an in-memory store
type memLayouts struct {
	store       *gridfinity.Store
	items       []models.Item
	recs        []recommend.Recommendation
	lastRefresh bool
}

func newMemLayouts() *memLayouts {
	n := 0
	return &memLayouts{store: gridfinity.NewStore(gridfinity.Grid{Columns: 4, Rows: 3}, gridfinity.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("p%d", n)
	}))}
}

// unit 1 belongs to u1; everyone else sees nothing
func (m *memLayouts) unit(ownerID string, id int64) (*models.GridfinityUnit, error) {
	if id != 1 || ownerID != "u1" {
		return nil, layout.ErrUnitNotFound
	}
	return &models.GridfinityUnit{ID: 1, OwnerID: "u1", Name: "Drawer", ContainerWidthMM: 170, ContainerDepthMM: 130, GridColumns: 4, GridRows: 3}, nil
}

func (m *memLayouts) ListUnits(ctx context.Context, ownerID string) ([]models.GridfinityUnit, error) {
	u, err := m.unit(ownerID, 1)
	if err != nil {
		return []models.GridfinityUnit{}, nil
	}
	return []models.GridfinityUnit{*u}, nil
}

func (m *memLayouts) CreateUnit(ctx context.Context, ownerID string, in layout.UnitInput) (*models.GridfinityUnit, error) {
	if err := gridfinity.ValidateDimensions(in.WidthMM, in.DepthMM, in.HeightMM); err != nil {
		return nil, err
	}
	u := &models.GridfinityUnit{ID: 2, OwnerID: ownerID, Name: in.Name, ContainerWidthMM: in.WidthMM, ContainerDepthMM: in.DepthMM}
	u.Recompute()
	return u, nil
}

func (m *memLayouts) GetUnit(ctx context.Context, ownerID string, id int64) (*models.GridfinityUnit, error) {
	return m.unit(ownerID, id)
}

func (m *memLayouts) UpdateUnit(ctx context.Context, ownerID string, id int64, patch layout.UnitPatch) (*models.GridfinityUnit, error) {
	return m.unit(ownerID, id)
}

func (m *memLayouts) DeleteUnit(ctx context.Context, ownerID string, id int64) error {
	_, err := m.unit(ownerID, id)
	return err
}

func (m *memLayouts) Layout(ctx context.Context, ownerID string, id int64) (*layout.View, error) {
	u, err := m.unit(ownerID, id)
	if err != nil {
		return nil, err
	}
	return &layout.View{ID: u.ID, Name: u.Name, GridColumns: 4, GridRows: 3, ContainerWidthMM: 170, ContainerDepthMM: 130, Placements: m.store.Snapshot()}, nil
}

func (m *memLayouts) AddPlacement(ctx context.Context, ownerID string, unitID int64, in layout.PlacementInput) (gridfinity.Placement, error) {
	if _, err := m.unit(ownerID, unitID); err != nil {
		return gridfinity.Placement{}, err
	}
	return m.store.Add(in.ItemID, in.GridX, in.GridY, in.WidthUnits, in.DepthUnits)
}

func (m *memLayouts) UpdatePlacement(ctx context.Context, ownerID string, id string, patch layout.PlacementPatch) (gridfinity.Placement, error) {
	p, ok := m.store.Get(id)
	if !ok || ownerID != "u1" {
		return p, gridfinity.ErrNotFound
	}
	r := p.Rect()
	if patch.GridX != nil {
		r.X = *patch.GridX
	}
	if patch.GridY != nil {
		r.Y = *patch.GridY
	}
	if patch.WidthUnits != nil {
		r.Width = *patch.WidthUnits
	}
	if patch.DepthUnits != nil {
		r.Depth = *patch.DepthUnits
	}
	return m.store.Update(id, r)
}

func (m *memLayouts) DeletePlacement(ctx context.Context, ownerID string, id string) error {
	if ownerID != "u1" {
		return gridfinity.ErrNotFound
	}
	return m.store.Remove(id)
}

func (m *memLayouts) UnplacedItems(ctx context.Context, ownerID string, unitID int64) ([]models.Item, error) {
	if _, err := m.unit(ownerID, unitID); err != nil {
		return nil, err
	}
	var out []models.Item
	for _, it := range m.items {
		if _, ok := m.store.ByItem(it.ID); !ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memLayouts) ItemNames(ctx context.Context, ownerID string, ids []string) (map[string]string, error) {
	names := map[string]string{}
	for _, it := range m.items {
		names[it.ID] = it.Name
	}
	return names, nil
}

func (m *memLayouts) Locate(ctx context.Context, ownerID string, itemID string) ([]layout.Location, error) {
	known := false
	for _, it := range m.items {
		known = known || it.ID == itemID
	}
	if !known || ownerID != "u1" {
		return nil, fmt.Errorf("%w: item %s", gridfinity.ErrNotFound, itemID)
	}
	p, ok := m.store.ByItem(itemID)
	if !ok {
		return []layout.Location{}, nil
	}
	return []layout.Location{{UnitID: 1, UnitName: "Drawer", Placement: p}}, nil
}

func (m *memLayouts) Recommend(ctx context.Context, ownerID string, ids []string, refresh bool) ([]recommend.Recommendation, error) {
	m.lastRefresh = refresh
	var out []recommend.Recommendation
	for _, id := range ids {
		if r, ok := recommend.Find(m.recs, id); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memLayouts) AutoLayout(ctx context.Context, ownerID string, unitID int64, ids []string) (gridfinity.LayoutResult, error) {
	if _, err := m.unit(ownerID, unitID); err != nil {
		return gridfinity.LayoutResult{}, err
	}
	return gridfinity.AutoLayout(m.store.Grid(), m.store.Placements(), recommend.LayoutItems(ids, m.recs)), nil
}

func (m *memLayouts) ApplyAutoLayout(ctx context.Context, ownerID string, unitID int64, ids []string) (gridfinity.BatchResult, error) {
	res, err := m.AutoLayout(ctx, ownerID, unitID, ids)
	if err != nil {
		return gridfinity.BatchResult{}, err
	}
	batch := gridfinity.CommitAll(ctx, res.Placed, func(ctx context.Context, a gridfinity.Assignment) (gridfinity.Placement, error) {
		return m.store.Add(a.ItemID, a.GridX, a.GridY, a.WidthUnits, a.DepthUnits)
	})
	batch.Unplaced = append(batch.Unplaced, res.Unplaced...)
	return batch, nil
}

func newTestRouter(t *testing.T) (*Router, *memLayouts, string) {
	t.Helper()
	m := newMemLayouts()
	r := NewRouter(nil, &config.Config{JWTSecret: testSecret, InstanceSuffix: "GF"}, m, nil)
	token, _, err := utils.GenerateTokens(&models.UserAuth{ID: "u1", Email: "a@b.c"}, testSecret)
	require.NoError(t, err)
	return r, m, token
}

func do(t *testing.T, r http.Handler, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error, body.Code
}

func TestGridfinityRequiresAuth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	rec := do(t, r, "", http.MethodGet, "/gridfinity/units/1/layout", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlacementLifecycle(t *testing.T) {
	r, _, token := newTestRouter(t)

	rec := do(t, r, token, http.MethodPost, "/gridfinity/units/1/placements",
		map[string]interface{}{"item_id": "i1", "grid_x": 0, "grid_y": 0, "width_units": 2, "depth_units": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p gridfinity.Placement
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "p1", p.ID)

	rec = do(t, r, token, http.MethodPut, "/gridfinity/placements/p1", map[string]int{"grid_y": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, token, http.MethodGet, "/gridfinity/units/1/layout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view layout.View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	require.Len(t, view.Placements, 1)
	assert.Equal(t, 2, view.Placements[0].GridY)
	assert.Equal(t, 4, view.GridColumns)

	rec = do(t, r, token, http.MethodDelete, "/gridfinity/placements/p1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, token, http.MethodDelete, "/gridfinity/placements/p1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, code := errorBody(t, rec)
	assert.Equal(t, gridfinity.CodeNotFound, code)
}

func TestPlacementErrorsMapToStatus(t *testing.T) {
	r, m, token := newTestRouter(t)
	_, err := m.store.Add("taken", 1, 1, 1, 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"overlap", map[string]interface{}{"item_id": "a", "grid_x": 0, "grid_y": 0, "width_units": 2, "depth_units": 2}, http.StatusConflict, gridfinity.CodeOverlap},
		{"duplicate", map[string]interface{}{"item_id": "taken", "grid_x": 3, "grid_y": 0, "width_units": 1, "depth_units": 1}, http.StatusConflict, gridfinity.CodeDuplicateItem},
		{"out of bounds", map[string]interface{}{"item_id": "a", "grid_x": 3, "grid_y": 0, "width_units": 2, "depth_units": 1}, http.StatusUnprocessableEntity, gridfinity.CodeOutOfBounds},
		{"invalid size", map[string]interface{}{"item_id": "a", "grid_x": 0, "grid_y": 0, "width_units": 0, "depth_units": 1}, http.StatusUnprocessableEntity, gridfinity.CodeInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, token, http.MethodPost, "/gridfinity/units/1/placements", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			msg, code := errorBody(t, rec)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, msg)
		})
	}
	assert.Equal(t, 1, m.store.Len(), "rejected requests leave the store unchanged")
}

func TestMalformedBodyAndUnknownUnit(t *testing.T) {
	r, _, token := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/gridfinity/units/1/placements", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, token, http.MethodPut, "/gridfinity/placements/p1", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, token, http.MethodGet, "/gridfinity/units/99/layout", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAutoLayoutEndpoint(t *testing.T) {
	r, m, token := newTestRouter(t)
	m.recs = []recommend.Recommendation{{ItemID: "B", RecommendedWidthUnits: 2, RecommendedDepthUnits: 2}}

	rec := do(t, r, token, http.MethodPost, "/gridfinity/units/1/auto-layout", AutoLayoutRequest{ItemIDs: []string{"A", "B", "C"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Placed []gridfinity.Assignment `json:"placed"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, []gridfinity.Assignment{
		{ItemID: "A", GridX: 0, GridY: 0, WidthUnits: 1, DepthUnits: 1},
		{ItemID: "B", GridX: 1, GridY: 0, WidthUnits: 2, DepthUnits: 2},
		{ItemID: "C", GridX: 3, GridY: 0, WidthUnits: 1, DepthUnits: 1},
	}, res.Placed)
	assert.Zero(t, m.store.Len(), "compute only")

	rec = do(t, r, token, http.MethodPost, "/gridfinity/units/1/auto-layout?apply=true", AutoLayoutRequest{ItemIDs: []string{"A", "B", "C"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var batch gridfinity.BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&batch))
	assert.Len(t, batch.Placed, 3)
	assert.Empty(t, batch.Failed)
	assert.Equal(t, 3, m.store.Len())
}

func TestAutoLayoutDefaultsToUnplacedItems(t *testing.T) {
	r, m, token := newTestRouter(t)
	m.items = []models.Item{{ID: "x", Name: "X"}, {ID: "y", Name: "Y"}}

	rec := do(t, r, token, http.MethodPost, "/gridfinity/units/1/auto-layout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res gridfinity.LayoutResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Len(t, res.Placed, 2)
	assert.Equal(t, "y", res.Placed[1].ItemID)
}

func TestRecommendBins(t *testing.T) {
	r, m, token := newTestRouter(t)
	m.recs = []recommend.Recommendation{
		{ItemID: "a", RecommendedWidthUnits: 1, RecommendedDepthUnits: 2, Reasoning: "tall"},
		{ItemID: "b", RecommendedWidthUnits: 3, RecommendedDepthUnits: 1},
	}

	rec := do(t, r, token, http.MethodGet, "/gridfinity/recommend-bins?item_ids=a,b&item_ids=a&refresh=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Recommendations []recommend.Recommendation `json:"recommendations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Recommendations, 2)
	assert.Equal(t, "tall", body.Recommendations[0].Reasoning)
	assert.True(t, m.lastRefresh)

	rec = do(t, r, token, http.MethodGet, "/gridfinity/recommend-bins", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExports(t *testing.T) {
	r, m, token := newTestRouter(t)
	m.items = []models.Item{{ID: "i1", Name: "Screws"}}
	_, err := m.store.Add("i1", 0, 0, 2, 1)
	require.NoError(t, err)

	rec := do(t, r, token, http.MethodGet, "/gridfinity/units/1/layout.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = do(t, r, token, http.MethodGet, "/gridfinity/units/1/layout.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestScan(t *testing.T) {
	r, m, token := newTestRouter(t)
	m.items = []models.Item{{ID: "i1", Name: "Screws"}, {ID: "i2", Name: "Nuts"}}
	_, err := m.store.Add("i1", 1, 0, 1, 1)
	require.NoError(t, err)

	rec := do(t, r, token, http.MethodPost, "/gridfinity/scan", ScanRequest{Barcode: "ECK1.COM/i1GF"})
	require.Equal(t, http.StatusOK, rec.Code)
	var found map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&found))
	assert.Equal(t, "found", found["action"])
	assert.Equal(t, "i1", found["item_id"])
	assert.EqualValues(t, 1, found["unit_id"])
	assert.Equal(t, "Drawer", found["unit_name"])
	assert.Equal(t, "Item i1 is in Drawer", found["message"])
	placement := found["placement"].(map[string]interface{})
	assert.EqualValues(t, 1, placement["grid_x"])

	rec = do(t, r, token, http.MethodPost, "/gridfinity/scan", ScanRequest{Barcode: "ECK1.COM/i2GF"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ScanResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "unplaced", resp.Action)
	assert.Equal(t, "i2", resp.ItemID)
	assert.Nil(t, resp.Placement)

	rec = do(t, r, token, http.MethodPost, "/gridfinity/scan", ScanRequest{Barcode: "ECK1.COM/does-not-existGF"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, code := errorBody(t, rec)
	assert.Equal(t, gridfinity.CodeNotFound, code)

	rec = do(t, r, token, http.MethodPost, "/gridfinity/scan", ScanRequest{Barcode: "ECK1.COM/i1XX"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanResponseListsEveryContainer(t *testing.T) {
	resp := scanResponse("i1", []layout.Location{
		{UnitID: 2, UnitName: "Drawer", Placement: gridfinity.Placement{ID: "p1", ItemID: "i1"}},
		{UnitID: 5, UnitName: "Case", Placement: gridfinity.Placement{ID: "p7", ItemID: "i1"}},
	})
	assert.Equal(t, "found", resp.Action)
	assert.EqualValues(t, 2, resp.UnitID)
	assert.Equal(t, "p1", resp.Placement.ID)
	assert.Len(t, resp.Locations, 2)
	assert.Equal(t, "Item i1 is in 2 containers", resp.Message)
}

func TestOtherOwnersContainersAreNotFound(t *testing.T) {
	r, m, token := newTestRouter(t)
	_, err := m.store.Add("i1", 0, 0, 1, 1)
	require.NoError(t, err)
	other, _, err := utils.GenerateTokens(&models.UserAuth{ID: "u2", Email: "x@y.z"}, testSecret)
	require.NoError(t, err)

	rec := do(t, r, other, http.MethodGet, "/gridfinity/units", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	for _, tc := range []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/gridfinity/units/1", nil},
		{http.MethodGet, "/gridfinity/units/1/layout", nil},
		{http.MethodPut, "/gridfinity/units/1", map[string]string{"name": "mine now"}},
		{http.MethodDelete, "/gridfinity/units/1", nil},
		{http.MethodPost, "/gridfinity/units/1/placements", map[string]interface{}{"item_id": "x", "grid_x": 3, "grid_y": 2, "width_units": 1, "depth_units": 1}},
		{http.MethodPut, "/gridfinity/placements/p1", map[string]int{"grid_x": 2}},
		{http.MethodDelete, "/gridfinity/placements/p1", nil},
		{http.MethodPost, "/gridfinity/units/1/auto-layout", AutoLayoutRequest{ItemIDs: []string{"x"}}},
		{http.MethodGet, "/gridfinity/units/1/layout.pdf", nil},
	} {
		rec := do(t, r, other, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
	}
	assert.Equal(t, 1, m.store.Len(), "the owner's layout is untouched")
}

func TestCreateUnitRejectsOversizedContainer(t *testing.T) {
	r, _, token := newTestRouter(t)

	rec := do(t, r, token, http.MethodPost, "/gridfinity/units", map[string]interface{}{"name": "Hangar", "width_mm": 1e7, "depth_mm": 1e7})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	_, code := errorBody(t, rec)
	assert.Equal(t, gridfinity.CodeInvalidSize, code)

	rec = do(t, r, token, http.MethodPost, "/gridfinity/units", map[string]interface{}{"name": "Drawer", "width_mm": 420, "depth_mm": 252})
	require.Equal(t, http.StatusCreated, rec.Code)
	var unit models.GridfinityUnit
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&unit))
	assert.Equal(t, 10, unit.GridColumns)
	assert.Equal(t, "u1", unit.OwnerID)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(fmt.Errorf("wrapped: %w", gridfinity.ErrOverlap)))
	assert.Equal(t, http.StatusNotFound, statusFor(layout.ErrUnitNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("db down")))
}

func TestItemIDsFromQuery(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, itemIDsFromQuery([]string{"a, b", "c,a", ""}))
	assert.Empty(t, itemIDsFromQuery(nil))
}
