package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xuri/excelize/v2"
)

func TestLayoutXLSX(t *testing.T) {
	l := Layout{
		Name: "Drawer",
		Grid: gridfinity.Grid{Columns: 3, Rows: 2},
		Placements: []gridfinity.Placement{
			{ID: "p1", ItemID: "i1", GridX: 0, GridY: 0, WidthUnits: 2, DepthUnits: 1},
			{ID: "p2", ItemID: "i2", GridX: 2, GridY: 0, WidthUnits: 1, DepthUnits: 2},
		},
		ItemNames: map[string]string{"i1": "Hex keys"},
	}

	data, err := LayoutXLSX(l)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(layoutSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Drawer (3x2)", title)

	v, err := f.GetCellValue(layoutSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Hex keys", v)

	v, err = f.GetCellValue(layoutSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "i2", v, "unnamed items fall back to their id")

	merged, err := f.GetMergeCells(layoutSheet)
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	rows, err := f.GetRows(placementsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Hex keys", "i1", "1", "1", "2", "1", "84", "42"}, rows[1])
}

func TestGridCell(t *testing.T) {
	c, err := GridCell(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "A2", c)

	c, err = GridCell(27, 3)
	require.NoError(t, err)
	assert.Equal(t, "AB5", c)
}
