// Package export writes container layouts to spreadsheet files.
package export

import (
	"fmt"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xuri/excelize/v2"
)

const (
	layoutSheet     = "Layout"
	placementsSheet = "Placements"
)

// Layout is the data written to the workbook
type Layout struct {
	Name       string
	Grid       gridfinity.Grid
	Placements []gridfinity.Placement
	ItemNames  map[string]string
}

// LayoutXLSX renders the grid on one sheet (a merged, shaded block per
// placement) and the placement list on a second sheet
func LayoutXLSX(l Layout) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", layoutSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(placementsSheet); err != nil {
		return nil, err
	}

	if err := writeGrid(f, l); err != nil {
		return nil, err
	}
	if err := writeList(f, l); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GridCell returns the spreadsheet cell holding grid cell (x, y). Row 1 carries
// the title, so the grid starts at A2.
func GridCell(x, y int) (string, error) {
	return excelize.CoordinatesToCellName(x+1, y+2)
}

func writeGrid(f *excelize.File, l Layout) error {
	if err := f.SetCellValue(layoutSheet, "A1", fmt.Sprintf("%s (%dx%d)", l.Name, l.Grid.Columns, l.Grid.Rows)); err != nil {
		return err
	}
	if l.Grid.Columns == 0 || l.Grid.Rows == 0 {
		return nil
	}

	border := []excelize.Border{
		{Type: "left", Color: "999999", Style: 1},
		{Type: "right", Color: "999999", Style: 1},
		{Type: "top", Color: "999999", Style: 1},
		{Type: "bottom", Color: "999999", Style: 1},
	}
	empty, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return err
	}
	filled, err := f.NewStyle(&excelize.Style{
		Border:    border,
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}

	first, _ := GridCell(0, 0)
	last, _ := GridCell(l.Grid.Columns-1, l.Grid.Rows-1)
	if err := f.SetCellStyle(layoutSheet, first, last, empty); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(l.Grid.Columns)
	if err := f.SetColWidth(layoutSheet, "A", lastCol, 14); err != nil {
		return err
	}
	for y := 0; y < l.Grid.Rows; y++ {
		if err := f.SetRowHeight(layoutSheet, y+2, 40); err != nil {
			return err
		}
	}

	for _, p := range l.Placements {
		tl, err := GridCell(p.GridX, p.GridY)
		if err != nil {
			return err
		}
		br, err := GridCell(p.GridX+p.WidthUnits-1, p.GridY+p.DepthUnits-1)
		if err != nil {
			return err
		}
		if tl != br {
			if err := f.MergeCell(layoutSheet, tl, br); err != nil {
				return err
			}
		}
		if err := f.SetCellValue(layoutSheet, tl, name(l, p.ItemID)); err != nil {
			return err
		}
		if err := f.SetCellStyle(layoutSheet, tl, br, filled); err != nil {
			return err
		}
	}
	return nil
}

func writeList(f *excelize.File, l Layout) error {
	header := []interface{}{"Item", "Item ID", "Column", "Row", "Width (units)", "Depth (units)", "Width (mm)", "Depth (mm)"}
	if err := f.SetSheetRow(placementsSheet, "A1", &header); err != nil {
		return err
	}
	for i, p := range l.Placements {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			name(l, p.ItemID), p.ItemID,
			p.GridX + 1, p.GridY + 1,
			p.WidthUnits, p.DepthUnits,
			p.WidthUnits * gridfinity.UnitMM, p.DepthUnits * gridfinity.UnitMM,
		}
		if err := f.SetSheetRow(placementsSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func name(l Layout, itemID string) string {
	if n := l.ItemNames[itemID]; n != "" {
		return n
	}
	return itemID
}
