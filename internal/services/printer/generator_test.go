package printer

import (
	"bytes"
	"testing"

	"github.com/xelth-com/eckgrid/internal/gridfinity"
)

func TestGenerateLayoutPDF(t *testing.T) {
	sheet := Sheet{
		Title:   "Workbench drawer",
		Grid:    gridfinity.Grid{Columns: 4, Rows: 3},
		WidthMM: 170, DepthMM: 130,
		Placements: []gridfinity.Placement{
			{ID: "p1", ItemID: "item-1", GridX: 0, GridY: 0, WidthUnits: 2, DepthUnits: 1},
			{ID: "p2", ItemID: "item-2", GridX: 2, GridY: 1, WidthUnits: 1, DepthUnits: 2},
		},
		ItemNames: map[string]string{"item-1": "M3 screws"},
		Suffix:    "GF",
	}

	out, err := GenerateLayoutPDF(sheet)
	if err != nil {
		t.Fatalf("GenerateLayoutPDF failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output is not a PDF: %q", out[:8])
	}
}

func TestGenerateLayoutPDF_ManyPlacementsPaginate(t *testing.T) {
	sheet := Sheet{Title: "Big", Grid: gridfinity.Grid{Columns: 10, Rows: 10}}
	for i := 0; i < 40; i++ {
		sheet.Placements = append(sheet.Placements, gridfinity.Placement{
			ID: "p", ItemID: string(rune('a' + i%26)), GridX: i % 10, GridY: i / 10, WidthUnits: 1, DepthUnits: 1,
		})
	}
	if _, err := GenerateLayoutPDF(sheet); err != nil {
		t.Fatalf("GenerateLayoutPDF failed: %v", err)
	}
}

func TestGenerateLayoutPDF_DegenerateGrid(t *testing.T) {
	if _, err := GenerateLayoutPDF(Sheet{Title: "Tiny", WidthMM: 30, DepthMM: 30}); err != nil {
		t.Fatalf("GenerateLayoutPDF failed: %v", err)
	}
}

func TestQRContent(t *testing.T) {
	if got := QRContent("abc", "GF"); got != "ECK1.COM/abcGF" {
		t.Errorf("QRContent = %q", got)
	}
}

func TestParseQRContent(t *testing.T) {
	tests := []struct {
		code   string
		suffix string
		want   string
		ok     bool
	}{
		{"ECK1.COM/abcGF", "GF", "abc", true},
		{"https://eck1.com/abcGF", "GF", "abc", true},
		{"ECK1.COM/abc", "GF", "", false},
		{"ECK1.COM/abc", "", "abc", true},
		{"  item-42 ", "GF", "item-42", true},
		{"ECK1.COM/", "", "", false},
		{"a/b", "", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseQRContent(tt.code, tt.suffix)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseQRContent(%q, %q) = %q, %v; want %q, %v", tt.code, tt.suffix, got, ok, tt.want, tt.ok)
		}
	}
}

func TestQRContentRoundTrip(t *testing.T) {
	got, ok := ParseQRContent(QRContent("7f3c", "GF"), "GF")
	if !ok || got != "7f3c" {
		t.Errorf("round trip = %q, %v", got, ok)
	}
}
