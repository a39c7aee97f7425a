package printer

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/eckgrid/internal/gridfinity"
)

// Sheet describes one container layout to print
type Sheet struct {
	Title      string
	Grid       gridfinity.Grid
	WidthMM    float64
	DepthMM    float64
	Placements []gridfinity.Placement
	ItemNames  map[string]string
	// QR payload is "ECK1.COM/<item_id><Suffix>"
	Suffix string
}

const (
	pageW, pageH = 210.0, 297.0
	margin       = 15.0
	gridMaxH     = 140.0
	qrSize       = 18.0
	legendRowH   = 21.0
)

// QRContent returns the QR payload printed for an item
func QRContent(itemID, suffix string) string {
	return fmt.Sprintf("ECK1.COM/%s%s", itemID, suffix)
}

// ParseQRContent extracts the item id from a scanned label. Bare item ids are
// accepted as well.
func ParseQRContent(code, suffix string) (string, bool) {
	code = strings.TrimSpace(code)
	for _, scheme := range []string{"https://", "http://"} {
		if len(code) >= len(scheme) && strings.EqualFold(code[:len(scheme)], scheme) {
			code = code[len(scheme):]
		}
	}
	const host = "ECK1.COM/"
	if len(code) >= len(host) && strings.EqualFold(code[:len(host)], host) {
		code = code[len(host):]
		if suffix != "" {
			trimmed, ok := strings.CutSuffix(code, suffix)
			if !ok {
				return "", false
			}
			code = trimmed
		}
	}
	if code == "" || strings.ContainsAny(code, "/ ") {
		return "", false
	}
	return code, true
}

// GenerateLayoutPDF draws the grid to scale with every placement numbered, then a
// legend with a QR label per placement
func GenerateLayoutPDF(s Sheet) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(pageW-2*margin, 8, s.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(pageW-2*margin, 5, fmt.Sprintf("%.0f x %.0f mm  -  %d x %d units of %d mm",
		s.WidthMM, s.DepthMM, s.Grid.Columns, s.Grid.Rows, gridfinity.UnitMM), "", 1, "L", false, 0, "")

	top := pdf.GetY() + 4
	bottom := drawGrid(pdf, s, top)

	y := bottom + 8
	pdf.SetFont("Arial", "", 9)
	for i, p := range s.Placements {
		if y+legendRowH > pageH-margin {
			pdf.AddPage()
			y = margin
		}

		png, err := qrcode.Encode(QRContent(p.ItemID, s.Suffix), qrcode.Medium, 256)
		if err != nil {
			return nil, err
		}
		imgName := fmt.Sprintf("qr_%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(png))
		pdf.ImageOptions(imgName, margin, y, qrSize, qrSize, false, opts, 0, "")

		pdf.SetXY(margin+qrSize+4, y+3)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 5, fmt.Sprintf("#%d  %s", i+1, itemName(s, p.ItemID)), "", 2, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 4, fmt.Sprintf("%dx%d bin at column %d, row %d", p.WidthUnits, p.DepthUnits, p.GridX+1, p.GridY+1), "", 2, "L", false, 0, "")
		pdf.CellFormat(0, 4, p.ItemID, "", 0, "L", false, 0, "")

		y += legendRowH
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawGrid renders the cell grid and placements starting at top; it returns the
// y coordinate below the drawing
func drawGrid(pdf *gofpdf.Fpdf, s Sheet, top float64) float64 {
	if s.Grid.Columns == 0 || s.Grid.Rows == 0 {
		pdf.SetXY(margin, top)
		pdf.CellFormat(0, 6, "Container is smaller than one grid unit.", "", 1, "L", false, 0, "")
		return top + 6
	}

	cell := math.Min((pageW-2*margin)/float64(s.Grid.Columns), gridMaxH/float64(s.Grid.Rows))

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.2)
	for y := 0; y < s.Grid.Rows; y++ {
		for x := 0; x < s.Grid.Columns; x++ {
			pdf.Rect(margin+float64(x)*cell, top+float64(y)*cell, cell, cell, "D")
		}
	}

	pdf.SetDrawColor(40, 40, 40)
	pdf.SetFillColor(221, 235, 247)
	pdf.SetLineWidth(0.5)
	pdf.SetFont("Arial", "B", 9)
	for i, p := range s.Placements {
		px := margin + float64(p.GridX)*cell
		py := top + float64(p.GridY)*cell
		w := float64(p.WidthUnits) * cell
		h := float64(p.DepthUnits) * cell
		pdf.Rect(px+0.5, py+0.5, w-1, h-1, "FD")
		pdf.SetXY(px, py+h/2-2.5)
		pdf.CellFormat(w, 5, fmt.Sprintf("#%d", i+1), "", 0, "C", false, 0, "")
	}

	return top + float64(s.Grid.Rows)*cell
}

func itemName(s Sheet, itemID string) string {
	if name := s.ItemNames[itemID]; name != "" {
		return name
	}
	return itemID
}
