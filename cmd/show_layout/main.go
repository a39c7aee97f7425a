package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xelth-com/eckgrid/internal/client"
	"github.com/xelth-com/eckgrid/internal/controller"
	"github.com/xelth-com/eckgrid/internal/gridfinity"
)

// Prints every container layout of an account as a character grid.
//
//	show_layout [--json]
//	show_layout --auto <unit_id> <item_id>...
func main() {
	baseURL := getEnv("ECKGRID_URL", "http://localhost:3210")
	c := client.New(baseURL, os.Getenv("ECKGRID_TOKEN"))

	ctx := context.Background()
	if email := os.Getenv("ECKGRID_EMAIL"); email != "" {
		if err := c.Login(ctx, email, os.Getenv("ECKGRID_PASSWORD")); err != nil {
			fmt.Printf("❌ Login failed: %v\n", err)
			os.Exit(1)
		}
	}

	if len(os.Args) > 2 && os.Args[1] == "--auto" {
		autoLayout(ctx, c, os.Args[2], os.Args[3:])
		return
	}

	units, err := c.Units(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to list containers: %v\n", err)
		fmt.Println("\n💡 Set ECKGRID_EMAIL/ECKGRID_PASSWORD or ECKGRID_TOKEN")
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "--json" {
		layouts := make([]*client.Layout, 0, len(units))
		for _, u := range units {
			l, err := c.Layout(ctx, u.ID)
			if err != nil {
				fmt.Printf("❌ Container %d: %v\n", u.ID, err)
				os.Exit(1)
			}
			layouts = append(layouts, l)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(layouts)
		return
	}

	for _, u := range units {
		l, err := c.Layout(ctx, u.ID)
		if err != nil {
			fmt.Printf("❌ Container %d: %v\n", u.ID, err)
			continue
		}
		fmt.Printf("📐 %s  #%d  %.0fx%.0f mm  %dx%d\n", l.Name, l.ID, l.ContainerWidthMM, l.ContainerDepthMM, l.GridColumns, l.GridRows)
		fmt.Print(render(l.Grid(), l.Placements))
		fmt.Println()
	}
}

func autoLayout(ctx context.Context, c *client.Client, rawID string, itemIDs []string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		fmt.Printf("❌ Invalid container id %q\n", rawID)
		os.Exit(1)
	}

	editor := controller.New(c.Unit(id))
	if err := editor.Refresh(ctx); err != nil {
		fmt.Printf("❌ %s\n", gridfinity.Message(err))
		os.Exit(1)
	}

	res, err := editor.AutoLayout(ctx, itemIDs)
	if err != nil {
		fmt.Printf("❌ Auto-layout failed: %s\n", gridfinity.Message(err))
		os.Exit(1)
	}
	for _, f := range res.Failed {
		fmt.Printf("   ✗ %s: %s\n", f.ItemID, f.Error)
	}
	fmt.Printf("✅ %s\n\n", res.Summary())
	fmt.Print(render(editor.Grid(), editor.Placements()))
}

// render draws one character per cell: a letter per placement, '.' when free
func render(g gridfinity.Grid, placements []gridfinity.Placement) string {
	cells := make([][]byte, g.Rows)
	for y := range cells {
		cells[y] = []byte(strings.Repeat(".", g.Columns))
	}
	for i, p := range placements {
		mark := byte('A' + i%26)
		for _, cell := range gridfinity.CellsOccupiedBy(p) {
			if g.Contains(cell) {
				cells[cell.Y][cell.X] = mark
			}
		}
	}

	var b strings.Builder
	for _, row := range cells {
		b.WriteString("   ")
		b.Write(row)
		b.WriteByte('\n')
	}
	for i, p := range placements {
		fmt.Fprintf(&b, "   %c  %s  %dx%d at (%d,%d)\n", 'A'+i%26, p.ItemID, p.WidthUnits, p.DepthUnits, p.GridX, p.GridY)
	}
	return b.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
