package main

import (
	"fmt"
	"log"

	"github.com/xelth-com/eckgrid/internal/config"
	"github.com/xelth-com/eckgrid/internal/database"
	"github.com/xelth-com/eckgrid/internal/gridfinity"
	"github.com/xelth-com/eckgrid/internal/models"
	"github.com/xelth-com/eckgrid/internal/utils"
)

const (
	demoEmail    = "demo@eckgrid.local"
	demoPassword = "demo12345"
)

func main() {
	fmt.Println("🌱 Gridfinity Demo Data Seeder")
	fmt.Println()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("🔨 Running database migrations...")
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")
	fmt.Println()

	// Check if data already exists
	var userCount int64
	db.Model(&models.UserAuth{}).Where("email = ?", demoEmail).Count(&userCount)
	if userCount > 0 {
		fmt.Printf("⚠️  Demo user %s already exists. Clear demo data first? (y/N): ", demoEmail)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}

		fmt.Println("🗑️  Clearing demo data...")
		var demo models.UserAuth
		db.Where("email = ?", demoEmail).First(&demo)
		db.Exec("DELETE FROM gridfinity_placements WHERE unit_id IN (SELECT id FROM gridfinity_units WHERE owner_id = ?)", demo.ID)
		db.Exec("DELETE FROM gridfinity_units WHERE owner_id = ?", demo.ID)
		db.Exec("DELETE FROM bin_recommendations WHERE item_id IN (SELECT id FROM items WHERE owner_id = ?)", demo.ID)
		db.Unscoped().Where("owner_id = ?", demo.ID).Delete(&models.Item{})
		db.Unscoped().Delete(&demo)
		fmt.Println("✅ Data cleared")
	}

	// 1. Demo user
	hash, err := utils.HashPassword(demoPassword)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}
	user := models.UserAuth{Username: "demo", Email: demoEmail, Password: hash, Name: "Demo Workshop", Role: "user", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("❌ Failed to create user: %v", err)
	}
	fmt.Printf("👤 Created user %s (password: %s)\n\n", demoEmail, demoPassword)

	// 2. Items
	fmt.Println("🔩 Creating items...")
	items := []models.Item{
		{Name: "M3 socket head screws", Category: "fasteners", Quantity: 200, WidthMM: 30, DepthMM: 30, HeightMM: 20},
		{Name: "M4 hex nuts", Category: "fasteners", Quantity: 150, WidthMM: 25, DepthMM: 25, HeightMM: 15},
		{Name: "Allen key set", Category: "tools", Quantity: 1, WidthMM: 120, DepthMM: 40, HeightMM: 15},
		{Name: "Digital calipers", Category: "measuring", Quantity: 1, WidthMM: 230, DepthMM: 80, HeightMM: 20},
		{Name: "Flush cutters", Category: "tools", Quantity: 2, WidthMM: 125, DepthMM: 50, HeightMM: 12},
		{Name: "Heat set inserts", Category: "fasteners", Quantity: 100, WidthMM: 30, DepthMM: 30, HeightMM: 20},
		{Name: "Precision screwdrivers", Category: "tools", Quantity: 6, WidthMM: 160, DepthMM: 70, HeightMM: 25},
		{Name: "Zip ties", Category: "consumables", Quantity: 300, WidthMM: 150, DepthMM: 40, HeightMM: 30},
	}
	for i := range items {
		items[i].OwnerID = user.ID
		if err := db.Create(&items[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create item %s: %v", items[i].Name, err)
			continue
		}
		fmt.Printf("   ✓ %s\n", items[i].Name)
	}
	fmt.Println()

	// 3. Containers
	fmt.Println("📐 Creating containers...")
	units := []models.GridfinityUnit{
		{Name: "Workbench drawer", ContainerWidthMM: 420, ContainerDepthMM: 252, ContainerHeightMM: 60},
		{Name: "Tool case", ContainerWidthMM: 252, ContainerDepthMM: 168, ContainerHeightMM: 50},
	}
	for i := range units {
		units[i].OwnerID = user.ID
		units[i].Recompute()
		if err := db.Create(&units[i]).Error; err != nil {
			log.Fatalf("❌ Failed to create container %s: %v", units[i].Name, err)
		}
		fmt.Printf("   ✓ %s (%dx%d)\n", units[i].Name, units[i].GridColumns, units[i].GridRows)
	}
	fmt.Println()

	// 4. A starter layout in the first container, validated through the store
	fmt.Println("🧩 Placing starter bins...")
	drawer := units[0]
	store := gridfinity.NewStore(drawer.Grid())
	starter := []struct {
		item int
		x, y int
		w, d int
	}{
		{0, 0, 0, 1, 1},
		{1, 1, 0, 1, 1},
		{2, 2, 0, 3, 1},
		{3, 0, 1, 6, 2},
	}
	for _, s := range starter {
		p, err := store.Add(items[s.item].ID, s.x, s.y, s.w, s.d)
		if err != nil {
			log.Printf("⚠️  Skipping %s: %s", items[s.item].Name, gridfinity.Message(err))
			continue
		}
		row := models.NewGridfinityPlacement(drawer.ID, p)
		if err := db.Create(&row).Error; err != nil {
			log.Printf("⚠️  Failed to store placement for %s: %v", items[s.item].Name, err)
			continue
		}
		fmt.Printf("   ✓ %s at (%d,%d) %dx%d\n", items[s.item].Name, p.GridX, p.GridY, p.WidthUnits, p.DepthUnits)
	}

	fmt.Println()
	fmt.Printf("✅ Seeded %d items, %d containers, %d placements\n", len(items), len(units), store.Len())
}
