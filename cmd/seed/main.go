// Package main provides a CLI tool for seeding the catalog with demo items and locations.
package main

import (
	"context"
	"fmt"
	"os"

	"stockledger/internal/config"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/pkg/logger"
)

// CatalogWriter is the part of the catalog repository the seeder writes through.
type CatalogWriter interface {
	UpsertItem(ctx context.Context, it *catalog.Item) (id.ID, error)
	UpsertLocation(ctx context.Context, loc *catalog.Location) (id.ID, error)
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	repo := catalog_repo.NewCatalogRepo(txManager)

	var items, locations int
	err = txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		items, locations, err = seedCatalog(ctx, repo, demoLocations(), demoItems())
		return err
	})
	if err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}

	log.Infow("seeding completed successfully", "items", items, "locations", locations)
}

// seedCatalog upserts by code, so running it twice leaves the catalog unchanged.
func seedCatalog(ctx context.Context, repo CatalogWriter, locations []catalog.Location, items []catalog.Item) (int, int, error) {
	for i := range locations {
		loc := &locations[i]
		if id.IsNil(loc.ID) {
			loc.ID = id.New()
		}
		stored, err := repo.UpsertLocation(ctx, loc)
		if err != nil {
			return 0, 0, fmt.Errorf("location %s: %w", loc.Code, err)
		}
		loc.ID = stored
	}
	for i := range items {
		it := &items[i]
		if id.IsNil(it.ID) {
			it.ID = id.New()
		}
		stored, err := repo.UpsertItem(ctx, it)
		if err != nil {
			return 0, 0, fmt.Errorf("item %s: %w", it.Code, err)
		}
		it.ID = stored
	}
	return len(items), len(locations), nil
}

func demoLocations() []catalog.Location {
	return []catalog.Location{
		{Code: "WH-01", Name: "Central Warehouse", Type: catalog.LocationWarehouse},
		{Code: "KIT-01", Name: "Main Kitchen", Type: catalog.LocationKitchen},
		{Code: "KIT-02", Name: "Staff Canteen Kitchen", Type: catalog.LocationKitchen},
		{Code: "STR-01", Name: "Dry Store", Type: catalog.LocationStore},
	}
}

func demoItems() []catalog.Item {
	return []catalog.Item{
		{Code: "RICE-25", Name: "Basmati Rice 25kg", UnitOfMeasure: "BAG", Category: "Dry Goods", Active: true},
		{Code: "FLOUR-10", Name: "Wheat Flour 10kg", UnitOfMeasure: "BAG", Category: "Dry Goods", Active: true},
		{Code: "OIL-5", Name: "Sunflower Oil 5L", UnitOfMeasure: "BTL", Category: "Dry Goods", Active: true},
		{Code: "CHK-BR", Name: "Chicken Breast", UnitOfMeasure: "KG", Category: "Protein", Active: true},
		{Code: "BEEF-MN", Name: "Beef Mince", UnitOfMeasure: "KG", Category: "Protein", Active: true},
		{Code: "EGG-30", Name: "Eggs Tray of 30", UnitOfMeasure: "TRAY", Category: "Dairy", Active: true},
		{Code: "MILK-1", Name: "Fresh Milk 1L", UnitOfMeasure: "LTR", Category: "Dairy", Active: true},
		{Code: "TOM", Name: "Tomatoes", UnitOfMeasure: "KG", Category: "Produce", Active: true},
		{Code: "ONION", Name: "Onions", UnitOfMeasure: "KG", Category: "Produce", Active: true},
		{Code: "SUGAR-50", Name: "White Sugar 50kg", UnitOfMeasure: "BAG", Category: "Dry Goods", Active: true},
	}
}
