package database

import (
	"fmt"
	"time"

	"taller/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolOptions sizes the connection pool shared by every request.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewConnection initializes a new connection pool using GORM, migrates the
// core tables and applies the constraints AutoMigrate cannot express.
func NewConnection(dsn string, pool PoolOptions) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every core table and then applies schema patches.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Material{},
		&model.StockMovement{},
		&model.MaterialUsage{},
		&model.Tool{},
		&model.Repair{},
		&model.RepairHistory{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderStageHistory{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches adds CHECK constraints that back the stock invariants at
// the database level. Each patch is guarded so re-running is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ name, sql string }{
		{"chk_materials_quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_materials_quantity') THEN
    ALTER TABLE materials ADD CONSTRAINT chk_materials_quantity CHECK (quantity >= 0);
  END IF;
END $$`},
		{"chk_stock_movements_quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_movements_quantity') THEN
    ALTER TABLE stock_movements ADD CONSTRAINT chk_stock_movements_quantity
      CHECK (quantity > 0 AND kind IN ('entrada', 'salida', 'consumo'));
  END IF;
END $$`},
		{"chk_tools_available", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_tools_available') THEN
    ALTER TABLE tools ADD CONSTRAINT chk_tools_available
      CHECK (available_quantity >= 0 AND available_quantity <= total_quantity);
  END IF;
END $$`},
		{"chk_repairs_state", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_repairs_state') THEN
    ALTER TABLE repairs ADD CONSTRAINT chk_repairs_state
      CHECK (state IN ('Pendiente', 'En Proceso', 'Completado', 'Entregado'));
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.name, err)
		}
		log.Debug().Str("patch", p.name).Msg("schema patch applied")
	}
	return nil
}
