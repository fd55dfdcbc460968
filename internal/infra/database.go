package infra

import (
	"fmt"

	"adminisgo/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx and brings the schema up
// to date. TranslateError maps unique violations to gorm.ErrDuplicatedKey so
// services can report business-key conflicts without inspecting SQLSTATEs.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates all tables and applies the patches GORM
// cannot express. Safe to re-run.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.RegistroCaja{},
		&model.CajaEstado{},
		&model.MovimientoCaja{},
		&model.Producto{},
		&model.MovimientoStock{},
		&model.Venta{},
		&model.VentaItem{},
		&model.VentaPago{},
		&model.Compra{},
		&model.CompraItem{},
		&model.CompraPago{},
		&model.RecepcionItem{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL: partial unique indexes (business
// keys are unique among live documents only) and the CHECK constraints that
// keep stock and ledger amounts non-negative.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_ventas_numero_vigente
		    ON ventas (numero) WHERE eliminada = false`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_compras_numero_vigente
		    ON compras (numero) WHERE eliminada = false`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_productos_stock_no_negativo') THEN
		    ALTER TABLE productos ADD CONSTRAINT chk_productos_stock_no_negativo CHECK (stock_actual >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_registros_caja_montos') THEN
		    ALTER TABLE registros_caja ADD CONSTRAINT chk_registros_caja_montos
		      CHECK (efectivo >= 0 AND digital >= 0 AND credito >= 0 AND otro >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_caja_estado_singleton') THEN
		    ALTER TABLE caja_estado ADD CONSTRAINT chk_caja_estado_singleton CHECK (id = 1);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
