package infra

import (
	"fmt"

	"github.com/eoivo/embala-fest-sub001/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (partial indexes).
//
// TranslateError maps unique violations to gorm.ErrDuplicatedKey so the
// repository layer can surface them as ErrDuplicate.
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

// RunMigrations creates or updates every table and applies the schema
// patches. Integration tests call it directly against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Supplier{},
		&model.Product{},
		&model.Consumer{},
		&model.Register{},
		&model.CashWithdrawal{},
		&model.Sale{},
		&model.SaleItem{},
		&model.Setting{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that AutoMigrate cannot
// handle on its own. Each statement uses IF NOT EXISTS semantics so re-running
// on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open register per operator. The service checks first;
		// this index settles the race between two concurrent opens.
		{"one open register per operator", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_registers_one_open_per_operator
    ON registers (operator_id)
    WHERE status = 'open'`},
		// Auto-close scans for open registers on every firing.
		{"open registers lookup", `
CREATE INDEX IF NOT EXISTS idx_registers_open
    ON registers (opened_at)
    WHERE status = 'open'`},
		// Withdrawals are append-only: reject UPDATE and DELETE at the DB level.
		{"append-only withdrawals rule (update)", `
CREATE OR REPLACE RULE cash_withdrawals_no_update AS
    ON UPDATE TO cash_withdrawals DO INSTEAD NOTHING`},
		{"append-only withdrawals rule (delete)", `
CREATE OR REPLACE RULE cash_withdrawals_no_delete AS
    ON DELETE TO cash_withdrawals DO INSTEAD NOTHING`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
