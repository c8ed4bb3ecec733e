package infra

import (
	"fmt"

	"github.com/zerofarias/varo-pos-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// to create / update all tables, then applies the idempotent SQL patches
// that GORM cannot express (partial indexes mostly).
func NewDatabase(dsn string) (*gorm.DB, error) {
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
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates or updates the schema. Also used by the integration
// test harness against throwaway containers.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Branch{},
		&model.BranchSequence{},
		&model.User{},
		&model.Product{},
		&model.PaymentMethod{},
		&model.Customer{},
		&model.CustomerAccountMovement{},
		&model.CashRegister{},
		&model.CashShift{},
		&model.CashMovement{},
		&model.Sale{},
		&model.SaleItem{},
		&model.Payment{},
		&model.StockMovement{},
		&model.Invoice{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// one OPEN shift per operator and per register
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cash_shifts_open_user') THEN
		    CREATE UNIQUE INDEX idx_cash_shifts_open_user
		        ON cash_shifts (user_id)
		        WHERE status = 'OPEN';
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cash_shifts_open_register') THEN
		    CREATE UNIQUE INDEX idx_cash_shifts_open_register
		        ON cash_shifts (register_id)
		        WHERE status = 'OPEN';
		  END IF;
		END $$`,
		// at most one credit note per original sale
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_sales_credit_note_original') THEN
		    CREATE UNIQUE INDEX idx_sales_credit_note_original
		        ON sales (original_sale_id)
		        WHERE is_credit_note AND original_sale_id IS NOT NULL;
		  END IF;
		END $$`,
		// partial index for the invoice retry cron query
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_invoices_pending_retry') THEN
		    CREATE INDEX idx_invoices_pending_retry
		        ON invoices (next_retry_at)
		        WHERE status = 'PENDING' AND next_retry_at IS NOT NULL;
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch: %w", err)
		}
	}
	return nil
}
