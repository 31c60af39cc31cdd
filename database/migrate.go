package database

import (
	"fmt"

	"boostpanel-backend/models"

	"gorm.io/gorm"
)

// Migrate applies the (idempotent) schema: AutoMigrate for tables, columns
// and index tags, plus Postgres-only CHECK constraints backing the key
// quota invariants.
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.AdminUser{},
			&models.Key{},
			&models.Service{},
			&models.Order{},
			&models.Log{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		checks := []struct{ table, name, expr string }{
			{"keys", "chk_keys_used_quantity_nonneg", "used_quantity >= 0"},
			{"keys", "chk_keys_multi_within_quota", "type <> 'multi' OR used_quantity <= max_quantity"},
			{"orders", "chk_orders_quantity_pos", "quantity > 0"},
			{"services", "chk_services_quantity_range", "max_quantity = 0 OR max_quantity >= min_quantity"},
		}
		for _, c := range checks {
			stmt := fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%[1]s'::regclass
		  AND conname  = '%[2]s'
	) THEN
		ALTER TABLE %[1]s ADD CONSTRAINT %[2]s CHECK (%[3]s);
	END IF;
END $$;`, c.table, c.name, c.expr)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint %s failed: %w", c.name, err)
			}
		}
		return nil
	})
}
