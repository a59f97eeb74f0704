package database

import (
	"fmt"

	"gorm.io/gorm"

	"farm2go/internal/model"
	"farm2go/pkg/log"
)

// AutoMigrate auto migrate database table schema
func AutoMigrate(db *gorm.DB) error {
	log.Info("Starting database migration...")

	models := []interface{}{
		&model.Profile{},
		&model.Product{},
		&model.Order{},
		&model.Transaction{},
		&model.Notification{},
	}

	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
		log.Infof("Migrated model: %T", m)
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes create additional indexes
func CreateIndexes(db *gorm.DB) error {
	log.Info("Creating additional indexes...")

	indexes := []struct {
		table string
		name  string
		sql   string
	}{
		{
			table: "orders",
			name:  "idx_orders_buyer_status",
			sql:   "CREATE INDEX IF NOT EXISTS idx_orders_buyer_status ON orders (buyer_id, status, created_at)",
		},
		{
			table: "orders",
			name:  "idx_orders_farmer_status",
			sql:   "CREATE INDEX IF NOT EXISTS idx_orders_farmer_status ON orders (farmer_id, status, created_at)",
		},
		{
			table: "notifications",
			name:  "idx_notifications_recipient_read",
			sql:   "CREATE INDEX IF NOT EXISTS idx_notifications_recipient_read ON notifications (recipient_id, is_read, created_at)",
		},
		{
			table: "products",
			name:  "idx_products_farmer_approval",
			sql:   "CREATE INDEX IF NOT EXISTS idx_products_farmer_approval ON products (farmer_id, approval_status)",
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			log.Warnf("Failed to create index %s on table %s: %v", idx.name, idx.table, err)
		} else {
			log.Infof("Created index: %s on table %s", idx.name, idx.table)
		}
	}

	log.Info("Index creation completed")
	return nil
}

// DropTables drop all tables
func DropTables(db *gorm.DB) error {
	log.Warn("Dropping all tables...")

	tables := []string{
		"notifications",
		"transactions",
		"orders",
		"products",
		"profiles",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			log.Warnf("Failed to drop table %s: %v", table, err)
		} else {
			log.Infof("Dropped table: %s", table)
		}
	}

	log.Warn("All tables dropped")
	return nil
}

// CheckTables check if tables exist
func CheckTables(db *gorm.DB) error {
	log.Info("Checking database tables...")

	tables := []string{
		"profiles",
		"products",
		"orders",
		"transactions",
		"notifications",
	}

	for _, table := range tables {
		var count int64
		err := db.Raw("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", table).Scan(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}

		if count > 0 {
			log.Infof("Table exists: %s", table)
		} else {
			log.Warnf("Table not found: %s", table)
		}
	}

	log.Info("Table check completed")
	return nil
}
