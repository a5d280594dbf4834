package migrations

import (
	"log"
	"strconv"

	"dinetrack/internal/models"

	"gorm.io/gorm"
)

// RunMigrations creates the schema and the constraints the business
// rules depend on.
func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Bill{},
		&models.BillLineItem{},
		&models.Table{},
	)
	if err != nil {
		return err
	}

	// One active bill per order, enforced at the data layer so that
	// concurrent generate calls cannot both insert. Cancelled bills do
	// not count against the constraint.
	err = db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bills_active_order
		 ON bills (order_id) WHERE status <> 'cancelled'`,
	).Error
	if err != nil {
		return err
	}

	if err := seedTables(db); err != nil {
		log.Printf("Warning: Failed to seed tables: %v", err)
	}

	log.Println("Database migrations completed successfully!")
	return nil
}

// seedTables creates the default floor layout on first run.
func seedTables(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Table{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Println("Seeding default tables...")
	for n := 1; n <= 10; n++ {
		table := &models.Table{
			TableID:     "table" + strconv.Itoa(n),
			TableNumber: n,
			Capacity:    4,
			Status:      models.TableAvailable,
		}
		if err := db.Create(table).Error; err != nil {
			return err
		}
	}
	return nil
}
