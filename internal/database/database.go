package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"salonbook/internal/domain"
	"salonbook/internal/domain/wallet"
)

func Connect(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.Println("Using SQLite for local development:", dsn)

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
}

// Migrate creates the scheduling, booking and ledger tables. Salon
// configuration tables are migrated too so local databases can be seeded.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Salon{},
		&domain.SalonService{},
		&domain.Stylist{},
		&domain.StylistWorkingHours{},
		&domain.TimeSlot{},
		&domain.Appointment{},
		&wallet.Wallet{},
		&wallet.Transaction{},
	)
}
