package main

import (
	"log"

	"salonbook/internal/config"
	"salonbook/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Seeding demo salon...")
	salon, err := database.SeedDemoSalon(db)
	if err != nil {
		log.Fatal("seed failed:", err)
	}

	log.Printf("Seed completed: salon_id=%d services=%d stylists=%d", salon.ID, len(salon.Services), len(salon.Stylists))
	for _, st := range salon.Stylists {
		log.Printf("  stylist id=%d name=%s services=%d", st.ID, st.Name, len(st.Services))
	}
}
