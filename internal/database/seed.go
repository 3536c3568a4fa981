package database

import (
	"fmt"

	"gorm.io/gorm"

	"salonbook/internal/domain"
)

// SeedDemoSalon inserts one salon open 09:00-17:00 UTC with three services
// and two stylists. Ana works weekday mornings and offers cut and wash; Ben
// works Monday to Saturday afternoons and offers everything.
func SeedDemoSalon(db *gorm.DB) (*domain.Salon, error) {
	var salon domain.Salon
	err := db.Transaction(func(tx *gorm.DB) error {
		salon = domain.Salon{Name: "Demo Salon", OpeningTime: "09:00", ClosingTime: "17:00", TimeZone: "UTC"}
		if err := tx.Create(&salon).Error; err != nil {
			return fmt.Errorf("create salon: %w", err)
		}

		services := []domain.SalonService{
			{SalonID: salon.ID, Name: "Haircut", DurationMinutes: 30, Price: 30000},
			{SalonID: salon.ID, Name: "Wash", DurationMinutes: 15, Price: 10000},
			{SalonID: salon.ID, Name: "Coloring", DurationMinutes: 90, Price: 120000},
		}
		if err := tx.Create(&services).Error; err != nil {
			return fmt.Errorf("create services: %w", err)
		}
		cut, wash, color := services[0], services[1], services[2]

		stylists := []domain.Stylist{
			{
				SalonID:      salon.ID,
				Name:         "Ana",
				Services:     []domain.SalonService{cut, wash},
				WorkingHours: workWeek([]string{"monday", "tuesday", "wednesday", "thursday", "friday"}, "09:00", "13:00"),
			},
			{
				SalonID:      salon.ID,
				Name:         "Ben",
				Services:     []domain.SalonService{cut, wash, color},
				WorkingHours: workWeek([]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}, "12:00", "17:00"),
			},
		}
		if err := tx.Create(&stylists).Error; err != nil {
			return fmt.Errorf("create stylists: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out domain.Salon
	if err := db.Preload("Services").Preload("Stylists.Services").Preload("Stylists.WorkingHours").First(&out, salon.ID).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func workWeek(days []string, start, end string) []domain.StylistWorkingHours {
	out := make([]domain.StylistWorkingHours, 0, len(days))
	for _, d := range days {
		out = append(out, domain.StylistWorkingHours{Day: d, Start: start, End: end})
	}
	return out
}
