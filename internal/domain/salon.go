package domain

import (
	"fmt"
	"strings"
	"time"
)

// Salon configuration is owned by the catalog; this service only reads it.
type Salon struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"not null"`
	OpeningTime string `json:"opening_time" gorm:"type:varchar(5);not null"`
	ClosingTime string `json:"closing_time" gorm:"type:varchar(5);not null"`
	TimeZone    string `json:"time_zone" gorm:"type:varchar(64);not null;default:'UTC'"`

	Services []SalonService `json:"services,omitempty" gorm:"foreignKey:SalonID"`
	Stylists []Stylist      `json:"stylists,omitempty" gorm:"foreignKey:SalonID"`
}

func (Salon) TableName() string { return "salons" }

func (s *Salon) Location() (*time.Location, error) {
	tz := s.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q", ErrValidation, tz)
	}
	return loc, nil
}

func (s *Salon) Service(id int64) (*SalonService, bool) {
	for i := range s.Services {
		if s.Services[i].ID == id {
			return &s.Services[i], true
		}
	}
	return nil, false
}

func (s *Salon) Stylist(id int64) (*Stylist, bool) {
	for i := range s.Stylists {
		if s.Stylists[i].ID == id {
			return &s.Stylists[i], true
		}
	}
	return nil, false
}

type SalonService struct {
	ID              int64  `json:"id" gorm:"primaryKey"`
	SalonID         int64  `json:"salon_id" gorm:"not null;index"`
	Name            string `json:"name" gorm:"not null"`
	DurationMinutes int    `json:"duration_minutes" gorm:"not null"`
	Price           int64  `json:"price" gorm:"not null"`
}

func (SalonService) TableName() string { return "salon_services" }

type Stylist struct {
	ID      int64  `json:"id" gorm:"primaryKey"`
	SalonID int64  `json:"salon_id" gorm:"not null;index"`
	Name    string `json:"name" gorm:"not null"`

	Services     []SalonService        `json:"services,omitempty" gorm:"many2many:stylist_services;"`
	WorkingHours []StylistWorkingHours `json:"working_hours,omitempty" gorm:"foreignKey:StylistID"`
}

func (Stylist) TableName() string { return "stylists" }

func (s *Stylist) Provides(serviceIDs []int64) bool {
	offered := make(map[int64]struct{}, len(s.Services))
	for _, svc := range s.Services {
		offered[svc.ID] = struct{}{}
	}
	for _, id := range serviceIDs {
		if _, ok := offered[id]; !ok {
			return false
		}
	}
	return true
}

// HoursFor returns the working window for a lower-case weekday name.
func (s *Stylist) HoursFor(day string) (*StylistWorkingHours, bool) {
	for i := range s.WorkingHours {
		if strings.EqualFold(s.WorkingHours[i].Day, day) {
			return &s.WorkingHours[i], true
		}
	}
	return nil, false
}

type StylistWorkingHours struct {
	ID        int64  `json:"id" gorm:"primaryKey"`
	StylistID int64  `json:"stylist_id" gorm:"not null;index"`
	Day       string `json:"day" gorm:"type:varchar(16);not null"`
	Start     string `json:"start" gorm:"type:varchar(5);not null"`
	End       string `json:"end" gorm:"type:varchar(5);not null"`
}

func (StylistWorkingHours) TableName() string { return "stylist_working_hours" }

func WeekdayKey(w time.Weekday) string {
	switch w {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}

// ClockOn places an "HH:MM" wall-clock value on the given day in loc.
func ClockOn(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad clock value %q", ErrValidation, hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
