package slots

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/repository"
)

const monday = "2030-03-04"

type fixture struct {
	db    *gorm.DB
	svc   *Service
	salon *domain.Salon
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:slots_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	salon, err := database.SeedDemoSalon(db)
	require.NoError(t, err)

	svc := NewService(repository.NewSalonRepository(db), repository.NewSlotRepository(db), DefaultBuffer, nil)
	return &fixture{db: db, svc: svc, salon: salon}
}

func (f *fixture) service(t *testing.T, name string) int64 {
	t.Helper()
	for _, s := range f.salon.Services {
		if s.Name == name {
			return s.ID
		}
	}
	t.Fatalf("service %q not seeded", name)
	return 0
}

func (f *fixture) stylist(t *testing.T, name string) int64 {
	t.Helper()
	for _, s := range f.salon.Stylists {
		if s.Name == name {
			return s.ID
		}
	}
	t.Fatalf("stylist %q not seeded", name)
	return 0
}

func clock(t *testing.T, date, hhmm string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", date+" "+hhmm)
	require.NoError(t, err)
	return ts
}

func startsOf(slots []domain.TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.StartTime.UTC().Format("15:04"))
	}
	return out
}

func TestGenerateSlotsLaysOutBlocksInsideWorkingHours(t *testing.T) {
	f := setupFixture(t)
	ana := f.stylist(t, "Ana")

	slots, err := f.svc.GenerateSlots(context.Background(), GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{f.service(t, "Haircut"), f.service(t, "Wash")},
		Date:       monday,
		StylistID:  ana,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00", "09:55", "10:50", "11:45"}, startsOf(slots))
	for _, s := range slots {
		assert.Equal(t, 55*time.Minute, s.Duration())
		assert.Equal(t, domain.SlotAvailable, s.Status)
		assert.Equal(t, ana, s.StylistID)
		assert.EqualValues(t, 1, s.Version)
	}
	assert.Equal(t, clock(t, monday, "12:40"), slots[3].EndTime.UTC())
}

func TestGenerateSlotsIsIdempotent(t *testing.T) {
	f := setupFixture(t)
	req := GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{f.service(t, "Haircut"), f.service(t, "Wash")},
		Date:       monday,
	}

	first, err := f.svc.GenerateSlots(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.GenerateSlots(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, len(first), len(second))

	var count int64
	require.NoError(t, f.db.Model(&domain.TimeSlot{}).Count(&count).Error)
	assert.EqualValues(t, len(first), count)
}

func TestGenerateSlotsCoversEveryQualifyingStylist(t *testing.T) {
	f := setupFixture(t)

	slots, err := f.svc.GenerateSlots(context.Background(), GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{f.service(t, "Haircut"), f.service(t, "Wash")},
		Date:       monday,
	})
	require.NoError(t, err)
	require.Len(t, slots, 9)

	perStylist := map[int64]int{}
	for i, s := range slots {
		perStylist[s.StylistID]++
		if i > 0 {
			assert.False(t, s.StartTime.Before(slots[i-1].StartTime), "slots must be sorted by start")
		}
	}
	assert.Equal(t, 4, perStylist[f.stylist(t, "Ana")])
	assert.Equal(t, 5, perStylist[f.stylist(t, "Ben")])

	colored, err := f.svc.GenerateSlots(context.Background(), GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{f.service(t, "Coloring")},
		Date:       "2030-03-05",
	})
	require.NoError(t, err)
	for _, s := range colored {
		assert.Equal(t, f.stylist(t, "Ben"), s.StylistID)
	}
	assert.Len(t, colored, 3)
}

func TestGenerateSlotsSkipsWindowsOverlappingExistingSlots(t *testing.T) {
	f := setupFixture(t)
	ana := f.stylist(t, "Ana")

	existing := []domain.TimeSlot{
		{SalonID: f.salon.ID, StylistID: ana, StartTime: clock(t, monday, "08:00"), EndTime: clock(t, monday, "09:00"), Status: domain.SlotBooked},
		{SalonID: f.salon.ID, StylistID: ana, StartTime: clock(t, monday, "09:30"), EndTime: clock(t, monday, "10:00"), Status: domain.SlotCancelled},
	}
	_, err := repository.NewSlotRepository(f.db).CreateMissing(context.Background(), existing)
	require.NoError(t, err)

	slots, err := f.svc.GenerateSlots(context.Background(), GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{f.service(t, "Haircut"), f.service(t, "Wash")},
		Date:       monday,
		StylistID:  ana,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"10:50", "11:45"}, startsOf(slots))
}

func TestGenerateSlotsEmptyCases(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	cutWash := []int64{f.service(t, "Haircut"), f.service(t, "Wash")}

	sunday, err := f.svc.GenerateSlots(ctx, GenerateRequest{SalonID: f.salon.ID, ServiceIDs: cutWash, Date: "2030-03-10"})
	require.NoError(t, err)
	assert.Empty(t, sunday)

	unqualified, err := f.svc.GenerateSlots(ctx, GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{f.service(t, "Coloring")},
		Date:       monday,
		StylistID:  f.stylist(t, "Ana"),
	})
	require.NoError(t, err)
	assert.Empty(t, unqualified)

	none, err := f.svc.GenerateSlots(ctx, GenerateRequest{SalonID: f.salon.ID, Date: monday})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGenerateSlotsErrors(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	cut := f.service(t, "Haircut")

	_, err := f.svc.GenerateSlots(ctx, GenerateRequest{SalonID: 9999, ServiceIDs: []int64{cut}, Date: monday})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GenerateSlots(ctx, GenerateRequest{SalonID: f.salon.ID, ServiceIDs: []int64{cut, 9999}, Date: monday})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GenerateSlots(ctx, GenerateRequest{SalonID: f.salon.ID, ServiceIDs: []int64{cut}, Date: "04/03/2030"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.GenerateSlots(ctx, GenerateRequest{SalonID: f.salon.ID, ServiceIDs: []int64{cut}, Date: monday, StylistID: 9999})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAvailableHidesHeldSlots(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	ana := f.stylist(t, "Ana")

	slots, err := f.svc.GenerateSlots(ctx, GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{f.service(t, "Haircut"), f.service(t, "Wash")},
		Date:       monday,
		StylistID:  ana,
	})
	require.NoError(t, err)
	require.Len(t, slots, 4)

	_, err = repository.NewSlotRepository(f.db).Reserve(ctx, []int64{slots[0].ID}, time.Now().Add(time.Hour), "attempt", 1)
	require.NoError(t, err)

	available, err := f.svc.ListAvailable(ctx, f.salon.ID, ana, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:55", "10:50", "11:45"}, startsOf(available))

	_, err = f.svc.ListAvailable(ctx, f.salon.ID, 0, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGenerateSlotsRejectsRepeatedServices(t *testing.T) {
	f := setupFixture(t)
	cut := f.service(t, "Haircut")

	_, err := f.svc.GenerateSlots(context.Background(), GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{cut, cut},
		Date:       monday,
		StylistID:  f.stylist(t, "Ana"),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	var count int64
	require.NoError(t, f.db.Model(&domain.TimeSlot{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCancelSlots(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	repo := repository.NewSlotRepository(f.db)

	slots, err := f.svc.GenerateSlots(ctx, GenerateRequest{
		SalonID:    f.salon.ID,
		ServiceIDs: []int64{f.service(t, "Haircut"), f.service(t, "Wash")},
		Date:       monday,
		StylistID:  f.stylist(t, "Ana"),
	})
	require.NoError(t, err)
	require.Len(t, slots, 4)

	_, err = repo.Reserve(ctx, []int64{slots[1].ID}, time.Now().Add(time.Hour), "attempt", 1)
	require.NoError(t, err)
	_, err = repo.Commit(ctx, []int64{slots[2].ID}, "")
	require.NoError(t, err)

	_, err = f.svc.CancelSlots(ctx, f.salon.ID, []int64{slots[0].ID, slots[2].ID})
	assert.ErrorIs(t, err, domain.ErrSlotConflict)
	untouched, err := repo.GetByIDs(ctx, []int64{slots[0].ID})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotAvailable, untouched[0].Status)

	_, err = f.svc.CancelSlots(ctx, f.salon.ID+1, []int64{slots[0].ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cancelled, err := f.svc.CancelSlots(ctx, f.salon.ID, []int64{slots[0].ID, slots[1].ID})
	require.NoError(t, err)
	require.Len(t, cancelled, 2)
	for _, s := range cancelled {
		assert.Equal(t, domain.SlotCancelled, s.Status)
		assert.Nil(t, s.ReservedUntil)
	}

	available, err := f.svc.ListAvailable(ctx, f.salon.ID, 0, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"11:45"}, startsOf(available))
}
