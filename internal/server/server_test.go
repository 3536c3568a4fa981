package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/domain/wallet"
	"salonbook/internal/modules/booking"
	"salonbook/internal/modules/reservation"
	"salonbook/internal/modules/slots"
	"salonbook/internal/pkg/jwt"
	"salonbook/internal/pkg/lock"
	"salonbook/internal/pkg/metrics"
	"salonbook/internal/repository"
)

const monday = "2030-03-04"

type suite struct {
	router   *gin.Engine
	salon    *domain.Salon
	admin    string
	customer string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func setupSuite(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.Register()

	dsn := fmt.Sprintf("file:server_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	salon, err := database.SeedDemoSalon(db)
	require.NoError(t, err)

	salons := repository.NewSalonRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	wallets := wallet.NewService(db)
	notifier := booking.NewReleaseNotifier(nil, nil)
	bookings := booking.NewService(booking.Deps{
		DB:           db,
		Salons:       salons,
		Slots:        slotRepo,
		Appointments: repository.NewAppointmentRepository(db),
		Wallets:      wallets,
		Holds:        reservation.NewManager(slotRepo, notifier),
		Locks:        lock.NewMemoryLocker(),
	}, booking.DefaultConfig())

	tokens := jwt.New("server-test-secret", time.Hour)
	adminToken, err := tokens.GenerateToken(1, "admin")
	require.NoError(t, err)
	customerToken, err := tokens.GenerateToken(42, "customer")
	require.NoError(t, err)

	router := NewRouter(Deps{
		DB:       db,
		Tokens:   tokens,
		Slots:    slots.NewService(salons, slotRepo, slots.DefaultBuffer, nil),
		Bookings: bookings,
		Wallets:  wallets,
	})
	return &suite{router: router, salon: salon, admin: adminToken, customer: customerToken}
}

func (s *suite) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *suite) ids(t *testing.T) (ana int64, haircut, wash int64) {
	t.Helper()
	for _, st := range s.salon.Stylists {
		if st.Name == "Ana" {
			ana = st.ID
		}
	}
	for _, svc := range s.salon.Services {
		switch svc.Name {
		case "Haircut":
			haircut = svc.ID
		case "Wash":
			wash = svc.ID
		}
	}
	require.NotZero(t, ana)
	return ana, haircut, wash
}

func slotIDs(t *testing.T, rr *httptest.ResponseRecorder) []int64 {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	var data struct {
		Slots []domain.TimeSlot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	out := make([]int64, 0, len(data.Slots))
	for _, sl := range data.Slots {
		out = append(out, sl.ID)
	}
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupSuite(t)

	rr := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")

	rr = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "salonbook_")
}

func TestGenerationRequiresAdmin(t *testing.T) {
	s := setupSuite(t)
	ana, haircut, wash := s.ids(t)
	path := fmt.Sprintf("/api/v1/salons/%d/slots/generate", s.salon.ID)
	body := map[string]any{"service_ids": []int64{haircut, wash}, "date": monday, "stylist_id": ana}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, path, "", body).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, path, s.customer, body).Code)

	rr := s.do(t, http.MethodPost, path, s.admin, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, slotIDs(t, rr), 4)
}

func TestBookingFlowsOverHTTP(t *testing.T) {
	s := setupSuite(t)
	ana, haircut, wash := s.ids(t)

	rr := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/salons/%d/slots/generate", s.salon.ID), s.admin,
		map[string]any{"service_ids": []int64{haircut, wash}, "date": monday, "stylist_id": ana})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	listPath := fmt.Sprintf("/api/v1/salons/%d/slots?date=%s&stylist_id=%d", s.salon.ID, monday, ana)
	rr = s.do(t, http.MethodGet, listPath, "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	available := slotIDs(t, rr)
	require.Len(t, available, 4)

	cart := map[string]any{
		"salon_id":       s.salon.ID,
		"stylist_id":     ana,
		"service_ids":    []int64{haircut, wash},
		"slot_ids":       []int64{available[0]},
		"payment_method": "cash",
		"service_option": "store",
	}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/bookings", "", cart).Code)

	rr = s.do(t, http.MethodPost, "/api/v1/bookings", s.customer, cart)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	var held booking.BookingResult
	require.NoError(t, json.Unmarshal(env.Data, &held))
	require.NotNil(t, held.Reservation)

	checkout := map[string]any{}
	for k, v := range cart {
		checkout[k] = v
	}
	checkout["booking_attempt_id"] = held.Reservation.BookingAttemptID
	rr = s.do(t, http.MethodPost, "/api/v1/bookings/checkout", s.customer, checkout)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/api/v1/admin/wallets/42/credit", s.admin, map[string]any{"amount": 100000})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/admin/wallets/42/credit", s.customer, map[string]any{"amount": 1}).Code)

	cart["slot_ids"] = []int64{available[1]}
	cart["payment_method"] = "wallet"
	rr = s.do(t, http.MethodPost, "/api/v1/bookings", s.customer, cart)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/v1/wallets/me", s.customer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"balance":60000}`, rr.Body.String())

	rr = s.do(t, http.MethodGet, listPath, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, available[2:], slotIDs(t, rr))

	cart["slot_ids"] = []int64{available[0]}
	rr = s.do(t, http.MethodPost, "/api/v1/bookings", s.customer, cart)
	assert.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
}
