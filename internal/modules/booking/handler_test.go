package booking

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/domain"
)

func setupRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := setupFixture(t)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User-ID"); raw != "" {
			id, _ := strconv.ParseInt(raw, 10, 64)
			c.Set("user_id", id)
		}
		c.Next()
	})
	NewHandler(f.svc).RegisterRoutes(v1)
	return r, f
}

func doRequest(r http.Handler, method, path string, user int64, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user > 0 {
		req.Header.Set("X-Test-User-ID", strconv.FormatInt(user, 10))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func TestHandlerRequiresUser(t *testing.T) {
	r, f := setupRouter(t)

	rr := doRequest(r, http.MethodPost, "/api/v1/bookings", 0, f.cart(domain.PaymentCash, f.anaSlots[0]))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(r, http.MethodPost, "/api/v1/bookings/checkout", 0, map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerCashBookingAndCheckout(t *testing.T) {
	r, f := setupRouter(t)
	cart := f.cart(domain.PaymentCash, f.anaSlots[0])

	rr := doRequest(r, http.MethodPost, "/api/v1/bookings", userID, cart)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res BookingResult
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &res))
	require.NotNil(t, res.Reservation)

	rr = doRequest(r, http.MethodPost, "/api/v1/bookings", userID+1, cart)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "SLOT_CONFLICT", decode(t, rr).Error.Code)

	rr = doRequest(r, http.MethodPost, "/api/v1/bookings/checkout", userID, CheckoutRequest{Cart: cart, BookingAttemptID: res.Reservation.BookingAttemptID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var out CheckoutResult
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &out))
	require.NotNil(t, out.Appointment)
	assert.Equal(t, domain.PaymentPending, out.Appointment.PaymentStatus)
}

func TestHandlerMapsBookingErrors(t *testing.T) {
	r, f := setupRouter(t)

	rr := doRequest(r, http.MethodPost, "/api/v1/bookings", userID, map[string]any{"salon_id": f.salon.ID})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rr).Error.Code)

	rr = doRequest(r, http.MethodPost, "/api/v1/bookings", userID, f.cart(domain.PaymentWallet, f.anaSlots[0]))
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", decode(t, rr).Error.Code)

	rr = doRequest(r, http.MethodPost, "/api/v1/bookings", userID, f.cart(domain.PaymentCash, 99999))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(r, http.MethodPost, "/api/v1/bookings/checkout", userID, CheckoutRequest{
		Cart:             f.cart(domain.PaymentCash, f.anaSlots[1]),
		BookingAttemptID: "not-a-uuid",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerAppointmentReads(t *testing.T) {
	r, f := setupRouter(t)
	cart := f.cart(domain.PaymentCash, f.anaSlots[2])

	rr := doRequest(r, http.MethodPost, "/api/v1/bookings", userID, cart)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res BookingResult
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &res))

	rr = doRequest(r, http.MethodPost, "/api/v1/bookings/checkout", userID, CheckoutRequest{Cart: cart, BookingAttemptID: res.Reservation.BookingAttemptID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var out CheckoutResult
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &out))
	apptPath := "/api/v1/bookings/" + strconv.FormatInt(out.Appointment.ID, 10)

	rr = doRequest(r, http.MethodGet, "/api/v1/bookings/me", userID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var list struct {
		Appointments []domain.Appointment `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &list))
	require.Len(t, list.Appointments, 1)
	assert.Equal(t, out.Appointment.ID, list.Appointments[0].ID)

	rr = doRequest(r, http.MethodGet, "/api/v1/bookings/me", userID+1, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list.Appointments = nil
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &list))
	assert.Empty(t, list.Appointments)

	rr = doRequest(r, http.MethodGet, apptPath, userID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var appt domain.Appointment
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &appt))
	assert.Equal(t, []int64{f.anaSlots[2]}, appt.SlotIDs)

	rr = doRequest(r, http.MethodGet, apptPath, userID+1, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(r, http.MethodGet, "/api/v1/bookings/abc", userID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(r, http.MethodGet, "/api/v1/bookings/me", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
