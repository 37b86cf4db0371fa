package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/field-booking-realtime/api"
	mock_api "github.com/hanksha/field-booking-realtime/api/mocks"
	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupLifecycleRouter(t *testing.T) (*gin.Engine, *gomock.Controller, *mock_api.MockBookingFinder) {
	t.Helper()
	ctrl := gomock.NewController(t)

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	mockFinder := mock_api.NewMockBookingFinder(ctrl)
	now := func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	handler := api.NewLifecycleHandler(bk.NewValidator(time.UTC), mockFinder).WithClock(now)
	handler.Register(router.Group("/api/v1/lifecycle"))

	return router, ctrl, mockFinder
}

func pendingBooking() bk.Booking {
	return bk.Booking{
		ID:          7,
		FieldID:     42,
		UserID:      3,
		OwnerID:     9,
		Status:      bk.StatusPending,
		StartDate:   "2026-03-15",
		StartTime:   "18:00",
		EndTime:     "19:00",
		CancelHours: 24,
	}
}

func postJSON(target, userID string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", target, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	return req
}

func TestTransition(t *testing.T) {
	b := pendingBooking()

	t.Run("owner approves", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/transition", "9", gin.H{
			"booking": b, "to": "approved", "role": "owner",
		}))

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{"allowed":true}`, w.Body.String())
	})

	t.Run("rejection needs reasoning", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/transition", "9", gin.H{
			"booking": b, "to": "rejected", "reasoning": "  ", "role": "owner",
		}))

		assert.Equal(t, 422, w.Code)
		assert.JSONEq(t, `{"allowed":false,"field":"reasoning","error":"required when rejecting a booking"}`, w.Body.String())
	})

	t.Run("customer cannot approve", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/transition", "3", gin.H{
			"booking": b, "to": "approved", "role": "customer",
		}))

		assert.Equal(t, 422, w.Code)
		assert.JSONEq(t, `{"allowed":false,"field":"actor","error":"only the field owner or an admin can approve a booking"}`, w.Body.String())
	})

	t.Run("fetches by id", func(t *testing.T) {
		router, ctrl, mockFinder := setupLifecycleRouter(t)
		defer ctrl.Finish()

		approved := b
		approved.Status = bk.StatusApproved
		mockFinder.EXPECT().GetBookingByID(gomock.Any(), int64(7)).Return(approved, nil).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/transition", "9", gin.H{
			"booking_id": 7, "to": "rejected", "reasoning": "double booked", "role": "owner",
		}))

		assert.Equal(t, 422, w.Code)
		assert.JSONEq(t, `{"allowed":false,"field":"to","error":"transition approved -> rejected is not allowed"}`, w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		router, ctrl, mockFinder := setupLifecycleRouter(t)
		defer ctrl.Finish()

		mockFinder.EXPECT().GetBookingByID(gomock.Any(), int64(8)).Return(bk.Booking{}, bk.ErrBookingNotFound).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/transition", "9", gin.H{"booking_id": 8, "to": "approved", "role": "owner"}))

		assert.Equal(t, 404, w.Code)
		assert.JSONEq(t, `{"error":"booking not found"}`, w.Body.String())
	})

	t.Run("finder error", func(t *testing.T) {
		router, ctrl, mockFinder := setupLifecycleRouter(t)
		defer ctrl.Finish()

		mockFinder.EXPECT().GetBookingByID(gomock.Any(), int64(8)).Return(bk.Booking{}, assert.AnError).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/transition", "9", gin.H{"booking_id": 8, "to": "approved", "role": "owner"}))

		assert.Equal(t, 500, w.Code)
		assert.JSONEq(t, `{"error":"failed to fetch booking"}`, w.Body.String())
	})

	t.Run("no booking", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/transition", "9", gin.H{"to": "approved"}))

		assert.Equal(t, 400, w.Code)
		assert.JSONEq(t, `{"error":"booking or booking_id is required"}`, w.Body.String())
	})
}

func TestDeletion(t *testing.T) {
	b := pendingBooking()

	t.Run("owner may delete", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/deletion", "9", gin.H{"booking": b, "role": "owner"}))

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{"allowed":true}`, w.Body.String())
	})

	t.Run("customer may not", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/deletion", "3", gin.H{"booking": b, "role": "customer"}))

		assert.Equal(t, 403, w.Code)
		assert.JSONEq(t, `{"allowed":false,"error":"not allowed to perform this operation: only the field owner can delete a booking"}`, w.Body.String())
	})

	t.Run("completed bookings stay", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		done := b
		done.Status = bk.StatusComplete

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/deletion", "9", gin.H{"booking": done, "role": "owner"}))

		assert.Equal(t, 422, w.Code)
		assert.JSONEq(t, `{"allowed":false,"field":"status","error":"completed bookings cannot be deleted"}`, w.Body.String())
	})
}

func TestDeadline(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/deadline", "3", gin.H{"booking": pendingBooking()}))

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{"deadline":"2026-03-14T18:00:00Z","open":true}`, w.Body.String())
	})

	t.Run("closed", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		b := pendingBooking()
		b.CancelHours = 48

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/deadline", "3", gin.H{"booking": b}))

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{"deadline":"2026-03-13T18:00:00Z","open":false}`, w.Body.String())
	})

	t.Run("unavailable", func(t *testing.T) {
		router, ctrl, _ := setupLifecycleRouter(t)
		defer ctrl.Finish()

		b := pendingBooking()
		b.StartTime = ""

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postJSON("/api/v1/lifecycle/deadline", "3", gin.H{"booking": b}))

		assert.Equal(t, 422, w.Code)
		assert.JSONEq(t, `{"error":"cancellation deadline unavailable: missing start date or time"}`, w.Body.String())
	})
}
