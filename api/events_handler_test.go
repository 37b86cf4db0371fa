package api_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/field-booking-realtime/api"
	mock_api "github.com/hanksha/field-booking-realtime/api/mocks"
	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/events"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupEventsRouter(t *testing.T) (*gin.Engine, *gomock.Controller, *mock_api.MockEventHandler) {
	t.Helper()
	ctrl := gomock.NewController(t)

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	mockHandler := mock_api.NewMockEventHandler(ctrl)
	api.NewEventsHandler(mockHandler).Register(router.Group("/api/v1/events"))

	return router, ctrl, mockHandler
}

func postRaw(target, body string) *http.Request {
	req, _ := http.NewRequest("POST", target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestIngestEvent(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		router, ctrl, mockHandler := setupEventsRouter(t)
		defer ctrl.Finish()

		expected := events.BookingStatusChanged{BookingID: 7, OldStatus: bk.StatusPending, NewStatus: bk.StatusApproved}
		mockHandler.EXPECT().Handle(gomock.Any(), expected).Return(nil).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postRaw("/api/v1/events",
			`{"type":"booking.status_changed","payload":{"booking_id":7,"old_status":"pending","new_status":"approved"}}`))

		assert.Equal(t, 202, w.Code)
		assert.JSONEq(t, `{"accepted":true,"type":"booking.status_changed"}`, w.Body.String())
	})

	t.Run("malformed payload", func(t *testing.T) {
		router, ctrl, _ := setupEventsRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postRaw("/api/v1/events", `{"type":"slot.booked","payload":{"field_id":0}}`))

		assert.Equal(t, 400, w.Code)
		assert.JSONEq(t, `{"error":"malformed event: slot.booked: missing or invalid field_id"}`, w.Body.String())
	})

	t.Run("not json", func(t *testing.T) {
		router, ctrl, _ := setupEventsRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postRaw("/api/v1/events", `booking.created`))

		assert.Equal(t, 400, w.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		router, ctrl, _ := setupEventsRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postRaw("/api/v1/events", `{"type":"field.renamed","payload":{}}`))

		assert.Equal(t, 422, w.Code)
		assert.JSONEq(t, `{"error":"unknown event kind: \"field.renamed\""}`, w.Body.String())
	})

	t.Run("rejected by handler", func(t *testing.T) {
		router, ctrl, mockHandler := setupEventsRouter(t)
		defer ctrl.Finish()

		mockHandler.EXPECT().Handle(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("%w: stale", events.ErrMalformedEvent)).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postRaw("/api/v1/events", `{"type":"slot.booked","payload":{"field_id":42}}`))

		assert.Equal(t, 400, w.Code)
	})

	t.Run("handler error", func(t *testing.T) {
		router, ctrl, mockHandler := setupEventsRouter(t)
		defer ctrl.Finish()

		mockHandler.EXPECT().Handle(gomock.Any(), events.SlotBooked{FieldID: 42}).Return(assert.AnError).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postRaw("/api/v1/events", `{"type":"slot.booked","payload":{"field_id":42}}`))

		assert.Equal(t, 500, w.Code)
		assert.JSONEq(t, `{"error":"failed to apply event"}`, w.Body.String())
	})
}
