package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/field-booking-realtime/api"
	mock_api "github.com/hanksha/field-booking-realtime/api/mocks"
	"github.com/hanksha/field-booking-realtime/notification"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func setupNotificationRouter(t *testing.T) (*gin.Engine, *gomock.Controller, *mock_api.MockNotificationService) {
	t.Helper()
	ctrl := gomock.NewController(t)

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	mockService := mock_api.NewMockNotificationService(ctrl)
	handler := api.NewNotificationHandler(mockService)
	handler.Register(router.Group("/api/v1/notifications"))

	return router, ctrl, mockService
}

func newRequest(method, target, userID string) *http.Request {
	req, _ := http.NewRequest(method, target, nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	return req
}

func TestListNotifications(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, ctrl, mockService := setupNotificationRouter(t)
		defer ctrl.Finish()

		items := []notification.Notification{
			{ID: "n-2", UserID: 3, Kind: notification.KindBookingApproved, Payload: notification.Payload{BookingID: 7}},
			{ID: "n-1", UserID: 3, Kind: notification.KindSlotTaken, Read: true},
		}
		expected, _ := json.Marshal(gin.H{"unread": 1, "items": items})
		mockService.EXPECT().Notifications(int64(3), 2).Return(1, items).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("GET", "/api/v1/notifications?limit=2", "3"))

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, string(expected), w.Body.String())
	})

	t.Run("empty", func(t *testing.T) {
		router, ctrl, mockService := setupNotificationRouter(t)
		defer ctrl.Finish()

		mockService.EXPECT().Notifications(int64(3), 0).Return(0, nil).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("GET", "/api/v1/notifications", "3"))

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{"unread":0,"items":[]}`, w.Body.String())
	})

	t.Run("invalid limit", func(t *testing.T) {
		router, ctrl, _ := setupNotificationRouter(t)
		defer ctrl.Finish()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("GET", "/api/v1/notifications?limit=-1", "3"))

		assert.Equal(t, 400, w.Code)
		assert.JSONEq(t, `{"error":"limit must be a positive integer"}`, w.Body.String())
	})
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		name   string
		target string
		userID string
		code   int
		body   string
	}{
		{name: "missing", target: "/api/v1/notifications/unread", code: 401, body: `{"error":"missing identity"}`},
		{name: "not a number", target: "/api/v1/notifications/unread", userID: "bob", code: 401, body: `{"error":"invalid identity"}`},
		{name: "not positive", target: "/api/v1/notifications/unread", userID: "0", code: 401, body: `{"error":"invalid identity"}`},
		{name: "query parameter", target: "/api/v1/notifications/unread?user_id=3", code: 200, body: `{"unread":4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, ctrl, mockService := setupNotificationRouter(t)
			defer ctrl.Finish()

			if tt.code == 200 {
				mockService.EXPECT().UnreadCount(int64(3)).Return(4).Times(1)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, newRequest("GET", tt.target, tt.userID))

			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestMarkAllRead(t *testing.T) {
	router, ctrl, mockService := setupNotificationRouter(t)
	defer ctrl.Finish()

	mockService.EXPECT().MarkAllRead(int64(3)).Return(2).Times(1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newRequest("PUT", "/api/v1/notifications/read-all", "3"))

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"marked":2}`, w.Body.String())
}

func TestMarkRead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router, ctrl, mockService := setupNotificationRouter(t)
		defer ctrl.Finish()

		mockService.EXPECT().MarkRead(int64(3), "n-1").Return(true).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("PUT", "/api/v1/notifications/n-1/read", "3"))

		assert.Equal(t, 200, w.Code)
		assert.JSONEq(t, `{"message":"notification marked read"}`, w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		router, ctrl, mockService := setupNotificationRouter(t)
		defer ctrl.Finish()

		mockService.EXPECT().MarkRead(int64(3), "n-9").Return(false).Times(1)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newRequest("PUT", "/api/v1/notifications/n-9/read", "3"))

		assert.Equal(t, 404, w.Code)
		assert.JSONEq(t, `{"error":"notification not found or already read"}`, w.Body.String())
	})
}
