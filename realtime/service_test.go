package realtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/events"
	"github.com/hanksha/field-booking-realtime/notification"
	"github.com/hanksha/field-booking-realtime/realtime"
	mock_realtime "github.com/hanksha/field-booking-realtime/realtime/mocks"
	"github.com/hanksha/field-booking-realtime/topic"
	"github.com/hanksha/field-booking-realtime/view"
	mock_view "github.com/hanksha/field-booking-realtime/view/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"
)

var fieldScope = bk.Scope{Kind: bk.ScopeField, ID: 42}

func newBooking(id int64, status bk.Status) bk.Booking {
	return bk.Booking{
		ID:        id,
		FieldID:   42,
		UserID:    3,
		OwnerID:   9,
		Status:    status,
		StartDate: "2026-03-15",
		StartTime: "18:00",
		EndTime:   "19:00",
		Price:     decimal.RequireFromString("100"),
	}
}

type serviceDeps struct {
	source        *mock_view.MockSource
	listener      *mock_realtime.MockListener
	flusher       *mock_realtime.MockCacheFlusher
	notifications *mock_realtime.MockNotificationSource
	store         *notification.Store
	views         *view.Reconciler
	registry      *prometheus.Registry
	metrics       *realtime.Metrics
	service       *realtime.Service
	ctx           context.Context
}

func newServiceDeps(t *testing.T) (*gomock.Controller, serviceDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)

	logger := zaptest.NewLogger(t)
	deps := serviceDeps{
		source:        mock_view.NewMockSource(ctrl),
		listener:      mock_realtime.NewMockListener(ctrl),
		flusher:       mock_realtime.NewMockCacheFlusher(ctrl),
		notifications: mock_realtime.NewMockNotificationSource(ctrl),
		store:         notification.NewStore(5, time.Minute, logger),
		registry:      prometheus.NewRegistry(),
		ctx:           context.Background(),
	}
	deps.metrics = realtime.NewMetrics(deps.registry)
	deps.views = view.NewReconciler(deps.source, logger)
	deps.service = realtime.NewService(deps.store, deps.views, logger,
		realtime.WithCacheFlusher(deps.flusher),
		realtime.WithNotificationSource(deps.notifications),
		realtime.WithMetrics(deps.metrics),
	)
	deps.service.SetListener(deps.listener)

	return ctrl, deps
}

func (d serviceDeps) openFieldView(t *testing.T, owner string, bookings ...bk.Booking) *view.View {
	t.Helper()

	d.source.EXPECT().FetchBookings(gomock.Any(), fieldScope).Return(bookings, nil).Times(1)
	v, _, err := d.views.Open(d.ctx, owner, fieldScope, view.Filters{})
	require.NoError(t, err)
	return v
}

func eventCount(t *testing.T, reg *prometheus.Registry, kind events.Kind, outcome string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "realtime_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["kind"] == string(kind) && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestHandleMalformed(t *testing.T) {
	tests := []struct {
		name string
		ev   events.Event
	}{
		{name: "nil event", ev: nil},
		{name: "booking without id", ev: events.BookingCreated{Booking: bk.Booking{FieldID: 42, UserID: 3}}},
		{name: "unknown status", ev: events.BookingStatusChanged{BookingID: 1, NewStatus: "archived"}},
		{name: "slot without field", ev: events.SlotBooked{}},
		{name: "notification without user", ev: events.NotificationPushed{Notification: notification.Notification{ID: "n1", Kind: notification.KindSlotTaken}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, deps := newServiceDeps(t)
			defer ctrl.Finish()

			err := deps.service.Handle(deps.ctx, tt.ev)
			assert.ErrorIs(t, err, events.ErrMalformedEvent)
		})
	}
}

func TestHandleNotificationPushed(t *testing.T) {
	ctrl, deps := newServiceDeps(t)
	defer ctrl.Finish()

	ev := events.NotificationPushed{
		UserID: 3,
		Notification: notification.Notification{
			ID:        "n-1",
			Kind:      notification.KindBookingApproved,
			Payload:   notification.Payload{BookingID: 7},
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	var got []notification.Notification
	deps.listener.EXPECT().
		OnNotificationsChanged(int64(3), 1, gomock.Any()).
		Do(func(_ int64, _ int, list []notification.Notification) { got = list }).
		Times(1)

	require.NoError(t, deps.service.Handle(deps.ctx, ev))
	// Redelivery is absorbed by the dedup window.
	require.NoError(t, deps.service.Handle(deps.ctx, ev))

	require.Len(t, got, 1)
	assert.Equal(t, "n-1", got[0].ID)
	assert.Equal(t, int64(3), got[0].UserID)

	assert.Equal(t, 1, deps.service.UnreadCount(3))
	assert.Equal(t, float64(1), eventCount(t, deps.registry, events.KindNotificationPushed, "duplicate"))
}

func TestHandleBookingCreated(t *testing.T) {
	ctrl, deps := newServiceDeps(t)
	defer ctrl.Finish()

	v := deps.openFieldView(t, "conn-1")
	ev := events.BookingCreated{Booking: newBooking(7, bk.StatusPending)}

	var list view.BookingList
	gomock.InOrder(
		deps.flusher.EXPECT().Flush().Times(1),
		deps.listener.EXPECT().OnEvent(topic.Field(42), ev).Times(1),
		deps.listener.EXPECT().OnEvent(topic.User(3), ev).Times(1),
		deps.listener.EXPECT().OnEvent(topic.User(9), ev).Times(1),
		deps.listener.EXPECT().
			OnBookingListChanged("conn-1", gomock.Any()).
			Do(func(_ string, l view.BookingList) { list = l }).
			Times(1),
	)

	require.NoError(t, deps.service.Handle(deps.ctx, ev))

	assert.Equal(t, v.ID(), list.ViewID)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(7), list.Items[0].ID)
	assert.Equal(t, 1, list.Stats.ByStatus[bk.StatusPending])
}

func TestHandleStatusChangedRoutesFromViews(t *testing.T) {
	ctrl, deps := newServiceDeps(t)
	defer ctrl.Finish()

	deps.openFieldView(t, "conn-1", newBooking(7, bk.StatusPending))
	ev := events.BookingStatusChanged{BookingID: 7, OldStatus: bk.StatusPending, NewStatus: bk.StatusApproved}

	var routed []topic.Topic
	deps.flusher.EXPECT().Flush().Times(1)
	deps.listener.EXPECT().
		OnEvent(gomock.Any(), ev).
		Do(func(t topic.Topic, _ events.Event) { routed = append(routed, t) }).
		Times(3)

	var list view.BookingList
	deps.listener.EXPECT().
		OnBookingListChanged("conn-1", gomock.Any()).
		Do(func(_ string, l view.BookingList) { list = l }).
		Times(1)

	require.NoError(t, deps.service.Handle(deps.ctx, ev))

	assert.Equal(t, []topic.Topic{topic.Field(42), topic.User(3), topic.User(9)}, routed)
	require.Len(t, list.Items, 1)
	assert.Equal(t, bk.StatusApproved, list.Items[0].Status)
	assert.True(t, list.Stats.Revenue.Equal(decimal.RequireFromString("100")))
}

func TestHandleStatusChangedForUnknownBooking(t *testing.T) {
	ctrl, deps := newServiceDeps(t)
	defer ctrl.Finish()

	deps.flusher.EXPECT().Flush().Times(1)

	ev := events.BookingStatusChanged{BookingID: 404, NewStatus: bk.StatusRejected}
	require.NoError(t, deps.service.Handle(deps.ctx, ev))
}

func TestHandleSlotBookedReloadFailure(t *testing.T) {
	ctrl, deps := newServiceDeps(t)
	defer ctrl.Finish()

	deps.openFieldView(t, "conn-1", newBooking(7, bk.StatusPending))
	ev := events.SlotBooked{FieldID: 42}

	deps.flusher.EXPECT().Flush().Times(1)
	deps.listener.EXPECT().OnEvent(topic.Field(42), ev).Times(1)
	deps.listener.EXPECT().OnEvent(topic.Global, ev).Times(1)
	deps.source.EXPECT().
		FetchBookings(gomock.Any(), fieldScope).
		Return(nil, errors.New("connection refused")).
		Times(1)

	var list view.BookingList
	deps.listener.EXPECT().
		OnBookingListChanged("conn-1", gomock.Any()).
		Do(func(_ string, l view.BookingList) { list = l }).
		Times(1)

	require.NoError(t, deps.service.Handle(deps.ctx, ev))

	assert.True(t, list.Stale)
	assert.NotEmpty(t, list.Error)
	require.Len(t, list.Items, 1, "last known list is kept")
	assert.Equal(t, float64(1), eventCount(t, deps.registry, events.KindSlotBooked, "stale"))
}

func TestMarkAllRead(t *testing.T) {
	ctrl, deps := newServiceDeps(t)
	defer ctrl.Finish()

	for _, id := range []string{"n-1", "n-2"} {
		deps.store.Ingest(notification.Notification{ID: id, UserID: 3, Kind: notification.KindSlotTaken})
	}

	deps.listener.EXPECT().OnNotificationsChanged(int64(3), 0, gomock.Len(2)).Times(1)

	assert.Equal(t, 2, deps.service.MarkAllRead(3))
	// Nothing left to mark, nothing published.
	assert.Equal(t, 0, deps.service.MarkAllRead(3))

	unread, items := deps.service.Notifications(3, 10)
	assert.Equal(t, 0, unread)
	assert.Len(t, items, 2)
}

func TestMarkRead(t *testing.T) {
	ctrl, deps := newServiceDeps(t)
	defer ctrl.Finish()

	deps.store.Ingest(notification.Notification{ID: "n-1", UserID: 3, Kind: notification.KindSlotTaken})
	deps.store.Ingest(notification.Notification{ID: "n-2", UserID: 3, Kind: notification.KindSlotTaken})

	deps.listener.EXPECT().OnNotificationsChanged(int64(3), 1, gomock.Any()).Times(1)

	assert.True(t, deps.service.MarkRead(3, "n-1"))
	assert.False(t, deps.service.MarkRead(3, "missing"))
	assert.Equal(t, 1, deps.service.UnreadCount(3))
}

func TestSyncNotifications(t *testing.T) {
	snapshot := []notification.Notification{
		{ID: "n-1", UserID: 3, Kind: notification.KindBookingApproved, CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	t.Run("merges the snapshot", func(t *testing.T) {
		ctrl, deps := newServiceDeps(t)
		defer ctrl.Finish()

		deps.notifications.EXPECT().FetchNotifications(gomock.Any(), int64(3)).Return(snapshot, nil).Times(2)
		deps.listener.EXPECT().OnNotificationsChanged(int64(3), 1, gomock.Len(1)).Times(1)

		changed, err := deps.service.SyncNotifications(deps.ctx, 3)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = deps.service.SyncNotifications(deps.ctx, 3)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("fetch failure keeps the store", func(t *testing.T) {
		ctrl, deps := newServiceDeps(t)
		defer ctrl.Finish()

		deps.store.Ingest(notification.Notification{ID: "local", UserID: 3, Kind: notification.KindSlotTaken})
		deps.notifications.EXPECT().FetchNotifications(gomock.Any(), int64(3)).Return(nil, errors.New("timeout")).Times(1)

		changed, err := deps.service.SyncNotifications(deps.ctx, 3)
		require.Error(t, err)
		assert.False(t, changed)
		assert.Equal(t, 1, deps.service.UnreadCount(3))
	})
}

func TestHubPresenter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	broadcaster := mock_realtime.NewMockBroadcaster(ctrl)
	presenter := realtime.NewHubPresenter(broadcaster, zaptest.NewLogger(t))

	ev := events.SlotBooked{FieldID: 42}
	broadcaster.EXPECT().Publish(topic.Field(42), string(events.KindSlotBooked), ev).Return(2, nil).Times(1)
	presenter.OnEvent(topic.Field(42), ev)

	items := []notification.Notification{{ID: "n-1", UserID: 3, Kind: notification.KindSlotTaken}}
	broadcaster.EXPECT().
		Publish(topic.User(3), realtime.FrameNotificationsChanged, realtime.NotificationsPayload{UserID: 3, Unread: 1, Items: items}).
		Return(1, nil).
		Times(1)
	presenter.OnNotificationsChanged(3, 1, items)

	list := view.BookingList{ViewID: "v-1"}
	broadcaster.EXPECT().Send("conn-1", realtime.FrameBookingListChanged, list).Return(errors.New("connection closed")).Times(1)
	presenter.OnBookingListChanged("conn-1", list)
}
