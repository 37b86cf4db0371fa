package realtime

import (
	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/hanksha/field-booking-realtime/view"
)

// Client message types handled here; subscribe, unsubscribe and ping stay in the hub.
const (
	MsgOpenView          = "open_view"
	MsgCloseView         = "close_view"
	MsgReloadView        = "reload_view"
	MsgSyncNotifications = "sync_notifications"
	MsgMarkAllRead       = "mark_all_read"
	MsgMarkRead          = "mark_read"
)

type OpenViewRequest struct {
	Scope   bk.Scope     `json:"scope"`
	Filters view.Filters `json:"filters"`
}

type ViewRequest struct {
	ViewID string `json:"view_id"`
}

type MarkReadRequest struct {
	ID string `json:"id"`
}

type MarkedReadPayload struct {
	Marked int `json:"marked"`
}
