package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/field-booking-realtime/events"
)

type EventHandler interface {
	Handle(ctx context.Context, ev events.Event) error
}

// EventsHandler ingests events posted by the booking backend. They take the same
// path as broker deliveries.
type EventsHandler struct {
	handler EventHandler
}

func NewEventsHandler(handler EventHandler) *EventsHandler {
	return &EventsHandler{handler: handler}
}

func (h *EventsHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.Ingest)
}

func (h *EventsHandler) Ingest(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	ev, err := events.DecodeEnvelope(body)
	if err != nil {
		c.Error(err)
		if errors.Is(err, events.ErrUnknownKind) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	if err := h.handler.Handle(c.Request.Context(), ev); err != nil {
		c.Error(err)
		if errors.Is(err, events.ErrMalformedEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply event"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true, "type": ev.Kind()})
}
