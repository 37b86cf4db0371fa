package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	bk "github.com/hanksha/field-booking-realtime/booking"
)

type BookingFinder interface {
	GetBookingByID(ctx context.Context, id int64) (bk.Booking, error)
}

// LifecycleHandler answers whether a status change or a deletion would be
// accepted. It never mutates a booking.
type LifecycleHandler struct {
	validator *bk.Validator
	finder    BookingFinder
	now       func() time.Time
}

func NewLifecycleHandler(validator *bk.Validator, finder BookingFinder) *LifecycleHandler {
	return &LifecycleHandler{validator: validator, finder: finder, now: time.Now}
}

// WithClock replaces the handler's clock.
func (h *LifecycleHandler) WithClock(now func() time.Time) *LifecycleHandler {
	h.now = now
	return h
}

func (h *LifecycleHandler) Register(rg *gin.RouterGroup) {
	rg.Use(Identity())
	rg.POST("/transition", h.Transition)
	rg.POST("/deletion", h.Deletion)
	rg.POST("/deadline", h.Deadline)
}

// BookingRef names a booking either inline or by id.
type BookingRef struct {
	BookingID int64       `json:"booking_id"`
	Booking   *bk.Booking `json:"booking"`
}

type TransitionBody struct {
	BookingRef
	To        bk.Status `json:"to"`
	Reasoning string    `json:"reasoning"`
	Role      bk.Role   `json:"role"`
}

type DeletionBody struct {
	BookingRef
	Role bk.Role `json:"role"`
}

func (h *LifecycleHandler) Transition(c *gin.Context) {
	var body TransitionBody
	if err := c.BindJSON(&body); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return
	}

	b, ok := h.resolve(c, body.BookingRef)
	if !ok {
		return
	}

	err := h.validator.ValidateTransition(bk.TransitionRequest{
		Booking:   b,
		To:        body.To,
		Reasoning: body.Reasoning,
		Actor:     bk.Actor{UserID: currentUser(c), Role: body.Role},
	})
	if err != nil {
		rejected(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"allowed": true})
}

func (h *LifecycleHandler) Deletion(c *gin.Context) {
	var body DeletionBody
	if err := c.BindJSON(&body); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return
	}

	b, ok := h.resolve(c, body.BookingRef)
	if !ok {
		return
	}

	if err := h.validator.ValidateDeletion(b, bk.Actor{UserID: currentUser(c), Role: body.Role}); err != nil {
		rejected(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"allowed": true})
}

func (h *LifecycleHandler) Deadline(c *gin.Context) {
	var ref BookingRef
	if err := c.BindJSON(&ref); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return
	}

	b, ok := h.resolve(c, ref)
	if !ok {
		return
	}

	deadline, err := h.validator.CancellationDeadline(b)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"deadline": deadline.Format(time.RFC3339),
		"open":     h.now().Before(deadline),
	})
}

// resolve returns the inline booking or fetches it. It writes the error response
// itself.
func (h *LifecycleHandler) resolve(c *gin.Context, ref BookingRef) (bk.Booking, bool) {
	if ref.Booking != nil {
		return *ref.Booking, true
	}

	if ref.BookingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking or booking_id is required"})
		return bk.Booking{}, false
	}

	if h.finder == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking lookup is not configured, send the booking inline"})
		return bk.Booking{}, false
	}

	b, err := h.finder.GetBookingByID(c.Request.Context(), ref.BookingID)
	if err != nil {
		c.Error(err)
		if errors.Is(err, bk.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch booking"})
		}
		return bk.Booking{}, false
	}

	return b, true
}

func rejected(c *gin.Context, err error) {
	c.Error(err)

	var verr *bk.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"allowed": false,
			"field":   verr.Field,
			"error":   verr.Reason,
		})
	case errors.Is(err, bk.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{
			"allowed": false,
			"error":   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate"})
	}
}
