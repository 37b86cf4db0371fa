package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/field-booking-realtime/notification"
)

type NotificationService interface {
	Notifications(userID int64, limit int) (int, []notification.Notification)
	UnreadCount(userID int64) int
	MarkAllRead(userID int64) int
	MarkRead(userID int64, id string) bool
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) Register(rg *gin.RouterGroup) {
	rg.Use(Identity())
	rg.GET("", h.List)
	rg.GET("/unread", h.Unread)
	rg.PUT("/read-all", h.MarkAllRead)
	rg.PUT("/:id/read", h.MarkRead)
}

func (h *NotificationHandler) List(c *gin.Context) {
	// Zero lists everything the store holds.
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	unread, items := h.service.Notifications(currentUser(c), limit)
	if items == nil {
		items = []notification.Notification{}
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"unread": unread,
		"items":  items,
	})
}

func (h *NotificationHandler) Unread(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"unread": h.service.UnreadCount(currentUser(c))})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"marked": h.service.MarkAllRead(currentUser(c))})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")

	if !h.service.MarkRead(currentUser(c), id) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "notification not found or already read",
		})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "notification marked read"})
}
