package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/field-booking-realtime/hub"
	"go.uber.org/zap"
)

type Connector interface {
	Connect(w http.ResponseWriter, r *http.Request, clientID string) (*hub.Conn, error)
}

type WSHandler struct {
	hub    Connector
	logger *zap.Logger
}

func NewWSHandler(h Connector, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{hub: h, logger: logger}
}

func (h *WSHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/ws", Identity(), h.Serve)
}

// Serve upgrades the request. A failed upgrade has already been answered by the
// upgrader.
func (h *WSHandler) Serve(c *gin.Context) {
	userID := currentUser(c)

	conn, err := h.hub.Connect(c.Writer, c.Request, strconv.FormatInt(userID, 10))
	if err != nil {
		c.Error(err)
		h.logger.Debug("websocket upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	h.logger.Debug("websocket connected", zap.Int64("user_id", userID), zap.String("conn_id", conn.ID()))
}
