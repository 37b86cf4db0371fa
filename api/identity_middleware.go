package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// Identity reads the user id set by the upstream gateway, from the X-User-ID
// header or, for browser websockets, the user_id query parameter.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			raw = c.Query("user_id")
		}

		if len(raw) == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			c.Abort()
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid identity"})
			c.Abort()
			return
		}

		c.Set(userIDKey, id)
	}
}

func currentUser(c *gin.Context) int64 {
	return c.MustGet(userIDKey).(int64)
}
