package user

import (
	"net/http"

	"github.com/cubedev/cubedev/internal/auth"
	"github.com/cubedev/cubedev/internal/database"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleRoomWs streams live room events (joins, solves, completions, expiry)
// to a watching client. Browsers cannot set an Authorization header on a
// websocket, hence the token query parameter.
func (h *Handler) handleRoomWs(c *gin.Context) {
	roomID := c.Param("id")
	tokenString := c.Query("token")

	if tokenString == "" {
		c.String(http.StatusUnauthorized, "token query parameter is required")
		return
	}
	if _, err := auth.ValidateJWT(tokenString, h.cfg.Auth.JWT.Secret); err != nil {
		c.String(http.StatusUnauthorized, "invalid token")
		return
	}

	if _, err := database.GetRoomByID(h.db, roomID); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.String(http.StatusNotFound, "room not found")
		} else {
			c.String(http.StatusInternalServerError, "database error")
		}
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := h.rooms.Broker().Subscribe(roomID)
	defer unsubscribe()

	// Drain client messages so pings/close frames are processed, and use the
	// read loop's exit to detect a dropped connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				// Topic closed: the room expired or was deleted.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
