package user

import (
	"net/http"

	"github.com/cptrack/cptrack/internal/auth"
	"github.com/cptrack/cptrack/internal/pubsub"
	"github.com/cptrack/cptrack/internal/tracker"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleSyncWs streams sync progress events for the caller's own sync on one
// platform. Browsers cannot set headers on websocket requests, so the JWT
// arrives as a query parameter.
func (h *Handler) handleSyncWs(c *gin.Context) {
	plat, ok := parsePlatform(c.Param("platform"))
	if !ok {
		c.String(http.StatusBadRequest, "unknown platform")
		return
	}

	tokenString := c.Query("token")
	if tokenString == "" {
		c.String(http.StatusUnauthorized, "token query parameter is required")
		return
	}

	claims, err := auth.ValidateJWT(tokenString, h.cfg.Auth.JWT.Secret)
	if err != nil {
		c.String(http.StatusUnauthorized, "invalid token")
		return
	}
	userID := claims.Subject

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	topic := tracker.SyncTopic(userID, plat)
	msgChan, unsubscribe := pubsub.GetBroker().Subscribe(topic)
	defer unsubscribe()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for msg := range msgChan {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zap.S().Warnf("error writing to websocket: %v", err)
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Infof("websocket unexpected close error: %v", err)
			}
			break
		}
	}
	<-clientClosed
	zap.S().Debugf("sync websocket closed for topic %s", topic)
}
