package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"weather-server/ws"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// FeedHandler streams public change events to websocket clients.
type FeedHandler struct {
	mgr      *ws.Manager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewFeedHandler(mgr *ws.Manager, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		mgr:      mgr,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
	}
}

// Stream handles GET /weather/public/stream. The connection is write-only
// from the server side; client frames other than control frames are
// ignored.
func (h *FeedHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := h.mgr.Register(conn)
	h.logger.Info("feed subscriber connected", "subscriber", id, "client_ip", c.ClientIP())
	defer func() {
		h.mgr.Unregister(id)
		h.logger.Info("feed subscriber disconnected", "subscriber", id)
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("feed read ended", "subscriber", id, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// Subscribers handles GET /weather/public/stream/subscribers
func (h *FeedHandler) Subscribers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.mgr.Count()})
}
