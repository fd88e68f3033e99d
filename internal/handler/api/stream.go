package api

import (
	"net/http"
	"time"

	xlogger "CycleScope/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	streamBuffer   = 4
	maxInboundSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream pushes every new composite over a WebSocket. The latest score, if
// any, is sent right after the upgrade. Slow clients miss intermediate
// updates rather than stalling the scoring loop.
func (h *ScoreHandler) Stream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	updates, unsubscribe := h.svc.Subscribe(streamBuffer)
	defer unsubscribe()

	remote := c.RealIP()
	h.logger.Debug("ws client connected", xlogger.String("remote", remote))
	defer h.logger.Debug("ws client disconnected", xlogger.String("remote", remote))

	// The read side only handles control frames and notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxInboundSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap, err := h.svc.Latest(); err == nil {
		if err := writeJSON(conn, snap.Score); err != nil {
			return nil
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case score, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeJSON(conn, score); err != nil {
				h.logger.Debug("ws write failed", xlogger.Error(err))
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
