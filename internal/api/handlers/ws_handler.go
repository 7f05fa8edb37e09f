package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yoockh/podcaster/internal/events"
	"github.com/yoockh/podcaster/internal/services"
	"github.com/yoockh/podcaster/internal/utils"
)

// WSHandler streams a session's status events to a websocket client.
type WSHandler struct {
	sessions services.SessionService
	bus      events.Bus
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions services.SessionService, bus events.Bus) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		bus:      bus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (h *WSHandler) SessionWS(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "missing session_id", nil))
		return
	}
	if _, err := h.sessions.Load(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote the response
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	payloads, unsubscribe, err := h.bus.Subscribe(ctx, sessionID)
	if err != nil {
		_ = wc.writeText([]byte(`{"type":"error","code":"UNAVAILABLE","message":"status stream unavailable"}`))
		return
	}
	defer unsubscribe()

	// the client only reads; the loop notices when it goes away
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				return
			}
		case p, ok := <-payloads:
			if !ok {
				return
			}
			if err := wc.writeText(p); err != nil {
				return
			}
		}
	}
}
