package realtime

import (
	"net/http"
	"strings"
	"time"

	"roomsync-backend/internal/logger"

	"github.com/gorilla/websocket"
)

type WSConfig struct {
	SendBuffer      int
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	AllowedOrigins  []string
	MaxMessageBytes int64
}

// WSHandler upgrades HTTP requests to websocket clients of the hub.
type WSHandler struct {
	hub      *Hub
	cfg      WSConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, cfg WSConfig) *WSHandler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 4096
	}
	h := &WSHandler{hub: hub, cfg: cfg}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range h.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := h.hub.Connect(h.cfg.SendBuffer)
	// Browsers cannot set headers on the upgrade request, so a token may
	// ride on the query string instead of an authenticate frame.
	if token := r.URL.Query().Get("token"); token != "" {
		if userID, err := h.hub.Authenticate(c, token); err != nil {
			h.hub.reply(c, ServerMessage{Type: MsgError, Error: "authentication failed"})
		} else {
			h.hub.reply(c, ServerMessage{Type: MsgAuthenticated, UserID: userID})
		}
	}

	go h.writeLoop(ws, c)
	h.readLoop(r, ws, c)
}

func (h *WSHandler) readLoop(r *http.Request, ws *websocket.Conn, c *Conn) {
	defer func() {
		h.hub.Disconnect(c)
		_ = ws.Close()
	}()

	ws.SetReadLimit(h.cfg.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", "conn_id", c.ID, "error", err)
			}
			return
		}
		h.hub.HandleMessage(r.Context(), c, raw)
	}
}

func (h *WSHandler) writeLoop(ws *websocket.Conn, c *Conn) {
	ping := time.NewTicker(h.cfg.PongTimeout * 9 / 10)
	defer func() {
		ping.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case msg := <-c.Send():
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.hub.Disconnect(c)
				return
			}
		case <-ping.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.hub.Disconnect(c)
				return
			}
		case <-c.Done():
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
