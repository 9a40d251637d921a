package websocket

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the router; the upgrade itself accepts
		// any origin.
		return true
	},
}

// Handler upgrades authenticated requests to event stream connections.
type Handler struct {
	hub       *Hub
	sessions  *service.SessionService
	jwtSecret string
	ctx       context.Context
}

// NewHandler creates a new WebSocket handler.
func NewHandler(ctx context.Context, hub *Hub, sessions *service.SessionService, jwtSecret string) *Handler {
	return &Handler{hub: hub, sessions: sessions, jwtSecret: jwtSecret, ctx: ctx}
}

// ServeWS handles GET /ws/events?token=... Browsers cannot set headers on
// websocket requests, so the access token arrives as a query parameter. The
// session behind it is authorized before the upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(h.jwtSecret, token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	p, err := h.sessions.Authorize(r.Context(), claims.SessionID())
	if err != nil {
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.ctx, h.hub, conn, p.Email)
	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()

	h.hub.log.Info("websocket client connected", "user", p.Email)
}
