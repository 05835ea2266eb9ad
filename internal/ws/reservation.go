package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/minisitehub/backend/internal/service"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

// countdownTick is the payload pushed to the publish form every second
// while the reservation is live.
type countdownTick struct {
	ReservationID    string `json:"reservationId"`
	Valid            bool   `json:"valid"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// CountdownHandler streams a live reservation's remaining time over a
// WebSocket so the publish form can show a countdown and react the
// moment the window lapses.
type CountdownHandler struct {
	reservations *service.ReservationService
	auth         *service.AuthService
}

// NewCountdownHandler creates a new CountdownHandler.
func NewCountdownHandler(reservations *service.ReservationService, auth *service.AuthService) *CountdownHandler {
	return &CountdownHandler{reservations: reservations, auth: auth}
}

// Handle upgrades HTTP to WebSocket and ticks once per second until the
// reservation expires or the client disconnects.
// URL: /reservations/{reservationId}/countdown?token=JWT_TOKEN
func (h *CountdownHandler) Handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	reservationID := parts[2]

	// Authenticate via query param token
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	if _, err := h.auth.VerifyToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	remaining, err := h.reservations.RemainingSeconds(r.Context(), reservationID)
	if err != nil {
		http.Error(w, "failed to load reservation", http.StatusInternalServerError)
		return
	}
	if remaining < 0 {
		http.Error(w, "reservation not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		tick := countdownTick{
			ReservationID:    reservationID,
			Valid:            remaining > 0,
			RemainingSeconds: remaining,
		}
		if err := conn.WriteJSON(tick); err != nil {
			return
		}
		if remaining <= 0 {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "reservation expired"))
			return
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}

		remaining, err = h.reservations.RemainingSeconds(r.Context(), reservationID)
		if err != nil || remaining < 0 {
			// Cancelled or claimed elsewhere; tell the client it's gone.
			remaining = 0
		}
	}
}
