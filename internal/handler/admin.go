package handler

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minisitehub/backend/internal/service"
	"go.uber.org/zap"
)

type AdminHandler struct {
	db      *pgxpool.Pool
	authSvc *service.AuthService
}

func NewAdminHandler(db *pgxpool.Pool, authSvc *service.AuthService) *AdminHandler {
	return &AdminHandler{db: db, authSvc: authSvc}
}

// GetStats returns system-wide metrics.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var usersCount, minisitesCount, publishedCount, reservationsCount, activePaymentsCount int

	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM users").Scan(&usersCount); err != nil {
		zap.L().Warn("failed to count users", zap.Error(err))
	}
	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM minisites").Scan(&minisitesCount); err != nil {
		zap.L().Warn("failed to count minisites", zap.Error(err))
	}
	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM minisites WHERE status = 'published'").Scan(&publishedCount); err != nil {
		zap.L().Warn("failed to count published minisites", zap.Error(err))
	}
	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM minisite_reservations WHERE expires_at > NOW()").Scan(&reservationsCount); err != nil {
		zap.L().Warn("failed to count live reservations", zap.Error(err))
	}
	if err := h.db.QueryRow(r.Context(), "SELECT COUNT(*) FROM minisite_payments WHERE status = 'active' AND expires_at > NOW()").Scan(&activePaymentsCount); err != nil {
		zap.L().Warn("failed to count active payments", zap.Error(err))
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"users":            usersCount,
		"minisites":        minisitesCount,
		"published":        publishedCount,
		"liveReservations": reservationsCount,
		"activePayments":   activePaymentsCount,
	})
}

// ListUsers returns all users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authSvc.ListUsers(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, users)
}
