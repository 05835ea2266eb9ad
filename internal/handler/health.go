package handler

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minisitehub/backend/internal/repository"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	db    *pgxpool.Pool
	cache *repository.SessionCache
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *pgxpool.Pool, cache *repository.SessionCache) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status": "ok",
	}

	if err := h.db.Ping(ctx); err != nil {
		status["database"] = "error"
		status["status"] = "degraded"
	} else {
		status["database"] = "ok"
	}

	if err := h.cache.Ping(ctx); err != nil {
		status["cache"] = "error"
		status["status"] = "degraded"
	} else {
		status["cache"] = "ok"
	}

	code := http.StatusOK
	if status["status"] == "degraded" {
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}
