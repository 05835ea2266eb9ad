package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/minisitehub/backend/internal/contextkeys"
	"github.com/minisitehub/backend/internal/domain"
	"github.com/minisitehub/backend/internal/service"
)

// PublishHandler handles the slug reservation and minisite publish endpoints.
type PublishHandler struct {
	availability *service.SlugAvailabilityService
	reservations *service.ReservationService
	publish      *service.PublishService
	activation   *service.SubscriptionActivationService
}

// NewPublishHandler creates a new PublishHandler.
func NewPublishHandler(availability *service.SlugAvailabilityService, reservations *service.ReservationService, publish *service.PublishService, activation *service.SubscriptionActivationService) *PublishHandler {
	return &PublishHandler{
		availability: availability,
		reservations: reservations,
		publish:      publish,
		activation:   activation,
	}
}

// CheckSlug handles POST /api/slugs/check.
func (h *PublishHandler) CheckSlug(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckSlugRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	result, err := h.availability.CheckAvailability(r.Context(), req.BusinessSlug, req.LocationSlug)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, result)
}

// ReserveSlug handles POST /api/slugs/reserve.
func (h *PublishHandler) ReserveSlug(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.ReserveSlugRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	result, err := h.reservations.ReserveSlug(r.Context(), req.BusinessSlug, req.LocationSlug, userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, result)
}

// CancelReservation handles DELETE /api/reservations/{id}.
func (h *PublishHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	if err := h.reservations.CancelReservation(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ValidateReservation handles GET /api/reservations/{id}/valid.
func (h *PublishHandler) ValidateReservation(w http.ResponseWriter, r *http.Request) {
	valid, err := h.reservations.IsReservationValid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// GetPublishForm handles GET /api/minisites/{id}/publish. It returns the
// minisite, its current slugs, and whether a direct publish is possible
// without a new payment.
func (h *PublishHandler) GetPublishForm(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	pctx, err := h.publish.GetMinisiteForPublishing(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		Error(w, err)
		return
	}

	hasSubscription, err := h.publish.HasActiveSubscription(r.Context(), pctx.Minisite.ID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"minisite":              pctx.Minisite,
		"currentSlugs":          pctx.CurrentSlugs,
		"hasActiveSubscription": hasSubscription,
	})
}

// Publish handles POST /api/minisites/{id}/publish. A minisite with an
// active subscription publishes immediately; otherwise the client must
// go through checkout and the webhook completes the publish.
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.PublishRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	pctx, err := h.publish.GetMinisiteForPublishing(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		Error(w, err)
		return
	}

	hasSubscription, err := h.publish.HasActiveSubscription(r.Context(), pctx.Minisite.ID)
	if err != nil {
		Error(w, err)
		return
	}
	if !hasSubscription {
		JSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"requiresPayment": true,
			"message":         "An active subscription is required to publish. Complete checkout to continue.",
		})
		return
	}

	if err := h.activation.PublishDirectly(r.Context(), pctx.Minisite.ID, req.BusinessSlug, req.LocationSlug, req.ReservationID); err != nil {
		Error(w, err)
		return
	}

	pair := domain.SlugPair{Business: req.BusinessSlug, Location: req.LocationSlug}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  domain.MinisiteStatusPublished,
		"path":    pair.Path(),
	})
}
