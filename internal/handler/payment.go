package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/minisitehub/backend/internal/contextkeys"
	"github.com/minisitehub/backend/internal/domain"
	"github.com/minisitehub/backend/internal/service"
	"github.com/minisitehub/backend/pkg/payment"
)

type PaymentHandler struct {
	checkout *service.CheckoutService
	woo      *service.WooCommerceIntegration
	gateway  payment.Gateway
}

func NewPaymentHandler(checkout *service.CheckoutService, woo *service.WooCommerceIntegration, gateway payment.Gateway) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, woo: woo, gateway: gateway}
}

// CreateCheckout handles POST /api/payment/checkout.
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req domain.CheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.checkout.CreatePaymentLink(r.Context(), userID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// webhookEvent is the payload the commerce layer posts on order status changes.
type webhookEvent struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Webhook handles POST /api/payment/webhook. Activation errors are not
// reflected in the response; the commerce layer retries on non-2xx and
// the order has already been paid.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		Error(w, domain.ErrBadRequest("failed to read body"))
		return
	}

	if !h.gateway.VerifySignature(body, r.Header.Get("X-Webhook-Signature")) {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		Error(w, domain.ErrBadRequest("invalid JSON body"))
		return
	}
	if event.OrderID == "" {
		Error(w, domain.ErrBadRequest("order_id is required"))
		return
	}

	if event.Status == "completed" {
		_ = h.woo.OnOrderCompleted(r.Context(), event.OrderID)
	}

	JSON(w, http.StatusOK, map[string]bool{"received": true})
}
