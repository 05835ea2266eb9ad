package service

import (
	"context"
	"fmt"

	"github.com/minisitehub/backend/internal/domain"
	"github.com/minisitehub/backend/pkg/payment"
	"go.uber.org/zap"
)

// WooCommerceIntegration bridges the commerce layer and the activation
// pipeline: it stamps checkout-session data onto orders and reacts to
// order-completed events. Event handlers never propagate errors back to
// the commerce layer; a failed activation is logged and left for the
// retry/redelivery path.
type WooCommerceIntegration struct {
	orders       payment.OrderProvider
	activation   *SubscriptionActivationService
	reservations *ReservationService
	sessions     SessionStore
	log          *zap.Logger
}

// NewWooCommerceIntegration creates a new WooCommerceIntegration.
func NewWooCommerceIntegration(orders payment.OrderProvider, activation *SubscriptionActivationService, reservations *ReservationService, sessions SessionStore, log *zap.Logger) *WooCommerceIntegration {
	return &WooCommerceIntegration{
		orders:       orders,
		activation:   activation,
		reservations: reservations,
		sessions:     sessions,
		log:          log.Named("woocommerce-integration"),
	}
}

// TransferCartDataToOrder copies the user's checkout session onto the
// order's metadata so activation can run from the order alone, even
// after the session expires.
func (w *WooCommerceIntegration) TransferCartDataToOrder(ctx context.Context, userID string, order *payment.Order) error {
	session, err := w.sessions.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load checkout session: %w", err)
	}
	if session == nil {
		return nil
	}

	if order.Meta == nil {
		order.Meta = make(map[string]string)
	}
	order.Meta[metaMinisiteID] = session.MinisiteID
	order.Meta[metaSlug] = session.SlugPath
	order.Meta[metaReservationID] = session.ReservationID

	w.log.Info("transferred checkout session to order",
		zap.String("order_id", order.ID),
		zap.String("minisite_id", session.MinisiteID),
	)
	return nil
}

// OnOrderCompleted handles the order-completed event: it revives the
// reservation if it expired mid-payment, activates the subscription, and
// clears the checkout session. Always returns nil; the commerce layer
// must not see the order fail after the customer has paid.
func (w *WooCommerceIntegration) OnOrderCompleted(ctx context.Context, orderID string) error {
	order, err := w.orders.GetOrder(ctx, orderID)
	if err != nil {
		w.log.Error("failed to load completed order",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil
	}

	minisiteID, slugPath, reservationID := w.activation.resolveOrderMetadata(ctx, order)
	if minisiteID == "" {
		w.log.Error("completed order carries no minisite metadata",
			zap.String("order_id", orderID),
		)
		return nil
	}

	// The reservation may have lapsed while the customer was paying.
	// Re-claim the pair for them before activating; if someone else got
	// there first the slug is gone and activation must not overwrite it.
	var renewed *domain.Reservation
	if reservationID != "" {
		valid, err := w.reservations.IsReservationValid(ctx, reservationID)
		if err != nil {
			w.log.Error("failed to validate reservation for completed order",
				zap.String("order_id", orderID),
				zap.String("reservation_id", reservationID),
				zap.Error(err),
			)
			return nil
		}
		if !valid {
			pair, err := domain.ParseSlugPath(slugPath)
			if err != nil {
				w.log.Error("completed order carries malformed slug path",
					zap.String("order_id", orderID),
					zap.String("slug_path", slugPath),
				)
				return nil
			}
			renewed, err = w.reservations.TryAutoRenewExpiredReservation(ctx, reservationID, pair.Business, pair.Location, order.CustomerID)
			if err != nil {
				w.log.Error("failed to auto-renew reservation for completed order",
					zap.String("order_id", orderID),
					zap.String("reservation_id", reservationID),
					zap.Error(err),
				)
				return nil
			}
			if renewed == nil {
				w.log.Error("slug no longer available for completed order",
					zap.String("order_id", orderID),
					zap.String("minisite_id", minisiteID),
					zap.String("slug_path", slugPath),
				)
				return nil
			}
		}
	}

	if err := w.activation.ActivateFromOrder(ctx, orderID); err != nil {
		w.log.Error("failed to activate subscription for completed order",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil
	}

	// Activation deletes the reservation it knows about from the order
	// metadata; an auto-renewed replacement has a fresh id and needs its
	// own cleanup.
	if renewed != nil {
		if err := w.reservations.CancelReservation(ctx, renewed.ID, order.CustomerID); err != nil {
			w.log.Warn("failed to clean up renewed reservation",
				zap.String("reservation_id", renewed.ID),
				zap.Error(err),
			)
		}
	}

	if err := w.sessions.Delete(ctx, order.CustomerID); err != nil {
		w.log.Warn("failed to clear checkout session",
			zap.String("user_id", order.CustomerID),
			zap.Error(err),
		)
	}
	return nil
}
