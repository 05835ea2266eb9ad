package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minisitehub/backend/internal/domain"
	"github.com/minisitehub/backend/internal/metrics"
	"github.com/minisitehub/backend/internal/repository"
	"github.com/minisitehub/backend/pkg/payment"
	"go.uber.org/zap"
)

// Order metadata keys written by the checkout flow and read back here.
const (
	metaMinisiteID        = "_minisite_id"
	metaSlug              = "_slug"
	metaReservationID     = "_reservation_id"
	metaItemMinisiteID    = "_minisite_id"
	metaItemSlug          = "_minisite_slug"
	metaItemReservationID = "_minisite_reservation_id"
)

// errOrderAlreadyActivated aborts the transaction when a concurrent
// delivery of the same order won the payment insert.
var errOrderAlreadyActivated = errors.New("order already activated")

// SubscriptionActivationService converts a completed order into a
// permanent slug assignment, published status, and payment records, all
// inside one transaction.
type SubscriptionActivationService struct {
	orders   payment.OrderProvider
	store    ActivationStore
	sessions SessionStore
	log      *zap.Logger
}

// NewSubscriptionActivationService creates a new SubscriptionActivationService.
func NewSubscriptionActivationService(orders payment.OrderProvider, store ActivationStore, sessions SessionStore, log *zap.Logger) *SubscriptionActivationService {
	return &SubscriptionActivationService{
		orders:   orders,
		store:    store,
		sessions: sessions,
		log:      log.Named("subscription-activation-service"),
	}
}

// ActivateFromOrder activates the minisite subscription paid for by the
// order: final slugs, published status, payment and history rows, and
// reservation cleanup, atomically. Safe to call more than once for the
// same order; redeliveries are no-ops.
func (s *SubscriptionActivationService) ActivateFromOrder(ctx context.Context, orderID string) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	minisiteID, slugPath, reservationID := s.resolveOrderMetadata(ctx, order)
	if minisiteID == "" {
		return domain.ErrBadRequest("No minisite ID found in order or session")
	}

	pair, err := domain.ParseSlugPath(slugPath)
	if err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(tx repository.ActivationTx) error {
		// Redelivered webhook: the order was already activated, leave
		// everything untouched.
		exists, err := tx.PaymentExistsForOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if exists {
			return errOrderAlreadyActivated
		}

		now := time.Now()

		// Renewals stack onto unused time: base the new period on the
		// current entitlement's expiry when one exists.
		base := now
		if current, err := tx.LatestActiveExpiry(ctx, minisiteID); err != nil {
			return err
		} else if current != nil {
			base = *current
		}
		newExpiration := domain.CalculateExpirationDate(base)
		gracePeriodEnds := domain.CalculateGracePeriodEnd(newExpiration)

		if err := tx.UpdateMinisiteSlugs(ctx, minisiteID, pair.Business, pair.Location); err != nil {
			return err
		}
		if err := tx.SetMinisiteStatus(ctx, minisiteID, domain.MinisiteStatusPublished); err != nil {
			return err
		}

		reference := order.TransactionID
		if reference == "" {
			reference = "order_" + orderID
		}
		p := &domain.Payment{
			ID:                domain.NewPaymentID(),
			MinisiteID:        minisiteID,
			UserID:            order.CustomerID,
			OrderID:           orderID,
			Status:            domain.PaymentStatusActive,
			Amount:            order.Total,
			Currency:          order.Currency,
			PaymentMethod:     "woocommerce",
			PaymentReference:  reference,
			PaidAt:            now,
			ExpiresAt:         newExpiration,
			GracePeriodEndsAt: gracePeriodEnds,
			CreatedAt:         now,
		}
		inserted, err := tx.InsertPayment(ctx, p)
		if err != nil {
			return err
		}
		if !inserted {
			// Lost the race against a concurrent delivery.
			return errOrderAlreadyActivated
		}

		history := &domain.PaymentHistory{
			ID:                domain.NewPaymentID(),
			MinisiteID:        minisiteID,
			PaymentID:         p.ID,
			Action:            domain.PaymentActionInitial,
			Amount:            p.Amount,
			Currency:          p.Currency,
			PaymentReference:  reference,
			ExpiresAt:         newExpiration,
			GracePeriodEndsAt: gracePeriodEnds,
			CreatedAt:         now,
		}
		if err := tx.InsertPaymentHistory(ctx, history); err != nil {
			return err
		}

		if reservationID != "" {
			if err := tx.DeleteReservation(ctx, reservationID); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errOrderAlreadyActivated) {
		s.log.Info("order already activated, skipping",
			zap.String("order_id", orderID),
			zap.String("minisite_id", minisiteID),
		)
		return nil
	}
	if err != nil {
		metrics.ActivationFailures.Inc()
		s.log.Error("failed to activate subscription",
			zap.String("order_id", orderID),
			zap.String("minisite_id", minisiteID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to activate subscription for order %s: %w", orderID, err)
	}

	metrics.ActivationsTotal.Inc()
	s.log.Info("successfully activated minisite subscription",
		zap.String("order_id", orderID),
		zap.String("minisite_id", minisiteID),
	)
	return nil
}

// PublishDirectly publishes a minisite for a user whose subscription is
// already active: no new payment, just status, slugs when they changed,
// and reservation cleanup, atomically.
func (s *SubscriptionActivationService) PublishDirectly(ctx context.Context, minisiteID, businessSlug, locationSlug, reservationID string) error {
	err := s.store.InTx(ctx, func(tx repository.ActivationTx) error {
		if err := tx.SetMinisiteStatus(ctx, minisiteID, domain.MinisiteStatusPublished); err != nil {
			return err
		}

		current, err := tx.MinisiteByID(ctx, minisiteID)
		if err != nil {
			return err
		}
		if current != nil && (current.BusinessSlug != businessSlug || current.LocationSlug != locationSlug) {
			if err := tx.UpdateMinisiteSlugs(ctx, minisiteID, businessSlug, locationSlug); err != nil {
				return err
			}
		}

		if reservationID != "" {
			if err := tx.DeleteReservation(ctx, reservationID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to publish minisite directly",
			zap.String("minisite_id", minisiteID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish minisite %s: %w", minisiteID, err)
	}

	s.log.Info("successfully published minisite directly",
		zap.String("minisite_id", minisiteID),
	)
	return nil
}

// resolveOrderMetadata finds the minisite metadata for an order: order
// meta first, then line-item meta, then the customer's checkout session.
// First non-empty source wins.
func (s *SubscriptionActivationService) resolveOrderMetadata(ctx context.Context, order *payment.Order) (minisiteID, slugPath, reservationID string) {
	minisiteID = order.GetMeta(metaMinisiteID)
	slugPath = order.GetMeta(metaSlug)
	reservationID = order.GetMeta(metaReservationID)
	if minisiteID != "" {
		return minisiteID, slugPath, reservationID
	}

	for i := range order.Items {
		item := &order.Items[i]
		if id := item.GetMeta(metaItemMinisiteID); id != "" {
			minisiteID = id
			if slug := item.GetMeta(metaItemSlug); slug != "" {
				slugPath = slug
			}
			if res := item.GetMeta(metaItemReservationID); res != "" {
				reservationID = res
			}
			return minisiteID, slugPath, reservationID
		}
	}

	if s.sessions != nil {
		session, err := s.sessions.Get(ctx, order.CustomerID)
		if err != nil {
			s.log.Warn("failed to load checkout session",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
			return minisiteID, slugPath, reservationID
		}
		if session != nil {
			return session.MinisiteID, session.SlugPath, session.ReservationID
		}
	}
	return minisiteID, slugPath, reservationID
}
