package service

import (
	"context"
	"fmt"
	"time"

	"github.com/minisitehub/backend/internal/domain"
	"github.com/minisitehub/backend/internal/metrics"
	"github.com/minisitehub/backend/internal/repository"
	"go.uber.org/zap"
)

const (
	msgSlugProtected    = "This slug combination is already taken by an existing minisite with an active subscription"
	msgSlugReservedByOther = "This slug combination is currently reserved by another user"
	msgReserved         = "Slug reserved for 5 minutes. Complete payment to secure it."
	msgReservationExtended = "Slug reservation extended for 5 minutes. Complete payment to secure it."
)

// ReservationService owns the slug reservation lifecycle: create,
// extend, cancel, validate, and the checkout-time auto-renew.
type ReservationService struct {
	reservations ReservationStore
	availability *SlugAvailabilityService
	log          *zap.Logger
}

// NewReservationService creates a new ReservationService.
func NewReservationService(reservations ReservationStore, availability *SlugAvailabilityService, log *zap.Logger) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		availability: availability,
		log:          log.Named("reservation-service"),
	}
}

// HasActiveReservation reports whether the user holds a live reservation.
func (s *ReservationService) HasActiveReservation(ctx context.Context, userID string) (bool, error) {
	res, err := s.reservations.LiveByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return res != nil, nil
}

// ReserveSlug claims the slug pair for the user for five minutes. A
// repeat attempt on a pair the user already holds extends the window; a
// live reservation on a different pair is replaced. Concurrent attempts
// on the same pair serialize on the pair's advisory lock, so at most one
// of two racing users gets the reservation.
func (s *ReservationService) ReserveSlug(ctx context.Context, businessSlug, locationSlug, userID string) (*domain.ReserveResult, error) {
	s.purgeExpired(ctx)

	if !s.availability.ValidateSlugFormat(businessSlug) {
		return nil, domain.ErrValidation(msgBusinessSlugFormat)
	}
	if locationSlug != "" && !s.availability.ValidateSlugFormat(locationSlug) {
		return nil, domain.ErrValidation(msgLocationSlugFormat)
	}

	protected, err := s.availability.pairProtected(ctx, businessSlug, locationSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve slug: %w", err)
	}
	if protected {
		metrics.ReservationConflicts.Inc()
		return nil, domain.ErrConflict(msgSlugProtected)
	}

	var result *domain.ReserveResult
	err = s.reservations.InPairLock(ctx, businessSlug, locationSlug, func(tx repository.ReservationTx) error {
		other, err := tx.LiveByPairOtherUser(ctx, businessSlug, locationSlug, userID)
		if err != nil {
			return err
		}
		if other != nil {
			metrics.ReservationConflicts.Inc()
			return domain.ErrConflict(msgSlugReservedByOther)
		}

		expiresAt := time.Now().Add(domain.ReservationWindow)

		// Same pair, same user: refresh the window instead of erroring.
		own, err := tx.LiveByPairForUser(ctx, businessSlug, locationSlug, userID)
		if err != nil {
			return err
		}
		if own != nil {
			if err := tx.Extend(ctx, own.ID, expiresAt); err != nil {
				return err
			}
			result = &domain.ReserveResult{
				ReservationID:    own.ID,
				ExpiresAt:        expiresAt,
				ExpiresInSeconds: int(domain.ReservationWindow.Seconds()),
				Message:          msgReservationExtended,
			}
			return nil
		}

		// One live reservation per user: drop any claim on another pair.
		prior, err := tx.LiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if prior != nil {
			if err := tx.Delete(ctx, prior.ID); err != nil {
				return err
			}
		}

		res := &domain.Reservation{
			ID:           domain.NewReservationID(),
			BusinessSlug: businessSlug,
			LocationSlug: locationSlug,
			UserID:       userID,
			CreatedAt:    time.Now(),
			ExpiresAt:    expiresAt,
		}
		if err := tx.Insert(ctx, res); err != nil {
			return err
		}
		result = &domain.ReserveResult{
			ReservationID:    res.ID,
			ExpiresAt:        expiresAt,
			ExpiresInSeconds: int(domain.ReservationWindow.Seconds()),
			Message:          msgReserved,
		}
		return nil
	})
	if err != nil {
		if _, ok := domain.AsAppError(err); !ok {
			s.log.Error("failed to reserve slug",
				zap.String("business_slug", businessSlug),
				zap.String("location_slug", locationSlug),
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	metrics.ReservationsCreated.Inc()
	s.log.Info("created slug reservation",
		zap.String("reservation_id", result.ReservationID),
		zap.String("business_slug", businessSlug),
		zap.String("location_slug", locationSlug),
		zap.String("user_id", userID),
	)
	return result, nil
}

// CancelReservation deletes the reservation iff it belongs to userID.
// A non-owner gets a not-found error and the row stays.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID, userID string) error {
	deleted, err := s.reservations.DeleteOwned(ctx, reservationID, userID)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound("Reservation not found")
	}
	s.log.Info("cancelled slug reservation",
		zap.String("reservation_id", reservationID),
		zap.String("user_id", userID),
	)
	return nil
}

// IsReservationValid reports whether the reservation exists and its
// window has not lapsed.
func (s *ReservationService) IsReservationValid(ctx context.Context, reservationID string) (bool, error) {
	res, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return false, err
	}
	return res != nil && res.Live(time.Now()), nil
}

// RemainingSeconds returns the whole seconds left in the reservation's
// window, 0 when it has lapsed, or -1 when no such reservation exists.
func (s *ReservationService) RemainingSeconds(ctx context.Context, reservationID string) (int, error) {
	res, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return -1, nil
	}
	left := int(time.Until(res.ExpiresAt).Seconds())
	if left < 0 {
		left = 0
	}
	return left, nil
}

// TryAutoRenewExpiredReservation re-reserves the pair for the original
// holder when their reservation expired mid-payment. Called only from
// the order-completion path, after IsReservationValid returned false for
// the stored id. Returns nil when someone else claimed the pair in the
// interim, so the caller surfaces a "no longer available" failure rather
// than publishing to a stale slug.
func (s *ReservationService) TryAutoRenewExpiredReservation(ctx context.Context, reservationID, businessSlug, locationSlug, userID string) (*domain.Reservation, error) {
	protected, err := s.availability.pairProtected(ctx, businessSlug, locationSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to auto-renew reservation: %w", err)
	}
	if protected {
		return nil, nil
	}

	var renewed *domain.Reservation
	err = s.reservations.InPairLock(ctx, businessSlug, locationSlug, func(tx repository.ReservationTx) error {
		other, err := tx.LiveByPairOtherUser(ctx, businessSlug, locationSlug, userID)
		if err != nil {
			return err
		}
		if other != nil {
			return nil
		}

		// Drop the stale row if lazy cleanup hasn't caught it yet.
		if err := tx.Delete(ctx, reservationID); err != nil {
			return err
		}

		res := &domain.Reservation{
			ID:           domain.NewReservationID(),
			BusinessSlug: businessSlug,
			LocationSlug: locationSlug,
			UserID:       userID,
			CreatedAt:    time.Now(),
			ExpiresAt:    time.Now().Add(domain.ReservationWindow),
		}
		if err := tx.Insert(ctx, res); err != nil {
			return err
		}
		renewed = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if renewed != nil {
		s.log.Info("auto-renewed expired reservation",
			zap.String("old_reservation_id", reservationID),
			zap.String("reservation_id", renewed.ID),
			zap.String("business_slug", businessSlug),
			zap.String("location_slug", locationSlug),
		)
	}
	return renewed, nil
}

func (s *ReservationService) purgeExpired(ctx context.Context) {
	if _, err := s.reservations.DeleteExpired(ctx); err != nil {
		s.log.Warn("failed to purge expired reservations", zap.Error(err))
	}
}
