package service

import (
	"context"
	"time"

	"github.com/minisitehub/backend/internal/domain"
	"github.com/minisitehub/backend/internal/repository"
)

// MinisiteFinder is the minisite read access the publish services need.
type MinisiteFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Minisite, error)
	FindBySlugs(ctx context.Context, businessSlug, locationSlug string) (*domain.Minisite, error)
}

// ReservationStore is the reservation persistence the reservation
// service needs, including the pair-locked transaction runner.
type ReservationStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id string) (*domain.Reservation, error)
	LiveByPair(ctx context.Context, businessSlug, locationSlug string) (*domain.Reservation, error)
	LiveByUser(ctx context.Context, userID string) (*domain.Reservation, error)
	DeleteOwned(ctx context.Context, id, userID string) (bool, error)
	InPairLock(ctx context.Context, businessSlug, locationSlug string, fn func(tx repository.ReservationTx) error) error
}

// EntitlementStore answers subscription-entitlement questions about a
// minisite's payments.
type EntitlementStore interface {
	HasSlugProtection(ctx context.Context, minisiteID string) (bool, error)
	LatestActiveExpiry(ctx context.Context, minisiteID string) (*time.Time, error)
}

// ActivationStore runs activation transactions.
type ActivationStore interface {
	InTx(ctx context.Context, fn func(tx repository.ActivationTx) error) error
}

// SessionStore is the checkout session cache surface the activation and
// integration services consume.
type SessionStore interface {
	Get(ctx context.Context, userID string) (*repository.CheckoutSession, error)
	Set(ctx context.Context, userID string, session *repository.CheckoutSession) error
	Delete(ctx context.Context, userID string) error
}
