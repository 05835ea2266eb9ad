package service

import (
	"context"
	"fmt"
	"time"

	"github.com/minisitehub/backend/internal/domain"
	"go.uber.org/zap"
)

// PublishService coordinates the publish workflow: it gates access to a
// minisite before the controller hands off to slug reservation, checkout,
// or the direct-publish path.
type PublishService struct {
	minisites MinisiteFinder
	payments  EntitlementStore
	log       *zap.Logger
}

// NewPublishService creates a new PublishService.
func NewPublishService(minisites MinisiteFinder, payments EntitlementStore, log *zap.Logger) *PublishService {
	return &PublishService{
		minisites: minisites,
		payments:  payments,
		log:       log.Named("publish-minisite-service"),
	}
}

// GetMinisiteForPublishing returns the minisite and its current slug
// pair for pre-filling the publish form. Only the owning user may
// publish; this is an authorization gate, not a mutation.
func (s *PublishService) GetMinisiteForPublishing(ctx context.Context, siteID, userID string) (*domain.PublishContext, error) {
	minisite, err := s.minisites.FindByID(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load minisite: %w", err)
	}
	if minisite == nil {
		return nil, domain.ErrNotFound("Minisite not found")
	}
	if minisite.CreatedBy != userID {
		return nil, domain.ErrForbidden("Access denied")
	}

	return &domain.PublishContext{
		Minisite:     minisite,
		CurrentSlugs: minisite.Slugs(),
	}, nil
}

// HasActiveSubscription reports whether the minisite's current
// entitlement is still running (grace period excluded). Direct publish
// without a new payment is allowed only while this holds.
func (s *PublishService) HasActiveSubscription(ctx context.Context, minisiteID string) (bool, error) {
	expiresAt, err := s.payments.LatestActiveExpiry(ctx, minisiteID)
	if err != nil {
		return false, err
	}
	return expiresAt != nil && expiresAt.After(time.Now()), nil
}
