package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/minisitehub/backend/internal/domain"
	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Availability messages surfaced to the publish form.
const (
	msgBusinessSlugFormat = "Business slug can only contain lowercase letters, numbers, and hyphens"
	msgLocationSlugFormat = "Location slug can only contain lowercase letters, numbers, and hyphens"
	msgSlugTaken          = "This slug combination is already taken by an existing minisite"
	msgSlugAvailable      = "This slug combination is available"
)

// SlugAvailabilityService validates slug syntax and checks whether a
// slug pair is free to reserve.
type SlugAvailabilityService struct {
	minisites    MinisiteFinder
	reservations ReservationStore
	payments     EntitlementStore
	log          *zap.Logger
}

// NewSlugAvailabilityService creates a new SlugAvailabilityService.
func NewSlugAvailabilityService(minisites MinisiteFinder, reservations ReservationStore, payments EntitlementStore, log *zap.Logger) *SlugAvailabilityService {
	return &SlugAvailabilityService{
		minisites:    minisites,
		reservations: reservations,
		payments:     payments,
		log:          log.Named("slug-availability-service"),
	}
}

// ValidateSlugFormat reports whether s is a well-formed slug: non-empty,
// lowercase letters, digits, and hyphens only.
func (s *SlugAvailabilityService) ValidateSlugFormat(slug string) bool {
	return slugPattern.MatchString(slug)
}

// CheckAvailability reports whether the slug pair is free. Expired
// reservations are purged first; a purge failure is logged but never
// surfaced to the caller.
func (s *SlugAvailabilityService) CheckAvailability(ctx context.Context, businessSlug, locationSlug string) (*domain.AvailabilityResult, error) {
	s.purgeExpired(ctx)

	if !s.ValidateSlugFormat(businessSlug) {
		return &domain.AvailabilityResult{Available: false, Message: msgBusinessSlugFormat}, nil
	}
	if locationSlug != "" && !s.ValidateSlugFormat(locationSlug) {
		return &domain.AvailabilityResult{Available: false, Message: msgLocationSlugFormat}, nil
	}

	taken, err := s.pairProtected(ctx, businessSlug, locationSlug)
	if err != nil {
		s.log.Error("failed to check slug availability",
			zap.String("business_slug", businessSlug),
			zap.String("location_slug", locationSlug),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to check slug availability: %w", err)
	}
	if taken {
		return &domain.AvailabilityResult{Available: false, Message: msgSlugTaken}, nil
	}

	reservation, err := s.reservations.LiveByPair(ctx, businessSlug, locationSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug availability: %w", err)
	}
	if reservation != nil {
		minutesLeft := int(math.Ceil(time.Until(reservation.ExpiresAt).Minutes()))
		if minutesLeft < 0 {
			minutesLeft = 0
		}
		return &domain.AvailabilityResult{
			Available: false,
			Message:   fmt.Sprintf("This slug combination is currently reserved (expires in %d minutes)", minutesLeft),
		}, nil
	}

	return &domain.AvailabilityResult{Available: true, Message: msgSlugAvailable}, nil
}

// pairProtected reports whether an existing minisite owns the pair and
// still protects it. A minisite whose subscription and grace period have
// both lapsed no longer blocks the pair; its slug can be reassigned.
func (s *SlugAvailabilityService) pairProtected(ctx context.Context, businessSlug, locationSlug string) (bool, error) {
	minisite, err := s.minisites.FindBySlugs(ctx, businessSlug, locationSlug)
	if err != nil {
		return false, err
	}
	if minisite == nil {
		return false, nil
	}
	return s.payments.HasSlugProtection(ctx, minisite.ID)
}

func (s *SlugAvailabilityService) purgeExpired(ctx context.Context) {
	if _, err := s.reservations.DeleteExpired(ctx); err != nil {
		s.log.Warn("failed to purge expired reservations", zap.Error(err))
	}
}
