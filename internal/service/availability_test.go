package service

import (
	"context"
	"testing"
	"time"

	"github.com/minisitehub/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAvailabilityService(minisites *MockMinisites, reservations *MockReservations, payments *MockEntitlements) *SlugAvailabilityService {
	return NewSlugAvailabilityService(minisites, reservations, payments, zap.NewNop())
}

func TestValidateSlugFormat(t *testing.T) {
	svc := newAvailabilityService(&MockMinisites{}, NewMockReservations(), &MockEntitlements{})

	valid := []string{"coffee-shop", "a", "a1", "123", "multi-part-slug-9"}
	for _, s := range valid {
		assert.True(t, svc.ValidateSlugFormat(s), "expected %q to be valid", s)
	}

	invalid := []string{"", "Coffee", "has space", "under_score", "slash/slug", "café"}
	for _, s := range invalid {
		assert.False(t, svc.ValidateSlugFormat(s), "expected %q to be invalid", s)
	}
}

func TestCheckAvailability_InvalidFormat(t *testing.T) {
	svc := newAvailabilityService(&MockMinisites{}, NewMockReservations(), &MockEntitlements{})

	result, err := svc.CheckAvailability(context.Background(), "Bad Slug", "downtown")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, msgBusinessSlugFormat, result.Message)

	result, err = svc.CheckAvailability(context.Background(), "coffee", "Down Town")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, msgLocationSlugFormat, result.Message)
}

func TestCheckAvailability_EmptyLocationAllowed(t *testing.T) {
	svc := newAvailabilityService(&MockMinisites{}, NewMockReservations(), &MockEntitlements{})

	result, err := svc.CheckAvailability(context.Background(), "coffee", "")
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Equal(t, msgSlugAvailable, result.Message)
}

func TestCheckAvailability_TakenByProtectedMinisite(t *testing.T) {
	minisites := &MockMinisites{Sites: map[string]*domain.Minisite{
		"site-1": {ID: "site-1", BusinessSlug: "coffee", LocationSlug: "downtown", Status: domain.MinisiteStatusPublished},
	}}
	payments := &MockEntitlements{Protected: map[string]bool{"site-1": true}}
	svc := newAvailabilityService(minisites, NewMockReservations(), payments)

	result, err := svc.CheckAvailability(context.Background(), "coffee", "downtown")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, msgSlugTaken, result.Message)
}

func TestCheckAvailability_LapsedProtectionFreesSlug(t *testing.T) {
	// Subscription and grace period both over: the pair is reclaimable.
	minisites := &MockMinisites{Sites: map[string]*domain.Minisite{
		"site-1": {ID: "site-1", BusinessSlug: "coffee", LocationSlug: "downtown", Status: domain.MinisiteStatusPublished},
	}}
	payments := &MockEntitlements{Protected: map[string]bool{"site-1": false}}
	svc := newAvailabilityService(minisites, NewMockReservations(), payments)

	result, err := svc.CheckAvailability(context.Background(), "coffee", "downtown")
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestCheckAvailability_Reserved(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["res-1"] = &domain.Reservation{
		ID:           "res-1",
		BusinessSlug: "coffee",
		LocationSlug: "downtown",
		UserID:       "user-2",
		ExpiresAt:    time.Now().Add(4 * time.Minute),
	}
	svc := newAvailabilityService(&MockMinisites{}, reservations, &MockEntitlements{})

	result, err := svc.CheckAvailability(context.Background(), "coffee", "downtown")
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Contains(t, result.Message, "currently reserved")
}

func TestCheckAvailability_ExpiredReservationPurged(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["res-1"] = &domain.Reservation{
		ID:           "res-1",
		BusinessSlug: "coffee",
		LocationSlug: "downtown",
		UserID:       "user-2",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	svc := newAvailabilityService(&MockMinisites{}, reservations, &MockEntitlements{})

	result, err := svc.CheckAvailability(context.Background(), "coffee", "downtown")
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Empty(t, reservations.Rows, "expired reservation should be purged")
}
