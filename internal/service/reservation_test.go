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

func newReservationService(reservations *MockReservations, minisites *MockMinisites, payments *MockEntitlements) *ReservationService {
	availability := newAvailabilityService(minisites, reservations, payments)
	return NewReservationService(reservations, availability, zap.NewNop())
}

func liveReservation(id, businessSlug, locationSlug, userID string) *domain.Reservation {
	return &domain.Reservation{
		ID:           id,
		BusinessSlug: businessSlug,
		LocationSlug: locationSlug,
		UserID:       userID,
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(domain.ReservationWindow),
	}
}

func TestReserveSlug_Success(t *testing.T) {
	reservations := NewMockReservations()
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	result, err := svc.ReserveSlug(context.Background(), "coffee", "downtown", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.ReservationID)
	assert.Equal(t, int(domain.ReservationWindow.Seconds()), result.ExpiresInSeconds)
	assert.Equal(t, msgReserved, result.Message)

	stored := reservations.Rows[result.ReservationID]
	require.NotNil(t, stored)
	assert.Equal(t, "coffee", stored.BusinessSlug)
	assert.Equal(t, "downtown", stored.LocationSlug)
	assert.Equal(t, "user-1", stored.UserID)
	assert.WithinDuration(t, time.Now().Add(domain.ReservationWindow), stored.ExpiresAt, 2*time.Second)
}

func TestReserveSlug_InvalidFormat(t *testing.T) {
	svc := newReservationService(NewMockReservations(), &MockMinisites{}, &MockEntitlements{})

	_, err := svc.ReserveSlug(context.Background(), "Bad Slug", "", "user-1")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 422, appErr.Code)
}

func TestReserveSlug_ExtendsOwnReservation(t *testing.T) {
	reservations := NewMockReservations()
	own := liveReservation("res-1", "coffee", "downtown", "user-1")
	own.ExpiresAt = time.Now().Add(time.Minute)
	reservations.Rows["res-1"] = own
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	result, err := svc.ReserveSlug(context.Background(), "coffee", "downtown", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "res-1", result.ReservationID, "same reservation is extended, not replaced")
	assert.Equal(t, msgReservationExtended, result.Message)
	assert.WithinDuration(t, time.Now().Add(domain.ReservationWindow), reservations.Rows["res-1"].ExpiresAt, 2*time.Second)
	assert.Len(t, reservations.Rows, 1)
}

func TestReserveSlug_ReplacesReservationOnOtherPair(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["res-1"] = liveReservation("res-1", "bakery", "uptown", "user-1")
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	result, err := svc.ReserveSlug(context.Background(), "coffee", "downtown", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, "res-1", result.ReservationID)
	assert.Len(t, reservations.Rows, 1, "one live reservation per user")
	assert.Nil(t, reservations.Rows["res-1"], "old reservation on another pair is dropped")
}

func TestReserveSlug_ConflictWithOtherUser(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["res-1"] = liveReservation("res-1", "coffee", "downtown", "user-2")
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	_, err := svc.ReserveSlug(context.Background(), "coffee", "downtown", "user-1")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.Code)
	assert.Equal(t, msgSlugReservedByOther, appErr.Message)
}

func TestReserveSlug_ExpiredReservationDoesNotBlock(t *testing.T) {
	reservations := NewMockReservations()
	stale := liveReservation("res-1", "coffee", "downtown", "user-2")
	stale.ExpiresAt = time.Now().Add(-time.Second)
	reservations.Rows["res-1"] = stale
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	result, err := svc.ReserveSlug(context.Background(), "coffee", "downtown", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", reservations.Rows[result.ReservationID].UserID)
}

func TestReserveSlug_ProtectedPair(t *testing.T) {
	minisites := &MockMinisites{Sites: map[string]*domain.Minisite{
		"site-1": {ID: "site-1", BusinessSlug: "coffee", LocationSlug: "downtown"},
	}}
	payments := &MockEntitlements{Protected: map[string]bool{"site-1": true}}
	svc := newReservationService(NewMockReservations(), minisites, payments)

	_, err := svc.ReserveSlug(context.Background(), "coffee", "downtown", "user-1")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.Code)
	assert.Equal(t, msgSlugProtected, appErr.Message)
}

func TestCancelReservation_OnlyOwner(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["res-1"] = liveReservation("res-1", "coffee", "downtown", "user-1")
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	err := svc.CancelReservation(context.Background(), "res-1", "user-2")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Code)
	assert.NotNil(t, reservations.Rows["res-1"], "non-owner must not delete the reservation")

	err = svc.CancelReservation(context.Background(), "res-1", "user-1")
	require.NoError(t, err)
	assert.Nil(t, reservations.Rows["res-1"])
}

func TestIsReservationValid(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["live"] = liveReservation("live", "coffee", "downtown", "user-1")
	expired := liveReservation("expired", "bakery", "uptown", "user-2")
	expired.ExpiresAt = time.Now().Add(-time.Second)
	reservations.Rows["expired"] = expired
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	valid, err := svc.IsReservationValid(context.Background(), "live")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = svc.IsReservationValid(context.Background(), "expired")
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = svc.IsReservationValid(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestRemainingSeconds(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["live"] = liveReservation("live", "coffee", "downtown", "user-1")
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	left, err := svc.RemainingSeconds(context.Background(), "live")
	require.NoError(t, err)
	assert.Greater(t, left, 0)
	assert.LessOrEqual(t, left, int(domain.ReservationWindow.Seconds()))

	left, err = svc.RemainingSeconds(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, -1, left)
}

func TestTryAutoRenewExpiredReservation_Renews(t *testing.T) {
	reservations := NewMockReservations()
	stale := liveReservation("res-1", "coffee", "downtown", "user-1")
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	reservations.Rows["res-1"] = stale
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	renewed, err := svc.TryAutoRenewExpiredReservation(context.Background(), "res-1", "coffee", "downtown", "user-1")
	require.NoError(t, err)
	require.NotNil(t, renewed)
	assert.NotEqual(t, "res-1", renewed.ID)
	assert.Equal(t, "user-1", renewed.UserID)
	assert.Nil(t, reservations.Rows["res-1"], "stale row is dropped")
	assert.True(t, renewed.Live(time.Now()))
}

func TestTryAutoRenewExpiredReservation_PairClaimedByOtherUser(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["res-2"] = liveReservation("res-2", "coffee", "downtown", "user-2")
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	renewed, err := svc.TryAutoRenewExpiredReservation(context.Background(), "res-1", "coffee", "downtown", "user-1")
	require.NoError(t, err)
	assert.Nil(t, renewed, "pair claimed by someone else; no renewal")
	assert.NotNil(t, reservations.Rows["res-2"])
}

func TestTryAutoRenewExpiredReservation_PairNowProtected(t *testing.T) {
	minisites := &MockMinisites{Sites: map[string]*domain.Minisite{
		"site-1": {ID: "site-1", BusinessSlug: "coffee", LocationSlug: "downtown"},
	}}
	payments := &MockEntitlements{Protected: map[string]bool{"site-1": true}}
	svc := newReservationService(NewMockReservations(), minisites, payments)

	renewed, err := svc.TryAutoRenewExpiredReservation(context.Background(), "res-1", "coffee", "downtown", "user-1")
	require.NoError(t, err)
	assert.Nil(t, renewed)
}

func TestHasActiveReservation(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["res-1"] = liveReservation("res-1", "coffee", "downtown", "user-1")
	svc := newReservationService(reservations, &MockMinisites{}, &MockEntitlements{})

	has, err := svc.HasActiveReservation(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasActiveReservation(context.Background(), "user-2")
	require.NoError(t, err)
	assert.False(t, has)
}
