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

func TestGetMinisiteForPublishing_NotFound(t *testing.T) {
	svc := NewPublishService(&MockMinisites{}, &MockEntitlements{}, zap.NewNop())

	_, err := svc.GetMinisiteForPublishing(context.Background(), "missing", "user-1")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.Code)
}

func TestGetMinisiteForPublishing_AccessDenied(t *testing.T) {
	minisites := &MockMinisites{Sites: map[string]*domain.Minisite{
		"site-1": {ID: "site-1", CreatedBy: "user-2"},
	}}
	svc := NewPublishService(minisites, &MockEntitlements{}, zap.NewNop())

	_, err := svc.GetMinisiteForPublishing(context.Background(), "site-1", "user-1")
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 403, appErr.Code)
}

func TestGetMinisiteForPublishing_ReturnsCurrentSlugs(t *testing.T) {
	minisites := &MockMinisites{Sites: map[string]*domain.Minisite{
		"site-1": {
			ID:           "site-1",
			BusinessSlug: "coffee",
			LocationSlug: "downtown",
			Status:       domain.MinisiteStatusDraft,
			CreatedBy:    "user-1",
		},
	}}
	svc := NewPublishService(minisites, &MockEntitlements{}, zap.NewNop())

	pctx, err := svc.GetMinisiteForPublishing(context.Background(), "site-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "site-1", pctx.Minisite.ID)
	assert.Equal(t, domain.SlugPair{Business: "coffee", Location: "downtown"}, pctx.CurrentSlugs)
}

func TestHasActiveSubscription(t *testing.T) {
	future := time.Now().Add(30 * 24 * time.Hour)
	past := time.Now().Add(-time.Hour)
	payments := &MockEntitlements{Expiry: map[string]*time.Time{
		"active":  &future,
		"expired": &past,
	}}
	svc := NewPublishService(&MockMinisites{}, payments, zap.NewNop())

	active, err := svc.HasActiveSubscription(context.Background(), "active")
	require.NoError(t, err)
	assert.True(t, active)

	// Expired subscription may still be inside its grace period, but the
	// grace period only protects the slug; it does not allow publishing.
	active, err = svc.HasActiveSubscription(context.Background(), "expired")
	require.NoError(t, err)
	assert.False(t, active)

	active, err = svc.HasActiveSubscription(context.Background(), "never-paid")
	require.NoError(t, err)
	assert.False(t, active)
}
