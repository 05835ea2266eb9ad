package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minisitehub/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCheckoutFixture(t *testing.T) (*CheckoutService, *MockReservations, *MockSessions) {
	t.Helper()
	reservations := NewMockReservations()
	sessions := NewMockSessions()
	availability := newAvailabilityService(&MockMinisites{}, reservations, &MockEntitlements{})
	reservationSvc := NewReservationService(reservations, availability, zap.NewNop())
	svc := NewCheckoutService(reservationSvc, &stubGateway{}, sessions, zap.NewNop())
	return svc, reservations, sessions
}

// stubGateway returns a fixed payment link.
type stubGateway struct{}

func (g *stubGateway) CreatePaymentLink(_, _, orderID string, _ int64) (string, error) {
	return "https://pay.test/" + orderID, nil
}

func (g *stubGateway) VerifySignature(_ []byte, _ string) bool { return true }

func checkoutRequest() *domain.CheckoutRequest {
	return &domain.CheckoutRequest{
		MinisiteID:    "site-1",
		Plan:          "standard",
		BusinessSlug:  "coffee",
		LocationSlug:  "downtown",
		ReservationID: "res-1",
	}
}

func TestCreatePaymentLink_Success(t *testing.T) {
	svc, reservations, sessions := newCheckoutFixture(t)
	reservations.Rows["res-1"] = liveReservation("res-1", "coffee", "downtown", "user-1")

	resp, err := svc.CreatePaymentLink(context.Background(), "user-1", checkoutRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, "https://pay.test/"+resp.OrderID, resp.PaymentURL)

	session := sessions.Data["user-1"]
	require.NotNil(t, session)
	assert.Equal(t, "site-1", session.MinisiteID)
	assert.Equal(t, "coffee/downtown", session.SlugPath)
	assert.Equal(t, "res-1", session.ReservationID)
}

func TestCreatePaymentLink_ValidationError(t *testing.T) {
	svc, _, _ := newCheckoutFixture(t)

	req := checkoutRequest()
	req.Plan = "platinum"

	_, err := svc.CreatePaymentLink(context.Background(), "user-1", req)
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 422, appErr.Code)
}

func TestCreatePaymentLink_ExpiredReservation(t *testing.T) {
	svc, reservations, sessions := newCheckoutFixture(t)
	stale := liveReservation("res-1", "coffee", "downtown", "user-1")
	stale.ExpiresAt = time.Now().Add(-time.Second)
	reservations.Rows["res-1"] = stale

	_, err := svc.CreatePaymentLink(context.Background(), "user-1", checkoutRequest())
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 409, appErr.Code)
	assert.Empty(t, sessions.Data)
}

func TestCreatePaymentLink_GatewayError(t *testing.T) {
	reservations := NewMockReservations()
	reservations.Rows["res-1"] = liveReservation("res-1", "coffee", "downtown", "user-1")
	availability := newAvailabilityService(&MockMinisites{}, reservations, &MockEntitlements{})
	reservationSvc := NewReservationService(reservations, availability, zap.NewNop())
	gateway := &MockGatewayErr{Err: errors.New("gateway unreachable")}
	svc := NewCheckoutService(reservationSvc, gateway, NewMockSessions(), zap.NewNop())

	_, err := svc.CreatePaymentLink(context.Background(), "user-1", checkoutRequest())
	require.Error(t, err)
	_, ok := domain.AsAppError(err)
	assert.False(t, ok, "gateway failures surface as internal errors")
}
