package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/minisitehub/backend/internal/domain"
	"github.com/minisitehub/backend/internal/repository"
	"github.com/minisitehub/backend/pkg/payment"
	"go.uber.org/zap"
)

// CheckoutService starts the paid publish flow: it verifies the user's
// reservation is still live, creates a payment link with the gateway,
// and caches the checkout context for the activation path.
type CheckoutService struct {
	reservations *ReservationService
	gateway      payment.Gateway
	sessions     SessionStore
	validate     *validator.Validate
	log          *zap.Logger
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(reservations *ReservationService, gateway payment.Gateway, sessions SessionStore, log *zap.Logger) *CheckoutService {
	return &CheckoutService{
		reservations: reservations,
		gateway:      gateway,
		sessions:     sessions,
		validate:     validator.New(),
		log:          log.Named("checkout-service"),
	}
}

// CreatePaymentLink creates a gateway checkout link for the reserved
// slug pair and stores the checkout session keyed by user.
func (s *CheckoutService) CreatePaymentLink(ctx context.Context, userID string, req *domain.CheckoutRequest) (*domain.PaymentLinkResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	valid, err := s.reservations.IsReservationValid(ctx, req.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate reservation: %w", err)
	}
	if !valid {
		return nil, domain.ErrConflict("Slug reservation has expired. Please reserve the slug again.")
	}

	plan := domain.GetPlan(req.Plan)
	orderID := uuid.New().String()

	url, err := s.gateway.CreatePaymentLink(userID, plan.ID, orderID, int64(plan.PriceUSD))
	if err != nil {
		s.log.Error("failed to create payment link",
			zap.String("user_id", userID),
			zap.String("minisite_id", req.MinisiteID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create payment link: %w", err)
	}

	pair := domain.SlugPair{Business: req.BusinessSlug, Location: req.LocationSlug}
	session := &repository.CheckoutSession{
		MinisiteID:    req.MinisiteID,
		SlugPath:      pair.Path(),
		ReservationID: req.ReservationID,
	}
	if err := s.sessions.Set(ctx, userID, session); err != nil {
		// The order metadata transfer covers activation even without the
		// session; don't fail checkout over a cache write.
		s.log.Warn("failed to store checkout session",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	s.log.Info("created payment link",
		zap.String("user_id", userID),
		zap.String("minisite_id", req.MinisiteID),
		zap.String("order_id", orderID),
		zap.String("plan", plan.ID),
	)
	return &domain.PaymentLinkResponse{PaymentURL: url, OrderID: orderID}, nil
}
