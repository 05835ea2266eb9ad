package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription timing constants.
const (
	SubscriptionDurationMonths = 12
	GracePeriodDays            = 7
)

// Payment statuses.
const (
	PaymentStatusActive      = "active"
	PaymentStatusExpired     = "expired"
	PaymentStatusGracePeriod = "grace_period"
	PaymentStatusReclaimed   = "reclaimed"
)

// Payment history actions.
const (
	PaymentActionInitial = "initial_payment"
	PaymentActionRenewal = "renewal"
	PaymentActionReclaim = "reclaim"
)

// CalculateExpirationDate returns the subscription expiry for a payment
// made (or stacked) at base: base + 12 months.
func CalculateExpirationDate(base time.Time) time.Time {
	return base.AddDate(0, SubscriptionDurationMonths, 0)
}

// CalculateGracePeriodEnd returns the end of the post-expiry grace
// period during which the slug stays protected: expiresAt + 7 days.
func CalculateGracePeriodEnd(expiresAt time.Time) time.Time {
	return expiresAt.AddDate(0, 0, GracePeriodDays)
}

// Payment records a completed subscription payment for a minisite.
// Renewals insert a new row rather than mutating an old one; the latest
// active row by ExpiresAt determines current entitlement.
type Payment struct {
	ID                string     `json:"id"`
	MinisiteID        string     `json:"minisiteId"`
	UserID            string     `json:"userId"`
	OrderID           string     `json:"orderId"`
	Status            string     `json:"status"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	PaymentMethod     string     `json:"paymentMethod"`
	PaymentReference  string     `json:"paymentReference"`
	PaidAt            time.Time  `json:"paidAt"`
	ExpiresAt         time.Time  `json:"expiresAt"`
	GracePeriodEndsAt time.Time  `json:"gracePeriodEndsAt"`
	RenewedAt         *time.Time `json:"renewedAt,omitempty"`
	ReclaimedAt       *time.Time `json:"reclaimedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// PaymentHistory is an append-only audit row for a payment-affecting
// action. Never mutated or deleted.
type PaymentHistory struct {
	ID                string    `json:"id"`
	MinisiteID        string    `json:"minisiteId"`
	PaymentID         string    `json:"paymentId"`
	Action            string    `json:"action"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	PaymentReference  string    `json:"paymentReference"`
	ExpiresAt         time.Time `json:"expiresAt"`
	GracePeriodEndsAt time.Time `json:"gracePeriodEndsAt"`
	NewOwnerUserID    *string   `json:"newOwnerUserId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewPaymentID generates a new UUID for a payment row.
func NewPaymentID() string {
	return uuid.New().String()
}
