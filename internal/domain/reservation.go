package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationWindow is how long a slug reservation holds the pair while
// the user completes payment.
const ReservationWindow = 5 * time.Minute

// Reservation is a time-boxed claim on a slug pair by one user. At most
// one live reservation exists per user and per pair; expired rows are
// purged lazily at the start of availability and reservation calls.
type Reservation struct {
	ID           string    `json:"id"`
	BusinessSlug string    `json:"businessSlug"`
	LocationSlug string    `json:"locationSlug"`
	UserID       string    `json:"userId"`
	MinisiteID   *string   `json:"minisiteId,omitempty"` // set when payment completes
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Live reports whether the reservation is still within its window.
func (r *Reservation) Live(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// NewReservationID generates a new UUID for a reservation.
func NewReservationID() string {
	return uuid.New().String()
}

// AvailabilityResult is the outcome of a slug availability check.
type AvailabilityResult struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// ReserveResult is the outcome of a successful slug reservation.
type ReserveResult struct {
	ReservationID    string    `json:"reservationId"`
	ExpiresAt        time.Time `json:"expiresAt"`
	ExpiresInSeconds int       `json:"expiresInSeconds"`
	Message          string    `json:"message"`
}
