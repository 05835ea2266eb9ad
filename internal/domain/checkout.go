package domain

// CheckoutRequest is the validated input for starting a subscription
// checkout for a minisite and its reserved slug pair.
type CheckoutRequest struct {
	MinisiteID    string `json:"minisiteId" validate:"required"`
	Plan          string `json:"plan" validate:"required,oneof=standard multi"`
	BusinessSlug  string `json:"businessSlug" validate:"required"`
	LocationSlug  string `json:"locationSlug"`
	ReservationID string `json:"reservationId" validate:"required"`
}

// PaymentLinkResponse returns the URL to redirect the user to for payment.
type PaymentLinkResponse struct {
	PaymentURL string `json:"paymentUrl"`
	OrderID    string `json:"orderId"`
}
