// Package payment defines the contracts this service expects from the
// external commerce layer: a gateway that creates checkout links and an
// order provider that resolves completed orders.
package payment

import (
	"context"
	"errors"
	"sync"
)

// ErrOrderNotFound is returned by OrderProvider when no order exists for
// the given id.
var ErrOrderNotFound = errors.New("order not found")

// Gateway creates checkout sessions with the payment provider.
type Gateway interface {
	// CreatePaymentLink creates a checkout session/link for a plan.
	CreatePaymentLink(userID, plan, orderID string, price int64) (string, error)
	// VerifySignature verifies the webhook signature (implementation specific).
	VerifySignature(payload []byte, signature string) bool
}

// OrderProvider resolves a completed order by id.
type OrderProvider interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

// Order mirrors the commerce layer's order surface: metadata on the order
// and its line items, plus customer and payment details.
type Order struct {
	ID            string
	CustomerID    string
	Total         float64
	Currency      string
	TransactionID string
	Meta          map[string]string
	Items         []OrderItem
}

// OrderItem is a line item with its own metadata.
type OrderItem struct {
	Meta map[string]string
}

// GetMeta returns the order-level metadata value for key, or "".
func (o *Order) GetMeta(key string) string {
	return o.Meta[key]
}

// GetMeta returns the item-level metadata value for key, or "".
func (i *OrderItem) GetMeta(key string) string {
	return i.Meta[key]
}

// MockGateway is a dummy implementation for development and testing. It
// remembers every order it creates a link for, so it doubles as the
// OrderProvider when no real commerce backend is configured.
type MockGateway struct {
	mu     sync.Mutex
	orders map[string]*Order
}

// NewMockGateway creates a MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{orders: make(map[string]*Order)}
}

func (g *MockGateway) CreatePaymentLink(userID, plan, orderID string, price int64) (string, error) {
	g.mu.Lock()
	g.orders[orderID] = &Order{
		ID:         orderID,
		CustomerID: userID,
		Total:      float64(price) / 100,
		Currency:   "USD",
		Meta:       map[string]string{},
	}
	g.mu.Unlock()
	return "https://example.com/pay?order_id=" + orderID, nil
}

func (g *MockGateway) VerifySignature(payload []byte, signature string) bool {
	return true
}

func (g *MockGateway) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
