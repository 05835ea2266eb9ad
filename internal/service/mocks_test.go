package service

import (
	"context"
	"time"

	"github.com/minisitehub/backend/internal/domain"
	"github.com/minisitehub/backend/internal/repository"
	"github.com/minisitehub/backend/pkg/payment"
)

// MockMinisites implements MinisiteFinder over an in-memory map.
type MockMinisites struct {
	Sites map[string]*domain.Minisite // keyed by id
	Err   error
}

func (m *MockMinisites) FindByID(_ context.Context, id string) (*domain.Minisite, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Sites[id], nil
}

func (m *MockMinisites) FindBySlugs(_ context.Context, businessSlug, locationSlug string) (*domain.Minisite, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, s := range m.Sites {
		if s.BusinessSlug == businessSlug && s.LocationSlug == locationSlug {
			return s, nil
		}
	}
	return nil, nil
}

// MockEntitlements implements EntitlementStore.
type MockEntitlements struct {
	Protected map[string]bool       // minisite id -> slug still protected
	Expiry    map[string]*time.Time // minisite id -> latest active expiry
	Err       error
}

func (m *MockEntitlements) HasSlugProtection(_ context.Context, minisiteID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Protected[minisiteID], nil
}

func (m *MockEntitlements) LatestActiveExpiry(_ context.Context, minisiteID string) (*time.Time, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Expiry[minisiteID], nil
}

// MockReservations implements ReservationStore over an in-memory map.
// InPairLock runs fn directly against the same map; tests exercising the
// lock semantics only need the serialized check-then-act behavior, not
// real locking.
type MockReservations struct {
	Rows map[string]*domain.Reservation // keyed by id
	Err  error
}

func NewMockReservations() *MockReservations {
	return &MockReservations{Rows: make(map[string]*domain.Reservation)}
}

func (m *MockReservations) DeleteExpired(_ context.Context) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	now := time.Now()
	for id, r := range m.Rows {
		if !r.Live(now) {
			delete(m.Rows, id)
			n++
		}
	}
	return n, nil
}

func (m *MockReservations) FindByID(_ context.Context, id string) (*domain.Reservation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rows[id], nil
}

func (m *MockReservations) LiveByPair(_ context.Context, businessSlug, locationSlug string) (*domain.Reservation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	now := time.Now()
	for _, r := range m.Rows {
		if r.BusinessSlug == businessSlug && r.LocationSlug == locationSlug && r.Live(now) {
			return r, nil
		}
	}
	return nil, nil
}

func (m *MockReservations) LiveByUser(_ context.Context, userID string) (*domain.Reservation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	now := time.Now()
	for _, r := range m.Rows {
		if r.UserID == userID && r.Live(now) {
			return r, nil
		}
	}
	return nil, nil
}

func (m *MockReservations) DeleteOwned(_ context.Context, id, userID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	r, ok := m.Rows[id]
	if !ok || r.UserID != userID {
		return false, nil
	}
	delete(m.Rows, id)
	return true, nil
}

func (m *MockReservations) InPairLock(_ context.Context, _, _ string, fn func(tx repository.ReservationTx) error) error {
	if m.Err != nil {
		return m.Err
	}
	return fn(&mockReservationTx{m: m})
}

type mockReservationTx struct {
	m *MockReservations
}

func (t *mockReservationTx) LiveByPairOtherUser(ctx context.Context, businessSlug, locationSlug, userID string) (*domain.Reservation, error) {
	now := time.Now()
	for _, r := range t.m.Rows {
		if r.BusinessSlug == businessSlug && r.LocationSlug == locationSlug && r.UserID != userID && r.Live(now) {
			return r, nil
		}
	}
	return nil, nil
}

func (t *mockReservationTx) LiveByPairForUser(ctx context.Context, businessSlug, locationSlug, userID string) (*domain.Reservation, error) {
	now := time.Now()
	for _, r := range t.m.Rows {
		if r.BusinessSlug == businessSlug && r.LocationSlug == locationSlug && r.UserID == userID && r.Live(now) {
			return r, nil
		}
	}
	return nil, nil
}

func (t *mockReservationTx) LiveByUser(ctx context.Context, userID string) (*domain.Reservation, error) {
	return t.m.LiveByUser(ctx, userID)
}

func (t *mockReservationTx) Extend(_ context.Context, id string, expiresAt time.Time) error {
	if r, ok := t.m.Rows[id]; ok {
		r.ExpiresAt = expiresAt
	}
	return nil
}

func (t *mockReservationTx) Insert(_ context.Context, res *domain.Reservation) error {
	t.m.Rows[res.ID] = res
	return nil
}

func (t *mockReservationTx) Delete(_ context.Context, id string) error {
	delete(t.m.Rows, id)
	return nil
}

// MockActivationStore implements ActivationStore with commit/rollback
// semantics: changes made inside fn are staged and applied only when fn
// returns nil, mirroring the real transaction.
type MockActivationStore struct {
	Minisites    map[string]*domain.Minisite
	Payments     []*domain.Payment
	History      []*domain.PaymentHistory
	Reservations map[string]bool
	Expiry       map[string]*time.Time // minisite id -> latest active expiry

	FailInsertHistory error // injected failure for rollback tests
	BeginErr          error
}

func NewMockActivationStore() *MockActivationStore {
	return &MockActivationStore{
		Minisites:    make(map[string]*domain.Minisite),
		Reservations: make(map[string]bool),
		Expiry:       make(map[string]*time.Time),
	}
}

func (m *MockActivationStore) PaymentForOrder(orderID string) *domain.Payment {
	for _, p := range m.Payments {
		if p.OrderID == orderID {
			return p
		}
	}
	return nil
}

func (m *MockActivationStore) InTx(_ context.Context, fn func(tx repository.ActivationTx) error) error {
	if m.BeginErr != nil {
		return m.BeginErr
	}
	tx := &mockActivationTx{
		store:        m,
		slugUpdates:  make(map[string]domain.SlugPair),
		statusUpdate: make(map[string]string),
	}
	if err := fn(tx); err != nil {
		return err // staged changes discarded
	}
	tx.commit()
	return nil
}

type mockActivationTx struct {
	store *MockActivationStore

	payments     []*domain.Payment
	history      []*domain.PaymentHistory
	slugUpdates  map[string]domain.SlugPair
	statusUpdate map[string]string
	deletedRes   []string
}

func (t *mockActivationTx) PaymentExistsForOrder(_ context.Context, orderID string) (bool, error) {
	if t.store.PaymentForOrder(orderID) != nil {
		return true, nil
	}
	for _, p := range t.payments {
		if p.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (t *mockActivationTx) LatestActiveExpiry(_ context.Context, minisiteID string) (*time.Time, error) {
	return t.store.Expiry[minisiteID], nil
}

func (t *mockActivationTx) UpdateMinisiteSlugs(_ context.Context, minisiteID, businessSlug, locationSlug string) error {
	t.slugUpdates[minisiteID] = domain.SlugPair{Business: businessSlug, Location: locationSlug}
	return nil
}

func (t *mockActivationTx) SetMinisiteStatus(_ context.Context, minisiteID, status string) error {
	t.statusUpdate[minisiteID] = status
	return nil
}

func (t *mockActivationTx) MinisiteByID(_ context.Context, minisiteID string) (*domain.Minisite, error) {
	site := t.store.Minisites[minisiteID]
	if site == nil {
		return nil, nil
	}
	copied := *site
	if pair, ok := t.slugUpdates[minisiteID]; ok {
		copied.BusinessSlug = pair.Business
		copied.LocationSlug = pair.Location
	}
	if status, ok := t.statusUpdate[minisiteID]; ok {
		copied.Status = status
	}
	return &copied, nil
}

func (t *mockActivationTx) InsertPayment(ctx context.Context, p *domain.Payment) (bool, error) {
	exists, _ := t.PaymentExistsForOrder(ctx, p.OrderID)
	if exists {
		return false, nil
	}
	t.payments = append(t.payments, p)
	return true, nil
}

func (t *mockActivationTx) InsertPaymentHistory(_ context.Context, h *domain.PaymentHistory) error {
	if t.store.FailInsertHistory != nil {
		return t.store.FailInsertHistory
	}
	t.history = append(t.history, h)
	return nil
}

func (t *mockActivationTx) DeleteReservation(_ context.Context, reservationID string) error {
	t.deletedRes = append(t.deletedRes, reservationID)
	return nil
}

func (t *mockActivationTx) commit() {
	t.store.Payments = append(t.store.Payments, t.payments...)
	t.store.History = append(t.store.History, t.history...)
	for id, pair := range t.slugUpdates {
		if site, ok := t.store.Minisites[id]; ok {
			site.BusinessSlug = pair.Business
			site.LocationSlug = pair.Location
		}
	}
	for id, status := range t.statusUpdate {
		if site, ok := t.store.Minisites[id]; ok {
			site.Status = status
		}
	}
	for _, id := range t.deletedRes {
		delete(t.store.Reservations, id)
	}
}

// MockSessions implements SessionStore over an in-memory map.
type MockSessions struct {
	Data map[string]*repository.CheckoutSession
	Err  error
}

func NewMockSessions() *MockSessions {
	return &MockSessions{Data: make(map[string]*repository.CheckoutSession)}
}

func (m *MockSessions) Get(_ context.Context, userID string) (*repository.CheckoutSession, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Data[userID], nil
}

func (m *MockSessions) Set(_ context.Context, userID string, session *repository.CheckoutSession) error {
	if m.Err != nil {
		return m.Err
	}
	m.Data[userID] = session
	return nil
}

func (m *MockSessions) Delete(_ context.Context, userID string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Data, userID)
	return nil
}

// MockOrders implements payment.OrderProvider over an in-memory map.
type MockOrders struct {
	Orders map[string]*payment.Order
	Err    error
}

func (m *MockOrders) GetOrder(_ context.Context, orderID string) (*payment.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	order, ok := m.Orders[orderID]
	if !ok {
		return nil, payment.ErrOrderNotFound
	}
	return order, nil
}

// MockGatewayErr implements payment.Gateway and always fails link creation.
type MockGatewayErr struct {
	Err error
}

func (g *MockGatewayErr) CreatePaymentLink(_, _, _ string, _ int64) (string, error) {
	return "", g.Err
}

func (g *MockGatewayErr) VerifySignature(_ []byte, _ string) bool {
	return false
}
