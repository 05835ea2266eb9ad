package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minisitehub/backend/internal/domain"
)

// ActivationTx is the set of operations available inside an activation
// transaction. Everything either commits together or rolls back together.
type ActivationTx interface {
	// PaymentExistsForOrder reports whether the order was already activated.
	PaymentExistsForOrder(ctx context.Context, orderID string) (bool, error)
	// LatestActiveExpiry returns the newest active payment's expires_at
	// for the minisite, or nil when it has never been paid for.
	LatestActiveExpiry(ctx context.Context, minisiteID string) (*time.Time, error)
	UpdateMinisiteSlugs(ctx context.Context, minisiteID, businessSlug, locationSlug string) error
	SetMinisiteStatus(ctx context.Context, minisiteID, status string) error
	MinisiteByID(ctx context.Context, minisiteID string) (*domain.Minisite, error)
	// InsertPayment inserts the payment row. Returns false without error
	// when a row for the same order id already exists.
	InsertPayment(ctx context.Context, p *domain.Payment) (bool, error)
	InsertPaymentHistory(ctx context.Context, h *domain.PaymentHistory) error
	DeleteReservation(ctx context.Context, reservationID string) error
}

// PaymentRepository handles database operations for subscription payments.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// LatestActiveExpiry returns the newest active payment's expires_at for
// the minisite, or nil when none exists.
func (r *PaymentRepository) LatestActiveExpiry(ctx context.Context, minisiteID string) (*time.Time, error) {
	return latestActiveExpiry(ctx, r.db, minisiteID)
}

// HasSlugProtection reports whether the minisite still protects its slug
// pair: a payment whose subscription or grace period has not lapsed.
func (r *PaymentRepository) HasSlugProtection(ctx context.Context, minisiteID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM minisite_payments
			WHERE minisite_id = $1 AND (expires_at > NOW() OR grace_period_ends_at > NOW())
		)
	`
	var protected bool
	if err := r.db.QueryRow(ctx, query, minisiteID).Scan(&protected); err != nil {
		return false, fmt.Errorf("failed to check slug protection: %w", err)
	}
	return protected, nil
}

// InTx runs fn inside a single transaction, committing on nil and rolling
// back on error.
func (r *PaymentRepository) InTx(ctx context.Context, fn func(tx ActivationTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&activationTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit activation transaction: %w", err)
	}
	return nil
}

// activationTx implements ActivationTx on top of an open pgx.Tx.
type activationTx struct {
	q querier
}

func (t *activationTx) PaymentExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM minisite_payments WHERE order_id = $1)`, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check payment for order: %w", err)
	}
	return exists, nil
}

func (t *activationTx) LatestActiveExpiry(ctx context.Context, minisiteID string) (*time.Time, error) {
	return latestActiveExpiry(ctx, t.q, minisiteID)
}

func (t *activationTx) UpdateMinisiteSlugs(ctx context.Context, minisiteID, businessSlug, locationSlug string) error {
	return updateMinisiteSlugs(ctx, t.q, minisiteID, businessSlug, locationSlug)
}

func (t *activationTx) SetMinisiteStatus(ctx context.Context, minisiteID, status string) error {
	return setMinisiteStatus(ctx, t.q, minisiteID, status)
}

func (t *activationTx) MinisiteByID(ctx context.Context, minisiteID string) (*domain.Minisite, error) {
	query := `SELECT ` + minisiteColumns + ` FROM minisites WHERE id = $1`
	return scanMinisite(t.q.QueryRow(ctx, query, minisiteID))
}

func (t *activationTx) InsertPayment(ctx context.Context, p *domain.Payment) (bool, error) {
	query := `
		INSERT INTO minisite_payments (
			id, minisite_id, user_id, order_id, status, amount, currency,
			payment_method, payment_reference, paid_at, expires_at,
			grace_period_ends_at, renewed_at, reclaimed_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (order_id) DO NOTHING
	`
	tag, err := t.q.Exec(ctx, query,
		p.ID, p.MinisiteID, p.UserID, p.OrderID, p.Status, p.Amount, p.Currency,
		p.PaymentMethod, p.PaymentReference, p.PaidAt, p.ExpiresAt,
		p.GracePeriodEndsAt, p.RenewedAt, p.ReclaimedAt, p.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create payment record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *activationTx) InsertPaymentHistory(ctx context.Context, h *domain.PaymentHistory) error {
	query := `
		INSERT INTO minisite_payment_history (
			id, minisite_id, payment_id, action, amount, currency,
			payment_reference, expires_at, grace_period_ends_at, new_owner_user_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := t.q.Exec(ctx, query,
		h.ID, h.MinisiteID, h.PaymentID, h.Action, h.Amount, h.Currency,
		h.PaymentReference, h.ExpiresAt, h.GracePeriodEndsAt, h.NewOwnerUserID, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment history record: %w", err)
	}
	return nil
}

func (t *activationTx) DeleteReservation(ctx context.Context, reservationID string) error {
	_, err := t.q.Exec(ctx, `DELETE FROM minisite_reservations WHERE id = $1`, reservationID)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}

func latestActiveExpiry(ctx context.Context, q querier, minisiteID string) (*time.Time, error) {
	query := `
		SELECT expires_at FROM minisite_payments
		WHERE minisite_id = $1 AND status = 'active'
		ORDER BY expires_at DESC LIMIT 1
	`
	var expiresAt time.Time
	err := q.QueryRow(ctx, query, minisiteID).Scan(&expiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active payment: %w", err)
	}
	return &expiresAt, nil
}
