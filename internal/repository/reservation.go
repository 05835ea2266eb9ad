package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minisitehub/backend/internal/domain"
)

// ReservationTx is the set of reservation operations available while the
// slug pair's advisory lock is held.
type ReservationTx interface {
	// LiveByPairOtherUser returns a live reservation on the pair held by
	// anyone except userID, or nil.
	LiveByPairOtherUser(ctx context.Context, businessSlug, locationSlug, userID string) (*domain.Reservation, error)
	// LiveByPairForUser returns userID's own live reservation on the pair, or nil.
	LiveByPairForUser(ctx context.Context, businessSlug, locationSlug, userID string) (*domain.Reservation, error)
	// LiveByUser returns userID's live reservation on any pair, or nil.
	LiveByUser(ctx context.Context, userID string) (*domain.Reservation, error)
	// Extend pushes a reservation's window out to expiresAt.
	Extend(ctx context.Context, id string, expiresAt time.Time) error
	Insert(ctx context.Context, res *domain.Reservation) error
	Delete(ctx context.Context, id string) error
}

// ReservationRepository handles database operations for slug reservations.
type ReservationRepository struct {
	db *pgxpool.Pool
}

// NewReservationRepository creates a new ReservationRepository.
func NewReservationRepository(db *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, business_slug, location_slug, user_id, minisite_id, created_at, expires_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(
		&res.ID, &res.BusinessSlug, &res.LocationSlug, &res.UserID,
		&res.MinisiteID, &res.CreatedAt, &res.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}
	return &res, nil
}

// DeleteExpired purges reservations whose window has lapsed. Best-effort
// housekeeping; callers run it outside any user-facing transaction.
func (r *ReservationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM minisite_reservations WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindByID returns a reservation by ID, or nil when absent.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM minisite_reservations WHERE id = $1`
	return scanReservation(r.db.QueryRow(ctx, query, id))
}

// LiveByPair returns the live reservation on the pair regardless of
// holder, or nil.
func (r *ReservationRepository) LiveByPair(ctx context.Context, businessSlug, locationSlug string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM minisite_reservations
		WHERE business_slug = $1 AND location_slug = $2 AND expires_at > NOW()
		LIMIT 1
	`
	return scanReservation(r.db.QueryRow(ctx, query, businessSlug, locationSlug))
}

// LiveByUser returns the user's live reservation, or nil.
func (r *ReservationRepository) LiveByUser(ctx context.Context, userID string) (*domain.Reservation, error) {
	return liveByUser(ctx, r.db, userID)
}

// DeleteOwned deletes a reservation only when it belongs to userID.
// Returns false when no matching row was removed.
func (r *ReservationRepository) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM minisite_reservations WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete reservation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InPairLock runs fn inside a transaction that holds the slug pair's
// advisory lock. Concurrent writers of the same pair serialize on the
// lock, so check-then-insert inside fn is race-free. The lock releases
// on commit or rollback.
func (r *ReservationRepository) InPairLock(ctx context.Context, businessSlug, locationSlug string, fn func(tx ReservationTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	pairKey := businessSlug + "/" + locationSlug
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, pairKey); err != nil {
		return fmt.Errorf("failed to lock slug pair: %w", err)
	}

	if err := fn(&reservationTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reservation transaction: %w", err)
	}
	return nil
}

// reservationTx implements ReservationTx on top of an open pgx.Tx.
type reservationTx struct {
	q querier
}

func (t *reservationTx) LiveByPairOtherUser(ctx context.Context, businessSlug, locationSlug, userID string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM minisite_reservations
		WHERE business_slug = $1 AND location_slug = $2 AND expires_at > NOW() AND user_id != $3
		LIMIT 1
	`
	return scanReservation(t.q.QueryRow(ctx, query, businessSlug, locationSlug, userID))
}

func (t *reservationTx) LiveByPairForUser(ctx context.Context, businessSlug, locationSlug, userID string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM minisite_reservations
		WHERE business_slug = $1 AND location_slug = $2 AND expires_at > NOW() AND user_id = $3
		LIMIT 1
	`
	return scanReservation(t.q.QueryRow(ctx, query, businessSlug, locationSlug, userID))
}

func (t *reservationTx) LiveByUser(ctx context.Context, userID string) (*domain.Reservation, error) {
	return liveByUser(ctx, t.q, userID)
}

func (t *reservationTx) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := t.q.Exec(ctx,
		`UPDATE minisite_reservations SET expires_at = $1, created_at = NOW() WHERE id = $2`,
		expiresAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to extend reservation: %w", err)
	}
	return nil
}

func (t *reservationTx) Insert(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO minisite_reservations (id, business_slug, location_slug, user_id, minisite_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := t.q.Exec(ctx, query,
		res.ID, res.BusinessSlug, res.LocationSlug, res.UserID,
		res.MinisiteID, res.CreatedAt, res.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (t *reservationTx) Delete(ctx context.Context, id string) error {
	_, err := t.q.Exec(ctx, `DELETE FROM minisite_reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}

func liveByUser(ctx context.Context, q querier, userID string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM minisite_reservations
		WHERE user_id = $1 AND expires_at > NOW()
		LIMIT 1
	`
	return scanReservation(q.QueryRow(ctx, query, userID))
}
