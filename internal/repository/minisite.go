package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minisitehub/backend/internal/domain"
)

// MinisiteRepository handles read access to minisites. Mutations happen
// only inside activation transactions (see ActivationTx).
type MinisiteRepository struct {
	db *pgxpool.Pool
}

// NewMinisiteRepository creates a new MinisiteRepository.
func NewMinisiteRepository(db *pgxpool.Pool) *MinisiteRepository {
	return &MinisiteRepository{db: db}
}

const minisiteColumns = `id, business_slug, location_slug, status, created_by, current_version_id, created_at, updated_at`

func scanMinisite(row pgx.Row) (*domain.Minisite, error) {
	var m domain.Minisite
	err := row.Scan(
		&m.ID, &m.BusinessSlug, &m.LocationSlug, &m.Status,
		&m.CreatedBy, &m.CurrentVersionID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan minisite: %w", err)
	}
	return &m, nil
}

// FindByID returns a minisite by ID, or nil when absent.
func (r *MinisiteRepository) FindByID(ctx context.Context, id string) (*domain.Minisite, error) {
	query := `SELECT ` + minisiteColumns + ` FROM minisites WHERE id = $1`
	return scanMinisite(r.db.QueryRow(ctx, query, id))
}

// FindBySlugs returns the minisite owning the exact slug pair, or nil.
func (r *MinisiteRepository) FindBySlugs(ctx context.Context, businessSlug, locationSlug string) (*domain.Minisite, error) {
	query := `SELECT ` + minisiteColumns + ` FROM minisites WHERE business_slug = $1 AND location_slug = $2`
	return scanMinisite(r.db.QueryRow(ctx, query, businessSlug, locationSlug))
}

func updateMinisiteSlugs(ctx context.Context, q querier, id, businessSlug, locationSlug string) error {
	_, err := q.Exec(ctx,
		`UPDATE minisites SET business_slug = $1, location_slug = $2, updated_at = NOW() WHERE id = $3`,
		businessSlug, locationSlug, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update minisite slugs: %w", err)
	}
	return nil
}

func setMinisiteStatus(ctx context.Context, q querier, id, status string) error {
	_, err := q.Exec(ctx,
		`UPDATE minisites SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update minisite status: %w", err)
	}
	return nil
}
