package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/educenter-crm-api/internal/models"
)

// CatalogRepository answers read-only lookups against the subject and
// cancel reason catalogs.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// SubjectActive reports whether an active subject with the given name exists.
func (r *CatalogRepository) SubjectActive(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM subjects WHERE LOWER(name) = LOWER($1) AND is_active = TRUE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("check subject: %w", err)
	}
	return exists, nil
}

// CancelReasonExists reports whether the cancel reason id is in the catalog.
func (r *CatalogRepository) CancelReasonExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM cancel_reasons WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check cancel reason: %w", err)
	}
	return exists, nil
}

// FindCancelReason loads one catalog entry. It returns sql.ErrNoRows when
// the id is unknown.
func (r *CatalogRepository) FindCancelReason(ctx context.Context, id string) (*models.CancelReason, error) {
	const query = `SELECT id, code, name, sort_order, is_active FROM cancel_reasons WHERE id = $1`
	var reason models.CancelReason
	if err := r.db.GetContext(ctx, &reason, query, id); err != nil {
		return nil, fmt.Errorf("find cancel reason: %w", err)
	}
	return &reason, nil
}

// ListCancelReasons returns active cancel reasons in display order.
func (r *CatalogRepository) ListCancelReasons(ctx context.Context) ([]models.CancelReason, error) {
	const query = `SELECT id, code, name, sort_order, is_active FROM cancel_reasons WHERE is_active = TRUE ORDER BY sort_order ASC, name ASC`
	var reasons []models.CancelReason
	if err := r.db.SelectContext(ctx, &reasons, query); err != nil {
		return nil, fmt.Errorf("list cancel reasons: %w", err)
	}
	return reasons, nil
}
