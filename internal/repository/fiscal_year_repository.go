package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/target-setting-api/internal/models"
)

// FiscalYearRepository reads fiscal year definitions.
type FiscalYearRepository struct {
	db *sqlx.DB
}

// NewFiscalYearRepository constructs the repository.
func NewFiscalYearRepository(db *sqlx.DB) *FiscalYearRepository {
	return &FiscalYearRepository{db: db}
}

// Active returns the fiscal year flagged active. sql.ErrNoRows when none is.
func (r *FiscalYearRepository) Active(ctx context.Context) (*models.FiscalYear, error) {
	const query = `SELECT code, label, is_active FROM fiscal_years WHERE is_active = TRUE ORDER BY code DESC LIMIT 1`
	var fy models.FiscalYear
	if err := r.db.GetContext(ctx, &fy, query); err != nil {
		return nil, err
	}
	return &fy, nil
}
