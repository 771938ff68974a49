package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/target-setting-api/internal/models"
)

// ProductRepository is a read-only view over the product catalog.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository constructs the repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ByCodes returns the listed products keyed by code. Unknown codes are absent.
func (r *ProductRepository) ByCodes(ctx context.Context, codes []string) (map[string]models.Product, error) {
	products := make(map[string]models.Product, len(codes))
	if len(codes) == 0 {
		return products, nil
	}
	const query = `SELECT product_code, product_name, product_category, product_family, unit_price
	FROM product_master WHERE product_code = ANY($1)`
	var rows []models.Product
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(codes)); err != nil {
		return nil, fmt.Errorf("lookup products: %w", err)
	}
	for _, p := range rows {
		products[p.Code] = p
	}
	return products, nil
}
