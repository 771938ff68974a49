package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/target-setting-api/internal/models"
)

const yearlyTargetColumns = `id, fiscal_year_code, manager_code, manager_role, assignee_code, assignee_name, assignee_role,
       product_code, category_id, ly_target_qty, ly_achieved_qty, ly_target_value, ly_achieved_value,
       cy_target_qty, cy_target_value, status, published_at, updated_at`

// YearlyTargetRepository persists top-down yearly allocations.
type YearlyTargetRepository struct {
	db *sqlx.DB
}

// NewYearlyTargetRepository constructs the repository.
func NewYearlyTargetRepository(db *sqlx.DB) *YearlyTargetRepository {
	return &YearlyTargetRepository{db: db}
}

// ListByManager returns a manager's allocations for one fiscal year.
func (r *YearlyTargetRepository) ListByManager(ctx context.Context, fiscalYear, managerCode string) ([]models.YearlyTargetAssignment, error) {
	query := `SELECT ` + yearlyTargetColumns + ` FROM yearly_target_assignments
	WHERE fiscal_year_code = $1 AND manager_code = $2
	ORDER BY assignee_name, product_code`
	var rows []models.YearlyTargetAssignment
	if err := r.db.SelectContext(ctx, &rows, query, fiscalYear, managerCode); err != nil {
		return nil, fmt.Errorf("list yearly targets: %w", err)
	}
	return rows, nil
}

// Upsert stores every row as draft in one transaction.
func (r *YearlyTargetRepository) Upsert(ctx context.Context, rows []models.YearlyTargetAssignment, at time.Time) (int, error) {
	return r.inTx(ctx, func(tx *sqlx.Tx) (int, error) {
		return upsertYearlyTargets(ctx, tx, rows, at)
	})
}

// UpsertAndPublish stores every row then flips the matched rows to published, atomically.
func (r *YearlyTargetRepository) UpsertAndPublish(ctx context.Context, rows []models.YearlyTargetAssignment, at time.Time) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	return r.inTx(ctx, func(tx *sqlx.Tx) (int, error) {
		if _, err := upsertYearlyTargets(ctx, tx, rows, at); err != nil {
			return 0, err
		}
		return publishYearlyTargets(ctx, tx, rows, at)
	})
}

func (r *YearlyTargetRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) (int, error)) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin yearly target tx: %w", err)
	}
	count, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit yearly target tx: %w", err)
	}
	return count, nil
}

func upsertYearlyTargets(ctx context.Context, tx *sqlx.Tx, rows []models.YearlyTargetAssignment, at time.Time) (int, error) {
	const query = `INSERT INTO yearly_target_assignments
	(fiscal_year_code, manager_code, manager_role, assignee_code, assignee_name, assignee_role, product_code, category_id,
	 ly_target_qty, ly_achieved_qty, ly_target_value, ly_achieved_value, cy_target_qty, cy_target_value, status, updated_at)
	VALUES (:fiscal_year_code, :manager_code, :manager_role, :assignee_code, :assignee_name, :assignee_role, :product_code, :category_id,
	 :ly_target_qty, :ly_achieved_qty, :ly_target_value, :ly_achieved_value, :cy_target_qty, :cy_target_value, :status, :updated_at)
	ON CONFLICT (fiscal_year_code, manager_code, assignee_code, product_code) DO UPDATE SET
	 cy_target_qty = EXCLUDED.cy_target_qty,
	 cy_target_value = EXCLUDED.cy_target_value,
	 category_id = EXCLUDED.category_id,
	 status = EXCLUDED.status,
	 updated_at = EXCLUDED.updated_at`
	for i := range rows {
		row := rows[i]
		row.Status = models.YearlyTargetDraft
		row.UpdatedAt = at
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return 0, fmt.Errorf("upsert yearly target %s/%s: %w", row.AssigneeCode, row.ProductCode, err)
		}
	}
	return len(rows), nil
}

func publishYearlyTargets(ctx context.Context, tx *sqlx.Tx, rows []models.YearlyTargetAssignment, at time.Time) (int, error) {
	assignees := make([]string, len(rows))
	products := make([]string, len(rows))
	for i, row := range rows {
		assignees[i] = row.AssigneeCode
		products[i] = row.ProductCode
	}
	first := rows[0]
	const query = `UPDATE yearly_target_assignments
	SET status = $1, published_at = COALESCE(published_at, $2), updated_at = $2
	WHERE fiscal_year_code = $3 AND manager_code = $4
	  AND (assignee_code, product_code) IN (SELECT * FROM unnest($5::text[], $6::text[]))
	  AND status = ANY($7)`
	publishable := []string{string(models.YearlyTargetDraft), string(models.YearlyTargetPublished)}
	result, err := tx.ExecContext(ctx, query, models.YearlyTargetPublished, at,
		first.FiscalYearCode, first.ManagerCode, pq.Array(assignees), pq.Array(products), pq.Array(publishable))
	if err != nil {
		return 0, fmt.Errorf("publish yearly targets: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check yearly target publish rows: %w", err)
	}
	return int(affected), nil
}
