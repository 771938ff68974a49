package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/target-setting-api/internal/models"
)

// ErrStatusConflict signals that a guarded status change matched fewer rows than requested.
var ErrStatusConflict = errors.New("commitment status changed concurrently")

const commitmentColumns = `id, employee_code, product_code, fiscal_year_code, category_id,
       zone_code, area_code, territory_code, monthly_targets, status,
       submitted_at, approved_at, approved_by_code, created_at, updated_at`

// CommitmentRepository persists commitments and their approval trail.
type CommitmentRepository struct {
	db *sqlx.DB
}

// NewCommitmentRepository constructs the repository.
func NewCommitmentRepository(db *sqlx.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

// FindByID fetches a commitment by identifier.
func (r *CommitmentRepository) FindByID(ctx context.Context, id int64) (*models.Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM product_commitments WHERE id = $1`
	var commitment models.Commitment
	if err := r.db.GetContext(ctx, &commitment, query, id); err != nil {
		return nil, err
	}
	return &commitment, nil
}

// List returns commitments matching the filter ordered by owner and product.
func (r *CommitmentRepository) List(ctx context.Context, filter models.CommitmentFilter) ([]models.Commitment, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(`SELECT ` + commitmentColumns + ` FROM product_commitments`)

	conditions := make([]string, 0, 5)
	if filter.EmployeeCodes != nil {
		if len(filter.EmployeeCodes) == 0 {
			return []models.Commitment{}, nil
		}
		args = append(args, pq.Array(filter.EmployeeCodes))
		conditions = append(conditions, fmt.Sprintf("employee_code = ANY($%d)", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.FiscalYearCode != "" {
		args = append(args, filter.FiscalYearCode)
		conditions = append(conditions, fmt.Sprintf("fiscal_year_code = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY employee_code, product_code")

	var commitments []models.Commitment
	if err := r.db.SelectContext(ctx, &commitments, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	return commitments, nil
}

// SaveTargets replaces the monthly targets of an owner's editable commitment and forces draft.
// It returns sql.ErrNoRows when the row is missing, owned by someone else or no longer editable.
func (r *CommitmentRepository) SaveTargets(ctx context.Context, id int64, ownerCode string, targets models.MonthlyTargets, at time.Time) error {
	const query = `UPDATE product_commitments
	SET monthly_targets = $1, status = $2, updated_at = $3
	WHERE id = $4 AND employee_code = $5 AND status = ANY($6)`
	editable := statusStrings(models.TransitionSave.SourceStatuses())
	result, err := r.db.ExecContext(ctx, query, targets, models.CommitmentDraft, at, id, ownerCode, pq.Array(editable))
	if err != nil {
		return fmt.Errorf("save commitment targets: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check commitment save rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Transition applies a guarded status change to every listed commitment and appends the
// approval actions in the same transaction. Any row whose status no longer matches rolls back
// the whole set with ErrStatusConflict.
func (r *CommitmentRepository) Transition(ctx context.Context, set models.CommitmentTransitionSet) (int, error) {
	if len(set.IDs) == 0 {
		return 0, nil
	}
	if len(set.Actions) != len(set.IDs) {
		return 0, fmt.Errorf("transition requires one approval action per commitment")
	}
	if set.OccurredAt.IsZero() {
		set.OccurredAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin commitment transition: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, id := range set.IDs {
		query, args := transitionUpdate(set, id)
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("transition commitment %d: %w", id, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("check commitment transition rows: %w", err)
		}
		if rows == 0 {
			return 0, fmt.Errorf("commitment %d: %w", id, ErrStatusConflict)
		}
	}

	const insertAction = `INSERT INTO commitment_approvals
	(commitment_id, action, actor_code, actor_role, corrections, original_values, comments, created_at)
	VALUES (:commitment_id, :action, :actor_code, :actor_role, :corrections, :original_values, :comments, :created_at)`
	for _, action := range set.Actions {
		if action.CreatedAt.IsZero() {
			action.CreatedAt = set.OccurredAt
		}
		if _, err := tx.NamedExecContext(ctx, insertAction, action); err != nil {
			return 0, fmt.Errorf("append approval action for %d: %w", action.CommitmentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit commitment transition: %w", err)
	}
	committed = true
	return len(set.IDs), nil
}

func transitionUpdate(set models.CommitmentTransitionSet, id int64) (string, []interface{}) {
	args := []interface{}{set.To, set.OccurredAt}
	assignments := []string{"status = $1", "updated_at = $2"}
	switch set.To {
	case models.CommitmentSubmitted:
		assignments = append(assignments, "submitted_at = $2")
	case models.CommitmentApproved:
		args = append(args, set.ActorCode)
		assignments = append(assignments, "approved_at = $2", fmt.Sprintf("approved_by_code = $%d", len(args)))
	}
	if targets, ok := set.Targets[id]; ok {
		args = append(args, targets)
		assignments = append(assignments, fmt.Sprintf("monthly_targets = $%d", len(args)))
	}

	args = append(args, id)
	conditions := []string{fmt.Sprintf("id = $%d", len(args))}
	args = append(args, pq.Array(statusStrings(set.From)))
	conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	if set.OwnerCode != "" {
		args = append(args, set.OwnerCode)
		conditions = append(conditions, fmt.Sprintf("employee_code = $%d", len(args)))
	}

	query := fmt.Sprintf("UPDATE product_commitments SET %s WHERE %s",
		strings.Join(assignments, ", "),
		strings.Join(conditions, " AND "),
	)
	return query, args
}

// ListApprovals returns a commitment's approval trail oldest first.
func (r *CommitmentRepository) ListApprovals(ctx context.Context, commitmentID int64) ([]models.ApprovalAction, error) {
	const query = `SELECT id, commitment_id, action, actor_code, actor_role, corrections, original_values, comments, created_at
	FROM commitment_approvals WHERE commitment_id = $1 ORDER BY created_at, id`
	var actions []models.ApprovalAction
	if err := r.db.SelectContext(ctx, &actions, query, commitmentID); err != nil {
		return nil, fmt.Errorf("list approval actions: %w", err)
	}
	return actions, nil
}

// CountByStatus partitions each employee's commitments for a fiscal year by status.
func (r *CommitmentRepository) CountByStatus(ctx context.Context, employeeCodes []string, fiscalYear string) (map[string]models.StatusCounts, error) {
	counts := make(map[string]models.StatusCounts, len(employeeCodes))
	if len(employeeCodes) == 0 {
		return counts, nil
	}
	const query = `SELECT employee_code, status, COUNT(*) AS total FROM product_commitments
	WHERE employee_code = ANY($1) AND fiscal_year_code = $2
	GROUP BY employee_code, status`
	var rows []struct {
		EmployeeCode string                  `db:"employee_code"`
		Status       models.CommitmentStatus `db:"status"`
		Total        int                     `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(employeeCodes), fiscalYear); err != nil {
		return nil, fmt.Errorf("count commitments by status: %w", err)
	}
	for _, row := range rows {
		c := counts[row.EmployeeCode]
		c.Total += row.Total
		switch row.Status {
		case models.CommitmentNotStarted:
			c.NotStarted += row.Total
		case models.CommitmentDraft:
			c.Draft += row.Total
		case models.CommitmentSubmitted:
			c.Submitted += row.Total
		case models.CommitmentApproved:
			c.Approved += row.Total
		}
		counts[row.EmployeeCode] = c
	}
	return counts, nil
}

func statusStrings(statuses []models.CommitmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
