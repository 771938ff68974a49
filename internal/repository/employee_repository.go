package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/target-setting-api/internal/models"
)

const employeeColumns = `employee_code, full_name, role, designation, reports_to,
       zone_code, zone_name, area_code, area_name, territory_code, territory_name, is_active`

// EmployeeRepository reads the organisation hierarchy.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// FindByCode fetches one employee regardless of activity.
func (r *EmployeeRepository) FindByCode(ctx context.Context, code string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE employee_code = $1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, code); err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByCodes fetches the listed employees.
func (r *EmployeeRepository) FindByCodes(ctx context.Context, codes []string) ([]models.Employee, error) {
	if len(codes) == 0 {
		return []models.Employee{}, nil
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE employee_code = ANY($1) ORDER BY full_name`
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, pq.Array(codes)); err != nil {
		return nil, fmt.Errorf("find employees by codes: %w", err)
	}
	return employees, nil
}

// ListReportsOf returns active employees whose manager is one of managerCodes.
func (r *EmployeeRepository) ListReportsOf(ctx context.Context, managerCodes []string) ([]models.Employee, error) {
	if len(managerCodes) == 0 {
		return []models.Employee{}, nil
	}
	query := `SELECT ` + employeeColumns + ` FROM employees
	WHERE reports_to = ANY($1) AND is_active = TRUE
	ORDER BY full_name`
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, pq.Array(managerCodes)); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return employees, nil
}

// CountReports counts active direct reports per manager code.
func (r *EmployeeRepository) CountReports(ctx context.Context, managerCodes []string) (map[string]int, error) {
	counts := make(map[string]int, len(managerCodes))
	if len(managerCodes) == 0 {
		return counts, nil
	}
	const query = `SELECT reports_to, COUNT(*) AS total FROM employees
	WHERE reports_to = ANY($1) AND is_active = TRUE
	GROUP BY reports_to`
	var rows []struct {
		ReportsTo string `db:"reports_to"`
		Total     int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(managerCodes)); err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	for _, row := range rows {
		counts[row.ReportsTo] = row.Total
	}
	return counts, nil
}
