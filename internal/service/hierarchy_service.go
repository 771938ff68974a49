package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

type employeeStore interface {
	FindByCode(ctx context.Context, code string) (*models.Employee, error)
	FindByCodes(ctx context.Context, codes []string) ([]models.Employee, error)
	ListReportsOf(ctx context.Context, managerCodes []string) ([]models.Employee, error)
	CountReports(ctx context.Context, managerCodes []string) (map[string]int, error)
}

type commitmentStatusCounter interface {
	CountByStatus(ctx context.Context, employeeCodes []string, fiscalYear string) (map[string]models.StatusCounts, error)
}

// HierarchyService resolves reporting lines over the employees adjacency list.
type HierarchyService struct {
	employees employeeStore
	counts    commitmentStatusCounter
	fiscal    FiscalYearProvider
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewHierarchyService constructs the resolver.
func NewHierarchyService(employees employeeStore, counts commitmentStatusCounter, fiscal FiscalYearProvider, metrics *MetricsService, logger *zap.Logger) *HierarchyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HierarchyService{employees: employees, counts: counts, fiscal: fiscal, metrics: metrics, logger: logger}
}

// Employee fetches one employee. Missing codes map to ErrNotFound.
func (s *HierarchyService) Employee(ctx context.Context, code string) (*models.Employee, error) {
	employee, err := s.employees.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Internal(err, "failed to load employee")
	}
	return employee, nil
}

// Employees fetches the listed employees keyed by code.
func (s *HierarchyService) Employees(ctx context.Context, codes []string) (map[string]models.Employee, error) {
	list, err := s.employees.FindByCodes(ctx, codes)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load employees")
	}
	out := make(map[string]models.Employee, len(list))
	for _, e := range list {
		out[e.Code] = e
	}
	return out, nil
}

// DirectReports returns active employees reporting to managerCode. Unknown managers yield an empty list.
func (s *HierarchyService) DirectReports(ctx context.Context, managerCode string) ([]models.Employee, error) {
	managerCode = strings.TrimSpace(managerCode)
	if managerCode == "" {
		return []models.Employee{}, nil
	}
	reports, err := s.employees.ListReportsOf(ctx, []string{managerCode})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load direct reports")
	}
	return reports, nil
}

// Subordinates walks reporting lines breadth-first, one query per level. A report that points back
// into the visited set marks the result as cyclic and the partial set is returned.
func (s *HierarchyService) Subordinates(ctx context.Context, managerCode string) (models.SubordinateSet, error) {
	set := models.SubordinateSet{Codes: []string{}}
	managerCode = strings.TrimSpace(managerCode)
	if managerCode == "" {
		return set, nil
	}

	visited := map[string]struct{}{managerCode: {}}
	frontier := []string{managerCode}
	var cyclic []string
	for len(frontier) > 0 {
		reports, err := s.employees.ListReportsOf(ctx, frontier)
		if err != nil {
			return models.SubordinateSet{}, appErrors.Internal(err, "failed to resolve subordinates")
		}
		next := make([]string, 0, len(reports))
		for _, report := range reports {
			if _, seen := visited[report.Code]; seen {
				set.CycleDetected = true
				cyclic = append(cyclic, report.Code)
				continue
			}
			visited[report.Code] = struct{}{}
			set.Codes = append(set.Codes, report.Code)
			next = append(next, report.Code)
		}
		frontier = next
	}

	if set.CycleDetected {
		s.metrics.RecordHierarchyCycle()
		s.logger.Warn("reporting cycle detected",
			zap.String("manager", managerCode),
			zap.Strings("revisited", cyclic),
			zap.Int("resolved", len(set.Codes)),
		)
	}
	return set, nil
}

// TeamHierarchy summarises each direct report with its own team size and commitment statuses.
func (s *HierarchyService) TeamHierarchy(ctx context.Context, managerCode, fiscalYear string) ([]models.TeamMemberSummary, error) {
	fy, err := resolveFiscalYear(ctx, s.fiscal, fiscalYear)
	if err != nil {
		return nil, err
	}
	reports, err := s.DirectReports(ctx, managerCode)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return []models.TeamMemberSummary{}, nil
	}

	codes := make([]string, len(reports))
	for i, r := range reports {
		codes[i] = r.Code
	}
	teamSizes, err := s.employees.CountReports(ctx, codes)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count team members")
	}
	statuses, err := s.counts.CountByStatus(ctx, codes, fy)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to summarise commitments")
	}

	out := make([]models.TeamMemberSummary, len(reports))
	for i, r := range reports {
		out[i] = models.TeamMemberSummary{
			Employee:          r,
			DirectReportCount: teamSizes[r.Code],
			Commitments:       statuses[r.Code],
		}
	}
	return out, nil
}

type hierarchyResolver interface {
	DirectReports(ctx context.Context, managerCode string) ([]models.Employee, error)
	Subordinates(ctx context.Context, managerCode string) (models.SubordinateSet, error)
}

// AuthorizationPredicate decides whether an actor may review an employee's commitments.
type AuthorizationPredicate interface {
	Authorize(ctx context.Context, actorCode string, employee models.Employee) (bool, error)
	Scope(ctx context.Context, actorCode string) (map[string]struct{}, error)
}

// DirectReportPredicate admits active employees reporting straight to the actor, optionally limited to roles.
type DirectReportPredicate struct {
	Hierarchy    hierarchyResolver
	SubjectRoles []models.Role
}

// Authorize implements AuthorizationPredicate.
func (p DirectReportPredicate) Authorize(_ context.Context, actorCode string, employee models.Employee) (bool, error) {
	if actorCode == "" || !employee.Active || employee.ManagerCode() != actorCode {
		return false, nil
	}
	return roleAllowed(employee.Role, p.SubjectRoles), nil
}

// Scope implements AuthorizationPredicate.
func (p DirectReportPredicate) Scope(ctx context.Context, actorCode string) (map[string]struct{}, error) {
	reports, err := p.Hierarchy.DirectReports(ctx, actorCode)
	if err != nil {
		return nil, err
	}
	scope := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		if roleAllowed(r.Role, p.SubjectRoles) {
			scope[r.Code] = struct{}{}
		}
	}
	return scope, nil
}

// SubordinatePredicate admits anyone in the actor's transitive subordinate set.
type SubordinatePredicate struct {
	Hierarchy hierarchyResolver
}

// Authorize implements AuthorizationPredicate.
func (p SubordinatePredicate) Authorize(ctx context.Context, actorCode string, employee models.Employee) (bool, error) {
	set, err := p.Hierarchy.Subordinates(ctx, actorCode)
	if err != nil {
		return false, err
	}
	return set.Contains(employee.Code), nil
}

// Scope implements AuthorizationPredicate.
func (p SubordinatePredicate) Scope(ctx context.Context, actorCode string) (map[string]struct{}, error) {
	set, err := p.Hierarchy.Subordinates(ctx, actorCode)
	if err != nil {
		return nil, err
	}
	scope := make(map[string]struct{}, len(set.Codes))
	for _, code := range set.Codes {
		scope[code] = struct{}{}
	}
	return scope, nil
}

func roleAllowed(role models.Role, allowed []models.Role) bool {
	return len(allowed) == 0 || role.In(allowed...)
}
