package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/target-setting-api/internal/models"
	"github.com/noah-isme/target-setting-api/internal/repository"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

// commitmentStoreStub mimics the guarded semantics of CommitmentRepository in memory.
type commitmentStoreStub struct {
	mu          sync.Mutex
	commitments map[int64]*models.Commitment
	approvals   []models.ApprovalAction
	transitions []models.CommitmentTransitionSet
	// beforeTransition runs ahead of the guard check, letting tests simulate a concurrent writer.
	beforeTransition func(s *commitmentStoreStub)
	beforeSave       func(s *commitmentStoreStub)
	listErr          error
}

func newCommitmentStoreStub(commitments ...models.Commitment) *commitmentStoreStub {
	s := &commitmentStoreStub{commitments: make(map[int64]*models.Commitment)}
	for i := range commitments {
		c := commitments[i]
		s.commitments[c.ID] = &c
	}
	return s
}

func (s *commitmentStoreStub) setStatus(id int64, status models.CommitmentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitments[id].Status = status
}

func (s *commitmentStoreStub) get(id int64) models.Commitment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.commitments[id]
}

func (s *commitmentStoreStub) FindByID(_ context.Context, id int64) (*models.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *c
	copy.MonthlyTargets = c.MonthlyTargets.Clone()
	return &copy, nil
}

func (s *commitmentStoreStub) List(_ context.Context, filter models.CommitmentFilter) ([]models.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []models.Commitment{}
	for _, c := range s.commitments {
		if filter.EmployeeCodes != nil && !containsString(filter.EmployeeCodes, c.EmployeeCode) {
			continue
		}
		if len(filter.IDs) > 0 && !containsID(filter.IDs, c.ID) {
			continue
		}
		if filter.FiscalYearCode != "" && c.FiscalYearCode != filter.FiscalYearCode {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, c.Status) {
			continue
		}
		if filter.CategoryID != "" && c.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *commitmentStoreStub) SaveTargets(_ context.Context, id int64, ownerCode string, targets models.MonthlyTargets, at time.Time) error {
	if s.beforeSave != nil {
		s.beforeSave(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[id]
	if !ok || c.EmployeeCode != ownerCode || !c.Status.Can(models.TransitionSave) {
		return sql.ErrNoRows
	}
	c.MonthlyTargets = targets.Clone()
	c.Status = models.CommitmentDraft
	c.UpdatedAt = at
	return nil
}

func (s *commitmentStoreStub) Transition(_ context.Context, set models.CommitmentTransitionSet) (int, error) {
	if s.beforeTransition != nil {
		s.beforeTransition(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range set.IDs {
		c, ok := s.commitments[id]
		if !ok || !containsStatus(set.From, c.Status) || (set.OwnerCode != "" && c.EmployeeCode != set.OwnerCode) {
			return 0, repository.ErrStatusConflict
		}
	}
	for _, id := range set.IDs {
		c := s.commitments[id]
		c.Status = set.To
		c.UpdatedAt = set.OccurredAt
		at := set.OccurredAt
		switch set.To {
		case models.CommitmentSubmitted:
			c.SubmittedAt = &at
		case models.CommitmentApproved:
			actor := set.ActorCode
			c.ApprovedAt = &at
			c.ApprovedByCode = &actor
		}
		if targets, ok := set.Targets[id]; ok {
			c.MonthlyTargets = targets.Clone()
		}
	}
	s.approvals = append(s.approvals, set.Actions...)
	s.transitions = append(s.transitions, set)
	return len(set.IDs), nil
}

func (s *commitmentStoreStub) ListApprovals(_ context.Context, commitmentID int64) ([]models.ApprovalAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ApprovalAction
	for _, a := range s.approvals {
		if a.CommitmentID == commitmentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *commitmentStoreStub) actionsFor(id int64) []models.ApprovalAction {
	actions, _ := s.ListApprovals(context.Background(), id)
	return actions
}

func (s *commitmentStoreStub) CountByStatus(_ context.Context, employeeCodes []string, fiscalYear string) (map[string]models.StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grouped := map[string][]models.Commitment{}
	for _, c := range s.commitments {
		if containsString(employeeCodes, c.EmployeeCode) && c.FiscalYearCode == fiscalYear {
			grouped[c.EmployeeCode] = append(grouped[c.EmployeeCode], *c)
		}
	}
	out := make(map[string]models.StatusCounts, len(grouped))
	for code, list := range grouped {
		out[code] = StatusCounts(list)
	}
	return out, nil
}

type employeeStoreStub struct {
	employees map[string]models.Employee
	queries   int
}

func newEmployeeStoreStub(employees ...models.Employee) *employeeStoreStub {
	s := &employeeStoreStub{employees: make(map[string]models.Employee)}
	for _, e := range employees {
		s.employees[e.Code] = e
	}
	return s
}

func (s *employeeStoreStub) FindByCode(_ context.Context, code string) (*models.Employee, error) {
	e, ok := s.employees[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s *employeeStoreStub) FindByCodes(_ context.Context, codes []string) ([]models.Employee, error) {
	out := []models.Employee{}
	for _, code := range codes {
		if e, ok := s.employees[code]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *employeeStoreStub) ListReportsOf(_ context.Context, managerCodes []string) ([]models.Employee, error) {
	s.queries++
	out := []models.Employee{}
	for _, e := range s.employees {
		if e.Active && containsString(managerCodes, e.ManagerCode()) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *employeeStoreStub) CountReports(ctx context.Context, managerCodes []string) (map[string]int, error) {
	reports, _ := s.ListReportsOf(ctx, managerCodes)
	out := map[string]int{}
	for _, r := range reports {
		out[r.ManagerCode()]++
	}
	return out, nil
}

type productCatalogStub map[string]models.Product

func (p productCatalogStub) ByCodes(_ context.Context, codes []string) (map[string]models.Product, error) {
	out := map[string]models.Product{}
	for _, code := range codes {
		if prod, ok := p[code]; ok {
			out[code] = prod
		}
	}
	return out, nil
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *auditRecorder) Record(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

type invalidatorStub struct {
	codes []string
}

func (i *invalidatorStub) InvalidateEmployees(_ context.Context, codes []string) {
	i.codes = append(i.codes, codes...)
}

func employee(code string, role models.Role, reportsTo string) models.Employee {
	e := models.Employee{Code: code, FullName: "Name " + code, Role: role, Active: true}
	if reportsTo != "" {
		manager := reportsTo
		e.ReportsTo = &manager
	}
	return e
}

// salesOrg is SH-1 > ZBM-1 > ABM-1 > TBM-010 > SR-001, SR-002, with TBM-020 > SR-900 under a different ABM.
func salesOrg() *employeeStoreStub {
	return newEmployeeStoreStub(
		employee("SH-1", models.RoleSalesHead, ""),
		employee("ZBM-1", models.RoleZBM, "SH-1"),
		employee("ABM-1", models.RoleABM, "ZBM-1"),
		employee("ABM-2", models.RoleABM, "ZBM-1"),
		employee("TBM-010", models.RoleTBM, "ABM-1"),
		employee("TBM-020", models.RoleTBM, "ABM-2"),
		employee("SR-001", models.RoleSalesRep, "TBM-010"),
		employee("SR-002", models.RoleSalesRep, "TBM-010"),
		employee("SR-900", models.RoleSalesRep, "TBM-020"),
		employee("SPEC-1", models.RoleATIOLSpecialist, "ABM-1"),
	)
}

func commitmentFor(id int64, owner string, status models.CommitmentStatus, targets models.MonthlyTargets) models.Commitment {
	if targets == nil {
		targets = models.MonthlyTargets{}
	}
	return models.Commitment{
		ID:             id,
		EmployeeCode:   owner,
		ProductCode:    "P1",
		FiscalYearCode: "FY26_27",
		CategoryID:     "CAT-1",
		MonthlyTargets: targets,
		Status:         status,
	}
}

func actor(code string, role models.Role) models.Actor {
	return models.Actor{Code: code, Role: role}
}

var fixedNow = time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsID(values []int64, v int64) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsStatus(values []models.CommitmentStatus, v models.CommitmentStatus) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func requireAppError(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, want.Code, appErr.Code, appErr.Message)
}
