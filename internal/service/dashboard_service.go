package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

// Team scopes for TeamSummary.
const (
	TeamScopeDirect = "direct"
	TeamScopeAll    = "all"
)

type commitmentLister interface {
	List(ctx context.Context, filter models.CommitmentFilter) ([]models.Commitment, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Commitments commitmentLister
	Hierarchy   hierarchyResolver
	Products    productCatalog
	Fiscal      FiscalYearProvider
	Cache       *CacheService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// DashboardService rolls commitments up into cached summaries.
type DashboardService struct {
	commitments commitmentLister
	hierarchy   hierarchyResolver
	products    productCatalog
	fiscal      FiscalYearProvider
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		commitments: params.Commitments,
		hierarchy:   params.Hierarchy,
		products:    params.Products,
		fiscal:      params.Fiscal,
		cache:       params.Cache,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		cfg:         cfg,
	}
}

// Summary rolls up an employee's own commitments and indicates cache utilisation.
func (s *DashboardService) Summary(ctx context.Context, employeeCode, fiscalYear string) (*models.DashboardSummary, bool, error) {
	fy, err := s.fiscalYear(ctx, employeeCode, fiscalYear)
	if err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("dash:summary:%s:%s", fy, employeeCode)
	var cached models.DashboardSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	commitments, err := s.list(ctx, []string{employeeCode}, fy)
	if err != nil {
		return nil, false, err
	}
	summary := s.summarise(employeeCode, fy, commitments)
	s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
	return summary, false, nil
}

// TeamSummary rolls up the manager's own commitments together with those of the team in scope.
func (s *DashboardService) TeamSummary(ctx context.Context, managerCode, scope, fiscalYear string) (*models.DashboardSummary, bool, error) {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		scope = TeamScopeDirect
	}
	if scope != TeamScopeDirect && scope != TeamScopeAll {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown team scope %q", scope))
	}
	fy, err := s.fiscalYear(ctx, managerCode, fiscalYear)
	if err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("dash:team:%s:%s:%s", fy, scope, managerCode)
	var cached models.DashboardSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	team, err := s.team(ctx, managerCode, scope)
	if err != nil {
		return nil, false, err
	}
	commitments, err := s.list(ctx, append([]string{managerCode}, team...), fy)
	if err != nil {
		return nil, false, err
	}
	summary := s.summarise(managerCode, fy, commitments)
	summary.TeamSize = len(team)
	s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
	return summary, false, nil
}

// Quarterly breaks an employee's commitments down by category and fiscal quarter.
func (s *DashboardService) Quarterly(ctx context.Context, employeeCode, fiscalYear string) (*models.QuarterlyReport, bool, error) {
	fy, err := s.fiscalYear(ctx, employeeCode, fiscalYear)
	if err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("dash:quarterly:%s:%s", fy, employeeCode)
	var cached models.QuarterlyReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	commitments, err := s.list(ctx, []string{employeeCode}, fy)
	if err != nil {
		return nil, false, err
	}
	report := &models.QuarterlyReport{
		EmployeeCode:   employeeCode,
		FiscalYearCode: fy,
		Categories:     QuarterlyRollup(commitments),
	}
	s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return report, false, nil
}

// CategoryPerformance reports each category's totals, growth and share of revenue for an employee.
func (s *DashboardService) CategoryPerformance(ctx context.Context, employeeCode, fiscalYear string) (*models.CategoryReport, bool, error) {
	fy, err := s.fiscalYear(ctx, employeeCode, fiscalYear)
	if err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("dash:categories:%s:%s", fy, employeeCode)
	var cached models.CategoryReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	commitments, err := s.list(ctx, []string{employeeCode}, fy)
	if err != nil {
		return nil, false, err
	}
	names, err := s.categoryNames(ctx, commitments)
	if err != nil {
		return nil, false, err
	}
	report := &models.CategoryReport{
		EmployeeCode:   employeeCode,
		FiscalYearCode: fy,
		Categories:     CategoryPerformance(commitments, names),
	}
	s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return report, false, nil
}

// ZonePerformance rolls the manager's whole organisation up per zone.
func (s *DashboardService) ZonePerformance(ctx context.Context, managerCode, fiscalYear string) (*models.ZoneReport, bool, error) {
	fy, err := s.fiscalYear(ctx, managerCode, fiscalYear)
	if err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("dash:zones:%s:%s", fy, managerCode)
	var cached models.ZoneReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	commitments, err := s.organisation(ctx, managerCode, fy)
	if err != nil {
		return nil, false, err
	}
	report := &models.ZoneReport{
		ManagerCode:    managerCode,
		FiscalYearCode: fy,
		Zones:          ZoneRollup(commitments),
	}
	s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return report, false, nil
}

// MonthlyTrend sums the approved commitments of the manager's whole organisation per fiscal month.
func (s *DashboardService) MonthlyTrend(ctx context.Context, managerCode, fiscalYear string) (*models.TrendReport, bool, error) {
	fy, err := s.fiscalYear(ctx, managerCode, fiscalYear)
	if err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("dash:trend:%s:%s", fy, managerCode)
	var cached models.TrendReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	commitments, err := s.organisation(ctx, managerCode, fy, models.CommitmentApproved)
	if err != nil {
		return nil, false, err
	}
	report := &models.TrendReport{
		ManagerCode:    managerCode,
		FiscalYearCode: fy,
		Months:         MonthlyTrend(commitments),
	}
	s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return report, false, nil
}

// InvalidateEmployees drops cached views of the given employees and every team rollup that may include them.
func (s *DashboardService) InvalidateEmployees(ctx context.Context, employeeCodes []string) {
	codes := uniqueStrings(employeeCodes)
	if len(codes) == 0 {
		return
	}
	patterns := make([]string, 0, len(codes)+3)
	for _, code := range codes {
		patterns = append(patterns, "dash:*:"+code)
	}
	patterns = append(patterns, "dash:team:*", "dash:zones:*", "dash:trend:*")
	s.cache.Invalidate(ctx, patterns...)
}

func (s *DashboardService) fiscalYear(ctx context.Context, employeeCode, explicit string) (string, error) {
	if strings.TrimSpace(employeeCode) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "employee code is required")
	}
	return resolveFiscalYear(ctx, s.fiscal, explicit)
}

func (s *DashboardService) team(ctx context.Context, managerCode, scope string) ([]string, error) {
	if scope == TeamScopeAll {
		set, err := s.hierarchy.Subordinates(ctx, managerCode)
		if err != nil {
			return nil, err
		}
		return set.Codes, nil
	}
	reports, err := s.hierarchy.DirectReports(ctx, managerCode)
	if err != nil {
		return nil, err
	}
	codes := make([]string, len(reports))
	for i, r := range reports {
		codes[i] = r.Code
	}
	return codes, nil
}

func (s *DashboardService) list(ctx context.Context, codes []string, fy string) ([]models.Commitment, error) {
	commitments, err := s.commitments.List(ctx, models.CommitmentFilter{EmployeeCodes: codes, FiscalYearCode: fy})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load commitments")
	}
	return commitments, nil
}

func (s *DashboardService) organisation(ctx context.Context, managerCode, fy string, statuses ...models.CommitmentStatus) ([]models.Commitment, error) {
	team, err := s.team(ctx, managerCode, TeamScopeAll)
	if err != nil {
		return nil, err
	}
	commitments, err := s.commitments.List(ctx, models.CommitmentFilter{
		EmployeeCodes:  append([]string{managerCode}, team...),
		FiscalYearCode: fy,
		Statuses:       statuses,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load commitments")
	}
	return commitments, nil
}

func (s *DashboardService) summarise(employeeCode, fy string, commitments []models.Commitment) *models.DashboardSummary {
	totals := AggregateMonthlyTargets(commitments)
	return &models.DashboardSummary{
		EmployeeCode:   employeeCode,
		FiscalYearCode: fy,
		Totals:         totals,
		Growth:         GrowthOf(totals),
		Status:         StatusCounts(commitments),
		GeneratedAt:    s.now(),
	}
}

func (s *DashboardService) categoryNames(ctx context.Context, commitments []models.Commitment) (map[string]string, error) {
	names := map[string]string{}
	if s.products == nil || len(commitments) == 0 {
		return names, nil
	}
	codes := make([]string, len(commitments))
	for i, c := range commitments {
		codes[i] = c.ProductCode
	}
	catalog, err := s.products.ByCodes(ctx, uniqueStrings(codes))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load product catalog")
	}
	for _, c := range commitments {
		if p, ok := catalog[c.ProductCode]; ok && p.Category != "" {
			if _, set := names[c.CategoryID]; !set {
				names[c.CategoryID] = p.Category
			}
		}
	}
	return names, nil
}
