package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/target-setting-api/internal/dto"
	"github.com/noah-isme/target-setting-api/internal/models"
	"github.com/noah-isme/target-setting-api/internal/repository"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
	"github.com/noah-isme/target-setting-api/pkg/export"
)

type employeeDirectory interface {
	Employee(ctx context.Context, code string) (*models.Employee, error)
	Employees(ctx context.Context, codes []string) (map[string]models.Employee, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ApprovalServiceParams groups constructor dependencies.
type ApprovalServiceParams struct {
	Store       commitmentStore
	Employees   employeeDirectory
	Products    productCatalog
	Fiscal      FiscalYearProvider
	Tiers       []ReviewTier
	Validator   *validator.Validate
	Audit       auditSink
	Invalidator dashboardInvalidator
	Metrics     *MetricsService
	Logger      *zap.Logger
	Now         func() time.Time
}

// ApprovalService reviews submitted commitments for every management tier.
type ApprovalService struct {
	store     commitmentStore
	employees employeeDirectory
	products  productCatalog
	fiscal    FiscalYearProvider
	tiers     map[string]ReviewTier
	validator *validator.Validate
	effects   transitionEffects
	renderers map[string]tableRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewApprovalService constructs the engine.
func NewApprovalService(params ApprovalServiceParams) *ApprovalService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	tiers := make(map[string]ReviewTier, len(params.Tiers))
	for _, tier := range params.Tiers {
		tiers[tier.Name] = tier
	}
	csv := export.NewCSVExporter()
	pdf := export.NewPDFExporter()
	return &ApprovalService{
		store:     params.Store,
		employees: params.Employees,
		products:  params.Products,
		fiscal:    params.Fiscal,
		tiers:     tiers,
		validator: validate,
		effects: transitionEffects{
			audit:       params.Audit,
			invalidator: params.Invalidator,
			metrics:     params.Metrics,
			logger:      logger,
		},
		renderers: map[string]tableRenderer{
			csv.Extension(): csv,
			pdf.Extension(): pdf,
		},
		logger: logger,
		now:    now,
	}
}

// Tier returns the named tier.
func (s *ApprovalService) Tier(name string) (ReviewTier, bool) {
	tier, ok := s.tiers[name]
	return tier, ok
}

// Approve approves one submitted commitment, applying reviewer corrections first when present.
func (s *ApprovalService) Approve(ctx context.Context, tierName string, id int64, actor models.Actor, req dto.ApproveRequest) (*dto.ReviewResult, error) {
	tier, err := s.reviewer(tierName, actor)
	if err != nil {
		return nil, err
	}
	commitment, err := s.reviewable(ctx, tier, id, actor, "approved")
	if err != nil {
		return nil, err
	}
	if err := s.validateCorrections(req); err != nil {
		return nil, err
	}

	action := models.ApprovalAction{
		CommitmentID: id,
		Action:       models.ActionApproved,
		ActorCode:    actor.Code,
		ActorRole:    actor.Role,
		Comments:     optionalString(strings.TrimSpace(req.Comments)),
	}
	var targets map[int64]models.MonthlyTargets
	if corrected, applied, original := applyCorrections(commitment.MonthlyTargets, req.Corrections); len(applied) > 0 {
		action.Action = models.ActionCorrectedAndApproved
		action.Corrections = applied
		action.OriginalValues = original
		targets = map[int64]models.MonthlyTargets{id: corrected}
		commitment.MonthlyTargets = corrected
	}

	now := s.now()
	action.CreatedAt = now
	if _, err := s.store.Transition(ctx, models.CommitmentTransitionSet{
		IDs:        []int64{id},
		From:       models.TransitionApprove.SourceStatuses(),
		To:         models.TransitionApprove.Target(),
		ActorCode:  actor.Code,
		Actions:    []models.ApprovalAction{action},
		Targets:    targets,
		OccurredAt: now,
	}); err != nil {
		return nil, s.transitionError(ctx, id, err, "approved")
	}

	detail := map[string]interface{}{}
	if len(action.Corrections) > 0 {
		detail["correctedMonths"] = snapshotMonths(action.Corrections)
	}
	s.effects.after(ctx, transitionRecord{
		tier:        tier.Name,
		action:      action.Action,
		auditAction: models.AuditActionCommitmentApproved,
		actor:       actor,
		ids:         []int64{id},
		owners:      []string{commitment.EmployeeCode},
		detail:      detail,
	})
	return &dto.ReviewResult{CommitmentID: id, Action: action.Action, Status: models.CommitmentApproved}, nil
}

// Reject returns one submitted commitment to draft with the reviewer's reason.
func (s *ApprovalService) Reject(ctx context.Context, tierName string, id int64, actor models.Actor, reason string) (*dto.ReviewResult, error) {
	tier, err := s.reviewer(tierName, actor)
	if err != nil {
		return nil, err
	}
	commitment, err := s.reviewable(ctx, tier, id, actor, "rejected")
	if err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.store.Transition(ctx, models.CommitmentTransitionSet{
		IDs:       []int64{id},
		From:      models.TransitionReject.SourceStatuses(),
		To:        models.TransitionReject.Target(),
		ActorCode: actor.Code,
		Actions: []models.ApprovalAction{{
			CommitmentID: id,
			Action:       models.ActionRejected,
			ActorCode:    actor.Code,
			ActorRole:    actor.Role,
			Comments:     optionalString(strings.TrimSpace(reason)),
			CreatedAt:    now,
		}},
		OccurredAt: now,
	}); err != nil {
		return nil, s.transitionError(ctx, id, err, "rejected")
	}

	s.effects.after(ctx, transitionRecord{
		tier:        tier.Name,
		action:      models.ActionRejected,
		auditAction: models.AuditActionCommitmentRejected,
		actor:       actor,
		ids:         []int64{id},
		owners:      []string{commitment.EmployeeCode},
	})
	return &dto.ReviewResult{CommitmentID: id, Action: models.ActionRejected, Status: models.CommitmentDraft}, nil
}

// BulkApprove approves the submitted commitments among ids that fall inside the reviewer's scope.
func (s *ApprovalService) BulkApprove(ctx context.Context, tierName string, ids []int64, actor models.Actor, comments string) (dto.BulkApproveResult, error) {
	count, err := s.bulk(ctx, tierName, ids, actor, models.TransitionApprove, models.ActionBulkApproved, comments)
	if err != nil {
		return dto.BulkApproveResult{}, err
	}
	return dto.BulkApproveResult{ApprovedCount: count}, nil
}

// BulkReject returns the submitted commitments among ids that fall inside the reviewer's scope to draft.
func (s *ApprovalService) BulkReject(ctx context.Context, tierName string, ids []int64, actor models.Actor, reason string) (dto.BulkRejectResult, error) {
	count, err := s.bulk(ctx, tierName, ids, actor, models.TransitionReject, models.ActionBulkRejected, reason)
	if err != nil {
		return dto.BulkRejectResult{}, err
	}
	return dto.BulkRejectResult{RejectedCount: count}, nil
}

func (s *ApprovalService) bulk(ctx context.Context, tierName string, ids []int64, actor models.Actor, transition models.CommitmentTransition, actionType models.ApprovalActionType, comment string) (int, error) {
	tier, err := s.reviewer(tierName, actor)
	if err != nil {
		return 0, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, appErrors.Clone(appErrors.ErrInvalidOperation, "no commitments selected")
	}
	scope, err := tier.Predicate.Scope(ctx, actor.Code)
	if err != nil {
		return 0, appErrors.FromError(err)
	}
	eligible, err := s.store.List(ctx, models.CommitmentFilter{
		IDs:           ids,
		EmployeeCodes: scopeCodes(scope),
		Statuses:      transition.SourceStatuses(),
	})
	if err != nil {
		return 0, appErrors.Internal(err, "failed to load commitments")
	}
	if len(eligible) == 0 {
		return 0, appErrors.Clone(appErrors.ErrInvalidOperation, "no submitted commitments in your scope among the selection")
	}

	now := s.now()
	set := models.CommitmentTransitionSet{
		From:       transition.SourceStatuses(),
		To:         transition.Target(),
		ActorCode:  actor.Code,
		OccurredAt: now,
	}
	owners := make([]string, 0, len(eligible))
	for _, c := range eligible {
		set.IDs = append(set.IDs, c.ID)
		set.Actions = append(set.Actions, models.ApprovalAction{
			CommitmentID: c.ID,
			Action:       actionType,
			ActorCode:    actor.Code,
			ActorRole:    actor.Role,
			Comments:     optionalString(strings.TrimSpace(comment)),
			CreatedAt:    now,
		})
		owners = append(owners, c.EmployeeCode)
	}
	count, err := s.store.Transition(ctx, set)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return 0, appErrors.Clone(appErrors.ErrInvalidState, "one or more commitments changed status; nothing was reviewed")
		}
		return 0, appErrors.Internal(err, "failed to review commitments")
	}

	s.effects.after(ctx, transitionRecord{
		tier:        tier.Name,
		action:      actionType,
		auditAction: models.AuditActionCommitmentBulk,
		actor:       actor,
		ids:         set.IDs,
		owners:      uniqueStrings(owners),
	})
	return count, nil
}

// ListSubmissions lists commitments in the reviewer's scope, submitted and approved by default.
func (s *ApprovalService) ListSubmissions(ctx context.Context, tierName string, actor models.Actor, filter dto.SubmissionFilter) ([]models.CommitmentView, string, error) {
	tier, err := s.reviewer(tierName, actor)
	if err != nil {
		return nil, "", err
	}
	fy, err := resolveFiscalYear(ctx, s.fiscal, filter.FiscalYear)
	if err != nil {
		return nil, "", err
	}
	statuses := []models.CommitmentStatus{models.CommitmentSubmitted, models.CommitmentApproved}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
		}
		statuses = []models.CommitmentStatus{filter.Status}
	}
	scope, err := tier.Predicate.Scope(ctx, actor.Code)
	if err != nil {
		return nil, "", appErrors.FromError(err)
	}
	codes := scopeCodes(scope)
	if employee := strings.TrimSpace(filter.EmployeeCode); employee != "" {
		codes = []string{}
		if _, ok := scope[employee]; ok {
			codes = []string{employee}
		}
	}

	commitments, err := s.store.List(ctx, models.CommitmentFilter{
		EmployeeCodes:  codes,
		FiscalYearCode: fy,
		Statuses:       statuses,
		CategoryID:     strings.TrimSpace(filter.CategoryID),
	})
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to list submissions")
	}
	var names map[string]models.Employee
	if len(commitments) > 0 {
		owners := make([]string, len(commitments))
		for i, c := range commitments {
			owners[i] = c.EmployeeCode
		}
		if names, err = s.employees.Employees(ctx, uniqueStrings(owners)); err != nil {
			return nil, "", err
		}
	}
	views, err := decorateCommitments(ctx, s.products, commitments, names)
	if err != nil {
		return nil, "", err
	}
	return views, fy, nil
}

// ExportSubmissions renders the reviewer's submission list as csv or pdf.
func (s *ApprovalService) ExportSubmissions(ctx context.Context, tierName string, actor models.Actor, filter dto.SubmissionFilter, format string) (*dto.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	views, fy, err := s.ListSubmissions(ctx, tierName, actor, filter)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(submissionsTable(tierName, fy, views))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("submissions-%s-%s-%s.%s", tierName, fy, s.now().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

// reviewer resolves the tier and checks the actor holds one of its reviewer roles.
func (s *ApprovalService) reviewer(tierName string, actor models.Actor) (ReviewTier, error) {
	tier, ok := s.tiers[tierName]
	if !ok {
		return ReviewTier{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown review tier %q", tierName))
	}
	if !actor.Role.In(tier.ReviewerRoles...) {
		return ReviewTier{}, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s cannot review the %s tier", actor.Role, tier.Name))
	}
	return tier, nil
}

// reviewable loads a submitted commitment the actor may review, checking existence, status then authority.
func (s *ApprovalService) reviewable(ctx context.Context, tier ReviewTier, id int64, actor models.Actor, verb string) (*models.Commitment, error) {
	commitment, err := loadCommitment(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if !commitment.Status.Can(models.TransitionApprove) {
		return nil, invalidState(commitment.Status, verb)
	}
	owner, err := s.employees.Employee(ctx, commitment.EmployeeCode)
	if err != nil {
		return nil, err
	}
	allowed, err := tier.Predicate.Authorize(ctx, actor.Code, *owner)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "commitment owner is outside your review scope")
	}
	return commitment, nil
}

func (s *ApprovalService) validateCorrections(req dto.ApproveRequest) error {
	if unknown := req.Corrections.UnknownMonths(); len(unknown) > 0 {
		sort.Strings(unknown)
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown fiscal months: %s", strings.Join(unknown, ", ")))
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "corrections must be non-negative")
	}
	return nil
}

func (s *ApprovalService) transitionError(ctx context.Context, id int64, err error, verb string) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		current, loadErr := loadCommitment(ctx, s.store, id)
		if loadErr != nil {
			return loadErr
		}
		return invalidState(current.Status, verb)
	}
	return appErrors.Internal(err, "failed to update commitment status")
}

// applyCorrections returns the corrected targets, the corrected month values and the values they replaced.
func applyCorrections(targets models.MonthlyTargets, corrections models.Corrections) (models.MonthlyTargets, models.MonthSnapshot, models.MonthSnapshot) {
	corrected := targets.Clone()
	applied := models.MonthSnapshot{}
	original := models.MonthSnapshot{}
	for month, patch := range corrections {
		if patch.Empty() {
			continue
		}
		before := targets.Month(month)
		original[month] = before
		after := patch.Apply(before)
		corrected[month] = after
		applied[month] = after
	}
	return corrected, applied, original
}

func snapshotMonths(snapshot models.MonthSnapshot) []string {
	months := make([]string, 0, len(snapshot))
	for _, m := range models.FiscalMonths {
		if _, ok := snapshot[m]; ok {
			months = append(months, m)
		}
	}
	return months
}

func scopeCodes(scope map[string]struct{}) []string {
	codes := make([]string, 0, len(scope))
	for code := range scope {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

var submissionColumns = []export.Column{
	{Key: "employee", Title: "Employee"},
	{Key: "name", Title: "Name"},
	{Key: "product", Title: "Product"},
	{Key: "category", Title: "Category"},
	{Key: "status", Title: "Status"},
	{Key: "lyQty", Title: "LY Qty", Numeric: true},
	{Key: "cyQty", Title: "CY Qty", Numeric: true},
	{Key: "lyRev", Title: "LY Revenue", Numeric: true},
	{Key: "cyRev", Title: "CY Revenue", Numeric: true},
	{Key: "growth", Title: "Growth %", Numeric: true},
}

func submissionsTable(tier, fy string, views []models.CommitmentView) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Submissions %s %s", tier, fy),
		Columns: submissionColumns,
		Rows:    make([]map[string]string, 0, len(views)),
	}
	all := make([]models.Commitment, len(views))
	for i, v := range views {
		all[i] = v.Commitment
		totals := AggregateMonthlyTargets([]models.Commitment{v.Commitment})
		product := v.ProductCode
		if v.ProductName != "" {
			product = v.ProductCode + " " + v.ProductName
		}
		row := totalsRow(totals)
		row["employee"] = v.EmployeeCode
		row["name"] = v.EmployeeName
		row["product"] = product
		row["category"] = v.CategoryID
		row["status"] = string(v.Status)
		table.Rows = append(table.Rows, row)
	}
	table.Totals = totalsRow(AggregateMonthlyTargets(all))
	table.Totals["employee"] = "Total"
	return table
}

func totalsRow(t models.Totals) map[string]string {
	return map[string]string{
		"lyQty":  decimal.NewFromFloat(t.LastYearQty).StringFixed(2),
		"cyQty":  decimal.NewFromFloat(t.ThisYearQty).StringFixed(2),
		"lyRev":  decimal.NewFromFloat(t.LastYearRevenue).StringFixed(2),
		"cyRev":  decimal.NewFromFloat(t.ThisYearRevenue).StringFixed(2),
		"growth": decimal.NewFromFloat(GrowthPercent(t.LastYearRevenue, t.ThisYearRevenue)).StringFixed(1),
	}
}
