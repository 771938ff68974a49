package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/target-setting-api/internal/dto"
	"github.com/noah-isme/target-setting-api/internal/models"
	"github.com/noah-isme/target-setting-api/internal/repository"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

type commitmentStore interface {
	FindByID(ctx context.Context, id int64) (*models.Commitment, error)
	List(ctx context.Context, filter models.CommitmentFilter) ([]models.Commitment, error)
	SaveTargets(ctx context.Context, id int64, ownerCode string, targets models.MonthlyTargets, at time.Time) error
	Transition(ctx context.Context, set models.CommitmentTransitionSet) (int, error)
	ListApprovals(ctx context.Context, commitmentID int64) ([]models.ApprovalAction, error)
}

type productCatalog interface {
	ByCodes(ctx context.Context, codes []string) (map[string]models.Product, error)
}

type subordinateResolver interface {
	Subordinates(ctx context.Context, managerCode string) (models.SubordinateSet, error)
}

// CommitmentService lets owners edit and submit their commitments.
type CommitmentService struct {
	store     commitmentStore
	products  productCatalog
	hierarchy subordinateResolver
	fiscal    FiscalYearProvider
	validator *validator.Validate
	effects   transitionEffects
	logger    *zap.Logger
	now       func() time.Time
}

// CommitmentServiceOption configures the service.
type CommitmentServiceOption func(*CommitmentService)

// WithCommitmentAudit sets the audit sink used after submissions.
func WithCommitmentAudit(audit auditSink) CommitmentServiceOption {
	return func(s *CommitmentService) { s.effects.audit = audit }
}

// WithCommitmentInvalidator sets the dashboard cache invalidator.
func WithCommitmentInvalidator(inv dashboardInvalidator) CommitmentServiceOption {
	return func(s *CommitmentService) { s.effects.invalidator = inv }
}

// WithCommitmentMetrics sets the metrics recorder.
func WithCommitmentMetrics(metrics *MetricsService) CommitmentServiceOption {
	return func(s *CommitmentService) { s.effects.metrics = metrics }
}

// WithCommitmentClock overrides the time source.
func WithCommitmentClock(now func() time.Time) CommitmentServiceOption {
	return func(s *CommitmentService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCommitmentService constructs the service.
func NewCommitmentService(store commitmentStore, products productCatalog, hierarchy subordinateResolver, fiscal FiscalYearProvider, validate *validator.Validate, logger *zap.Logger, opts ...CommitmentServiceOption) *CommitmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CommitmentService{
		store:     store,
		products:  products,
		hierarchy: hierarchy,
		fiscal:    fiscal,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	svc.effects.logger = logger
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// ListForEmployee returns an employee's commitments for a fiscal year decorated with product data.
func (s *CommitmentService) ListForEmployee(ctx context.Context, employeeCode, fiscalYear string) ([]models.CommitmentView, string, error) {
	fy, err := resolveFiscalYear(ctx, s.fiscal, fiscalYear)
	if err != nil {
		return nil, "", err
	}
	commitments, err := s.store.List(ctx, models.CommitmentFilter{EmployeeCodes: []string{employeeCode}, FiscalYearCode: fy})
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to list commitments")
	}
	views, err := decorateCommitments(ctx, s.products, commitments, nil)
	if err != nil {
		return nil, "", err
	}
	return views, fy, nil
}

// SaveDraft replaces the monthly targets wholesale and leaves the commitment in draft.
func (s *CommitmentService) SaveDraft(ctx context.Context, id int64, actor models.Actor, targets models.MonthlyTargets) (*models.Commitment, error) {
	commitment, err := s.editable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.validateTargets(targets); err != nil {
		return nil, err
	}
	return s.persistTargets(ctx, commitment, targets.Clone())
}

// UpdateMonth merges the provided fields into one month and leaves the commitment in draft.
func (s *CommitmentService) UpdateMonth(ctx context.Context, id int64, actor models.Actor, month string, patch models.MonthPatch) (*models.Commitment, error) {
	commitment, err := s.editable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	month = strings.ToLower(strings.TrimSpace(month))
	if !models.ValidMonth(month) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown fiscal month %q", month))
	}
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "monthly figures must be non-negative")
	}
	merged := commitment.MonthlyTargets.Clone()
	merged[month] = patch.Apply(merged.Month(month))
	return s.persistTargets(ctx, commitment, merged)
}

// Submit moves a draft to submitted and appends the submission to the approval trail.
func (s *CommitmentService) Submit(ctx context.Context, id int64, actor models.Actor, comment string) (*models.Commitment, error) {
	commitment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if commitment.EmployeeCode != actor.Code {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can submit this commitment")
	}
	if !commitment.Status.Can(models.TransitionSubmit) {
		return nil, invalidState(commitment.Status, "submitted")
	}

	now := s.now()
	_, err = s.store.Transition(ctx, models.CommitmentTransitionSet{
		IDs:       []int64{id},
		From:      models.TransitionSubmit.SourceStatuses(),
		To:        models.CommitmentSubmitted,
		OwnerCode: actor.Code,
		ActorCode: actor.Code,
		Actions: []models.ApprovalAction{{
			CommitmentID: id,
			Action:       models.ActionSubmitted,
			ActorCode:    actor.Code,
			ActorRole:    actor.Role,
			Comments:     optionalString(strings.TrimSpace(comment)),
			CreatedAt:    now,
		}},
		OccurredAt: now,
	})
	if err != nil {
		return nil, s.transitionError(ctx, id, err, "submitted")
	}

	commitment.Status = models.CommitmentSubmitted
	commitment.SubmittedAt = &now
	commitment.UpdatedAt = now
	s.effects.after(ctx, transitionRecord{
		action:      models.ActionSubmitted,
		auditAction: models.AuditActionCommitmentSubmitted,
		actor:       actor,
		ids:         []int64{id},
		owners:      []string{actor.Code},
	})
	return commitment, nil
}

// SubmitMany submits the owned drafts among ids, skipping everything else.
func (s *CommitmentService) SubmitMany(ctx context.Context, ids []int64, actor models.Actor) (dto.SubmitManyResult, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return dto.SubmitManyResult{}, appErrors.Clone(appErrors.ErrInvalidOperation, "no commitments selected")
	}
	eligible, err := s.store.List(ctx, models.CommitmentFilter{
		IDs:           ids,
		EmployeeCodes: []string{actor.Code},
		Statuses:      models.TransitionSubmit.SourceStatuses(),
	})
	if err != nil {
		return dto.SubmitManyResult{}, appErrors.Internal(err, "failed to load commitments")
	}
	if len(eligible) == 0 {
		return dto.SubmitManyResult{}, appErrors.Clone(appErrors.ErrInvalidOperation, "no draft commitments owned by you in selection")
	}

	now := s.now()
	set := models.CommitmentTransitionSet{
		From:       models.TransitionSubmit.SourceStatuses(),
		To:         models.CommitmentSubmitted,
		OwnerCode:  actor.Code,
		ActorCode:  actor.Code,
		OccurredAt: now,
	}
	for _, c := range eligible {
		set.IDs = append(set.IDs, c.ID)
		set.Actions = append(set.Actions, models.ApprovalAction{
			CommitmentID: c.ID,
			Action:       models.ActionSubmitted,
			ActorCode:    actor.Code,
			ActorRole:    actor.Role,
			CreatedAt:    now,
		})
	}
	count, err := s.store.Transition(ctx, set)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return dto.SubmitManyResult{}, appErrors.Clone(appErrors.ErrInvalidState, "one or more commitments changed status; nothing was submitted")
		}
		return dto.SubmitManyResult{}, appErrors.Internal(err, "failed to submit commitments")
	}

	s.effects.after(ctx, transitionRecord{
		action:      models.ActionSubmitted,
		auditAction: models.AuditActionCommitmentSubmitted,
		actor:       actor,
		ids:         set.IDs,
		owners:      []string{actor.Code},
	})
	return dto.SubmitManyResult{SubmittedCount: count}, nil
}

// SaveAllDrafts saves each item independently; items that cannot be saved are skipped.
func (s *CommitmentService) SaveAllDrafts(ctx context.Context, items []dto.SaveAllItem, actor models.Actor) dto.SaveAllResult {
	var result dto.SaveAllResult
	for _, item := range items {
		if _, err := s.SaveDraft(ctx, item.ID, actor, item.MonthlyTargets); err != nil {
			s.logger.Debug("skipping commitment in save-all", zap.Int64("commitment_id", item.ID), zap.Error(err))
			continue
		}
		result.SavedCount++
	}
	return result
}

// History returns the approval trail, visible to the owner and to managers above the owner.
func (s *CommitmentService) History(ctx context.Context, id int64, actor models.Actor) (*dto.CommitmentHistory, error) {
	commitment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if commitment.EmployeeCode != actor.Code && actor.Role != models.RoleAdmin {
		set, err := s.hierarchy.Subordinates(ctx, actor.Code)
		if err != nil {
			return nil, err
		}
		if !set.Contains(commitment.EmployeeCode) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "commitment is outside your hierarchy")
		}
	}
	actions, err := s.store.ListApprovals(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load approval history")
	}
	if actions == nil {
		actions = []models.ApprovalAction{}
	}
	return &dto.CommitmentHistory{Commitment: *commitment, Actions: actions}, nil
}

func (s *CommitmentService) load(ctx context.Context, id int64) (*models.Commitment, error) {
	return loadCommitment(ctx, s.store, id)
}

// editable loads a commitment the actor owns and may still edit. Ownership is checked before status.
func (s *CommitmentService) editable(ctx context.Context, id int64, actor models.Actor) (*models.Commitment, error) {
	commitment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if commitment.EmployeeCode != actor.Code {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can edit this commitment")
	}
	if !commitment.Status.Can(models.TransitionSave) {
		return nil, invalidState(commitment.Status, "edited")
	}
	return commitment, nil
}

func (s *CommitmentService) persistTargets(ctx context.Context, commitment *models.Commitment, targets models.MonthlyTargets) (*models.Commitment, error) {
	now := s.now()
	if err := s.store.SaveTargets(ctx, commitment.ID, commitment.EmployeeCode, targets, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.currentStateError(ctx, commitment.ID, "edited")
		}
		return nil, appErrors.Internal(err, "failed to save commitment")
	}
	commitment.MonthlyTargets = targets
	commitment.Status = models.CommitmentDraft
	commitment.UpdatedAt = now
	s.effects.invalidateOnly(ctx, commitment.EmployeeCode)
	return commitment, nil
}

func (s *CommitmentService) validateTargets(targets models.MonthlyTargets) error {
	return validateMonthlyTargets(s.validator, targets)
}

func (s *CommitmentService) transitionError(ctx context.Context, id int64, err error, verb string) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return s.currentStateError(ctx, id, verb)
	}
	return appErrors.Internal(err, "failed to update commitment status")
}

func (s *CommitmentService) currentStateError(ctx context.Context, id int64, verb string) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return invalidState(current.Status, verb)
}

func loadCommitment(ctx context.Context, store commitmentStore, id int64) (*models.Commitment, error) {
	commitment, err := store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "commitment not found")
		}
		return nil, appErrors.Internal(err, "failed to load commitment")
	}
	if commitment.MonthlyTargets == nil {
		commitment.MonthlyTargets = models.MonthlyTargets{}
	}
	return commitment, nil
}

func invalidState(current models.CommitmentStatus, verb string) error {
	return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("commitment is %s and cannot be %s", current, verb))
}

func validateMonthlyTargets(validate *validator.Validate, targets models.MonthlyTargets) error {
	if unknown := targets.UnknownMonths(); len(unknown) > 0 {
		sort.Strings(unknown)
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown fiscal months: %s", strings.Join(unknown, ", ")))
	}
	for month, values := range targets {
		if err := validate.Struct(values); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("figures for %s must be non-negative", month))
		}
	}
	return nil
}

// decorateCommitments joins catalog data and, when names are given, owner names.
func decorateCommitments(ctx context.Context, products productCatalog, commitments []models.Commitment, names map[string]models.Employee) ([]models.CommitmentView, error) {
	views := make([]models.CommitmentView, len(commitments))
	if len(commitments) == 0 {
		return views, nil
	}
	codes := make([]string, 0, len(commitments))
	for _, c := range commitments {
		codes = append(codes, c.ProductCode)
	}
	catalog := map[string]models.Product{}
	if products != nil {
		var err error
		catalog, err = products.ByCodes(ctx, uniqueStrings(codes))
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load product catalog")
		}
	}
	for i, c := range commitments {
		view := models.CommitmentView{Commitment: c}
		if p, ok := catalog[c.ProductCode]; ok {
			view.ProductName = p.Name
			view.ProductCategory = p.Category
			view.UnitPrice = p.UnitPrice
		}
		if e, ok := names[c.EmployeeCode]; ok {
			view.EmployeeName = e.FullName
		}
		views[i] = view
	}
	return views, nil
}
