package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/target-setting-api/internal/dto"
	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

type yearlyTargetStore interface {
	ListByManager(ctx context.Context, fiscalYear, managerCode string) ([]models.YearlyTargetAssignment, error)
	Upsert(ctx context.Context, rows []models.YearlyTargetAssignment, at time.Time) (int, error)
	UpsertAndPublish(ctx context.Context, rows []models.YearlyTargetAssignment, at time.Time) (int, error)
}

type directReportLister interface {
	DirectReports(ctx context.Context, managerCode string) ([]models.Employee, error)
}

// YearlyTargetConfig tunes the allocation engine.
type YearlyTargetConfig struct {
	// EnforceScope rejects assignees that are not direct reports of the manager.
	EnforceScope bool
}

// YearlyTargetService manages top-down yearly allocations from a manager to direct reports.
type YearlyTargetService struct {
	store     yearlyTargetStore
	reports   directReportLister
	fiscal    FiscalYearProvider
	audit     auditSink
	validator *validator.Validate
	config    YearlyTargetConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewYearlyTargetService constructs the service.
func NewYearlyTargetService(store yearlyTargetStore, reports directReportLister, fiscal FiscalYearProvider, audit auditSink, validate *validator.Validate, logger *zap.Logger, cfg YearlyTargetConfig) *YearlyTargetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YearlyTargetService{
		store:     store,
		reports:   reports,
		fiscal:    fiscal,
		audit:     audit,
		validator: validate,
		config:    cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListForManager returns one entry per direct report with whatever the manager has allocated to it.
func (s *YearlyTargetService) ListForManager(ctx context.Context, managerCode, fiscalYear string) (*models.YearlyTargetBoard, error) {
	fy, err := resolveFiscalYear(ctx, s.fiscal, fiscalYear)
	if err != nil {
		return nil, err
	}
	reports, err := s.reports.DirectReports(ctx, managerCode)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListByManager(ctx, fy, managerCode)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load yearly targets")
	}

	byAssignee := make(map[string][]models.YearlyTargetAssignment, len(reports))
	for _, row := range rows {
		byAssignee[row.AssigneeCode] = append(byAssignee[row.AssigneeCode], row)
	}
	board := &models.YearlyTargetBoard{FiscalYearCode: fy, Members: make([]models.YearlyTargetMember, 0, len(reports))}
	for _, r := range reports {
		targets := byAssignee[r.Code]
		if targets == nil {
			targets = []models.YearlyTargetAssignment{}
		}
		board.Members = append(board.Members, models.YearlyTargetMember{
			EmployeeCode: r.Code,
			FullName:     r.FullName,
			Role:         r.Role,
			Status:       memberStatus(targets),
			Targets:      targets,
		})
	}
	return board, nil
}

// Save upserts the allocations as draft in one transaction.
func (s *YearlyTargetService) Save(ctx context.Context, manager models.Actor, req dto.YearlyTargetRequest) (dto.YearlyTargetSaveResult, error) {
	rows, _, err := s.prepare(ctx, manager, req)
	if err != nil {
		return dto.YearlyTargetSaveResult{}, err
	}
	count, err := s.store.Upsert(ctx, rows, s.now())
	if err != nil {
		return dto.YearlyTargetSaveResult{}, appErrors.Internal(err, "failed to save yearly targets")
	}
	return dto.YearlyTargetSaveResult{SavedCount: count}, nil
}

// Publish saves the allocations then publishes them atomically and records one audit entry for the batch.
func (s *YearlyTargetService) Publish(ctx context.Context, manager models.Actor, req dto.YearlyTargetRequest) (dto.YearlyTargetPublishResult, error) {
	rows, fy, err := s.prepare(ctx, manager, req)
	if err != nil {
		return dto.YearlyTargetPublishResult{}, err
	}
	count, err := s.store.UpsertAndPublish(ctx, rows, s.now())
	if err != nil {
		return dto.YearlyTargetPublishResult{}, appErrors.Internal(err, "failed to publish yearly targets")
	}

	if s.audit != nil {
		assignees := make([]string, len(rows))
		for i, row := range rows {
			assignees[i] = row.AssigneeCode
		}
		s.audit.Record(ctx, AuditEntry{
			ActorCode:  manager.Code,
			ActorRole:  manager.Role,
			Action:     models.AuditActionYearlyTargetPublish,
			EntityType: models.AuditEntityYearlyTarget,
			EntityID:   fy + ":" + manager.Code,
			Detail: map[string]interface{}{
				"fiscalYear":     fy,
				"publishedCount": count,
				"assignees":      uniqueStrings(assignees),
			},
			IPAddress: manager.IP,
		})
	}
	return dto.YearlyTargetPublishResult{PublishedCount: count}, nil
}

// Stats counts direct reports by the state of their allocations.
func (s *YearlyTargetService) Stats(ctx context.Context, managerCode, fiscalYear string) (*models.YearlyTargetStats, error) {
	board, err := s.ListForManager(ctx, managerCode, fiscalYear)
	if err != nil {
		return nil, err
	}
	stats := &models.YearlyTargetStats{FiscalYearCode: board.FiscalYearCode, Total: len(board.Members)}
	for _, m := range board.Members {
		switch m.Status {
		case models.YearlyTargetPublished:
			stats.Published++
		case models.YearlyTargetDraft:
			stats.Draft++
		default:
			stats.NotSet++
		}
	}
	return stats, nil
}

// prepare validates the request and turns it into rows keyed by (assignee, product), last entry wins.
func (s *YearlyTargetService) prepare(ctx context.Context, manager models.Actor, req dto.YearlyTargetRequest) ([]models.YearlyTargetAssignment, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid yearly target payload")
	}
	fy, err := resolveFiscalYear(ctx, s.fiscal, req.FiscalYearCode)
	if err != nil {
		return nil, "", err
	}
	reports, err := s.reports.DirectReports(ctx, manager.Code)
	if err != nil {
		return nil, "", err
	}
	known := make(map[string]models.Employee, len(reports))
	for _, r := range reports {
		known[r.Code] = r
	}

	index := make(map[models.YearlyTargetKey]int, len(req.Targets))
	rows := make([]models.YearlyTargetAssignment, 0, len(req.Targets))
	for _, in := range req.Targets {
		assignee := strings.TrimSpace(in.AssigneeCode)
		report, isReport := known[assignee]
		if s.config.EnforceScope && !isReport {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s is not a direct report", assignee))
		}
		row := models.YearlyTargetAssignment{
			FiscalYearCode:  fy,
			ManagerCode:     manager.Code,
			ManagerRole:     manager.Role,
			AssigneeCode:    assignee,
			AssigneeName:    strings.TrimSpace(in.AssigneeName),
			ProductCode:     strings.TrimSpace(in.ProductCode),
			CategoryID:      strings.TrimSpace(in.CategoryID),
			LYTargetQty:     in.LYTargetQty,
			LYAchievedQty:   in.LYAchievedQty,
			LYTargetValue:   in.LYTargetValue,
			LYAchievedValue: in.LYAchievedValue,
			CYTargetQty:     in.CYTargetQty,
			CYTargetValue:   in.CYTargetValue,
			Status:          models.YearlyTargetDraft,
		}
		if isReport {
			row.AssigneeRole = report.Role
			if row.AssigneeName == "" {
				row.AssigneeName = report.FullName
			}
		}
		key := models.YearlyTargetKey{AssigneeCode: row.AssigneeCode, ProductCode: row.ProductCode}
		if i, dup := index[key]; dup {
			rows[i] = row
			continue
		}
		index[key] = len(rows)
		rows = append(rows, row)
	}
	return rows, fy, nil
}

func memberStatus(targets []models.YearlyTargetAssignment) models.YearlyTargetStatus {
	if len(targets) == 0 {
		return models.YearlyTargetNotSet
	}
	for _, t := range targets {
		if t.Status != models.YearlyTargetPublished {
			return models.YearlyTargetDraft
		}
	}
	return models.YearlyTargetPublished
}
