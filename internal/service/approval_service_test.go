package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/target-setting-api/internal/dto"
	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

type approvalFixture struct {
	store       *commitmentStoreStub
	audit       *auditRecorder
	invalidator *invalidatorStub
	metrics     *MetricsService
	svc         *ApprovalService
}

func newApprovalFixture(commitments ...models.Commitment) approvalFixture {
	return newApprovalFixtureWithOrg(salesOrg(), commitments...)
}

func newApprovalFixtureWithOrg(org *employeeStoreStub, commitments ...models.Commitment) approvalFixture {
	store := newCommitmentStoreStub(commitments...)
	hierarchy := NewHierarchyService(org, store, StaticFiscalYear("FY26_27"), nil, nil)
	audit := &auditRecorder{}
	inv := &invalidatorStub{}
	metrics := NewMetricsService()
	svc := NewApprovalService(ApprovalServiceParams{
		Store:       store,
		Employees:   hierarchy,
		Products:    productCatalogStub{"P1": {Code: "P1", Name: "Lens One", Category: "Lenses"}},
		Fiscal:      StaticFiscalYear("FY26_27"),
		Tiers:       DefaultReviewTiers(hierarchy),
		Audit:       audit,
		Invalidator: inv,
		Metrics:     metrics,
		Now:         fixedClock,
	})
	return approvalFixture{store: store, audit: audit, invalidator: inv, metrics: metrics, svc: svc}
}

func TestApprovalScenarioSubmitApproveTwice(t *testing.T) {
	store := newCommitmentStoreStub(commitmentFor(1, "SR-001", models.CommitmentDraft, april(10, 12)))
	hierarchy := NewHierarchyService(salesOrg(), store, StaticFiscalYear("FY26_27"), nil, nil)
	commitments := NewCommitmentService(store, nil, hierarchy, StaticFiscalYear("FY26_27"), nil, nil, WithCommitmentClock(fixedClock))
	approvals := NewApprovalService(ApprovalServiceParams{
		Store:     store,
		Employees: hierarchy,
		Fiscal:    StaticFiscalYear("FY26_27"),
		Tiers:     DefaultReviewTiers(hierarchy),
		Now:       fixedClock,
	})
	ctx := context.Background()
	tbm := actor("TBM-010", models.RoleTBM)

	submitted, err := commitments.Submit(ctx, 1, actor("SR-001", models.RoleSalesRep), "")
	require.NoError(t, err)
	assert.Equal(t, models.CommitmentSubmitted, submitted.Status)
	require.Len(t, store.actionsFor(1), 1)
	assert.Equal(t, models.ActionSubmitted, store.actionsFor(1)[0].Action)

	result, err := approvals.Approve(ctx, TierTBM, 1, tbm, dto.ApproveRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ActionApproved, result.Action)

	stored := store.get(1)
	assert.Equal(t, models.CommitmentApproved, stored.Status)
	require.NotNil(t, stored.ApprovedByCode)
	assert.Equal(t, "TBM-010", *stored.ApprovedByCode)
	actions := store.actionsFor(1)
	require.Len(t, actions, 2)
	assert.Equal(t, models.ActionApproved, actions[1].Action)

	_, err = approvals.Approve(ctx, TierTBM, 1, tbm, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrInvalidState)
	assert.Len(t, store.actionsFor(1), 2)
}

func TestApprovalServiceApproveWithCorrections(t *testing.T) {
	f := newApprovalFixture(commitmentFor(1, "SR-001", models.CommitmentSubmitted, models.MonthlyTargets{
		"apr": {LastYearQty: 30, ThisYearQty: 40, ThisYearRevenue: 400},
	}))
	fifty := 50.0

	result, err := f.svc.Approve(context.Background(), TierTBM, 1, actor("TBM-010", models.RoleTBM), dto.ApproveRequest{
		Comments:    "bumped april",
		Corrections: models.Corrections{"apr": {ThisYearQty: &fifty}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActionCorrectedAndApproved, result.Action)

	stored := f.store.get(1)
	assert.Equal(t, 50.0, stored.MonthlyTargets.Month("apr").ThisYearQty)
	assert.Equal(t, 30.0, stored.MonthlyTargets.Month("apr").LastYearQty)
	assert.Equal(t, 400.0, stored.MonthlyTargets.Month("apr").ThisYearRevenue)

	actions := f.store.actionsFor(1)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionCorrectedAndApproved, actions[0].Action)
	assert.Equal(t, 40.0, actions[0].OriginalValues["apr"].ThisYearQty)
	assert.Equal(t, 50.0, actions[0].Corrections["apr"].ThisYearQty)
	assert.NotContains(t, actions[0].OriginalValues, "may")

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionCommitmentApproved, f.audit.entries[0].Action)
	assert.Equal(t, []string{"SR-001"}, f.invalidator.codes)
}

func TestApprovalServiceApproveRejectsInvalidCorrections(t *testing.T) {
	f := newApprovalFixture(commitmentFor(1, "SR-001", models.CommitmentSubmitted, nil))
	negative := -1.0
	tbm := actor("TBM-010", models.RoleTBM)

	_, err := f.svc.Approve(context.Background(), TierTBM, 1, tbm, dto.ApproveRequest{
		Corrections: models.Corrections{"apr": {ThisYearQty: &negative}},
	})
	requireAppError(t, err, appErrors.ErrValidation)

	_, err = f.svc.Approve(context.Background(), TierTBM, 1, tbm, dto.ApproveRequest{
		Corrections: models.Corrections{"smarch": {}},
	})
	requireAppError(t, err, appErrors.ErrValidation)
	assert.Equal(t, models.CommitmentSubmitted, f.store.get(1).Status)
}

func TestApprovalServiceApproveOutsideHierarchyForbidden(t *testing.T) {
	f := newApprovalFixture(commitmentFor(1, "SR-900", models.CommitmentSubmitted, nil))

	_, err := f.svc.Approve(context.Background(), TierTBM, 1, actor("TBM-010", models.RoleTBM), dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Approve(context.Background(), TierABM, 1, actor("ABM-1", models.RoleABM), dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrForbidden)
	assert.Equal(t, models.CommitmentSubmitted, f.store.get(1).Status)
	assert.Empty(t, f.store.approvals)
}

func TestApprovalServicePreconditionOrder(t *testing.T) {
	f := newApprovalFixture(commitmentFor(1, "SR-900", models.CommitmentDraft, nil))
	tbm := actor("TBM-010", models.RoleTBM)

	_, err := f.svc.Approve(context.Background(), TierTBM, 404, tbm, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Approve(context.Background(), TierTBM, 1, tbm, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrInvalidState)

	_, err = f.svc.Approve(context.Background(), "regional", 1, tbm, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Approve(context.Background(), TierZBM, 1, tbm, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestApprovalServiceTransitiveTiers(t *testing.T) {
	f := newApprovalFixture(
		commitmentFor(1, "SR-001", models.CommitmentSubmitted, nil),
		commitmentFor(2, "SR-900", models.CommitmentSubmitted, nil),
	)

	_, err := f.svc.Approve(context.Background(), TierZBM, 1, actor("ZBM-1", models.RoleZBM), dto.ApproveRequest{})
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), TierSalesHead, 2, actor("SH-1", models.RoleSalesHead), dto.ApproveRequest{})
	require.NoError(t, err)
}

func TestApprovalServiceSpecialistTier(t *testing.T) {
	f := newApprovalFixture(
		commitmentFor(1, "SPEC-1", models.CommitmentSubmitted, nil),
		commitmentFor(2, "TBM-010", models.CommitmentSubmitted, nil),
	)
	abm := actor("ABM-1", models.RoleABM)

	_, err := f.svc.Approve(context.Background(), TierABM, 1, abm, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrForbidden)
	_, err = f.svc.Approve(context.Background(), TierABMSpecialist, 1, abm, dto.ApproveRequest{})
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), TierABMSpecialist, 2, abm, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrForbidden)
	_, err = f.svc.Approve(context.Background(), TierABM, 2, abm, dto.ApproveRequest{})
	require.NoError(t, err)
}

func TestApprovalServiceRejectReturnsToDraft(t *testing.T) {
	f := newApprovalFixture(
		commitmentFor(1, "SR-001", models.CommitmentSubmitted, nil),
		commitmentFor(2, "SR-002", models.CommitmentSubmitted, april(10, 12)),
	)
	tbm := actor("TBM-010", models.RoleTBM)

	for _, id := range []int64{1, 2} {
		result, err := f.svc.Reject(context.Background(), TierTBM, id, tbm, "numbers too low")
		require.NoError(t, err)
		assert.Equal(t, models.CommitmentDraft, result.Status)
		assert.Equal(t, models.CommitmentDraft, f.store.get(id).Status)

		actions := f.store.actionsFor(id)
		require.Len(t, actions, 1)
		assert.Equal(t, models.ActionRejected, actions[0].Action)
		require.NotNil(t, actions[0].Comments)
		assert.Equal(t, "numbers too low", *actions[0].Comments)
	}

	_, err := f.svc.Reject(context.Background(), TierTBM, 1, tbm, "again")
	requireAppError(t, err, appErrors.ErrInvalidState)
}

func TestApprovalServiceBulkApproveFiltersToEligible(t *testing.T) {
	f := newApprovalFixture(
		commitmentFor(1, "SR-001", models.CommitmentSubmitted, nil),
		commitmentFor(2, "SR-002", models.CommitmentApproved, nil),
		commitmentFor(3, "SR-900", models.CommitmentSubmitted, nil),
	)

	result, err := f.svc.BulkApprove(context.Background(), TierTBM, []int64{1, 2, 3}, actor("TBM-010", models.RoleTBM), "ok")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ApprovedCount)
	assert.Equal(t, models.CommitmentApproved, f.store.get(1).Status)
	assert.Equal(t, models.CommitmentSubmitted, f.store.get(3).Status)

	actions := f.store.actionsFor(1)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionBulkApproved, actions[0].Action)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionCommitmentBulk, f.audit.entries[0].Action)
	assert.Equal(t, "1", f.audit.entries[0].EntityID)
}

func TestApprovalServiceInactiveReportOutOfScopeOnEveryPath(t *testing.T) {
	org := salesOrg()
	leaver := employee("SR-009", models.RoleSalesRep, "TBM-010")
	leaver.Active = false
	org.employees[leaver.Code] = leaver
	f := newApprovalFixtureWithOrg(org, commitmentFor(1, "SR-009", models.CommitmentSubmitted, nil))
	tbm := actor("TBM-010", models.RoleTBM)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, TierTBM, 1, tbm, dto.ApproveRequest{})
	requireAppError(t, err, appErrors.ErrForbidden)
	_, err = f.svc.Reject(ctx, TierTBM, 1, tbm, "no")
	requireAppError(t, err, appErrors.ErrForbidden)

	_, err = f.svc.BulkApprove(ctx, TierTBM, []int64{1}, tbm, "ok")
	requireAppError(t, err, appErrors.ErrInvalidOperation)
	_, err = f.svc.BulkReject(ctx, TierTBM, []int64{1}, tbm, "no")
	requireAppError(t, err, appErrors.ErrInvalidOperation)

	assert.Equal(t, models.CommitmentSubmitted, f.store.get(1).Status)
	assert.Empty(t, f.store.actionsFor(1))
}

func TestApprovalServiceBulkRejectNothingEligible(t *testing.T) {
	f := newApprovalFixture(
		commitmentFor(1, "SR-001", models.CommitmentDraft, nil),
		commitmentFor(2, "SR-900", models.CommitmentSubmitted, nil),
	)

	_, err := f.svc.BulkReject(context.Background(), TierTBM, []int64{1, 2}, actor("TBM-010", models.RoleTBM), "no")
	requireAppError(t, err, appErrors.ErrInvalidOperation)

	_, err = f.svc.BulkReject(context.Background(), TierTBM, nil, actor("TBM-010", models.RoleTBM), "no")
	requireAppError(t, err, appErrors.ErrInvalidOperation)
}

func TestApprovalServiceBulkRejectRegressesToDraft(t *testing.T) {
	f := newApprovalFixture(
		commitmentFor(1, "SR-001", models.CommitmentSubmitted, nil),
		commitmentFor(2, "SR-002", models.CommitmentSubmitted, nil),
	)

	result, err := f.svc.BulkReject(context.Background(), TierTBM, []int64{1, 2}, actor("TBM-010", models.RoleTBM), "redo")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RejectedCount)
	for _, id := range []int64{1, 2} {
		assert.Equal(t, models.CommitmentDraft, f.store.get(id).Status)
		assert.Equal(t, models.ActionBulkRejected, f.store.actionsFor(id)[0].Action)
	}
	assert.ElementsMatch(t, []string{"SR-001", "SR-002"}, f.invalidator.codes)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "batch", f.audit.entries[0].EntityID)
}

func TestApprovalServiceBulkApproveConflictRollsBack(t *testing.T) {
	f := newApprovalFixture(
		commitmentFor(1, "SR-001", models.CommitmentSubmitted, nil),
		commitmentFor(2, "SR-002", models.CommitmentSubmitted, nil),
	)
	f.store.beforeTransition = func(s *commitmentStoreStub) { s.setStatus(2, models.CommitmentDraft) }

	_, err := f.svc.BulkApprove(context.Background(), TierTBM, []int64{1, 2}, actor("TBM-010", models.RoleTBM), "")
	requireAppError(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, models.CommitmentSubmitted, f.store.get(1).Status)
	assert.Empty(t, f.store.approvals)
	assert.Empty(t, f.audit.entries)
}

func TestApprovalServiceListSubmissions(t *testing.T) {
	f := newApprovalFixture(
		commitmentFor(1, "SR-001", models.CommitmentSubmitted, april(10, 12)),
		commitmentFor(2, "SR-002", models.CommitmentApproved, nil),
		commitmentFor(3, "SR-002", models.CommitmentDraft, nil),
		commitmentFor(4, "SR-900", models.CommitmentSubmitted, nil),
	)
	tbm := actor("TBM-010", models.RoleTBM)

	views, fy, err := f.svc.ListSubmissions(context.Background(), TierTBM, tbm, dto.SubmissionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "FY26_27", fy)
	require.Len(t, views, 2)
	assert.Equal(t, "Name SR-001", views[0].EmployeeName)
	assert.Equal(t, "Lens One", views[0].ProductName)

	views, _, err = f.svc.ListSubmissions(context.Background(), TierTBM, tbm, dto.SubmissionFilter{Status: models.CommitmentDraft})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(3), views[0].ID)

	views, _, err = f.svc.ListSubmissions(context.Background(), TierTBM, tbm, dto.SubmissionFilter{EmployeeCode: "SR-900"})
	require.NoError(t, err)
	assert.Empty(t, views)

	_, _, err = f.svc.ListSubmissions(context.Background(), TierTBM, tbm, dto.SubmissionFilter{Status: "archived"})
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestApprovalServiceExportSubmissions(t *testing.T) {
	f := newApprovalFixture(commitmentFor(1, "SR-001", models.CommitmentSubmitted, models.MonthlyTargets{
		"apr": {LastYearQty: 10, ThisYearQty: 12, LastYearRevenue: 100, ThisYearRevenue: 150},
	}))
	tbm := actor("TBM-010", models.RoleTBM)

	file, err := f.svc.ExportSubmissions(context.Background(), TierTBM, tbm, dto.SubmissionFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "submissions-tbm-FY26_27-20260415.csv", file.Filename)
	body := string(file.Payload)
	assert.True(t, strings.HasPrefix(body, "Employee,Name,Product"))
	assert.Contains(t, body, "SR-001,Name SR-001,P1 Lens One,CAT-1,submitted,10.00,12.00,100.00,150.00,50.0")
	assert.Contains(t, body, "Total")

	pdf, err := f.svc.ExportSubmissions(context.Background(), TierTBM, tbm, dto.SubmissionFilter{}, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Payload), "%PDF"))

	_, err = f.svc.ExportSubmissions(context.Background(), TierTBM, tbm, dto.SubmissionFilter{}, "xlsx")
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestApprovalServiceRecordsTransitionMetric(t *testing.T) {
	f := newApprovalFixture(commitmentFor(1, "SR-001", models.CommitmentSubmitted, nil))

	_, err := f.svc.Approve(context.Background(), TierTBM, 1, actor("TBM-010", models.RoleTBM), dto.ApproveRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.metrics.Snapshot().TransitionsTotal)
}
