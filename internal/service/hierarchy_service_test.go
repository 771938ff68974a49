package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

func TestHierarchyServiceSubordinatesBreadthFirst(t *testing.T) {
	org := salesOrg()
	svc := NewHierarchyService(org, newCommitmentStoreStub(), nil, nil, nil)

	set, err := svc.Subordinates(context.Background(), "ABM-1")
	require.NoError(t, err)
	assert.False(t, set.CycleDetected)
	assert.Equal(t, []string{"SPEC-1", "TBM-010", "SR-001", "SR-002"}, set.Codes)
	assert.Equal(t, 3, org.queries)

	set, err = svc.Subordinates(context.Background(), "SR-001")
	require.NoError(t, err)
	assert.Empty(t, set.Codes)

	set, err = svc.Subordinates(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Empty(t, set.Codes)
}

func TestHierarchyServiceSubordinatesSkipsInactive(t *testing.T) {
	org := salesOrg()
	gone := org.employees["SR-002"]
	gone.Active = false
	org.employees["SR-002"] = gone
	svc := NewHierarchyService(org, newCommitmentStoreStub(), nil, nil, nil)

	set, err := svc.Subordinates(context.Background(), "TBM-010")
	require.NoError(t, err)
	assert.Equal(t, []string{"SR-001"}, set.Codes)
}

func TestHierarchyServiceSubordinatesCycle(t *testing.T) {
	org := newEmployeeStoreStub(
		employee("A", models.RoleZBM, "C"),
		employee("B", models.RoleABM, "A"),
		employee("C", models.RoleTBM, "B"),
	)
	metrics := NewMetricsService()
	svc := NewHierarchyService(org, newCommitmentStoreStub(), nil, metrics, nil)

	set, err := svc.Subordinates(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, set.CycleDetected)
	assert.Equal(t, []string{"B", "C"}, set.Codes)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "hierarchy_cycles_detected_total 1")
}

func TestHierarchyServiceEmployeeNotFound(t *testing.T) {
	svc := NewHierarchyService(salesOrg(), newCommitmentStoreStub(), nil, nil, nil)

	_, err := svc.Employee(context.Background(), "NOPE")
	requireAppError(t, err, appErrors.ErrNotFound)

	e, err := svc.Employee(context.Background(), "TBM-010")
	require.NoError(t, err)
	assert.Equal(t, "ABM-1", e.ManagerCode())
}

func TestHierarchyServiceTeamHierarchy(t *testing.T) {
	store := newCommitmentStoreStub(
		commitmentFor(1, "TBM-010", models.CommitmentDraft, nil),
		commitmentFor(2, "TBM-010", models.CommitmentApproved, nil),
		commitmentFor(3, "SR-001", models.CommitmentSubmitted, nil),
	)
	svc := NewHierarchyService(salesOrg(), store, StaticFiscalYear("FY26_27"), nil, nil)

	team, err := svc.TeamHierarchy(context.Background(), "ABM-1", "")
	require.NoError(t, err)
	require.Len(t, team, 2)

	byCode := map[string]models.TeamMemberSummary{}
	for _, m := range team {
		byCode[m.Code] = m
	}
	tbm := byCode["TBM-010"]
	assert.Equal(t, 2, tbm.DirectReportCount)
	assert.Equal(t, models.StatusCounts{Total: 2, Draft: 1, Approved: 1}, tbm.Commitments)
	assert.Equal(t, 0, byCode["SPEC-1"].DirectReportCount)

	team, err = svc.TeamHierarchy(context.Background(), "SR-001", "")
	require.NoError(t, err)
	assert.Empty(t, team)
}

func TestDirectReportPredicate(t *testing.T) {
	svc := NewHierarchyService(salesOrg(), newCommitmentStoreStub(), nil, nil, nil)
	predicate := DirectReportPredicate{Hierarchy: svc, SubjectRoles: []models.Role{models.RoleSalesRep}}
	ctx := context.Background()

	ok, err := predicate.Authorize(ctx, "TBM-010", employee("SR-001", models.RoleSalesRep, "TBM-010"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = predicate.Authorize(ctx, "ABM-1", employee("SR-001", models.RoleSalesRep, "TBM-010"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = predicate.Authorize(ctx, "ABM-1", employee("TBM-010", models.RoleTBM, "ABM-1"))
	require.NoError(t, err)
	assert.False(t, ok, "subject role outside the tier")

	inactive := employee("SR-009", models.RoleSalesRep, "TBM-010")
	inactive.Active = false
	ok, err = predicate.Authorize(ctx, "TBM-010", inactive)
	require.NoError(t, err)
	assert.False(t, ok, "inactive report")

	scope, err := predicate.Scope(ctx, "TBM-010")
	require.NoError(t, err)
	assert.Len(t, scope, 2)
	assert.Contains(t, scope, "SR-001")
}

func TestSubordinatePredicate(t *testing.T) {
	svc := NewHierarchyService(salesOrg(), newCommitmentStoreStub(), nil, nil, nil)
	predicate := SubordinatePredicate{Hierarchy: svc}
	ctx := context.Background()

	ok, err := predicate.Authorize(ctx, "ZBM-1", employee("SR-900", models.RoleSalesRep, "TBM-020"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = predicate.Authorize(ctx, "ABM-1", employee("SR-900", models.RoleSalesRep, "TBM-020"))
	require.NoError(t, err)
	assert.False(t, ok)

	scope, err := predicate.Scope(ctx, "SH-1")
	require.NoError(t, err)
	assert.Len(t, scope, 9)
}
