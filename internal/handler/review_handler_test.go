package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/target-setting-api/internal/dto"
	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

type fakeReviewSrv struct {
	err    error
	export *dto.ExportFile

	lastTier    string
	lastID      int64
	lastIDs     []int64
	lastActor   models.Actor
	lastComment string
	lastApprove dto.ApproveRequest
	lastFilter  dto.SubmissionFilter
	lastFormat  string
}

func (f *fakeReviewSrv) Approve(_ context.Context, tierName string, id int64, actor models.Actor, req dto.ApproveRequest) (*dto.ReviewResult, error) {
	f.lastTier, f.lastID, f.lastActor, f.lastApprove = tierName, id, actor, req
	if f.err != nil {
		return nil, f.err
	}
	action := models.ActionApproved
	if len(req.Corrections) > 0 {
		action = models.ActionCorrectedAndApproved
	}
	return &dto.ReviewResult{CommitmentID: id, Action: action, Status: models.CommitmentApproved}, nil
}

func (f *fakeReviewSrv) Reject(_ context.Context, tierName string, id int64, actor models.Actor, reason string) (*dto.ReviewResult, error) {
	f.lastTier, f.lastID, f.lastActor, f.lastComment = tierName, id, actor, reason
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ReviewResult{CommitmentID: id, Action: models.ActionRejected, Status: models.CommitmentDraft}, nil
}

func (f *fakeReviewSrv) BulkApprove(_ context.Context, tierName string, ids []int64, actor models.Actor, comments string) (dto.BulkApproveResult, error) {
	f.lastTier, f.lastIDs, f.lastActor, f.lastComment = tierName, ids, actor, comments
	return dto.BulkApproveResult{ApprovedCount: len(ids)}, f.err
}

func (f *fakeReviewSrv) BulkReject(_ context.Context, tierName string, ids []int64, actor models.Actor, reason string) (dto.BulkRejectResult, error) {
	f.lastTier, f.lastIDs, f.lastActor, f.lastComment = tierName, ids, actor, reason
	return dto.BulkRejectResult{RejectedCount: len(ids)}, f.err
}

func (f *fakeReviewSrv) ListSubmissions(_ context.Context, tierName string, actor models.Actor, filter dto.SubmissionFilter) ([]models.CommitmentView, string, error) {
	f.lastTier, f.lastActor, f.lastFilter = tierName, actor, filter
	return []models.CommitmentView{}, "FY26_27", f.err
}

func (f *fakeReviewSrv) ExportSubmissions(_ context.Context, tierName string, actor models.Actor, filter dto.SubmissionFilter, format string) (*dto.ExportFile, error) {
	f.lastTier, f.lastActor, f.lastFilter, f.lastFormat = tierName, actor, filter, format
	return f.export, f.err
}

func TestReviewHandlerNilService(t *testing.T) {
	h := NewReviewHandler(nil)
	c, rec := newTestContext(http.MethodGet, "/reviews/tbm/submissions", "")
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Submissions(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReviewHandlerSubmissionsBindsFilter(t *testing.T) {
	srv := &fakeReviewSrv{}
	h := NewReviewHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/reviews/TBM/submissions?status=submitted&employee=SR-001&category=CAT-1&fy=FY26_27", "")
	c.Params = gin.Params{{Key: "tier", Value: "TBM"}}
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Submissions(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tbm", srv.lastTier)
	assert.Equal(t, models.CommitmentSubmitted, srv.lastFilter.Status)
	assert.Equal(t, "SR-001", srv.lastFilter.EmployeeCode)
	assert.Equal(t, "CAT-1", srv.lastFilter.CategoryID)
	assert.Equal(t, "FY26_27", srv.lastFilter.FiscalYear)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "tbm", envelope.Meta["tier"])
}

func TestReviewHandlerApproveWithCorrections(t *testing.T) {
	srv := &fakeReviewSrv{}
	h := NewReviewHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/reviews/tbm/9/approve", `{"comments":"ok","corrections":{"apr":{"cyQty":50}}}`)
	c.Params = gin.Params{{Key: "tier", Value: "tbm"}, {Key: "id", Value: "9"}}
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Approve(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), srv.lastID)
	assert.Equal(t, "ok", srv.lastApprove.Comments)
	require.Contains(t, srv.lastApprove.Corrections, "apr")
	assert.Equal(t, 50.0, *srv.lastApprove.Corrections["apr"].ThisYearQty)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, string(models.ActionCorrectedAndApproved), envelope.Data["action"])
}

func TestReviewHandlerApproveEmptyBody(t *testing.T) {
	srv := &fakeReviewSrv{}
	h := NewReviewHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/reviews/tbm/9/approve", "")
	c.Params = gin.Params{{Key: "tier", Value: "tbm"}, {Key: "id", Value: "9"}}
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, srv.lastApprove.Corrections)
}

func TestReviewHandlerApproveMapsServiceErrors(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"not found":     {appErrors.ErrNotFound, http.StatusNotFound},
		"forbidden":     {appErrors.ErrForbidden, http.StatusForbidden},
		"invalid state": {appErrors.ErrInvalidState, http.StatusConflict},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewReviewHandler(&fakeReviewSrv{err: tc.err})
			c, rec := newTestContext(http.MethodPost, "/reviews/tbm/9/approve", "")
			c.Params = gin.Params{{Key: "tier", Value: "tbm"}, {Key: "id", Value: "9"}}
			withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

			h.Approve(c)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestReviewHandlerReject(t *testing.T) {
	srv := &fakeReviewSrv{}
	h := NewReviewHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/reviews/abm/9/reject", `{"reason":"too low"}`)
	c.Params = gin.Params{{Key: "tier", Value: "abm"}, {Key: "id", Value: "9"}}
	withClaims(c, "ABM-1", models.RoleABM, "ZBM-1")

	h.Reject(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abm", srv.lastTier)
	assert.Equal(t, "too low", srv.lastComment)
}

func TestReviewHandlerBulkApproveRequiresBody(t *testing.T) {
	srv := &fakeReviewSrv{}
	h := NewReviewHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/reviews/zbm/bulk-approve", "")
	c.Params = gin.Params{{Key: "tier", Value: "zbm"}}
	withClaims(c, "ZBM-1", models.RoleZBM, "SH-1")

	h.BulkApprove(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.lastIDs)
}

func TestReviewHandlerBulkReject(t *testing.T) {
	srv := &fakeReviewSrv{}
	h := NewReviewHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/reviews/zbm/bulk-reject", `{"commitmentIds":[3,4],"reason":"redo"}`)
	c.Params = gin.Params{{Key: "tier", Value: "zbm"}}
	withClaims(c, "ZBM-1", models.RoleZBM, "SH-1")

	h.BulkReject(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{3, 4}, srv.lastIDs)
	assert.Equal(t, "redo", srv.lastComment)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(2), envelope.Data["rejectedCount"])
}

func TestReviewHandlerExportStreamsAttachment(t *testing.T) {
	srv := &fakeReviewSrv{export: &dto.ExportFile{
		Filename:    "submissions-tbm-FY26_27-20260415.csv",
		ContentType: "text/csv",
		Payload:     []byte("employee,name\n"),
	}}
	h := NewReviewHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/reviews/tbm/submissions/export?format=csv", "")
	c.Params = gin.Params{{Key: "tier", Value: "tbm"}}
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", srv.lastFormat)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "submissions-tbm-FY26_27-20260415.csv")
	assert.Equal(t, "employee,name\n", rec.Body.String())
}
