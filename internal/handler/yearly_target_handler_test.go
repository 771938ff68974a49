package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/target-setting-api/internal/dto"
	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

type fakeYearlySrv struct {
	err       error
	lastActor models.Actor
	lastCode  string
	lastFY    string
	lastReq   dto.YearlyTargetRequest
	published bool
}

func (f *fakeYearlySrv) ListForManager(_ context.Context, managerCode, fiscalYear string) (*models.YearlyTargetBoard, error) {
	f.lastCode, f.lastFY = managerCode, fiscalYear
	return &models.YearlyTargetBoard{}, f.err
}

func (f *fakeYearlySrv) Save(_ context.Context, manager models.Actor, req dto.YearlyTargetRequest) (dto.YearlyTargetSaveResult, error) {
	f.lastActor, f.lastReq = manager, req
	return dto.YearlyTargetSaveResult{SavedCount: len(req.Targets)}, f.err
}

func (f *fakeYearlySrv) Publish(_ context.Context, manager models.Actor, req dto.YearlyTargetRequest) (dto.YearlyTargetPublishResult, error) {
	f.lastActor, f.lastReq, f.published = manager, req, true
	return dto.YearlyTargetPublishResult{PublishedCount: len(req.Targets)}, f.err
}

func (f *fakeYearlySrv) Stats(_ context.Context, managerCode, fiscalYear string) (*models.YearlyTargetStats, error) {
	f.lastCode, f.lastFY = managerCode, fiscalYear
	return &models.YearlyTargetStats{FiscalYearCode: "FY26_27", Total: 3, Published: 1}, f.err
}

const yearlyPayload = `{"fiscalYearCode":"FY26_27","targets":[
 {"assigneeCode":"SR-001","productCode":"P1","cyTargetQty":120,"cyTargetValue":1200},
 {"assigneeCode":"SR-002","productCode":"P1","cyTargetQty":80,"cyTargetValue":800}]}`

func TestYearlyTargetHandlerListUsesCaller(t *testing.T) {
	srv := &fakeYearlySrv{}
	h := NewYearlyTargetHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/yearly-targets?fy=FY26_27", "")
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TBM-010", srv.lastCode)
	assert.Equal(t, "FY26_27", srv.lastFY)
}

func TestYearlyTargetHandlerSave(t *testing.T) {
	srv := &fakeYearlySrv{}
	h := NewYearlyTargetHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/yearly-targets/save", yearlyPayload)
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Save(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.published)
	assert.Equal(t, "TBM-010", srv.lastActor.Code)
	require.Len(t, srv.lastReq.Targets, 2)
	assert.Equal(t, 120.0, srv.lastReq.Targets[0].CYTargetQty)
}

func TestYearlyTargetHandlerPublish(t *testing.T) {
	srv := &fakeYearlySrv{}
	h := NewYearlyTargetHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/yearly-targets/publish", yearlyPayload)
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Publish(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.published)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(2), envelope.Data["publishedCount"])
}

func TestYearlyTargetHandlerPublishMalformed(t *testing.T) {
	srv := &fakeYearlySrv{}
	h := NewYearlyTargetHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/yearly-targets/publish", `{"targets":"nope"}`)
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Publish(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, srv.published)
}

func TestYearlyTargetHandlerSaveOutsideScope(t *testing.T) {
	srv := &fakeYearlySrv{err: appErrors.Clone(appErrors.ErrForbidden, "assignee SR-900 is not a direct report")}
	h := NewYearlyTargetHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/yearly-targets/save", yearlyPayload)
	withClaims(c, "TBM-010", models.RoleTBM, "ABM-1")

	h.Save(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestYearlyTargetHandlerStats(t *testing.T) {
	srv := &fakeYearlySrv{}
	h := NewYearlyTargetHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/yearly-targets/stats", "")
	withClaims(c, "ABM-1", models.RoleABM, "ZBM-1")

	h.Stats(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ABM-1", srv.lastCode)
	assert.Empty(t, srv.lastFY)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(3), envelope.Data["total"])
}
