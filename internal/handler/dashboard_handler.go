package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/target-setting-api/internal/middleware"
	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
	"github.com/noah-isme/target-setting-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, employeeCode, fiscalYear string) (*models.DashboardSummary, bool, error)
	TeamSummary(ctx context.Context, managerCode, scope, fiscalYear string) (*models.DashboardSummary, bool, error)
	Quarterly(ctx context.Context, employeeCode, fiscalYear string) (*models.QuarterlyReport, bool, error)
	CategoryPerformance(ctx context.Context, employeeCode, fiscalYear string) (*models.CategoryReport, bool, error)
	ZonePerformance(ctx context.Context, managerCode, fiscalYear string) (*models.ZoneReport, bool, error)
	MonthlyTrend(ctx context.Context, managerCode, fiscalYear string) (*models.TrendReport, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Caller's commitment totals
// @Tags Dashboard
// @Produce json
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	h.serve(c, func(ctx context.Context, actor models.Actor, fy string) (interface{}, bool, error) {
		return h.service.Summary(ctx, actor.Code, fy)
	})
}

// Team godoc
// @Summary Totals across the caller and their team
// @Tags Dashboard
// @Produce json
// @Param scope query string false "direct (default) or all"
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /dashboard/team [get]
func (h *DashboardHandler) Team(c *gin.Context) {
	scope := strings.ToLower(strings.TrimSpace(c.Query("scope")))
	h.serve(c, func(ctx context.Context, actor models.Actor, fy string) (interface{}, bool, error) {
		return h.service.TeamSummary(ctx, actor.Code, scope, fy)
	})
}

// Quarterly godoc
// @Summary Caller's totals per fiscal quarter
// @Tags Dashboard
// @Produce json
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /dashboard/quarterly [get]
func (h *DashboardHandler) Quarterly(c *gin.Context) {
	h.serve(c, func(ctx context.Context, actor models.Actor, fy string) (interface{}, bool, error) {
		return h.service.Quarterly(ctx, actor.Code, fy)
	})
}

// Categories godoc
// @Summary Caller's totals per product category
// @Tags Dashboard
// @Produce json
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /dashboard/categories [get]
func (h *DashboardHandler) Categories(c *gin.Context) {
	h.serve(c, func(ctx context.Context, actor models.Actor, fy string) (interface{}, bool, error) {
		return h.service.CategoryPerformance(ctx, actor.Code, fy)
	})
}

// Zones godoc
// @Summary Per-zone totals, approvals and achievement rate across the caller's organisation
// @Tags Dashboard
// @Produce json
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /dashboard/zones [get]
func (h *DashboardHandler) Zones(c *gin.Context) {
	h.serve(c, func(ctx context.Context, actor models.Actor, fy string) (interface{}, bool, error) {
		return h.service.ZonePerformance(ctx, actor.Code, fy)
	})
}

// MonthlyTrend godoc
// @Summary Approved totals per fiscal month across the caller's organisation
// @Tags Dashboard
// @Produce json
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /dashboard/monthly-trend [get]
func (h *DashboardHandler) MonthlyTrend(c *gin.Context) {
	h.serve(c, func(ctx context.Context, actor models.Actor, fy string) (interface{}, bool, error) {
		return h.service.MonthlyTrend(ctx, actor.Code, fy)
	})
}

type dashboardLoader func(ctx context.Context, actor models.Actor, fy string) (interface{}, bool, error)

func (h *DashboardHandler) serve(c *gin.Context, load dashboardLoader) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, cacheHit, err := load(c.Request.Context(), actor, strings.TrimSpace(c.Query("fy")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, payload, nil, middleware.ExtractMeta(c))
}
