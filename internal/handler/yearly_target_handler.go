package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/target-setting-api/internal/dto"
	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
	"github.com/noah-isme/target-setting-api/pkg/response"
)

type yearlyTargetService interface {
	ListForManager(ctx context.Context, managerCode, fiscalYear string) (*models.YearlyTargetBoard, error)
	Save(ctx context.Context, manager models.Actor, req dto.YearlyTargetRequest) (dto.YearlyTargetSaveResult, error)
	Publish(ctx context.Context, manager models.Actor, req dto.YearlyTargetRequest) (dto.YearlyTargetPublishResult, error)
	Stats(ctx context.Context, managerCode, fiscalYear string) (*models.YearlyTargetStats, error)
}

// YearlyTargetHandler manages top-down yearly allocations.
type YearlyTargetHandler struct {
	service yearlyTargetService
}

// NewYearlyTargetHandler constructs the handler.
func NewYearlyTargetHandler(service yearlyTargetService) *YearlyTargetHandler {
	return &YearlyTargetHandler{service: service}
}

// List godoc
// @Summary Allocation board for the manager's direct reports
// @Tags YearlyTargets
// @Produce json
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /yearly-targets [get]
func (h *YearlyTargetHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	board, err := h.service.ListForManager(c.Request.Context(), actor.Code, strings.TrimSpace(c.Query("fy")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}

// Save godoc
// @Summary Save draft allocations
// @Tags YearlyTargets
// @Accept json
// @Produce json
// @Param payload body dto.YearlyTargetRequest true "Allocations"
// @Success 200 {object} response.Envelope
// @Router /yearly-targets/save [post]
func (h *YearlyTargetHandler) Save(c *gin.Context) {
	actor, req, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.service.Save(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Publish godoc
// @Summary Save and publish allocations
// @Tags YearlyTargets
// @Accept json
// @Produce json
// @Param payload body dto.YearlyTargetRequest true "Allocations"
// @Success 200 {object} response.Envelope
// @Router /yearly-targets/publish [post]
func (h *YearlyTargetHandler) Publish(c *gin.Context) {
	actor, req, ok := h.bind(c)
	if !ok {
		return
	}
	result, err := h.service.Publish(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Stats godoc
// @Summary Allocation totals for the manager
// @Tags YearlyTargets
// @Produce json
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /yearly-targets/stats [get]
func (h *YearlyTargetHandler) Stats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), actor.Code, strings.TrimSpace(c.Query("fy")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

func (h *YearlyTargetHandler) bind(c *gin.Context) (models.Actor, dto.YearlyTargetRequest, bool) {
	var req dto.YearlyTargetRequest
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return actor, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid yearly target payload"))
		return actor, req, false
	}
	return actor, req, true
}
