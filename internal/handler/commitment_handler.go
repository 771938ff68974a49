package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/target-setting-api/internal/dto"
	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
	"github.com/noah-isme/target-setting-api/pkg/response"
)

type commitmentService interface {
	ListForEmployee(ctx context.Context, employeeCode, fiscalYear string) ([]models.CommitmentView, string, error)
	SaveDraft(ctx context.Context, id int64, actor models.Actor, targets models.MonthlyTargets) (*models.Commitment, error)
	UpdateMonth(ctx context.Context, id int64, actor models.Actor, month string, patch models.MonthPatch) (*models.Commitment, error)
	Submit(ctx context.Context, id int64, actor models.Actor, comment string) (*models.Commitment, error)
	SubmitMany(ctx context.Context, ids []int64, actor models.Actor) (dto.SubmitManyResult, error)
	SaveAllDrafts(ctx context.Context, items []dto.SaveAllItem, actor models.Actor) dto.SaveAllResult
	History(ctx context.Context, id int64, actor models.Actor) (*dto.CommitmentHistory, error)
}

// CommitmentHandler exposes the owner side of the commitment workflow.
type CommitmentHandler struct {
	service commitmentService
}

// NewCommitmentHandler constructs the handler.
func NewCommitmentHandler(service commitmentService) *CommitmentHandler {
	return &CommitmentHandler{service: service}
}

// List godoc
// @Summary List the caller's commitments
// @Tags Commitments
// @Produce json
// @Param fy query string false "Fiscal year code, defaults to the active year"
// @Success 200 {object} response.Envelope
// @Router /commitments [get]
func (h *CommitmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	views, fy, err := h.service.ListForEmployee(c.Request.Context(), actor.Code, strings.TrimSpace(c.Query("fy")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, map[string]interface{}{"fiscalYear": fy})
}

// Save godoc
// @Summary Replace a commitment's monthly targets
// @Tags Commitments
// @Accept json
// @Produce json
// @Param id path int true "Commitment ID"
// @Param payload body dto.SaveCommitmentRequest true "Monthly targets"
// @Success 200 {object} response.Envelope
// @Router /commitments/{id} [put]
func (h *CommitmentHandler) Save(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := commitmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SaveCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid commitment payload"))
		return
	}
	commitment, err := h.service.SaveDraft(c.Request.Context(), id, actor, req.MonthlyTargets)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commitment, nil)
}

// UpdateMonth godoc
// @Summary Update the figures of one fiscal month
// @Tags Commitments
// @Accept json
// @Produce json
// @Param id path int true "Commitment ID"
// @Param month path string true "Fiscal month key (apr..mar)"
// @Param payload body models.MonthPatch true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /commitments/{id}/months/{month} [patch]
func (h *CommitmentHandler) UpdateMonth(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := commitmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var patch models.MonthPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid month payload"))
		return
	}
	commitment, err := h.service.UpdateMonth(c.Request.Context(), id, actor, c.Param("month"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commitment, nil)
}

// Submit godoc
// @Summary Submit a draft commitment for review
// @Tags Commitments
// @Accept json
// @Produce json
// @Param id path int true "Commitment ID"
// @Param payload body dto.SubmitCommitmentRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Router /commitments/{id}/submit [post]
func (h *CommitmentHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := commitmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submit payload"))
		return
	}
	commitment, err := h.service.Submit(c.Request.Context(), id, actor, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, commitment, nil)
}

// SubmitMany godoc
// @Summary Submit several draft commitments at once
// @Tags Commitments
// @Accept json
// @Produce json
// @Param payload body dto.SubmitManyRequest true "Commitment IDs"
// @Success 200 {object} response.Envelope
// @Router /commitments/submit-multiple [post]
func (h *CommitmentHandler) SubmitMany(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid submit payload"))
		return
	}
	result, err := h.service.SubmitMany(c.Request.Context(), req.IDs, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SaveAll godoc
// @Summary Save several drafts, skipping those that cannot be saved
// @Tags Commitments
// @Accept json
// @Produce json
// @Param payload body dto.SaveAllRequest true "Commitments"
// @Success 200 {object} response.Envelope
// @Router /commitments/save-all [post]
func (h *CommitmentHandler) SaveAll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SaveAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid save payload"))
		return
	}
	response.JSON(c, http.StatusOK, h.service.SaveAllDrafts(c.Request.Context(), req.Items, actor), nil)
}

// History godoc
// @Summary Approval trail of a commitment
// @Tags Commitments
// @Produce json
// @Param id path int true "Commitment ID"
// @Success 200 {object} response.Envelope
// @Router /commitments/{id}/history [get]
func (h *CommitmentHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := commitmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.service.History(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
