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

type reviewService interface {
	Approve(ctx context.Context, tierName string, id int64, actor models.Actor, req dto.ApproveRequest) (*dto.ReviewResult, error)
	Reject(ctx context.Context, tierName string, id int64, actor models.Actor, reason string) (*dto.ReviewResult, error)
	BulkApprove(ctx context.Context, tierName string, ids []int64, actor models.Actor, comments string) (dto.BulkApproveResult, error)
	BulkReject(ctx context.Context, tierName string, ids []int64, actor models.Actor, reason string) (dto.BulkRejectResult, error)
	ListSubmissions(ctx context.Context, tierName string, actor models.Actor, filter dto.SubmissionFilter) ([]models.CommitmentView, string, error)
	ExportSubmissions(ctx context.Context, tierName string, actor models.Actor, filter dto.SubmissionFilter, format string) (*dto.ExportFile, error)
}

// ReviewHandler serves the reviewer endpoints of every approval tier.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) prepare(c *gin.Context) (models.Actor, string, bool) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return models.Actor{}, "", false
	}
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, "", false
	}
	return actor, strings.ToLower(strings.TrimSpace(c.Param("tier"))), true
}

// Submissions godoc
// @Summary List submissions visible to the reviewer
// @Tags Reviews
// @Produce json
// @Param tier path string true "Review tier (tbm, abm, abm-specialist, zbm, sales-head)"
// @Param status query string false "submitted or approved"
// @Param employee query string false "Employee code"
// @Param category query string false "Category ID"
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /reviews/{tier}/submissions [get]
func (h *ReviewHandler) Submissions(c *gin.Context) {
	actor, tier, ok := h.prepare(c)
	if !ok {
		return
	}
	var filter dto.SubmissionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid filter"))
		return
	}
	views, fy, err := h.service.ListSubmissions(c.Request.Context(), tier, actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, map[string]interface{}{"fiscalYear": fy, "tier": tier})
}

// Export godoc
// @Summary Download submissions as CSV or PDF
// @Tags Reviews
// @Produce text/csv
// @Produce application/pdf
// @Param tier path string true "Review tier"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /reviews/{tier}/submissions/export [get]
func (h *ReviewHandler) Export(c *gin.Context) {
	actor, tier, ok := h.prepare(c)
	if !ok {
		return
	}
	var filter dto.SubmissionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid filter"))
		return
	}
	file, err := h.service.ExportSubmissions(c.Request.Context(), tier, actor, filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Approve godoc
// @Summary Approve a submission, optionally correcting months
// @Tags Reviews
// @Accept json
// @Produce json
// @Param tier path string true "Review tier"
// @Param id path int true "Commitment ID"
// @Param payload body dto.ApproveRequest false "Comments and corrections"
// @Success 200 {object} response.Envelope
// @Router /reviews/{tier}/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	actor, tier, ok := h.prepare(c)
	if !ok {
		return
	}
	id, err := commitmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approve payload"))
		return
	}
	result, err := h.service.Approve(c.Request.Context(), tier, id, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Return a submission to its owner
// @Tags Reviews
// @Accept json
// @Produce json
// @Param tier path string true "Review tier"
// @Param id path int true "Commitment ID"
// @Param payload body dto.RejectRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /reviews/{tier}/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	actor, tier, ok := h.prepare(c)
	if !ok {
		return
	}
	id, err := commitmentIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reject payload"))
		return
	}
	result, err := h.service.Reject(c.Request.Context(), tier, id, actor, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BulkApprove godoc
// @Summary Approve every eligible submission in the list
// @Tags Reviews
// @Accept json
// @Produce json
// @Param tier path string true "Review tier"
// @Param payload body dto.BulkApproveRequest true "Commitment IDs"
// @Success 200 {object} response.Envelope
// @Router /reviews/{tier}/bulk-approve [post]
func (h *ReviewHandler) BulkApprove(c *gin.Context) {
	actor, tier, ok := h.prepare(c)
	if !ok {
		return
	}
	var req dto.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bulk payload"))
		return
	}
	result, err := h.service.BulkApprove(c.Request.Context(), tier, req.IDs, actor, req.Comments)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BulkReject godoc
// @Summary Reject every eligible submission in the list
// @Tags Reviews
// @Accept json
// @Produce json
// @Param tier path string true "Review tier"
// @Param payload body dto.BulkRejectRequest true "Commitment IDs"
// @Success 200 {object} response.Envelope
// @Router /reviews/{tier}/bulk-reject [post]
func (h *ReviewHandler) BulkReject(c *gin.Context) {
	actor, tier, ok := h.prepare(c)
	if !ok {
		return
	}
	var req dto.BulkRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bulk payload"))
		return
	}
	result, err := h.service.BulkReject(c.Request.Context(), tier, req.IDs, actor, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
