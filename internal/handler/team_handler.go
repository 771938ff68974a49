package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
	"github.com/noah-isme/target-setting-api/pkg/response"
)

type teamService interface {
	DirectReports(ctx context.Context, managerCode string) ([]models.Employee, error)
	TeamHierarchy(ctx context.Context, managerCode, fiscalYear string) ([]models.TeamMemberSummary, error)
}

// TeamHandler exposes the caller's reporting line.
type TeamHandler struct {
	service teamService
}

// NewTeamHandler constructs the handler.
func NewTeamHandler(service teamService) *TeamHandler {
	return &TeamHandler{service: service}
}

// Members godoc
// @Summary Active direct reports of the caller
// @Tags Team
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /team/members [get]
func (h *TeamHandler) Members(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	members, err := h.service.DirectReports(c.Request.Context(), actor.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil, map[string]interface{}{"count": len(members)})
}

// Hierarchy godoc
// @Summary Direct reports with team sizes and commitment status counts
// @Tags Team
// @Produce json
// @Param fy query string false "Fiscal year code"
// @Success 200 {object} response.Envelope
// @Router /team/hierarchy [get]
func (h *TeamHandler) Hierarchy(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.TeamHierarchy(c.Request.Context(), actor.Code, strings.TrimSpace(c.Query("fy")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
