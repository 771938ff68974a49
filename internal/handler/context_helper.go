package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/target-setting-api/internal/middleware"
	"github.com/noah-isme/target-setting-api/internal/models"
	appErrors "github.com/noah-isme/target-setting-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext builds the service-level caller from verified claims.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.EmployeeCode == "" {
		return models.Actor{}, false
	}
	return models.Actor{
		Code:      claims.EmployeeCode,
		Role:      claims.Role,
		ReportsTo: claims.ReportsTo,
		IP:        c.ClientIP(),
	}, true
}

func commitmentIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid commitment id")
	}
	return id, nil
}
