package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/target-setting-api/internal/handler"
	internalmiddleware "github.com/noah-isme/target-setting-api/internal/middleware"
	"github.com/noah-isme/target-setting-api/internal/models"
)

type apiHandlers struct {
	commitments *handler.CommitmentHandler
	reviews     *handler.ReviewHandler
	yearly      *handler.YearlyTargetHandler
	team        *handler.TeamHandler
	dashboard   *handler.DashboardHandler
}

// registerAPIRoutes mounts the authenticated API under prefix.
// Ownership and reviewer scope are enforced by the services.
func registerAPIRoutes(r *gin.Engine, prefix string, tokens internalmiddleware.TokenValidator, h apiHandlers) {
	api := r.Group(prefix)
	api.Use(internalmiddleware.JWT(tokens), internalmiddleware.WithResponseMeta())

	commitments := api.Group("/commitments", internalmiddleware.RequireRoles(models.CommitmentOwnerRoles...))
	commitments.GET("", h.commitments.List)
	commitments.POST("/submit-multiple", h.commitments.SubmitMany)
	commitments.POST("/save-all", h.commitments.SaveAll)
	commitments.PUT("/:id", h.commitments.Save)
	commitments.PATCH("/:id/months/:month", h.commitments.UpdateMonth)
	commitments.POST("/:id/submit", h.commitments.Submit)
	// History is shared with reviewers; the service enforces visibility.
	api.GET("/commitments/:id/history", h.commitments.History)

	reviews := api.Group("/reviews/:tier", internalmiddleware.RequireRoles(models.ManagerRoles...))
	reviews.GET("/submissions", h.reviews.Submissions)
	reviews.GET("/submissions/export", h.reviews.Export)
	reviews.POST("/bulk-approve", h.reviews.BulkApprove)
	reviews.POST("/bulk-reject", h.reviews.BulkReject)
	reviews.POST("/:id/approve", h.reviews.Approve)
	reviews.POST("/:id/reject", h.reviews.Reject)

	yearly := api.Group("/yearly-targets", internalmiddleware.RequireRoles(models.ManagerRoles...))
	yearly.GET("", h.yearly.List)
	yearly.GET("/stats", h.yearly.Stats)
	yearly.POST("/save", h.yearly.Save)
	yearly.POST("/publish", h.yearly.Publish)

	team := api.Group("/team")
	team.GET("/members", h.team.Members)
	team.GET("/hierarchy", h.team.Hierarchy)

	dashboard := api.Group("/dashboard")
	dashboard.GET("/summary", h.dashboard.Summary)
	dashboard.GET("/team", h.dashboard.Team)
	dashboard.GET("/quarterly", h.dashboard.Quarterly)
	dashboard.GET("/categories", h.dashboard.Categories)
	managerDashboards := dashboard.Group("", internalmiddleware.RequireRoles(models.ManagerRoles...))
	managerDashboards.GET("/zones", h.dashboard.Zones)
	managerDashboards.GET("/monthly-trend", h.dashboard.MonthlyTrend)
}
