package service

import "github.com/noah-isme/target-setting-api/internal/models"

// Review tier names used in routes and metrics.
const (
	TierTBM           = "tbm"
	TierABM           = "abm"
	TierABMSpecialist = "abm-specialist"
	TierZBM           = "zbm"
	TierSalesHead     = "sales-head"
)

// ReviewTier binds a management tier to who may review and which employees they may review.
type ReviewTier struct {
	Name          string
	ReviewerRoles []models.Role
	Predicate     AuthorizationPredicate
}

// DefaultReviewTiers returns the tiers of the sales organisation.
func DefaultReviewTiers(hierarchy hierarchyResolver) []ReviewTier {
	return []ReviewTier{
		{
			Name:          TierTBM,
			ReviewerRoles: []models.Role{models.RoleTBM},
			Predicate:     DirectReportPredicate{Hierarchy: hierarchy, SubjectRoles: []models.Role{models.RoleSalesRep}},
		},
		{
			Name:          TierABM,
			ReviewerRoles: []models.Role{models.RoleABM},
			Predicate:     DirectReportPredicate{Hierarchy: hierarchy, SubjectRoles: []models.Role{models.RoleTBM}},
		},
		{
			Name:          TierABMSpecialist,
			ReviewerRoles: []models.Role{models.RoleABM},
			Predicate:     DirectReportPredicate{Hierarchy: hierarchy, SubjectRoles: models.SpecialistRoles},
		},
		{
			Name:          TierZBM,
			ReviewerRoles: []models.Role{models.RoleZBM},
			Predicate:     SubordinatePredicate{Hierarchy: hierarchy},
		},
		{
			Name:          TierSalesHead,
			ReviewerRoles: []models.Role{models.RoleSalesHead},
			Predicate:     SubordinatePredicate{Hierarchy: hierarchy},
		},
	}
}
