package models

// Role enumerates the organisational roles an employee can hold.
type Role string

const (
	RoleSalesRep          Role = "sales_rep"
	RoleATIOLSpecialist   Role = "at_iol_specialist"
	RoleEqSpecDiagnostic  Role = "eq_spec_diagnostic"
	RoleEqSpecSurgical    Role = "eq_spec_surgical"
	RoleTBM               Role = "tbm"
	RoleABM               Role = "abm"
	RoleZBM               Role = "zbm"
	RoleSalesHead         Role = "sales_head"
	RoleATIOLManager      Role = "at_iol_manager"
	RoleEqManagerDiagnose Role = "eq_mgr_diagnostic"
	RoleEqManagerSurgical Role = "eq_mgr_surgical"
	RoleAdmin             Role = "admin"
)

// SpecialistRoles are the individual contributor roles reviewed on the specialist track.
var SpecialistRoles = []Role{RoleATIOLSpecialist, RoleEqSpecDiagnostic, RoleEqSpecSurgical}

// ContributorRoles own commitments.
var ContributorRoles = append([]Role{RoleSalesRep}, SpecialistRoles...)

// ManagerRoles review or allocate targets for others.
var ManagerRoles = []Role{
	RoleTBM, RoleABM, RoleZBM, RoleSalesHead,
	RoleATIOLManager, RoleEqManagerDiagnose, RoleEqManagerSurgical,
}

// CommitmentOwnerRoles may hold commitments of their own. Managers submit theirs to the tier above.
var CommitmentOwnerRoles = append(append([]Role{}, ContributorRoles...), ManagerRoles...)

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	if r == RoleAdmin {
		return true
	}
	return r.In(ContributorRoles...) || r.In(ManagerRoles...)
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// Employee is a node of the sales organisation. Geography fields are display copies.
type Employee struct {
	Code          string  `db:"employee_code" json:"employeeCode"`
	FullName      string  `db:"full_name" json:"fullName"`
	Role          Role    `db:"role" json:"role"`
	Designation   string  `db:"designation" json:"designation"`
	ReportsTo     *string `db:"reports_to" json:"reportsTo,omitempty"`
	ZoneCode      *string `db:"zone_code" json:"zoneCode,omitempty"`
	ZoneName      *string `db:"zone_name" json:"zoneName,omitempty"`
	AreaCode      *string `db:"area_code" json:"areaCode,omitempty"`
	AreaName      *string `db:"area_name" json:"areaName,omitempty"`
	TerritoryCode *string `db:"territory_code" json:"territoryCode,omitempty"`
	TerritoryName *string `db:"territory_name" json:"territoryName,omitempty"`
	Active        bool    `db:"is_active" json:"isActive"`
}

// ManagerCode returns the direct manager code or "" at the root.
func (e Employee) ManagerCode() string {
	if e.ReportsTo == nil {
		return ""
	}
	return *e.ReportsTo
}

// SubordinateSet is the transitive closure of reports under a manager.
type SubordinateSet struct {
	Codes         []string `json:"codes"`
	CycleDetected bool     `json:"cycleDetected"`
}

// Contains reports whether code is part of the set.
func (s SubordinateSet) Contains(code string) bool {
	for _, c := range s.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// TeamMemberSummary describes one direct report with the shape of its own team and commitments.
type TeamMemberSummary struct {
	Employee
	DirectReportCount int          `json:"directReportCount"`
	Commitments       StatusCounts `json:"commitments"`
}
