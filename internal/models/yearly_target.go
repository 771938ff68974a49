package models

import "time"

// YearlyTargetStatus is the closed set of allocation states.
type YearlyTargetStatus string

const (
	YearlyTargetNotSet    YearlyTargetStatus = "not_set"
	YearlyTargetDraft     YearlyTargetStatus = "draft"
	YearlyTargetPublished YearlyTargetStatus = "published"
)

// CanPublish reports whether an allocation in s may be published.
func (s YearlyTargetStatus) CanPublish() bool {
	return s == YearlyTargetDraft || s == YearlyTargetPublished
}

// YearlyTargetAssignment is a manager's top-down allocation to one direct report.
// ProductCode "" marks the aggregate row.
type YearlyTargetAssignment struct {
	ID              int64              `db:"id" json:"id"`
	FiscalYearCode  string             `db:"fiscal_year_code" json:"fiscalYearCode"`
	ManagerCode     string             `db:"manager_code" json:"managerCode"`
	ManagerRole     Role               `db:"manager_role" json:"managerRole"`
	AssigneeCode    string             `db:"assignee_code" json:"assigneeCode"`
	AssigneeName    string             `db:"assignee_name" json:"assigneeName"`
	AssigneeRole    Role               `db:"assignee_role" json:"assigneeRole"`
	ProductCode     string             `db:"product_code" json:"productCode"`
	CategoryID      string             `db:"category_id" json:"categoryId"`
	LYTargetQty     float64            `db:"ly_target_qty" json:"lyTargetQty"`
	LYAchievedQty   float64            `db:"ly_achieved_qty" json:"lyAchievedQty"`
	LYTargetValue   float64            `db:"ly_target_value" json:"lyTargetValue"`
	LYAchievedValue float64            `db:"ly_achieved_value" json:"lyAchievedValue"`
	CYTargetQty     float64            `db:"cy_target_qty" json:"cyTargetQty"`
	CYTargetValue   float64            `db:"cy_target_value" json:"cyTargetValue"`
	Status          YearlyTargetStatus `db:"status" json:"status"`
	PublishedAt     *time.Time         `db:"published_at" json:"publishedAt,omitempty"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updatedAt"`
}

// YearlyTargetKey identifies an allocation within a manager's fiscal year.
type YearlyTargetKey struct {
	AssigneeCode string `json:"assigneeCode"`
	ProductCode  string `json:"productCode"`
}

// YearlyTargetMember groups a direct report with the allocations made to it.
type YearlyTargetMember struct {
	EmployeeCode string                   `json:"employeeCode"`
	FullName     string                   `json:"fullName"`
	Role         Role                     `json:"role"`
	Status       YearlyTargetStatus       `json:"status"`
	Targets      []YearlyTargetAssignment `json:"targets"`
}

// YearlyTargetBoard is the manager's allocation view for one fiscal year.
type YearlyTargetBoard struct {
	FiscalYearCode string               `json:"fiscalYearCode"`
	Members        []YearlyTargetMember `json:"members"`
}

// YearlyTargetStats counts direct reports by allocation state.
type YearlyTargetStats struct {
	FiscalYearCode string `json:"fiscalYearCode"`
	Total          int    `json:"total"`
	NotSet         int    `json:"notSet"`
	Draft          int    `json:"draft"`
	Published      int    `json:"published"`
}
