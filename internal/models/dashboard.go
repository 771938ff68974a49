package models

import "time"

// Totals sums the four monthly figures.
type Totals struct {
	LastYearQty     float64 `json:"lyQty"`
	ThisYearQty     float64 `json:"cyQty"`
	LastYearRevenue float64 `json:"lyRev"`
	ThisYearRevenue float64 `json:"cyRev"`
}

// StatusCounts partitions a commitment set by status.
type StatusCounts struct {
	Total      int `json:"total"`
	NotStarted int `json:"notStarted"`
	Draft      int `json:"draft"`
	Submitted  int `json:"submitted"`
	Approved   int `json:"approved"`
}

// Growth holds year-over-year growth percentages.
type Growth struct {
	Quantity float64 `json:"qtyGrowth"`
	Revenue  float64 `json:"revGrowth"`
}

// QuarterTotals holds one category's totals per fiscal quarter.
type QuarterTotals struct {
	CategoryID string `json:"categoryId"`
	Q1         Totals `json:"q1"`
	Q2         Totals `json:"q2"`
	Q3         Totals `json:"q3"`
	Q4         Totals `json:"q4"`
}

// CategoryPerformance reports a category's totals, growth and share of revenue.
type CategoryPerformance struct {
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	Totals       Totals  `json:"totals"`
	Growth       Growth  `json:"growth"`
	Contribution float64 `json:"contribution"`
	Commitments  int     `json:"commitments"`
}

// DashboardSummary is the rolled-up view of a commitment set.
type DashboardSummary struct {
	EmployeeCode   string       `json:"employeeCode"`
	FiscalYearCode string       `json:"fiscalYearCode"`
	Totals         Totals       `json:"totals"`
	Growth         Growth       `json:"growth"`
	Status         StatusCounts `json:"status"`
	TeamSize       int          `json:"teamSize,omitempty"`
	GeneratedAt    time.Time    `json:"generatedAt"`
}

// QuarterlyReport groups quarterly totals by category.
type QuarterlyReport struct {
	EmployeeCode   string          `json:"employeeCode"`
	FiscalYearCode string          `json:"fiscalYearCode"`
	Categories     []QuarterTotals `json:"categories"`
}

// CategoryReport lists category performance for a commitment set.
type CategoryReport struct {
	EmployeeCode   string                `json:"employeeCode"`
	FiscalYearCode string                `json:"fiscalYearCode"`
	Categories     []CategoryPerformance `json:"categories"`
}

// ZonePerformance rolls up every commitment tagged with one zone.
type ZonePerformance struct {
	ZoneCode        string `json:"zoneCode"`
	Totals          Totals `json:"totals"`
	Growth          Growth `json:"growth"`
	Commitments     int    `json:"totalCommitments"`
	Approved        int    `json:"approved"`
	AchievementRate int    `json:"achievementRate"`
}

// ZoneReport lists zone rollups across a manager's organisation.
type ZoneReport struct {
	ManagerCode    string            `json:"managerCode"`
	FiscalYearCode string            `json:"fiscalYearCode"`
	Zones          []ZonePerformance `json:"zones"`
}

// MonthTrend holds one fiscal month's totals.
type MonthTrend struct {
	Month  string `json:"month"`
	Totals Totals `json:"totals"`
	Growth Growth `json:"growth"`
}

// TrendReport is the month by month view of approved commitments.
type TrendReport struct {
	ManagerCode    string       `json:"managerCode"`
	FiscalYearCode string       `json:"fiscalYearCode"`
	Months         []MonthTrend `json:"months"`
}
