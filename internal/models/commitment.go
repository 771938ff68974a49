package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CommitmentStatus is the closed set of commitment workflow states.
type CommitmentStatus string

const (
	CommitmentNotStarted CommitmentStatus = "not_started"
	CommitmentDraft      CommitmentStatus = "draft"
	CommitmentSubmitted  CommitmentStatus = "submitted"
	CommitmentApproved   CommitmentStatus = "approved"
)

// CommitmentStatuses lists every status in workflow order.
var CommitmentStatuses = []CommitmentStatus{CommitmentNotStarted, CommitmentDraft, CommitmentSubmitted, CommitmentApproved}

// CommitmentTransition names an edge of the commitment state machine.
type CommitmentTransition string

const (
	TransitionSave    CommitmentTransition = "save"
	TransitionSubmit  CommitmentTransition = "submit"
	TransitionApprove CommitmentTransition = "approve"
	TransitionReject  CommitmentTransition = "reject"
)

type transitionEdge struct {
	from []CommitmentStatus
	to   CommitmentStatus
}

var commitmentTransitions = map[CommitmentTransition]transitionEdge{
	TransitionSave:    {from: []CommitmentStatus{CommitmentNotStarted, CommitmentDraft}, to: CommitmentDraft},
	TransitionSubmit:  {from: []CommitmentStatus{CommitmentDraft}, to: CommitmentSubmitted},
	TransitionApprove: {from: []CommitmentStatus{CommitmentSubmitted}, to: CommitmentApproved},
	TransitionReject:  {from: []CommitmentStatus{CommitmentSubmitted}, to: CommitmentDraft},
}

// Valid reports whether s is a known status.
func (s CommitmentStatus) Valid() bool {
	for _, st := range CommitmentStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Next returns the status reached by applying t to s, and false when the edge does not exist.
func (s CommitmentStatus) Next(t CommitmentTransition) (CommitmentStatus, bool) {
	edge, ok := commitmentTransitions[t]
	if !ok {
		return "", false
	}
	for _, from := range edge.from {
		if from == s {
			return edge.to, true
		}
	}
	return "", false
}

// Can reports whether t is legal from s.
func (s CommitmentStatus) Can(t CommitmentTransition) bool {
	_, ok := s.Next(t)
	return ok
}

// SourceStatuses returns the statuses from which t may be applied.
func (t CommitmentTransition) SourceStatuses() []CommitmentStatus {
	edge := commitmentTransitions[t]
	out := make([]CommitmentStatus, len(edge.from))
	copy(out, edge.from)
	return out
}

// Target returns the status t leads to.
func (t CommitmentTransition) Target() CommitmentStatus {
	return commitmentTransitions[t].to
}

// FiscalMonths are the month keys of a fiscal year, April first.
var FiscalMonths = []string{"apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec", "jan", "feb", "mar"}

// ValidMonth reports whether m is a fiscal month key.
func ValidMonth(m string) bool {
	for _, month := range FiscalMonths {
		if m == month {
			return true
		}
	}
	return false
}

// MonthValues are the four figures tracked per fiscal month.
type MonthValues struct {
	LastYearQty     float64 `json:"lyQty" validate:"gte=0"`
	ThisYearQty     float64 `json:"cyQty" validate:"gte=0"`
	LastYearRevenue float64 `json:"lyRev" validate:"gte=0"`
	ThisYearRevenue float64 `json:"cyRev" validate:"gte=0"`
}

// MonthPatch carries a partial override of one month. Nil fields are left untouched.
type MonthPatch struct {
	LastYearQty     *float64 `json:"lyQty,omitempty" validate:"omitempty,gte=0"`
	ThisYearQty     *float64 `json:"cyQty,omitempty" validate:"omitempty,gte=0"`
	LastYearRevenue *float64 `json:"lyRev,omitempty" validate:"omitempty,gte=0"`
	ThisYearRevenue *float64 `json:"cyRev,omitempty" validate:"omitempty,gte=0"`
}

// Empty reports whether the patch sets nothing.
func (p MonthPatch) Empty() bool {
	return p.LastYearQty == nil && p.ThisYearQty == nil && p.LastYearRevenue == nil && p.ThisYearRevenue == nil
}

// Apply merges the set fields of p into v.
func (p MonthPatch) Apply(v MonthValues) MonthValues {
	if p.LastYearQty != nil {
		v.LastYearQty = *p.LastYearQty
	}
	if p.ThisYearQty != nil {
		v.ThisYearQty = *p.ThisYearQty
	}
	if p.LastYearRevenue != nil {
		v.LastYearRevenue = *p.LastYearRevenue
	}
	if p.ThisYearRevenue != nil {
		v.ThisYearRevenue = *p.ThisYearRevenue
	}
	return v
}

// MonthlyTargets maps fiscal month keys to figures. A missing month counts as zeros.
type MonthlyTargets map[string]MonthValues

// Month returns the figures for month, zero when absent.
func (m MonthlyTargets) Month(month string) MonthValues {
	if m == nil {
		return MonthValues{}
	}
	return m[month]
}

// Clone returns a shallow copy safe to mutate.
func (m MonthlyTargets) Clone() MonthlyTargets {
	out := make(MonthlyTargets, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// UnknownMonths returns keys that are not fiscal months.
func (m MonthlyTargets) UnknownMonths() []string {
	var unknown []string
	for k := range m {
		if !ValidMonth(k) {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// Value marshals the targets to JSON for persistence.
func (m MonthlyTargets) Value() (driver.Value, error) {
	if m == nil {
		m = MonthlyTargets{}
	}
	data, err := json.Marshal(map[string]MonthValues(m))
	if err != nil {
		return nil, fmt.Errorf("marshal monthly targets: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB column into the targets.
func (m *MonthlyTargets) Scan(value interface{}) error {
	data, err := jsonBytes(value, "MonthlyTargets")
	if err != nil {
		return err
	}
	out := MonthlyTargets{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("unmarshal monthly targets: %w", err)
		}
	}
	*m = out
	return nil
}

// Corrections are reviewer overrides keyed by fiscal month.
type Corrections map[string]MonthPatch

// UnknownMonths returns keys that are not fiscal months.
func (c Corrections) UnknownMonths() []string {
	var unknown []string
	for k := range c {
		if !ValidMonth(k) {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// Commitment is one employee's monthly proposal for one product in one fiscal year.
type Commitment struct {
	ID             int64            `db:"id" json:"id"`
	EmployeeCode   string           `db:"employee_code" json:"employeeCode"`
	ProductCode    string           `db:"product_code" json:"productCode"`
	FiscalYearCode string           `db:"fiscal_year_code" json:"fiscalYearCode"`
	CategoryID     string           `db:"category_id" json:"categoryId"`
	ZoneCode       *string          `db:"zone_code" json:"zoneCode,omitempty"`
	AreaCode       *string          `db:"area_code" json:"areaCode,omitempty"`
	TerritoryCode  *string          `db:"territory_code" json:"territoryCode,omitempty"`
	MonthlyTargets MonthlyTargets   `db:"monthly_targets" json:"monthlyTargets"`
	Status         CommitmentStatus `db:"status" json:"status"`
	SubmittedAt    *time.Time       `db:"submitted_at" json:"submittedAt,omitempty"`
	ApprovedAt     *time.Time       `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedByCode *string          `db:"approved_by_code" json:"approvedByCode,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
}

// CommitmentView decorates a commitment with catalog metadata for listings.
type CommitmentView struct {
	Commitment
	ProductName     string  `json:"productName,omitempty"`
	ProductCategory string  `json:"productCategory,omitempty"`
	UnitPrice       float64 `json:"unitPrice,omitempty"`
	EmployeeName    string  `json:"employeeName,omitempty"`
}

// CommitmentFilter constrains commitment listings.
type CommitmentFilter struct {
	EmployeeCodes  []string
	FiscalYearCode string
	Statuses       []CommitmentStatus
	CategoryID     string
	IDs            []int64
}

// CommitmentTransitionSet is one guarded multi-row status change.
type CommitmentTransitionSet struct {
	IDs        []int64
	From       []CommitmentStatus
	To         CommitmentStatus
	OwnerCode  string
	ActorCode  string
	Actions    []ApprovalAction
	Targets    map[int64]MonthlyTargets
	OccurredAt time.Time
}

func jsonBytes(value interface{}, typeName string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T for %s", value, typeName)
	}
}
