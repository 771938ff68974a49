package dto

// YearlyTargetInput is one manager-entered allocation. An empty ProductCode targets the aggregate row.
type YearlyTargetInput struct {
	AssigneeCode    string  `json:"assigneeCode" validate:"required"`
	AssigneeName    string  `json:"assigneeName"`
	ProductCode     string  `json:"productCode"`
	CategoryID      string  `json:"categoryId"`
	LYTargetQty     float64 `json:"lyTargetQty" validate:"gte=0"`
	LYAchievedQty   float64 `json:"lyAchievedQty" validate:"gte=0"`
	LYTargetValue   float64 `json:"lyTargetValue" validate:"gte=0"`
	LYAchievedValue float64 `json:"lyAchievedValue" validate:"gte=0"`
	CYTargetQty     float64 `json:"cyTargetQty" validate:"gte=0"`
	CYTargetValue   float64 `json:"cyTargetValue" validate:"gte=0"`
}

// YearlyTargetRequest saves or publishes a batch of allocations.
type YearlyTargetRequest struct {
	FiscalYearCode string              `json:"fiscalYearCode"`
	Targets        []YearlyTargetInput `json:"targets" validate:"required,min=1,dive"`
}

// YearlyTargetSaveResult reports saved rows.
type YearlyTargetSaveResult struct {
	SavedCount int `json:"savedCount"`
}

// YearlyTargetPublishResult reports published rows.
type YearlyTargetPublishResult struct {
	PublishedCount int `json:"publishedCount"`
}
