package models

// Product is a read-only catalog entry used to decorate commitments.
type Product struct {
	Code      string  `db:"product_code" json:"productCode"`
	Name      string  `db:"product_name" json:"productName"`
	Category  string  `db:"product_category" json:"productCategory"`
	Family    *string `db:"product_family" json:"productFamily,omitempty"`
	UnitPrice float64 `db:"unit_price" json:"unitPrice"`
}

// FiscalYear identifies an April to March planning period.
type FiscalYear struct {
	Code   string `db:"code" json:"code"`
	Label  string `db:"label" json:"label"`
	Active bool   `db:"is_active" json:"isActive"`
}
