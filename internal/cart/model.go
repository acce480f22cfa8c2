package cart

import "github.com/shopspring/decimal"

// Line is one pending item in an owner's cart. Quantity is decimal because
// weight-based units (kg, gram) allow fractional amounts.
type Line struct {
	ProductID    uint            `json:"productId"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Unit         string          `json:"unitAtPurchase"`
	ProductName  string          `json:"productNameAtPurchase"`
	ProductImage *string         `json:"productImage,omitempty"`
}
