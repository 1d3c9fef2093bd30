// Package products manages the product catalogue and its categories.
package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products.
type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Product is a sellable item. Unit price is the default price copied onto new orders.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	CategoryID   *int64          `json:"category_id,omitempty"`
	CategoryName *string         `json:"category_name,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Description  *string         `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Usage counts the rows that keep a product from being deleted.
type Usage struct {
	Batches int
	Orders  int
}

// InUse reports whether anything references the product.
func (u Usage) InUse() bool { return u.Batches > 0 || u.Orders > 0 }
