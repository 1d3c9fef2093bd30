// Package batches manages manufactured lots and their stock alerts.
package batches

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch is one manufactured lot of a product.
type Batch struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	BatchNumber string          `json:"batch_number"`
	MfgDate     time.Time       `json:"mfg_date"`
	ExpDate     time.Time       `json:"exp_date"`
	InitQty     int64           `json:"init_qty"`
	Qty         int64           `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Expiring is a batch close to or past its expiry date.
type Expiring struct {
	Batch
	DaysLeft int `json:"days_left"`
}
