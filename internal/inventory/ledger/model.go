// Package ledger keeps each batch's remaining quantity in step with the batch
// assignments made to orders.
package ledger

import (
	"time"
)

// Assignment commits some quantity of one batch to one order.
type Assignment struct {
	BatchID     int64     `json:"fk_batch_order_batch"`
	OrderID     int64     `json:"fk_batch_order_order"`
	Qty         int64     `json:"qty"`
	DiffQty     int64     `json:"diff_qty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stock is the quantity view of a batch row.
type Stock struct {
	ID        int64
	ProductID int64
	InitQty   int64
	Qty       int64
}

// OrderAssignment is an assignment listed from the batch side.
type OrderAssignment struct {
	Assignment
	ClientName   string    `json:"client_name"`
	ProductName  string    `json:"product_name"`
	OrderQty     int64     `json:"order_qty"`
	OrderStatus  string    `json:"order_status"`
	RequiredDate time.Time `json:"required_date"`
}

// BatchAssignment is an assignment listed from the order side.
type BatchAssignment struct {
	Assignment
	BatchNumber string    `json:"batch_number"`
	MfgDate     time.Time `json:"mfg_date"`
	ExpDate     time.Time `json:"exp_date"`
}

// Availability answers how much of a batch can still be committed.
type Availability struct {
	BatchID   int64 `json:"batch_id"`
	InitQty   int64 `json:"init_qty"`
	Committed int64 `json:"committed"`
	Available int64 `json:"available"`
}

func newAvailability(stock Stock, committed int64) Availability {
	return Availability{
		BatchID:   stock.ID,
		InitQty:   stock.InitQty,
		Committed: committed,
		Available: stock.InitQty - committed,
	}
}
