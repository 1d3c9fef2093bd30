package ledger

// AssignRequest is the body of POST /batch-orders.
type AssignRequest struct {
	BatchID     int64   `json:"fk_batch_order_batch" validate:"required,gt=0"`
	OrderID     int64   `json:"fk_batch_order_order" validate:"required,gt=0"`
	Qty         int64   `json:"qty" validate:"required,gt=0"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// UpdateRequest is the body of PUT /batch-orders/{batchId}/{orderId}. A nil
// description keeps the stored one.
type UpdateRequest struct {
	Qty         int64   `json:"qty" validate:"required,gt=0"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}
