package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// TxStore is the order persistence the engine needs inside a caller's transaction.
// The ledger and the distribution workflow embed it in their own transactional
// repositories so status and price changes commit together with their writes.
type TxStore interface {
	// LockOrder reads the order row FOR UPDATE.
	LockOrder(ctx context.Context, id int64) (Order, error)
	// AssignedQuantity sums batch_order quantities for the order.
	AssignedQuantity(ctx context.Context, orderID int64) (int64, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	SetTotalPrice(ctx context.Context, id int64, total decimal.Decimal) error
	DeleteOrder(ctx context.Context, id int64) error
	// OrderLinked reports whether the order belongs to any distribution run.
	OrderLinked(ctx context.Context, orderID int64) (bool, error)
}

// TotalPrice is unit price times assigned quantity, rounded to cents.
func TotalPrice(unitPrice decimal.Decimal, assignedQty int64) decimal.Decimal {
	if assignedQty <= 0 {
		return decimal.Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(assignedQty)).Round(2)
}

// RecalculateTotalPrice stores the price derived from the order's current assignments.
func RecalculateTotalPrice(ctx context.Context, store TxStore, orderID int64) (decimal.Decimal, error) {
	order, err := store.LockOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	assigned, err := store.AssignedQuantity(ctx, orderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum assigned quantity: %w", err)
	}
	total := TotalPrice(order.UnitPrice, assigned)
	if err := store.SetTotalPrice(ctx, orderID, total); err != nil {
		return decimal.Zero, fmt.Errorf("set total price: %w", err)
	}
	return total, nil
}

// Transition moves the order to next when the status machine allows it.
func Transition(ctx context.Context, store TxStore, order Order, next Status) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}
	if !order.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: order %d %s -> %s", ErrIllegalTransition, order.ID, order.Status, next)
	}
	if order.Status == next {
		return nil
	}
	return store.SetStatus(ctx, order.ID, next)
}

// TransitionByID locks the order and applies Transition.
func TransitionByID(ctx context.Context, store TxStore, orderID int64, next Status) error {
	order, err := store.LockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return Transition(ctx, store, order, next)
}
