package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// txStore implements TxStore on a pgx transaction.
type txStore struct {
	tx pgx.Tx
}

// NewTxStore binds the order engine's persistence to an open transaction.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

// LockOrder reads the order FOR UPDATE.
func (t *txStore) LockOrder(ctx context.Context, id int64) (Order, error) {
	const query = `
		SELECT id, client_id, product_id, qty, unit_price, total_price,
		       order_date, required_date, status, notes, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE`
	var o Order
	err := t.tx.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.ClientID, &o.ProductID, &o.Qty, &o.UnitPrice, &o.TotalPrice,
		&o.OrderDate, &o.RequiredDate, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// AssignedQuantity sums the order's batch assignments.
func (t *txStore) AssignedQuantity(ctx context.Context, orderID int64) (int64, error) {
	var qty int64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(qty), 0) FROM batch_order WHERE fk_batch_order_order = $1`, orderID,
	).Scan(&qty)
	return qty, err
}

// OrderLinked reports whether a distribution run holds the order.
func (t *txStore) OrderLinked(ctx context.Context, orderID int64) (bool, error) {
	var linked bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM distribution_order WHERE order_id = $1)`, orderID).Scan(&linked)
	return linked, err
}

// SetStatus updates the order status.
func (t *txStore) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTotalPrice stores the derived total price.
func (t *txStore) SetTotalPrice(ctx context.Context, id int64, total decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET total_price = $1, updated_at = NOW() WHERE id = $2`, total, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder removes the order row. Distribution links cascade.
func (t *txStore) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// txRepository adds order-owned writes to the engine store.
type txRepository struct {
	txStore
}

// Insert creates an order and returns its id.
func (t *txRepository) Insert(ctx context.Context, o Order) (int64, error) {
	const query = `
		INSERT INTO orders (client_id, product_id, qty, unit_price, total_price,
		                    order_date, required_date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		o.ClientID, o.ProductID, o.Qty, o.UnitPrice, o.TotalPrice,
		o.OrderDate, o.RequiredDate, o.Status, o.Notes,
	).Scan(&id)
	return id, err
}

var updatableColumns = map[string]bool{
	"qty":           true,
	"unit_price":    true,
	"required_date": true,
	"status":        true,
	"notes":         true,
}

// Update sets whitelisted columns on one order.
func (t *txRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	fields := make([]string, 0, len(updates))
	for field := range updates {
		if !updatableColumns[field] {
			return fmt.Errorf("orders: column %q is not updatable", field)
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for i, field := range fields {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, i+1))
		args = append(args, updates[field])
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), len(args))
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
