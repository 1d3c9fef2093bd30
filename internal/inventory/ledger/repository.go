package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchflow/batchflow/internal/platform/db"
	"github.com/batchflow/batchflow/internal/sales/orders"
)

// Repository defines persistence for batch assignments.
type Repository interface {
	Get(ctx context.Context, batchID, orderID int64) (*Assignment, error)
	ListByBatch(ctx context.Context, batchID int64) ([]OrderAssignment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]BatchAssignment, error)
	Stock(ctx context.Context, batchID int64) (Stock, error)
	CommittedQuantity(ctx context.Context, batchID, excludingOrderID int64) (int64, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the ledger's writes inside one transaction. The order
// engine's store shares the same transaction.
type TxRepository interface {
	orders.TxStore

	// LockBatch reads the batch row FOR UPDATE.
	LockBatch(ctx context.Context, batchID int64) (Stock, error)
	// CommittedQuantity sums the batch's assignments, skipping excludingOrderID when > 0.
	CommittedQuantity(ctx context.Context, batchID, excludingOrderID int64) (int64, error)
	GetAssignmentForUpdate(ctx context.Context, batchID, orderID int64) (Assignment, error)
	InsertAssignment(ctx context.Context, a Assignment) (Assignment, error)
	UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	DeleteAssignment(ctx context.Context, batchID, orderID int64) error
	// OrderBatchIDs lists the batches an order draws from, ascending.
	OrderBatchIDs(ctx context.Context, orderID int64) ([]int64, error)
	// DeleteOrderAssignments removes every assignment of the order and returns them.
	DeleteOrderAssignments(ctx context.Context, orderID int64) ([]Assignment, error)
	// AdjustBatchQty adds delta to batch.qty.
	AdjustBatchQty(ctx context.Context, batchID, delta int64) error
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx runs fn inside a transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxStore: orders.NewTxStore(tx), tx: tx})
	})
}

const selectAssignment = `
	SELECT fk_batch_order_batch, fk_batch_order_order, qty, diff_qty, description, created_at, updated_at
	FROM batch_order`

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.BatchID, &a.OrderID, &a.Qty, &a.DiffQty, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrAssignmentNotFound
	}
	return a, err
}

// Get returns one assignment.
func (r *repository) Get(ctx context.Context, batchID, orderID int64) (*Assignment, error) {
	a, err := scanAssignment(r.pool.QueryRow(ctx,
		selectAssignment+` WHERE fk_batch_order_batch = $1 AND fk_batch_order_order = $2`, batchID, orderID))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByBatch returns the orders a batch is committed to.
func (r *repository) ListByBatch(ctx context.Context, batchID int64) ([]OrderAssignment, error) {
	const query = `
		SELECT bo.fk_batch_order_batch, bo.fk_batch_order_order, bo.qty, bo.diff_qty,
		       bo.description, bo.created_at, bo.updated_at,
		       c.name, p.name, o.qty, o.status, o.required_date
		FROM batch_order bo
		JOIN orders o ON o.id = bo.fk_batch_order_order
		JOIN client c ON c.id = o.client_id
		JOIN product p ON p.id = o.product_id
		WHERE bo.fk_batch_order_batch = $1
		ORDER BY o.required_date, o.id`
	rows, err := r.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderAssignment
	for rows.Next() {
		var a OrderAssignment
		if err := rows.Scan(&a.BatchID, &a.OrderID, &a.Qty, &a.DiffQty, &a.Description,
			&a.CreatedAt, &a.UpdatedAt, &a.ClientName, &a.ProductName, &a.OrderQty,
			&a.OrderStatus, &a.RequiredDate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByOrder returns the batches an order draws from.
func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]BatchAssignment, error) {
	const query = `
		SELECT bo.fk_batch_order_batch, bo.fk_batch_order_order, bo.qty, bo.diff_qty,
		       bo.description, bo.created_at, bo.updated_at,
		       b.batch_number, b.mfg_date, b.exp_date
		FROM batch_order bo
		JOIN batch b ON b.id = bo.fk_batch_order_batch
		WHERE bo.fk_batch_order_order = $1
		ORDER BY b.exp_date, b.id`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchAssignment
	for rows.Next() {
		var a BatchAssignment
		if err := rows.Scan(&a.BatchID, &a.OrderID, &a.Qty, &a.DiffQty, &a.Description,
			&a.CreatedAt, &a.UpdatedAt, &a.BatchNumber, &a.MfgDate, &a.ExpDate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stock reads a batch's quantities without locking.
func (r *repository) Stock(ctx context.Context, batchID int64) (Stock, error) {
	return readStock(ctx, r.pool, `SELECT id, product_id, init_qty, qty FROM batch WHERE id = $1`, batchID)
}

// CommittedQuantity sums assignments against a batch.
func (r *repository) CommittedQuantity(ctx context.Context, batchID, excludingOrderID int64) (int64, error) {
	return committedQuantity(ctx, r.pool, batchID, excludingOrderID)
}

func readStock(ctx context.Context, q querier, query string, batchID int64) (Stock, error) {
	var s Stock
	err := q.QueryRow(ctx, query, batchID).Scan(&s.ID, &s.ProductID, &s.InitQty, &s.Qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stock{}, ErrBatchNotFound
	}
	return s, err
}

func committedQuantity(ctx context.Context, q querier, batchID, excludingOrderID int64) (int64, error) {
	var qty int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty), 0)
		FROM batch_order
		WHERE fk_batch_order_batch = $1 AND fk_batch_order_order <> $2`,
		batchID, excludingOrderID,
	).Scan(&qty)
	return qty, err
}
