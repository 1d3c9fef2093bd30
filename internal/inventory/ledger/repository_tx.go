package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/batchflow/batchflow/internal/platform/db"
	"github.com/batchflow/batchflow/internal/sales/orders"
)

type txRepository struct {
	orders.TxStore
	tx pgx.Tx
}

func (t *txRepository) LockBatch(ctx context.Context, batchID int64) (Stock, error) {
	return readStock(ctx, t.tx, `SELECT id, product_id, init_qty, qty FROM batch WHERE id = $1 FOR UPDATE`, batchID)
}

func (t *txRepository) CommittedQuantity(ctx context.Context, batchID, excludingOrderID int64) (int64, error) {
	return committedQuantity(ctx, t.tx, batchID, excludingOrderID)
}

func (t *txRepository) GetAssignmentForUpdate(ctx context.Context, batchID, orderID int64) (Assignment, error) {
	return scanAssignment(t.tx.QueryRow(ctx,
		selectAssignment+` WHERE fk_batch_order_batch = $1 AND fk_batch_order_order = $2 FOR UPDATE`,
		batchID, orderID))
}

func (t *txRepository) InsertAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	const query = `
		INSERT INTO batch_order (fk_batch_order_batch, fk_batch_order_order, qty, diff_qty, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING fk_batch_order_batch, fk_batch_order_order, qty, diff_qty, description, created_at, updated_at`
	out, err := scanAssignment(t.tx.QueryRow(ctx, query, a.BatchID, a.OrderID, a.Qty, a.DiffQty, a.Description))
	if db.IsUniqueViolation(err) {
		return Assignment{}, ErrDuplicateAssignment
	}
	return out, err
}

func (t *txRepository) UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	const query = `
		UPDATE batch_order
		SET qty = $3, diff_qty = $4, description = $5, updated_at = NOW()
		WHERE fk_batch_order_batch = $1 AND fk_batch_order_order = $2
		RETURNING fk_batch_order_batch, fk_batch_order_order, qty, diff_qty, description, created_at, updated_at`
	return scanAssignment(t.tx.QueryRow(ctx, query, a.BatchID, a.OrderID, a.Qty, a.DiffQty, a.Description))
}

func (t *txRepository) DeleteAssignment(ctx context.Context, batchID, orderID int64) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM batch_order WHERE fk_batch_order_batch = $1 AND fk_batch_order_order = $2`,
		batchID, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (t *txRepository) OrderBatchIDs(ctx context.Context, orderID int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT fk_batch_order_batch FROM batch_order WHERE fk_batch_order_order = $1 ORDER BY fk_batch_order_batch`,
		orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *txRepository) DeleteOrderAssignments(ctx context.Context, orderID int64) ([]Assignment, error) {
	rows, err := t.tx.Query(ctx, `
		DELETE FROM batch_order
		WHERE fk_batch_order_order = $1
		RETURNING fk_batch_order_batch, fk_batch_order_order, qty, diff_qty, description, created_at, updated_at`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *txRepository) AdjustBatchQty(ctx context.Context, batchID, delta int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE batch SET qty = qty + $1, updated_at = NOW() WHERE id = $2`, delta, batchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}
