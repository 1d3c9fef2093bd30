package batches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchflow/batchflow/internal/platform/db"
)

// Repository defines persistence for batches.
type Repository interface {
	Get(ctx context.Context, id int64) (*Batch, error)
	List(ctx context.Context, filter ListFilter) ([]Batch, int, error)
	// LowStock lists batches with qty below threshold that have not expired by asOf.
	LowStock(ctx context.Context, threshold int64, asOf time.Time) ([]Batch, error)
	// ExpiringBy lists batches with stock left whose exp_date is on or before until.
	ExpiringBy(ctx context.Context, until time.Time) ([]Batch, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional batch writes.
type TxRepository interface {
	// LockProduct serializes batch numbering per product.
	LockProduct(ctx context.Context, productID int64) error
	// LastSequence returns the highest numeric suffix among numbers of the form
	// <prefix><digits>, or 0 when there are none.
	LastSequence(ctx context.Context, prefix string) (int, error)
	Insert(ctx context.Context, b Batch) (int64, error)
	Lock(ctx context.Context, id int64) (Batch, error)
	HasAssignments(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, b Batch) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

type txRepository struct {
	tx pgx.Tx
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx runs fn inside a transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const selectBatch = `
	SELECT b.id, b.product_id, p.name, b.batch_number, b.mfg_date, b.exp_date,
	       b.init_qty, b.qty, b.unit_cost, b.description, b.created_at, b.updated_at
	FROM batch b
	JOIN product p ON p.id = b.product_id`

func scanBatch(row pgx.Row) (Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.ProductID, &b.ProductName, &b.BatchNumber, &b.MfgDate, &b.ExpDate,
		&b.InitQty, &b.Qty, &b.UnitCost, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, ErrNotFound
	}
	return b, err
}

func collectBatches(rows pgx.Rows, err error) ([]Batch, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Batch, error) {
		return scanBatch(row)
	})
}

// Get reads one batch.
func (r *repository) Get(ctx context.Context, id int64) (*Batch, error) {
	b, err := scanBatch(r.pool.QueryRow(ctx, selectBatch+` WHERE b.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns a page of batches, earliest expiry first.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]Batch, int, error) {
	where := ""
	args := []any{}
	if filter.ProductID != nil {
		where = " WHERE b.product_id = $1"
		args = append(args, *filter.ProductID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM batch b"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitPos := len(args) + 1
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	query := selectBatch + where +
		fmt.Sprintf(" ORDER BY b.exp_date, b.id LIMIT $%d OFFSET $%d", limitPos, limitPos+1)
	out, err := collectBatches(r.pool.Query(ctx, query, args...))
	return out, total, err
}

// LowStock lists unexpired batches running low.
func (r *repository) LowStock(ctx context.Context, threshold int64, asOf time.Time) ([]Batch, error) {
	return collectBatches(r.pool.Query(ctx,
		selectBatch+` WHERE b.qty < $1 AND b.exp_date > $2 ORDER BY b.qty, b.exp_date, b.id`,
		threshold, asOf))
}

// ExpiringBy lists batches expiring on or before until that still hold stock.
func (r *repository) ExpiringBy(ctx context.Context, until time.Time) ([]Batch, error) {
	return collectBatches(r.pool.Query(ctx,
		selectBatch+` WHERE b.qty > 0 AND b.exp_date <= $1 ORDER BY b.exp_date, b.id`, until))
}

func (t *txRepository) LockProduct(ctx context.Context, productID int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM product WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	return err
}

func (t *txRepository) LastSequence(ctx context.Context, prefix string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(substr(batch_number, length($1) + 1)::int), 0)
		FROM batch
		WHERE starts_with(batch_number, $1)
		  AND substr(batch_number, length($1) + 1) ~ '^[0-9]{1,9}$'`, prefix).Scan(&n)
	return n, err
}

func (t *txRepository) Insert(ctx context.Context, b Batch) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO batch (product_id, batch_number, mfg_date, exp_date, init_qty, qty, unit_cost, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		b.ProductID, b.BatchNumber, b.MfgDate, b.ExpDate, b.InitQty, b.Qty, b.UnitCost, b.Description,
	).Scan(&id)
	switch {
	case db.IsUniqueViolation(err):
		return 0, ErrDuplicateNumber
	case db.IsForeignKeyViolation(err):
		return 0, ErrProductNotFound
	}
	return id, err
}

func (t *txRepository) Lock(ctx context.Context, id int64) (Batch, error) {
	return scanBatch(t.tx.QueryRow(ctx, selectBatch+` WHERE b.id = $1 FOR UPDATE OF b`, id))
}

func (t *txRepository) HasAssignments(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM batch_order WHERE fk_batch_order_batch = $1)`, id).Scan(&exists)
	return exists, err
}

func (t *txRepository) Update(ctx context.Context, b Batch) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE batch
		SET mfg_date = $2, exp_date = $3, init_qty = $4, qty = $5, unit_cost = $6,
		    description = $7, updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.MfgDate, b.ExpDate, b.InitQty, b.Qty, b.UnitCost, b.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM batch WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrHasAssignments
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
