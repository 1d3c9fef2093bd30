package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/batchflow/batchflow/internal/platform/db"
)

// Repository defines persistence for orders.
type Repository interface {
	Get(ctx context.Context, id int64) (*WithDetails, error)
	List(ctx context.Context, filter ListFilter) ([]WithDetails, int, error)
	ListRequirements(ctx context.Context) ([]RequirementRow, error)
	ProductPrice(ctx context.Context, productID int64) (decimal.Decimal, error)
	ClientExists(ctx context.Context, clientID int64) (bool, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional order writes.
type TxRepository interface {
	TxStore
	Insert(ctx context.Context, o Order) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
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
		return fn(ctx, &txRepository{txStore: txStore{tx: tx}})
	})
}

const selectWithDetails = `
	SELECT o.id, o.client_id, o.product_id, o.qty, o.unit_price, o.total_price,
	       o.order_date, o.required_date, o.status, o.notes, o.created_at, o.updated_at,
	       c.name, p.name,
	       COALESCE((SELECT SUM(bo.qty) FROM batch_order bo WHERE bo.fk_batch_order_order = o.id), 0)
	FROM orders o
	JOIN client c ON c.id = o.client_id
	JOIN product p ON p.id = o.product_id`

func scanWithDetails(row pgx.Row) (WithDetails, error) {
	var o WithDetails
	err := row.Scan(
		&o.ID, &o.ClientID, &o.ProductID, &o.Qty, &o.UnitPrice, &o.TotalPrice,
		&o.OrderDate, &o.RequiredDate, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
		&o.ClientName, &o.ProductName, &o.AssignedQty,
	)
	return o, err
}

// Get retrieves an order with client/product names and assigned quantity.
func (r *repository) Get(ctx context.Context, id int64) (*WithDetails, error) {
	o, err := scanWithDetails(r.pool.QueryRow(ctx, selectWithDetails+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// List returns a page of orders, newest first.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]WithDetails, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("o.client_id = $%d", argPos))
		args = append(args, *filter.ClientID)
		argPos++
	}
	if filter.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("o.product_id = $%d", argPos))
		args = append(args, *filter.ProductID)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders o"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := selectWithDetails + whereClause +
		fmt.Sprintf(" ORDER BY o.order_date DESC, o.id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.Page.Limit(), filter.Page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []WithDetails
	for rows.Next() {
		o, err := scanWithDetails(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// ListRequirements returns orders that still need stock, in required-date order.
func (r *repository) ListRequirements(ctx context.Context) ([]RequirementRow, error) {
	const query = `
		SELECT o.id, o.product_id, p.name, c.name, o.qty,
		       COALESCE(SUM(bo.qty), 0) AS assigned_qty,
		       o.required_date, o.status
		FROM orders o
		JOIN product p ON p.id = o.product_id
		JOIN client c ON c.id = o.client_id
		LEFT JOIN batch_order bo ON bo.fk_batch_order_order = o.id
		WHERE o.status IN ('pending', 'assigned')
		GROUP BY o.id, p.name, c.name
		HAVING o.qty > COALESCE(SUM(bo.qty), 0)
		ORDER BY o.required_date, o.id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RequirementRow
	for rows.Next() {
		var row RequirementRow
		if err := rows.Scan(&row.OrderID, &row.ProductID, &row.ProductName, &row.ClientName,
			&row.Qty, &row.AssignedQty, &row.RequiredDate, &row.Status); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ProductPrice returns the current list price of a product.
func (r *repository) ProductPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT unit_price FROM product WHERE id = $1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrProductNotFound
	}
	return price, err
}

// ClientExists checks the client reference.
func (r *repository) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM client WHERE id = $1)`, clientID).Scan(&exists)
	return exists, err
}
