package distribution

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/batchflow/batchflow/internal/sales/orders"
)

type txRepository struct {
	orders.TxStore
	tx pgx.Tx
}

func (t *txRepository) Lock(ctx context.Context, id int64) (Distribution, error) {
	return scanDistribution(t.tx.QueryRow(ctx, selectDistribution+` WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepository) Insert(ctx context.Context, notes *string) (Distribution, error) {
	return scanDistribution(t.tx.QueryRow(ctx, `
		INSERT INTO distribution (notes) VALUES ($1)
		RETURNING id, created_at, departure_time, arrival_time, notes`, notes))
}

func (t *txRepository) LinkEmployees(ctx context.Context, id int64, employeeIDs []int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO distribution_employee (distribution_id, employee_id)
		SELECT $1, unnest($2::bigint[])`, id, employeeIDs)
	return err
}

func (t *txRepository) LinkOrders(ctx context.Context, id int64, orderIDs []int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO distribution_order (distribution_id, order_id)
		SELECT $1, unnest($2::bigint[])`, id, orderIDs)
	return err
}

func (t *txRepository) LinkedOrderIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT order_id FROM distribution_order WHERE distribution_id = $1 ORDER BY order_id`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *txRepository) SetDeparture(ctx context.Context, id int64, at *time.Time) error {
	return t.exec(ctx, `UPDATE distribution SET departure_time = $1 WHERE id = $2`, at, id)
}

func (t *txRepository) SetArrival(ctx context.Context, id int64, at time.Time) error {
	return t.exec(ctx, `UPDATE distribution SET arrival_time = $1 WHERE id = $2`, at, id)
}

func (t *txRepository) Delete(ctx context.Context, id int64) error {
	return t.exec(ctx, `DELETE FROM distribution WHERE id = $1`, id)
}

func (t *txRepository) MissingEmployees(ctx context.Context, employeeIDs []int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT req.id FROM unnest($1::bigint[]) AS req(id)
		WHERE NOT EXISTS (SELECT 1 FROM employee e WHERE e.id = req.id)
		ORDER BY req.id`, employeeIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *txRepository) LockEmployees(ctx context.Context, employeeIDs []int64) error {
	rows, err := t.tx.Query(ctx,
		`SELECT id FROM employee WHERE id = ANY($1) ORDER BY id FOR UPDATE`, employeeIDs)
	if err != nil {
		return err
	}
	_, err = pgx.CollectRows(rows, pgx.RowTo[int64])
	return err
}

func (t *txRepository) CrewIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT employee_id FROM distribution_employee WHERE distribution_id = $1 ORDER BY employee_id`, id)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *txRepository) BusyEmployees(ctx context.Context, employeeIDs []int64, excludeRunID int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT DISTINCT de.employee_id
		FROM distribution_employee de
		JOIN distribution d ON d.id = de.distribution_id
		WHERE de.employee_id = ANY($1)
		  AND d.id <> $2
		  AND d.departure_time IS NOT NULL AND d.arrival_time IS NULL
		ORDER BY de.employee_id`, employeeIDs, excludeRunID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *txRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
