package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchflow/batchflow/internal/platform/db"
	"github.com/batchflow/batchflow/internal/sales/orders"
)

// Repository defines persistence for distribution runs.
type Repository interface {
	Get(ctx context.Context, id int64) (Distribution, error)
	Employees(ctx context.Context, id int64) ([]Employee, error)
	Orders(ctx context.Context, id int64) ([]Order, error)
	List(ctx context.Context, filter ListFilter) ([]Summary, int, error)
	AvailableEmployees(ctx context.Context) ([]Employee, error)
	AvailableOrders(ctx context.Context) ([]Order, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional writes. Order status changes go through
// the embedded order engine store on the same transaction.
type TxRepository interface {
	orders.TxStore

	// Lock reads the distribution FOR UPDATE.
	Lock(ctx context.Context, id int64) (Distribution, error)
	Insert(ctx context.Context, notes *string) (Distribution, error)
	LinkEmployees(ctx context.Context, id int64, employeeIDs []int64) error
	LinkOrders(ctx context.Context, id int64, orderIDs []int64) error
	// LinkedOrderIDs lists the run's orders, ascending.
	LinkedOrderIDs(ctx context.Context, id int64) ([]int64, error)
	SetDeparture(ctx context.Context, id int64, at *time.Time) error
	SetArrival(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error

	// MissingEmployees returns the ids that have no employee row.
	MissingEmployees(ctx context.Context, employeeIDs []int64) ([]int64, error)
	// LockEmployees locks the employee rows FOR UPDATE, ascending.
	LockEmployees(ctx context.Context, employeeIDs []int64) error
	// CrewIDs lists the run's employees, ascending.
	CrewIDs(ctx context.Context, id int64) ([]int64, error)
	// BusyEmployees returns the ids linked to a run in progress other than excludeRunID.
	BusyEmployees(ctx context.Context, employeeIDs []int64, excludeRunID int64) ([]int64, error)
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

const selectDistribution = `SELECT id, created_at, departure_time, arrival_time, notes FROM distribution`

func scanDistribution(row pgx.Row) (Distribution, error) {
	var d Distribution
	err := row.Scan(&d.ID, &d.CreatedAt, &d.DepartureTime, &d.ArrivalTime, &d.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Distribution{}, ErrNotFound
	}
	return d, err
}

// Get reads one run.
func (r *repository) Get(ctx context.Context, id int64) (Distribution, error) {
	return scanDistribution(r.pool.QueryRow(ctx, selectDistribution+` WHERE id = $1`, id))
}

// Employees lists the run's crew.
func (r *repository) Employees(ctx context.Context, id int64) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.name, e.role, e.phone
		FROM distribution_employee de
		JOIN employee e ON e.id = de.employee_id
		WHERE de.distribution_id = $1
		ORDER BY e.name, e.id`, id)
	if err != nil {
		return nil, err
	}
	return collectEmployees(rows)
}

// Orders lists the run's shipments.
func (r *repository) Orders(ctx context.Context, id int64) ([]Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+`
		JOIN distribution_order d ON d.order_id = o.id
		WHERE d.distribution_id = $1
		ORDER BY o.required_date, o.id`, id)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// List returns a page of runs, newest first.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]Summary, int, error) {
	where := ""
	if filter.State != nil {
		switch *filter.State {
		case StateCreated:
			where = " WHERE d.departure_time IS NULL"
		case StateInProgress:
			where = " WHERE d.departure_time IS NOT NULL AND d.arrival_time IS NULL"
		case StateCompleted:
			where = " WHERE d.arrival_time IS NOT NULL"
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM distribution d"+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.created_at, d.departure_time, d.arrival_time, d.notes,
		       (SELECT COUNT(*) FROM distribution_employee de WHERE de.distribution_id = d.id),
		       (SELECT COUNT(*) FROM distribution_order dor WHERE dor.distribution_id = d.id)
		FROM distribution d%s
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT $1 OFFSET $2`, where)
	rows, err := r.pool.Query(ctx, query, filter.Page.Limit(), filter.Page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.DepartureTime, &s.ArrivalTime, &s.Notes,
			&s.EmployeeCount, &s.OrderCount); err != nil {
			return nil, 0, err
		}
		s.State = s.Distribution.State()
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// AvailableEmployees lists active employees not on a run in progress.
func (r *repository) AvailableEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.name, e.role, e.phone
		FROM employee e
		WHERE e.is_active
		  AND NOT EXISTS (
		      SELECT 1
		      FROM distribution_employee de
		      JOIN distribution d ON d.id = de.distribution_id
		      WHERE de.employee_id = e.id
		        AND d.departure_time IS NOT NULL AND d.arrival_time IS NULL)
		ORDER BY e.name, e.id`)
	if err != nil {
		return nil, err
	}
	return collectEmployees(rows)
}

// AvailableOrders lists assigned orders that belong to no run.
func (r *repository) AvailableOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+`
		WHERE o.status = 'assigned'
		  AND NOT EXISTS (SELECT 1 FROM distribution_order d WHERE d.order_id = o.id)
		ORDER BY o.required_date, o.id`)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const selectOrder = `
	SELECT o.id, c.name, p.name, o.qty, o.status, o.required_date
	FROM orders o
	JOIN client c ON c.id = o.client_id
	JOIN product p ON p.id = o.product_id`

func collectEmployees(rows pgx.Rows) ([]Employee, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Employee, error) {
		var e Employee
		err := row.Scan(&e.ID, &e.Name, &e.Role, &e.Phone)
		return e, err
	})
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var o Order
		err := row.Scan(&o.ID, &o.ClientName, &o.ProductName, &o.Qty, &o.Status, &o.RequiredDate)
		return o, err
	})
}
