package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchflow/batchflow/internal/platform/db"
)

// Repository reads attendance and opens punch transactions.
type Repository interface {
	ListByDate(ctx context.Context, day time.Time) ([]Record, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the transactional surface used by Punch.
type TxRepository interface {
	// LockEmployee serialises punches for one employee.
	LockEmployee(ctx context.Context, employeeID int64) error
	// Find returns nil when the employee has not punched on day.
	Find(ctx context.Context, employeeID int64, day time.Time) (*Record, error)
	Insert(ctx context.Context, rec Record) (*Record, error)
	SetCheckOut(ctx context.Context, id int64, at time.Time) (*Record, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const recordColumns = `a.id, a.employee_id, e.name, a.work_date, a.check_in, a.check_out, a.is_late`

func scanRecord(row pgx.Row) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.EmployeeID, &r.EmployeeName, &r.WorkDate, &r.CheckIn, &r.CheckOut, &r.IsLate)
	r.Date = r.WorkDate.Format(DateLayout)
	return r, err
}

func (r *pgRepository) ListByDate(ctx context.Context, day time.Time) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		JOIN employee e ON e.id = a.employee_id
		WHERE a.work_date = $1
		ORDER BY a.check_in, a.id`, day)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		return scanRecord(row)
	})
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) LockEmployee(ctx context.Context, employeeID int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM employee WHERE id = $1 FOR UPDATE`, employeeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEmployeeNotFound
	}
	return err
}

func (t *txRepository) Find(ctx context.Context, employeeID int64, day time.Time) (*Record, error) {
	rec, err := scanRecord(t.tx.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		JOIN employee e ON e.id = a.employee_id
		WHERE a.employee_id = $1 AND a.work_date = $2`, employeeID, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (t *txRepository) Insert(ctx context.Context, rec Record) (*Record, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO attendance (employee_id, work_date, check_in, is_late)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, rec.EmployeeID, rec.WorkDate, rec.CheckIn, rec.IsLate).Scan(&rec.ID)
	if err != nil {
		return nil, err
	}
	return t.Find(ctx, rec.EmployeeID, rec.WorkDate)
}

func (t *txRepository) SetCheckOut(ctx context.Context, id int64, at time.Time) (*Record, error) {
	rec, err := scanRecord(t.tx.QueryRow(ctx, `
		WITH updated AS (
			UPDATE attendance SET check_out = $2
			WHERE id = $1 AND check_out IS NULL
			RETURNING *
		)
		SELECT a.id, a.employee_id, e.name, a.work_date, a.check_in, a.check_out, a.is_late
		FROM updated a
		JOIN employee e ON e.id = a.employee_id`, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyCheckedOut
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
