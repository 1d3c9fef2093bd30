// Package employees keeps the staff roster used by distribution runs and attendance.
package employees

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchflow/batchflow/internal/shared"
)

var (
	ErrNotFound  = shared.NewError(shared.ErrNotFound, "employee not found")
	ErrNameEmpty = shared.NewError(shared.ErrValidation, "employee name is required")
)

const defaultRole = "driver"

// Employee is a member of staff.
type Employee struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Phone     *string   `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Role  string  `json:"role,omitempty" validate:"omitempty,oneof=driver helper supervisor staff"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

// Repository persists employees.
type Repository interface {
	Get(ctx context.Context, id int64) (*Employee, error)
	List(ctx context.Context, includeInactive bool) ([]Employee, error)
	Create(ctx context.Context, e Employee) (*Employee, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Role, &e.Phone, &e.IsActive, &e.CreatedAt)
	return e, err
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx,
		`SELECT id, name, role, phone, is_active, created_at FROM employee WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *pgRepository) List(ctx context.Context, includeInactive bool) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, role, phone, is_active, created_at
		FROM employee
		WHERE is_active OR $1
		ORDER BY name, id`, includeInactive)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Employee, error) {
		return scanEmployee(row)
	})
}

func (r *pgRepository) Create(ctx context.Context, e Employee) (*Employee, error) {
	out, err := scanEmployee(r.pool.QueryRow(ctx, `
		INSERT INTO employee (name, role, phone)
		VALUES ($1, $2, $3)
		RETURNING id, name, role, phone, is_active, created_at`, e.Name, e.Role, e.Phone))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Service exposes roster operations.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*Employee, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]Employee, error) {
	out, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Employee{}
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Employee, error) {
	e := Employee{
		Name:  shared.NormalizeText(req.Name),
		Role:  req.Role,
		Phone: shared.NormalizeOptional(req.Phone),
	}
	if e.Name == "" {
		return nil, ErrNameEmpty
	}
	if e.Role == "" {
		e.Role = defaultRole
	}
	return s.repo.Create(ctx, e)
}
