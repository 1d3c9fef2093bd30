package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchflow/batchflow/internal/platform/db"
)

// Repository persists products and categories.
type Repository interface {
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, p Product) error
	// DeleteUnused removes the product only when Usage reports nothing.
	DeleteUnused(ctx context.Context, id int64) (Usage, error)

	Categories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) (int64, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const selectProduct = `
	SELECT p.id, p.name, p.category_id, c.name, p.unit_price, p.description, p.created_at, p.updated_at
	FROM product p
	LEFT JOIN category c ON c.id = p.category_id`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.UnitPrice, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var conditions []string
	var args []any
	argPos := 1
	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argPos))
		args = append(args, *filter.CategoryID)
		argPos++
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", argPos))
		args = append(args, "%"+*filter.Search+"%")
		argPos++
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM product p"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.pool.Query(ctx, selectProduct+where+fmt.Sprintf(" ORDER BY p.name, p.id LIMIT $%d OFFSET $%d", argPos, argPos+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) Create(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO product (name, category_id, unit_price, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, p.Name, p.CategoryID, p.UnitPrice, p.Description).Scan(&id)
	if db.IsForeignKeyViolation(err) {
		return 0, ErrCategoryNotFound
	}
	return id, err
}

func (r *pgRepository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE product
		SET name = $2, category_id = $3, unit_price = $4, description = $5, updated_at = NOW()
		WHERE id = $1`, p.ID, p.Name, p.CategoryID, p.UnitPrice, p.Description)
	if db.IsForeignKeyViolation(err) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) DeleteUnused(ctx context.Context, id int64) (Usage, error) {
	var usage Usage
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx, `SELECT id FROM product WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM batch WHERE product_id = $1),
			       (SELECT COUNT(*) FROM orders WHERE product_id = $1)`, id).Scan(&usage.Batches, &usage.Orders)
		if err != nil {
			return err
		}
		if usage.InUse() {
			return nil
		}
		_, err = tx.Exec(ctx, `DELETE FROM product WHERE id = $1`, id)
		if db.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	})
	return usage, err
}

func (r *pgRepository) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM category ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name, &c.Description)
		return c, err
	})
}

func (r *pgRepository) CreateCategory(ctx context.Context, c Category) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO category (name, description) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Description).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateCategory
	}
	return id, err
}
