package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchflow/batchflow/internal/platform/db"
	"github.com/batchflow/batchflow/internal/shared"
)

// Remover deletes an order together with its batch assignments, giving the
// assigned quantity back to each batch in the same transaction.
type Remover interface {
	DeleteOrder(ctx context.Context, orderID int64) error
}

// Service provides business logic for orders.
type Service struct {
	repo    Repository
	remover Remover
	loc     *time.Location
	now     func() time.Time
}

// NewService creates a new service. loc is the business timezone used for
// default order dates and urgency buckets.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// SetRemover wires the delete cascade.
func (s *Service) SetRemover(r Remover) {
	s.remover = r
}

// Create stores a new pending order. The unit price defaults to the product's
// current price and is kept as a snapshot afterwards.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*WithDetails, error) {
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	required, err := parseDate("required_date", req.RequiredDate)
	if err != nil {
		return nil, err
	}
	orderDate := civilDay(s.now().In(s.loc))
	if req.OrderDate != nil {
		if orderDate, err = parseDate("order_date", *req.OrderDate); err != nil {
			return nil, err
		}
	}

	exists, err := s.repo.ClientExists(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("check client: %w", err)
	}
	if !exists {
		return nil, ErrClientNotFound
	}
	price, err := s.repo.ProductPrice(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.UnitPrice != nil {
		price = *req.UnitPrice
	}
	if price.IsNegative() {
		return nil, ErrInvalidUnitPrice
	}

	order := Order{
		ClientID:     req.ClientID,
		ProductID:    req.ProductID,
		Qty:          req.Qty,
		UnitPrice:    price.Round(2),
		TotalPrice:   decimal.Zero,
		OrderDate:    orderDate,
		RequiredDate: required,
		Status:       StatusPending,
		Notes:        shared.NormalizeOptional(req.Notes),
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.Insert(ctx, order)
		if db.IsForeignKeyViolation(err) {
			return ErrClientNotFound
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id int64) (*WithDetails, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of orders.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResponse, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return ListResponse{}, ErrInvalidStatus
	}
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResponse{}, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []WithDetails{}
	}
	return ListResponse{
		Orders:     orders,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	}, nil
}

// Update applies a generic edit. A status value outside the known four is
// rejected with ErrInvalidStatus; a known value is written as given.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*WithDetails, error) {
	updates := make(map[string]any)
	if req.Status != nil {
		status := Status(*req.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
		updates["status"] = status
	}
	if req.RequiredDate != nil {
		required, err := parseDate("required_date", *req.RequiredDate)
		if err != nil {
			return nil, err
		}
		updates["required_date"] = required
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, ErrInvalidUnitPrice
		}
		updates["unit_price"] = req.UnitPrice.Round(2)
	}
	if req.Notes != nil {
		updates["notes"] = shared.NormalizeOptional(req.Notes)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if status, ok := updates["status"]; ok && status != current.Status {
			linked, err := tx.OrderLinked(ctx, id)
			if err != nil {
				return err
			}
			if linked {
				return fmt.Errorf("%w: order %d", ErrStatusOnRun, id)
			}
		}
		if req.Qty != nil && *req.Qty != current.Qty {
			assigned, err := tx.AssignedQuantity(ctx, id)
			if err != nil {
				return err
			}
			if assigned > 0 {
				return ErrQtyLocked
			}
			updates["qty"] = *req.Qty
		}
		if err := tx.Update(ctx, id, updates); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if _, ok := updates["unit_price"]; ok {
			if _, err := RecalculateTotalPrice(ctx, tx, id); err != nil {
				return fmt.Errorf("recalculate total: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an order and releases its batch assignments atomically.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.remover == nil {
		return ErrDeleteNotSupported
	}
	return s.remover.DeleteOrder(ctx, id)
}

// ProductionRequirements groups unfulfilled orders by urgency and product.
func (s *Service) ProductionRequirements(ctx context.Context) ([]RequirementBucket, error) {
	rows, err := s.repo.ListRequirements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	buckets := GroupRequirements(rows, s.now(), s.loc)
	if buckets == nil {
		buckets = []RequirementBucket{}
	}
	return buckets, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, shared.NewError(shared.ErrValidation, fmt.Sprintf("%s must be YYYY-MM-DD", field))
	}
	return t, nil
}
