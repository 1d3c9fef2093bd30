package orders

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type memProduct struct {
	name  string
	price decimal.Decimal
}

type memoryRepo struct {
	orders       map[int64]*Order
	assigned     map[int64]int64
	clients      map[int64]string
	products     map[int64]memProduct
	requirements []RequirementRow
	onRun        map[int64]bool
	nextID       int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:   make(map[int64]*Order),
		assigned: make(map[int64]int64),
		onRun:    make(map[int64]bool),
		clients:  map[int64]string{1: "Acme Stores"},
		products: map[int64]memProduct{1: {name: "Mango Pickle", price: decimal.RequireFromString("20.00")}},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*WithDetails, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &WithDetails{
		Order:       *o,
		ClientName:  r.clients[o.ClientID],
		ProductName: r.products[o.ProductID].name,
		AssignedQty: r.assigned[id],
	}, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]WithDetails, int, error) {
	var out []WithDetails
	for id := range r.orders {
		o, _ := r.Get(ctx, id)
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) ListRequirements(ctx context.Context) ([]RequirementRow, error) {
	return r.requirements, nil
}

func (r *memoryRepo) ProductPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	p, ok := r.products[productID]
	if !ok {
		return decimal.Zero, ErrProductNotFound
	}
	return p.price, nil
}

func (r *memoryRepo) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	_, ok := r.clients[clientID]
	return ok, nil
}

func (tx *memoryTx) LockOrder(ctx context.Context, id int64) (Order, error) {
	o, ok := tx.repo.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

func (tx *memoryTx) AssignedQuantity(ctx context.Context, orderID int64) (int64, error) {
	return tx.repo.assigned[orderID], nil
}

func (tx *memoryTx) OrderLinked(ctx context.Context, orderID int64) (bool, error) {
	return tx.repo.onRun[orderID], nil
}

func (tx *memoryTx) SetStatus(ctx context.Context, id int64, status Status) error {
	o, ok := tx.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (tx *memoryTx) SetTotalPrice(ctx context.Context, id int64, total decimal.Decimal) error {
	o, ok := tx.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.TotalPrice = total
	return nil
}

func (tx *memoryTx) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := tx.repo.orders[id]; !ok {
		return ErrNotFound
	}
	delete(tx.repo.orders, id)
	return nil
}

func (tx *memoryTx) Insert(ctx context.Context, o Order) (int64, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	tx.repo.orders[o.ID] = &o
	return o.ID, nil
}

func (tx *memoryTx) Update(ctx context.Context, id int64, updates map[string]any) error {
	o, ok := tx.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	for field, value := range updates {
		switch field {
		case "qty":
			o.Qty = value.(int64)
		case "unit_price":
			o.UnitPrice = value.(decimal.Decimal)
		case "required_date":
			o.RequiredDate = value.(time.Time)
		case "status":
			o.Status = value.(Status)
		case "notes":
			o.Notes = value.(*string)
		}
	}
	return nil
}
