package distribution

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchflow/batchflow/internal/sales/orders"
)

type memoryState struct {
	runs      map[int64]Distribution
	employees map[int64]Employee
	crew      map[int64][]int64
	shipments map[int64][]int64
	orders    map[int64]orders.Order
	assigned  map[int64]int64
	nextRunID int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		runs:      make(map[int64]Distribution),
		employees: s.employees,
		crew:      make(map[int64][]int64),
		shipments: make(map[int64][]int64),
		orders:    make(map[int64]orders.Order),
		assigned:  s.assigned,
		nextRunID: s.nextRunID,
	}
	for k, v := range s.runs {
		out.runs[k] = v
	}
	for k, v := range s.crew {
		out.crew[k] = append([]int64(nil), v...)
	}
	for k, v := range s.shipments {
		out.shipments[k] = append([]int64(nil), v...)
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	return out
}

type memoryRepo struct {
	mu    sync.Mutex
	state memoryState
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		runs:      make(map[int64]Distribution),
		employees: make(map[int64]Employee),
		crew:      make(map[int64][]int64),
		shipments: make(map[int64][]int64),
		orders:    make(map[int64]orders.Order),
		assigned:  make(map[int64]int64),
	}}
}

func (r *memoryRepo) addEmployee(id int64, name string) {
	r.state.employees[id] = Employee{ID: id, Name: name, Role: "driver"}
}

func (r *memoryRepo) addOrder(id int64, status orders.Status, assigned int64) {
	r.state.orders[id] = orders.Order{ID: id, Qty: assigned, UnitPrice: decimal.NewFromInt(1), Status: status}
	r.state.assigned[id] = assigned
}

func (r *memoryRepo) status(id int64) orders.Status {
	return r.state.orders[id].Status
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Distribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.state.runs[id]
	if !ok {
		return Distribution{}, ErrNotFound
	}
	return d, nil
}

func (r *memoryRepo) Employees(ctx context.Context, id int64) ([]Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Employee
	for _, eid := range r.state.crew[id] {
		out = append(out, r.state.employees[eid])
	}
	return out, nil
}

func (r *memoryRepo) Orders(ctx context.Context, id int64) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, oid := range r.state.shipments[id] {
		o := r.state.orders[oid]
		out = append(out, Order{ID: oid, Qty: o.Qty, Status: string(o.Status)})
	}
	return out, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Summary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Summary
	for id, d := range r.state.runs {
		if filter.State != nil && d.State() != *filter.State {
			continue
		}
		out = append(out, Summary{
			Distribution:  d,
			State:         d.State(),
			EmployeeCount: len(r.state.crew[id]),
			OrderCount:    len(r.state.shipments[id]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *memoryRepo) AvailableEmployees(ctx context.Context) ([]Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	busy := r.busy(0)
	var out []Employee
	for id, e := range r.state.employees {
		if !busy[id] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) AvailableOrders(ctx context.Context) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for id, o := range r.state.orders {
		if o.Status == orders.StatusAssigned && !r.linked(id) {
			out = append(out, Order{ID: id, Qty: o.Qty, Status: string(o.Status)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) busy(excludeRunID int64) map[int64]bool {
	busy := make(map[int64]bool)
	for id, d := range r.state.runs {
		if id != excludeRunID && d.State() == StateInProgress {
			for _, eid := range r.state.crew[id] {
				busy[eid] = true
			}
		}
	}
	return busy
}

func (r *memoryRepo) linked(orderID int64) bool {
	for _, ids := range r.state.shipments {
		for _, id := range ids {
			if id == orderID {
				return true
			}
		}
	}
	return false
}

func (tx *memoryTx) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, ok := tx.repo.state.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (tx *memoryTx) AssignedQuantity(ctx context.Context, orderID int64) (int64, error) {
	return tx.repo.state.assigned[orderID], nil
}

func (tx *memoryTx) SetStatus(ctx context.Context, id int64, status orders.Status) error {
	o, ok := tx.repo.state.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = status
	tx.repo.state.orders[id] = o
	return nil
}

func (tx *memoryTx) SetTotalPrice(ctx context.Context, id int64, total decimal.Decimal) error {
	o := tx.repo.state.orders[id]
	o.TotalPrice = total
	tx.repo.state.orders[id] = o
	return nil
}

func (tx *memoryTx) DeleteOrder(ctx context.Context, id int64) error {
	delete(tx.repo.state.orders, id)
	return nil
}

func (tx *memoryTx) Lock(ctx context.Context, id int64) (Distribution, error) {
	d, ok := tx.repo.state.runs[id]
	if !ok {
		return Distribution{}, ErrNotFound
	}
	return d, nil
}

func (tx *memoryTx) Insert(ctx context.Context, notes *string) (Distribution, error) {
	tx.repo.state.nextRunID++
	d := Distribution{ID: tx.repo.state.nextRunID, CreatedAt: time.Now(), Notes: notes}
	tx.repo.state.runs[d.ID] = d
	return d, nil
}

func (tx *memoryTx) LinkEmployees(ctx context.Context, id int64, employeeIDs []int64) error {
	tx.repo.state.crew[id] = append(tx.repo.state.crew[id], employeeIDs...)
	return nil
}

func (tx *memoryTx) LinkOrders(ctx context.Context, id int64, orderIDs []int64) error {
	tx.repo.state.shipments[id] = append(tx.repo.state.shipments[id], orderIDs...)
	return nil
}

func (tx *memoryTx) LinkedOrderIDs(ctx context.Context, id int64) ([]int64, error) {
	return append([]int64(nil), tx.repo.state.shipments[id]...), nil
}

func (tx *memoryTx) SetDeparture(ctx context.Context, id int64, at *time.Time) error {
	d, ok := tx.repo.state.runs[id]
	if !ok {
		return ErrNotFound
	}
	d.DepartureTime = at
	tx.repo.state.runs[id] = d
	return nil
}

func (tx *memoryTx) SetArrival(ctx context.Context, id int64, at time.Time) error {
	d, ok := tx.repo.state.runs[id]
	if !ok {
		return ErrNotFound
	}
	d.ArrivalTime = &at
	tx.repo.state.runs[id] = d
	return nil
}

func (tx *memoryTx) Delete(ctx context.Context, id int64) error {
	if _, ok := tx.repo.state.runs[id]; !ok {
		return ErrNotFound
	}
	delete(tx.repo.state.runs, id)
	delete(tx.repo.state.crew, id)
	delete(tx.repo.state.shipments, id)
	return nil
}

func (tx *memoryTx) MissingEmployees(ctx context.Context, employeeIDs []int64) ([]int64, error) {
	var missing []int64
	for _, id := range employeeIDs {
		if _, ok := tx.repo.state.employees[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (tx *memoryTx) LockEmployees(ctx context.Context, employeeIDs []int64) error {
	return nil
}

func (tx *memoryTx) CrewIDs(ctx context.Context, id int64) ([]int64, error) {
	out := append([]int64(nil), tx.repo.state.crew[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (tx *memoryTx) BusyEmployees(ctx context.Context, employeeIDs []int64, excludeRunID int64) ([]int64, error) {
	busy := tx.repo.busy(excludeRunID)
	var out []int64
	for _, id := range employeeIDs {
		if busy[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (tx *memoryTx) OrderLinked(ctx context.Context, orderID int64) (bool, error) {
	return tx.repo.linked(orderID), nil
}
