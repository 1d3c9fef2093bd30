package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/batchflow/batchflow/internal/sales/orders"
)

type pairKey struct {
	batchID int64
	orderID int64
}

type memoryState struct {
	batches     map[int64]Stock
	orders      map[int64]orders.Order
	assignments map[pairKey]Assignment
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		batches:     make(map[int64]Stock, len(s.batches)),
		orders:      make(map[int64]orders.Order, len(s.orders)),
		assignments: make(map[pairKey]Assignment, len(s.assignments)),
	}
	for k, v := range s.batches {
		out.batches[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.assignments {
		out.assignments[k] = v
	}
	return out
}

// memoryRepo serializes transactions with one mutex, standing in for the row
// locks taken by the SQL repository, and discards a transaction's writes when
// fn fails.
type memoryRepo struct {
	mu    sync.Mutex
	state memoryState

	onRun      map[int64]bool
	failAdjust error
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		batches:     make(map[int64]Stock),
		orders:      make(map[int64]orders.Order),
		assignments: make(map[pairKey]Assignment),
	}, onRun: make(map[int64]bool)}
}

func (r *memoryRepo) addBatch(id, productID, initQty int64) {
	r.state.batches[id] = Stock{ID: id, ProductID: productID, InitQty: initQty, Qty: initQty}
}

func (r *memoryRepo) addOrder(id, productID, qty int64, unitPrice string) {
	r.state.orders[id] = orders.Order{
		ID:         id,
		ProductID:  productID,
		Qty:        qty,
		UnitPrice:  decimal.RequireFromString(unitPrice),
		TotalPrice: decimal.Zero,
		Status:     orders.StatusPending,
	}
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

func (r *memoryRepo) Get(ctx context.Context, batchID, orderID int64) (*Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.state.assignments[pairKey{batchID, orderID}]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return &a, nil
}

func (r *memoryRepo) ListByBatch(ctx context.Context, batchID int64) ([]OrderAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []OrderAssignment
	for k, a := range r.state.assignments {
		if k.batchID == batchID {
			o := r.state.orders[k.orderID]
			out = append(out, OrderAssignment{Assignment: a, OrderQty: o.Qty, OrderStatus: string(o.Status)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (r *memoryRepo) ListByOrder(ctx context.Context, orderID int64) ([]BatchAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BatchAssignment
	for k, a := range r.state.assignments {
		if k.orderID == orderID {
			out = append(out, BatchAssignment{Assignment: a})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out, nil
}

func (r *memoryRepo) Stock(ctx context.Context, batchID int64) (Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.state.batches[batchID]
	if !ok {
		return Stock{}, ErrBatchNotFound
	}
	return s, nil
}

func (r *memoryRepo) CommittedQuantity(ctx context.Context, batchID, excludingOrderID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed(batchID, excludingOrderID), nil
}

func (r *memoryRepo) committed(batchID, excludingOrderID int64) int64 {
	var sum int64
	for k, a := range r.state.assignments {
		if k.batchID == batchID && k.orderID != excludingOrderID {
			sum += a.Qty
		}
	}
	return sum
}

func (r *memoryRepo) assignedTo(orderID int64) int64 {
	var sum int64
	for k, a := range r.state.assignments {
		if k.orderID == orderID {
			sum += a.Qty
		}
	}
	return sum
}

func (tx *memoryTx) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, ok := tx.repo.state.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (tx *memoryTx) AssignedQuantity(ctx context.Context, orderID int64) (int64, error) {
	return tx.repo.assignedTo(orderID), nil
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
	o, ok := tx.repo.state.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.TotalPrice = total
	tx.repo.state.orders[id] = o
	return nil
}

func (tx *memoryTx) OrderLinked(ctx context.Context, orderID int64) (bool, error) {
	return tx.repo.onRun[orderID], nil
}

func (tx *memoryTx) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := tx.repo.state.orders[id]; !ok {
		return orders.ErrNotFound
	}
	for k := range tx.repo.state.assignments {
		if k.orderID == id {
			return errors.New("batch_order rows still reference order")
		}
	}
	delete(tx.repo.state.orders, id)
	return nil
}

func (tx *memoryTx) LockBatch(ctx context.Context, batchID int64) (Stock, error) {
	s, ok := tx.repo.state.batches[batchID]
	if !ok {
		return Stock{}, ErrBatchNotFound
	}
	return s, nil
}

func (tx *memoryTx) CommittedQuantity(ctx context.Context, batchID, excludingOrderID int64) (int64, error) {
	return tx.repo.committed(batchID, excludingOrderID), nil
}

func (tx *memoryTx) GetAssignmentForUpdate(ctx context.Context, batchID, orderID int64) (Assignment, error) {
	a, ok := tx.repo.state.assignments[pairKey{batchID, orderID}]
	if !ok {
		return Assignment{}, ErrAssignmentNotFound
	}
	return a, nil
}

func (tx *memoryTx) InsertAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	key := pairKey{a.BatchID, a.OrderID}
	if _, ok := tx.repo.state.assignments[key]; ok {
		return Assignment{}, ErrDuplicateAssignment
	}
	tx.repo.state.assignments[key] = a
	return a, nil
}

func (tx *memoryTx) UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	key := pairKey{a.BatchID, a.OrderID}
	if _, ok := tx.repo.state.assignments[key]; !ok {
		return Assignment{}, ErrAssignmentNotFound
	}
	tx.repo.state.assignments[key] = a
	return a, nil
}

func (tx *memoryTx) DeleteAssignment(ctx context.Context, batchID, orderID int64) error {
	key := pairKey{batchID, orderID}
	if _, ok := tx.repo.state.assignments[key]; !ok {
		return ErrAssignmentNotFound
	}
	delete(tx.repo.state.assignments, key)
	return nil
}

func (tx *memoryTx) OrderBatchIDs(ctx context.Context, orderID int64) ([]int64, error) {
	var ids []int64
	for k := range tx.repo.state.assignments {
		if k.orderID == orderID {
			ids = append(ids, k.batchID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (tx *memoryTx) DeleteOrderAssignments(ctx context.Context, orderID int64) ([]Assignment, error) {
	var out []Assignment
	for k, a := range tx.repo.state.assignments {
		if k.orderID == orderID {
			out = append(out, a)
			delete(tx.repo.state.assignments, k)
		}
	}
	return out, nil
}

func (tx *memoryTx) AdjustBatchQty(ctx context.Context, batchID, delta int64) error {
	if tx.repo.failAdjust != nil {
		return tx.repo.failAdjust
	}
	s, ok := tx.repo.state.batches[batchID]
	if !ok {
		return ErrBatchNotFound
	}
	s.Qty += delta
	if s.Qty < 0 || s.Qty > s.InitQty {
		return errors.New("chk_batch_qty violated")
	}
	tx.repo.state.batches[batchID] = s
	return nil
}

type countingRecorder struct {
	mu           sync.Mutex
	committed    map[string]int
	insufficient int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{committed: make(map[string]int)}
}

func (c *countingRecorder) AssignmentCommitted(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed[op]++
}

func (c *countingRecorder) InsufficientQuantity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insufficient++
}
