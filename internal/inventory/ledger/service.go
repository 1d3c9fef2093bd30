package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/batchflow/batchflow/internal/sales/orders"
	"github.com/batchflow/batchflow/internal/shared"
)

// Recorder receives ledger events for metrics.
type Recorder interface {
	AssignmentCommitted(op string)
	InsufficientQuantity()
}

type nopRecorder struct{}

func (nopRecorder) AssignmentCommitted(string) {}
func (nopRecorder) InsufficientQuantity()      {}

// Service owns batch.qty and the batch_order rows.
type Service struct {
	repo    Repository
	metrics Recorder
}

// NewService creates a new ledger service. A nil recorder disables metrics.
func NewService(repo Repository, metrics Recorder) *Service {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{repo: repo, metrics: metrics}
}

// Assign commits qty of a batch to an order. The batch row is locked before the
// availability check so concurrent assignments against one batch serialize.
func (s *Service) Assign(ctx context.Context, req AssignRequest) (*Assignment, error) {
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	description := shared.NormalizeOptional(req.Description)

	var created Assignment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stock, err := tx.LockBatch(ctx, req.BatchID)
		if err != nil {
			return err
		}
		order, err := tx.LockOrder(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if err := checkAssignable(stock, order); err != nil {
			return err
		}
		if _, err := tx.GetAssignmentForUpdate(ctx, req.BatchID, req.OrderID); err == nil {
			return ErrDuplicateAssignment
		} else if !errors.Is(err, ErrAssignmentNotFound) {
			return err
		}
		if err := checkDescription(order, req.Qty, description); err != nil {
			return err
		}
		if err := s.checkAvailable(ctx, tx, stock, req.OrderID, req.Qty); err != nil {
			return err
		}

		created, err = tx.InsertAssignment(ctx, Assignment{
			BatchID:     req.BatchID,
			OrderID:     req.OrderID,
			Qty:         req.Qty,
			DiffQty:     order.Qty - req.Qty,
			Description: description,
		})
		if err != nil {
			return err
		}
		if err := tx.AdjustBatchQty(ctx, req.BatchID, -req.Qty); err != nil {
			return fmt.Errorf("decrement batch quantity: %w", err)
		}
		if err := orders.Transition(ctx, tx, order, orders.StatusAssigned); err != nil {
			return err
		}
		_, err = orders.RecalculateTotalPrice(ctx, tx, req.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AssignmentCommitted("assign")
	return &created, nil
}

// Update changes the quantity of an existing assignment. Availability excludes
// the assignment's own contribution.
func (s *Service) Update(ctx context.Context, batchID, orderID int64, req UpdateRequest) (*Assignment, error) {
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var updated Assignment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stock, err := tx.LockBatch(ctx, batchID)
		if err != nil {
			return notFoundAsAssignment(err)
		}
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundAsAssignment(err)
		}
		current, err := tx.GetAssignmentForUpdate(ctx, batchID, orderID)
		if err != nil {
			return err
		}
		if !order.Status.AcceptsAssignments() {
			return fmt.Errorf("%w: order %d is %s", ErrOrderNotAssignable, order.ID, order.Status)
		}
		if err := checkUnlinked(ctx, tx, orderID); err != nil {
			return err
		}

		description := current.Description
		if req.Description != nil {
			description = shared.NormalizeOptional(req.Description)
		}
		if err := checkDescription(order, req.Qty, description); err != nil {
			return err
		}
		if err := s.checkAvailable(ctx, tx, stock, orderID, req.Qty); err != nil {
			return err
		}

		updated, err = tx.UpdateAssignment(ctx, Assignment{
			BatchID:     batchID,
			OrderID:     orderID,
			Qty:         req.Qty,
			DiffQty:     order.Qty - req.Qty,
			Description: description,
		})
		if err != nil {
			return err
		}
		if err := tx.AdjustBatchQty(ctx, batchID, current.Qty-req.Qty); err != nil {
			return fmt.Errorf("adjust batch quantity: %w", err)
		}
		_, err = orders.RecalculateTotalPrice(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AssignmentCommitted("update")
	return &updated, nil
}

// Remove deletes an assignment and gives its quantity back to the batch. The
// order returns to pending once its last assignment is gone.
func (s *Service) Remove(ctx context.Context, batchID, orderID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockBatch(ctx, batchID); err != nil {
			return notFoundAsAssignment(err)
		}
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundAsAssignment(err)
		}
		current, err := tx.GetAssignmentForUpdate(ctx, batchID, orderID)
		if err != nil {
			return err
		}
		if !order.Status.AcceptsAssignments() {
			return fmt.Errorf("%w: order %d is %s", ErrOrderNotAssignable, order.ID, order.Status)
		}
		if err := checkUnlinked(ctx, tx, orderID); err != nil {
			return err
		}

		if err := tx.DeleteAssignment(ctx, batchID, orderID); err != nil {
			return err
		}
		if err := tx.AdjustBatchQty(ctx, batchID, current.Qty); err != nil {
			return fmt.Errorf("restore batch quantity: %w", err)
		}
		remaining, err := tx.AssignedQuantity(ctx, orderID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := orders.Transition(ctx, tx, order, orders.StatusPending); err != nil {
				return err
			}
		}
		_, err = orders.RecalculateTotalPrice(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return err
	}
	s.metrics.AssignmentCommitted("remove")
	return nil
}

// DeleteOrder removes an order together with all of its assignments, restoring
// every batch it drew from, in one transaction.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batchIDs, err := tx.OrderBatchIDs(ctx, orderID)
		if err != nil {
			return err
		}
		for _, id := range batchIDs {
			if _, err := tx.LockBatch(ctx, id); err != nil {
				return err
			}
		}
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == orders.StatusInTransit {
			return orders.ErrOrderInTransit
		}
		if _, err := RestoreForOrder(ctx, tx, orderID); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}
	s.metrics.AssignmentCommitted("restore")
	return nil
}

// RestoreForOrder deletes all assignments of an order inside the caller's
// transaction and adds each quantity back to its batch.
func RestoreForOrder(ctx context.Context, tx TxRepository, orderID int64) ([]Assignment, error) {
	removed, err := tx.DeleteOrderAssignments(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("delete order assignments: %w", err)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].BatchID < removed[j].BatchID })
	for _, a := range removed {
		if err := tx.AdjustBatchQty(ctx, a.BatchID, a.Qty); err != nil {
			return nil, fmt.Errorf("restore batch %d: %w", a.BatchID, err)
		}
	}
	return removed, nil
}

// AvailableQuantity returns init_qty minus what is committed to other orders.
// excludingOrderID <= 0 counts every assignment.
func (s *Service) AvailableQuantity(ctx context.Context, batchID, excludingOrderID int64) (Availability, error) {
	stock, err := s.repo.Stock(ctx, batchID)
	if err != nil {
		return Availability{}, err
	}
	committed, err := s.repo.CommittedQuantity(ctx, batchID, excludingOrderID)
	if err != nil {
		return Availability{}, fmt.Errorf("sum committed quantity: %w", err)
	}
	return newAvailability(stock, committed), nil
}

// Get returns one assignment.
func (s *Service) Get(ctx context.Context, batchID, orderID int64) (*Assignment, error) {
	return s.repo.Get(ctx, batchID, orderID)
}

// ListByBatch returns the orders a batch is committed to.
func (s *Service) ListByBatch(ctx context.Context, batchID int64) ([]OrderAssignment, error) {
	out, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch assignments: %w", err)
	}
	if out == nil {
		out = []OrderAssignment{}
	}
	return out, nil
}

// ListByOrder returns the batches an order draws from.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]BatchAssignment, error) {
	out, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order assignments: %w", err)
	}
	if out == nil {
		out = []BatchAssignment{}
	}
	return out, nil
}

func (s *Service) checkAvailable(ctx context.Context, tx TxRepository, stock Stock, orderID, requested int64) error {
	committed, err := tx.CommittedQuantity(ctx, stock.ID, orderID)
	if err != nil {
		return fmt.Errorf("sum committed quantity: %w", err)
	}
	if available := stock.InitQty - committed; requested > available {
		s.metrics.InsufficientQuantity()
		return &InsufficientQuantityError{
			Available: available,
			Assigned:  committed,
			Total:     stock.InitQty,
			Requested: requested,
		}
	}
	return nil
}

func checkAssignable(stock Stock, order orders.Order) error {
	if stock.ProductID != order.ProductID {
		return ErrProductMismatch
	}
	if !order.Status.AcceptsAssignments() {
		return fmt.Errorf("%w: order %d is %s", ErrOrderNotAssignable, order.ID, order.Status)
	}
	return nil
}

// checkUnlinked refuses to change the stock of an order a distribution run holds.
func checkUnlinked(ctx context.Context, tx TxRepository, orderID int64) error {
	linked, err := tx.OrderLinked(ctx, orderID)
	if err != nil {
		return fmt.Errorf("check distribution link: %w", err)
	}
	if linked {
		return fmt.Errorf("%w: order %d is on a distribution run", ErrOrderNotAssignable, orderID)
	}
	return nil
}

// checkDescription requires a justification whenever the assignment does not
// exactly cover the ordered quantity.
func checkDescription(order orders.Order, qty int64, description *string) error {
	if qty != order.Qty && description == nil {
		return ErrDescriptionRequired
	}
	return nil
}

// notFoundAsAssignment reports a missing batch or order as a missing assignment.
func notFoundAsAssignment(err error) error {
	if errors.Is(err, ErrBatchNotFound) || errors.Is(err, orders.ErrNotFound) {
		return ErrAssignmentNotFound
	}
	return err
}
