package distribution

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/batchflow/batchflow/internal/sales/orders"
	"github.com/batchflow/batchflow/internal/shared"
)

// Recorder receives state transitions for metrics.
type Recorder interface {
	DistributionTransition(name string)
}

type nopRecorder struct{}

func (nopRecorder) DistributionTransition(string) {}

// Service drives the distribution state machine and the order statuses tied to it.
type Service struct {
	repo    Repository
	metrics Recorder
	now     func() time.Time
}

// NewService creates a new service. A nil recorder disables metrics.
func NewService(repo Repository, metrics Recorder) *Service {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Service{repo: repo, metrics: metrics, now: time.Now}
}

// Create opens a run for the given crew and orders. Every order must be
// assigned and belong to no run; no employee may be on a run in progress.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Detail, error) {
	employeeIDs := uniqueSorted(req.EmployeeIDs)
	orderIDs := uniqueSorted(req.OrderIDs)
	if len(employeeIDs) == 0 {
		return nil, ErrNoEmployees
	}
	if len(orderIDs) == 0 {
		return nil, ErrNoOrders
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		missing, err := tx.MissingEmployees(ctx, employeeIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %v", ErrEmployeeNotFound, missing)
		}
		if err := checkCrewFree(ctx, tx, employeeIDs, 0); err != nil {
			return err
		}

		locked := make([]orders.Order, 0, len(orderIDs))
		for _, orderID := range orderIDs {
			order, err := tx.LockOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if order.Status != orders.StatusAssigned {
				return fmt.Errorf("%w: order %d is %s", ErrOrderUnavailable, orderID, order.Status)
			}
			linked, err := tx.OrderLinked(ctx, orderID)
			if err != nil {
				return err
			}
			if linked {
				return fmt.Errorf("%w: order %d is on another distribution", ErrOrderUnavailable, orderID)
			}
			locked = append(locked, order)
		}

		d, err := tx.Insert(ctx, shared.NormalizeOptional(req.Notes))
		if err != nil {
			return err
		}
		id = d.ID
		if err := tx.LinkEmployees(ctx, id, employeeIDs); err != nil {
			return fmt.Errorf("link employees: %w", err)
		}
		if err := tx.LinkOrders(ctx, id, orderIDs); err != nil {
			return fmt.Errorf("link orders: %w", err)
		}
		for _, order := range locked {
			if err := orders.Transition(ctx, tx, order, orders.StatusAssigned); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DistributionTransition("create")
	return s.Get(ctx, id)
}

// Start sets the departure time and puts every linked order in transit.
func (s *Service) Start(ctx context.Context, id int64) error {
	return s.transition(ctx, id, "start", func(ctx context.Context, tx TxRepository, d Distribution) error {
		if err := d.checkStart(); err != nil {
			return err
		}
		crew, err := tx.CrewIDs(ctx, id)
		if err != nil {
			return err
		}
		if err := checkCrewFree(ctx, tx, crew, id); err != nil {
			return err
		}
		now := s.now()
		if err := tx.SetDeparture(ctx, id, &now); err != nil {
			return err
		}
		return moveOrders(ctx, tx, id, orders.StatusInTransit)
	})
}

// End sets the arrival time and marks every linked order delivered.
func (s *Service) End(ctx context.Context, id int64) error {
	return s.transition(ctx, id, "end", func(ctx context.Context, tx TxRepository, d Distribution) error {
		if err := d.checkEnd(); err != nil {
			return err
		}
		if err := tx.SetArrival(ctx, id, s.now()); err != nil {
			return err
		}
		return moveOrders(ctx, tx, id, orders.StatusDelivered)
	})
}

// Cancel takes a run in progress back to created and its orders back to assigned.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.transition(ctx, id, "cancel", func(ctx context.Context, tx TxRepository, d Distribution) error {
		if err := d.checkCancel(); err != nil {
			return err
		}
		if err := tx.SetDeparture(ctx, id, nil); err != nil {
			return err
		}
		return moveOrders(ctx, tx, id, orders.StatusAssigned)
	})
}

// Delete removes a run that has not started. Linked orders that still hold
// stock are left assigned; links cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, "delete", func(ctx context.Context, tx TxRepository, d Distribution) error {
		if err := d.checkDelete(); err != nil {
			return err
		}
		orderIDs, err := tx.LinkedOrderIDs(ctx, id)
		if err != nil {
			return err
		}
		for _, orderID := range orderIDs {
			order, err := tx.LockOrder(ctx, orderID)
			if err != nil {
				return err
			}
			assigned, err := tx.AssignedQuantity(ctx, orderID)
			if err != nil {
				return err
			}
			if assigned == 0 {
				continue
			}
			if err := orders.Transition(ctx, tx, order, orders.StatusAssigned); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, id)
	})
}

func (s *Service) transition(ctx context.Context, id int64, name string,
	fn func(context.Context, TxRepository, Distribution) error) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, tx, d)
	})
	if err != nil {
		return err
	}
	s.metrics.DistributionTransition(name)
	return nil
}

// checkCrewFree locks the employees and fails when any of them is on a run in
// progress other than runID.
func checkCrewFree(ctx context.Context, tx TxRepository, employeeIDs []int64, runID int64) error {
	if len(employeeIDs) == 0 {
		return nil
	}
	if err := tx.LockEmployees(ctx, employeeIDs); err != nil {
		return fmt.Errorf("lock employees: %w", err)
	}
	busy, err := tx.BusyEmployees(ctx, employeeIDs, runID)
	if err != nil {
		return err
	}
	if len(busy) > 0 {
		return fmt.Errorf("%w: %v", ErrEmployeeUnavailable, busy)
	}
	return nil
}

// moveOrders transitions every order on the run through the order engine.
func moveOrders(ctx context.Context, tx TxRepository, id int64, next orders.Status) error {
	orderIDs, err := tx.LinkedOrderIDs(ctx, id)
	if err != nil {
		return err
	}
	for _, orderID := range orderIDs {
		if err := orders.TransitionByID(ctx, tx, orderID, next); err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}
	}
	return nil
}

// Get returns a run with its crew and shipments.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &Detail{Distribution: d, State: d.State()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		employees, err := s.repo.Employees(gctx, id)
		if err != nil {
			return fmt.Errorf("load employees: %w", err)
		}
		detail.Employees = employees
		return nil
	})
	g.Go(func() error {
		linked, err := s.repo.Orders(gctx, id)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		detail.Orders = linked
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if detail.Employees == nil {
		detail.Employees = []Employee{}
	}
	if detail.Orders == nil {
		detail.Orders = []Order{}
	}
	return detail, nil
}

// List returns a page of runs.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResponse, error) {
	if filter.State != nil && !filter.State.IsValid() {
		return ListResponse{}, ErrInvalidState
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResponse{}, fmt.Errorf("list distributions: %w", err)
	}
	if items == nil {
		items = []Summary{}
	}
	return ListResponse{
		Distributions: items,
		Pagination:    shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	}, nil
}

// AvailableEmployees lists employees that can crew a new run.
func (s *Service) AvailableEmployees(ctx context.Context) ([]Employee, error) {
	out, err := s.repo.AvailableEmployees(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Employee{}
	}
	return out, nil
}

// AvailableOrders lists orders that can be put on a new run.
func (s *Service) AvailableOrders(ctx context.Context) ([]Order, error) {
	out, err := s.repo.AvailableOrders(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
