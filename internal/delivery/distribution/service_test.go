package distribution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchflow/batchflow/internal/sales/orders"
	"github.com/batchflow/batchflow/internal/shared"
)

type countingRecorder map[string]int

func (c countingRecorder) DistributionTransition(name string) { c[name]++ }

func setup(t *testing.T) (*memoryRepo, *Service, countingRecorder) {
	t.Helper()
	repo := newMemoryRepo()
	repo.addEmployee(1, "Ravi")
	repo.addEmployee(2, "Meena")
	repo.addOrder(10, orders.StatusAssigned, 5)
	repo.addOrder(11, orders.StatusAssigned, 8)
	repo.addOrder(12, orders.StatusPending, 0)
	rec := countingRecorder{}
	svc := NewService(repo, rec)
	svc.now = func() time.Time { return time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC) }
	return repo, svc, rec
}

func TestStartThenCancelRevertsOrders(t *testing.T) {
	repo, svc, rec := setup(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{10, 11}})
	require.NoError(t, err)
	assert.Equal(t, StateCreated, d.State)
	assert.Len(t, d.Orders, 2)

	require.NoError(t, svc.Start(ctx, d.ID))
	assert.Equal(t, orders.StatusInTransit, repo.status(10))
	assert.Equal(t, orders.StatusInTransit, repo.status(11))

	require.NoError(t, svc.Cancel(ctx, d.ID))
	assert.Equal(t, orders.StatusAssigned, repo.status(10))
	assert.Equal(t, orders.StatusAssigned, repo.status(11))

	got, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DepartureTime)
	assert.Equal(t, StateCreated, got.State)
	assert.Equal(t, 1, rec["start"])
	assert.Equal(t, 1, rec["cancel"])
}

func TestFullLifecycle(t *testing.T) {
	repo, svc, _ := setup(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1, 2}, OrderIDs: []int64{10}})
	require.NoError(t, err)

	require.ErrorIs(t, svc.End(ctx, d.ID), ErrNotStarted)
	require.ErrorIs(t, svc.Cancel(ctx, d.ID), ErrNotStarted)

	require.NoError(t, svc.Start(ctx, d.ID))
	err = svc.Start(ctx, d.ID)
	require.ErrorIs(t, err, ErrAlreadyStarted)
	require.ErrorIs(t, err, ErrIllegalStateTransition)
	require.ErrorIs(t, err, shared.ErrRuleViolation)

	require.NoError(t, svc.End(ctx, d.ID))
	got, err := svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, got.State)
	require.NotNil(t, got.ArrivalTime)
	assert.Equal(t, orders.StatusDelivered, repo.status(10))

	require.ErrorIs(t, svc.Start(ctx, d.ID), ErrAlreadyCompleted)
	require.ErrorIs(t, svc.End(ctx, d.ID), ErrAlreadyCompleted)
	require.ErrorIs(t, svc.Cancel(ctx, d.ID), ErrAlreadyCompleted)
	require.ErrorIs(t, svc.Delete(ctx, d.ID), ErrAlreadyStarted)
}

func TestCreateValidation(t *testing.T) {
	_, svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{OrderIDs: []int64{10}})
	require.ErrorIs(t, err, ErrNoEmployees)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}})
	require.ErrorIs(t, err, ErrNoOrders)

	_, err = svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{99}, OrderIDs: []int64{10}})
	require.ErrorIs(t, err, ErrEmployeeNotFound)

	_, err = svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{12}})
	require.ErrorIs(t, err, ErrOrderUnavailable)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{404}})
	require.ErrorIs(t, err, orders.ErrNotFound)
}

func TestCreateRejectsUnavailable(t *testing.T) {
	repo, svc, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{10}})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{2}, OrderIDs: []int64{10, 11}})
	require.ErrorIs(t, err, ErrOrderUnavailable)
	assert.Len(t, repo.state.runs, 1)

	// Employee 1 is free until the first run starts.
	_, err = svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{11}})
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx, first.ID))

	repo.addOrder(13, orders.StatusAssigned, 1)
	_, err = svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{13}})
	require.ErrorIs(t, err, ErrEmployeeUnavailable)

	employees, err := svc.AvailableEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, int64(2), employees[0].ID)

	available, err := svc.AvailableOrders(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, int64(13), available[0].ID)
}

func TestStartFailureRollsBack(t *testing.T) {
	repo, svc, _ := setup(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{10, 11}})
	require.NoError(t, err)

	// Order 11 left assigned outside the workflow.
	o := repo.state.orders[11]
	o.Status = orders.StatusPending
	repo.state.orders[11] = o

	err = svc.Start(ctx, d.ID)
	require.ErrorIs(t, err, orders.ErrIllegalTransition)
	assert.Nil(t, repo.state.runs[d.ID].DepartureTime)
	assert.Equal(t, orders.StatusAssigned, repo.status(10))
}

func TestStartRejectsCrewOnAnotherRun(t *testing.T) {
	repo, svc, rec := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{10}})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1, 2}, OrderIDs: []int64{11}})
	require.NoError(t, err)

	require.NoError(t, svc.Start(ctx, first.ID))
	err = svc.Start(ctx, second.ID)
	require.ErrorIs(t, err, ErrEmployeeUnavailable)
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Nil(t, repo.state.runs[second.ID].DepartureTime)
	assert.Equal(t, orders.StatusAssigned, repo.status(11))
	assert.Equal(t, 1, rec["start"])

	require.NoError(t, svc.End(ctx, first.ID))
	require.NoError(t, svc.Start(ctx, second.ID))
	assert.Equal(t, orders.StatusInTransit, repo.status(11))
}

func TestDeleteCreatedRun(t *testing.T) {
	repo, svc, rec := setup(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{10, 11}})
	require.NoError(t, err)
	repo.state.assigned[11] = 0
	o := repo.state.orders[11]
	o.Status = orders.StatusPending
	repo.state.orders[11] = o

	require.NoError(t, svc.Delete(ctx, d.ID))
	assert.Empty(t, repo.state.runs)
	assert.Equal(t, orders.StatusAssigned, repo.status(10))
	assert.Equal(t, orders.StatusPending, repo.status(11))
	assert.Equal(t, 1, rec["delete"])

	require.ErrorIs(t, svc.Delete(ctx, d.ID), ErrNotFound)
	require.ErrorIs(t, svc.Start(ctx, d.ID), ErrNotFound)

	available, err := svc.AvailableOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestListFiltersByState(t *testing.T) {
	_, svc, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{1}, OrderIDs: []int64{10}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{EmployeeIDs: []int64{2}, OrderIDs: []int64{11}})
	require.NoError(t, err)
	require.NoError(t, svc.Start(ctx, a.ID))

	inProgress := StateInProgress
	resp, err := svc.List(ctx, ListFilter{State: &inProgress, Page: shared.PageRequest{Page: 1, PerPage: 10}})
	require.NoError(t, err)
	require.Len(t, resp.Distributions, 1)
	assert.Equal(t, a.ID, resp.Distributions[0].ID)
	assert.Equal(t, 1, resp.Distributions[0].EmployeeCount)

	bogus := State("lost")
	_, err = svc.List(ctx, ListFilter{State: &bogus})
	require.ErrorIs(t, err, ErrInvalidState)
}
