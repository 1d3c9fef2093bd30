package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchflow/batchflow/internal/shared"
)

type recordingRemover struct {
	deleted []int64
	err     error
}

func (r *recordingRemover) DeleteOrder(ctx context.Context, orderID int64) error {
	r.deleted = append(r.deleted, orderID)
	return r.err
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, ist)
	svc.now = func() time.Time { return time.Date(2024, 3, 11, 10, 0, 0, 0, ist) }
	return svc
}

func TestServiceCreateDefaultsFromProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	notes := "  deliver before noon "

	order, err := svc.Create(context.Background(), CreateRequest{
		ClientID:     1,
		ProductID:    1,
		Qty:          50,
		RequiredDate: "2024-03-15",
		Notes:        &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.True(t, order.UnitPrice.Equal(decimal.NewFromInt(20)))
	assert.True(t, order.TotalPrice.IsZero())
	assert.Equal(t, "2024-03-11", order.OrderDate.Format(DateLayout))
	assert.Equal(t, "Mango Pickle", order.ProductName)
	require.NotNil(t, order.Notes)
	assert.Equal(t, "deliver before noon", *order.Notes)
}

func TestServiceCreateValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{ClientID: 1, ProductID: 1, Qty: 0, RequiredDate: "2024-03-15"})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Create(ctx, CreateRequest{ClientID: 9, ProductID: 1, Qty: 5, RequiredDate: "2024-03-15"})
	require.ErrorIs(t, err, ErrClientNotFound)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateRequest{ClientID: 1, ProductID: 9, Qty: 5, RequiredDate: "2024-03-15"})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.Create(ctx, CreateRequest{ClientID: 1, ProductID: 1, Qty: 5, RequiredDate: "15/03/2024"})
	require.ErrorIs(t, err, shared.ErrValidation)

	negative := decimal.NewFromInt(-1)
	_, err = svc.Create(ctx, CreateRequest{ClientID: 1, ProductID: 1, Qty: 5, UnitPrice: &negative, RequiredDate: "2024-03-15"})
	require.ErrorIs(t, err, ErrInvalidUnitPrice)

	assert.Empty(t, repo.orders)
}

func TestServiceUpdateStatus(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[1] = &Order{ID: 1, ClientID: 1, ProductID: 1, Qty: 10, Status: StatusPending}
	svc := newTestService(repo)
	ctx := context.Background()

	bogus := "completed"
	_, err := svc.Update(ctx, 1, UpdateRequest{Status: &bogus})
	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, StatusPending, repo.orders[1].Status)

	delivered := string(StatusDelivered)
	order, err := svc.Update(ctx, 1, UpdateRequest{Status: &delivered})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, order.Status)
}

func TestServiceUpdateStatusRefusedOnDistribution(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[1] = &Order{ID: 1, ClientID: 1, ProductID: 1, Qty: 10, Status: StatusAssigned}
	repo.onRun[1] = true
	svc := newTestService(repo)
	ctx := context.Background()

	pending := string(StatusPending)
	_, err := svc.Update(ctx, 1, UpdateRequest{Status: &pending})
	require.ErrorIs(t, err, ErrStatusOnRun)
	require.ErrorIs(t, err, shared.ErrRuleViolation)
	assert.Equal(t, StatusAssigned, repo.orders[1].Status)

	assigned := string(StatusAssigned)
	notes := "gate 3"
	order, err := svc.Update(ctx, 1, UpdateRequest{Status: &assigned, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, order.Status)
}

func TestServiceUpdateQtyLockedOnceAssigned(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[1] = &Order{ID: 1, ClientID: 1, ProductID: 1, Qty: 10, Status: StatusAssigned}
	repo.assigned[1] = 4
	svc := newTestService(repo)

	qty := int64(12)
	_, err := svc.Update(context.Background(), 1, UpdateRequest{Qty: &qty})
	require.ErrorIs(t, err, ErrQtyLocked)
	assert.Equal(t, int64(10), repo.orders[1].Qty)

	same := int64(10)
	_, err = svc.Update(context.Background(), 1, UpdateRequest{Qty: &same})
	require.NoError(t, err)

	delete(repo.assigned, 1)
	order, err := svc.Update(context.Background(), 1, UpdateRequest{Qty: &qty})
	require.NoError(t, err)
	assert.Equal(t, int64(12), order.Qty)
}

func TestServiceUpdateUnitPriceRecalculatesTotal(t *testing.T) {
	repo := newMemoryRepo()
	repo.orders[1] = &Order{
		ID: 1, ClientID: 1, ProductID: 1, Qty: 50,
		UnitPrice:  decimal.NewFromInt(20),
		TotalPrice: decimal.NewFromInt(600),
		Status:     StatusAssigned,
	}
	repo.assigned[1] = 30
	svc := newTestService(repo)

	price := decimal.RequireFromString("12.505")
	order, err := svc.Update(context.Background(), 1, UpdateRequest{UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "12.51", order.UnitPrice.StringFixed(2))
	assert.Equal(t, "375.30", order.TotalPrice.StringFixed(2))
}

func TestServiceUpdateMissingOrder(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	notes := "x"
	_, err := svc.Update(context.Background(), 42, UpdateRequest{Notes: &notes})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceDeleteDelegatesToRemover(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	require.ErrorIs(t, svc.Delete(context.Background(), 1), ErrDeleteNotSupported)

	remover := &recordingRemover{}
	svc.SetRemover(remover)
	require.NoError(t, svc.Delete(context.Background(), 3))
	assert.Equal(t, []int64{3}, remover.deleted)

	remover.err = errors.New("boom")
	require.Error(t, svc.Delete(context.Background(), 4))
}

func TestServiceListRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	status := Status("lost")
	_, err := svc.List(context.Background(), ListFilter{Status: &status})
	require.ErrorIs(t, err, ErrInvalidStatus)

	resp, err := svc.List(context.Background(), ListFilter{Page: shared.PageRequest{Page: 1, PerPage: 50}})
	require.NoError(t, err)
	assert.NotNil(t, resp.Orders)
	assert.Equal(t, 0, resp.Pagination.Total)
}

func TestServiceProductionRequirementsNeverNil(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	buckets, err := svc.ProductionRequirements(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}
