package products

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchflow/batchflow/internal/shared"
)

type memoryRepo struct {
	products   map[int64]Product
	categories map[int64]Category
	usage      map[int64]Usage
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:   map[int64]Product{},
		categories: map[int64]Category{1: {ID: 1, Name: "Pickles"}},
		usage:      map[int64]Usage{},
		nextID:     1,
	}
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.CategoryID != nil {
		if c, ok := m.categories[*p.CategoryID]; ok {
			name := c.Name
			p.CategoryName = &name
		}
	}
	return &p, nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Product, int, error) {
	var out []Product
	for id := int64(1); id < m.nextID; id++ {
		p, ok := m.products[id]
		if !ok {
			continue
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, p Product) (int64, error) {
	if p.CategoryID != nil {
		if _, ok := m.categories[*p.CategoryID]; !ok {
			return 0, ErrCategoryNotFound
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return p.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memoryRepo) DeleteUnused(_ context.Context, id int64) (Usage, error) {
	if _, ok := m.products[id]; !ok {
		return Usage{}, ErrNotFound
	}
	u := m.usage[id]
	if !u.InUse() {
		delete(m.products, id)
	}
	return u, nil
}

func (m *memoryRepo) Categories(context.Context) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryRepo) CreateCategory(_ context.Context, c Category) (int64, error) {
	for _, existing := range m.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return 0, ErrDuplicateCategory
		}
	}
	c.ID = int64(len(m.categories) + 1)
	m.categories[c.ID] = c
	return c.ID, nil
}

func TestCreateRoundsPriceAndResolvesCategory(t *testing.T) {
	svc := NewService(newMemoryRepo())
	cat := int64(1)

	p, err := svc.Create(context.Background(), CreateProductRequest{
		Name:       " Mango Pickle ",
		CategoryID: &cat,
		UnitPrice:  decimal.RequireFromString("20.005"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Mango Pickle", p.Name)
	assert.Equal(t, "20.01", p.UnitPrice.StringFixed(2))
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Pickles", *p.CategoryName)

	missing := int64(9)
	_, err = svc.Create(context.Background(), CreateProductRequest{Name: "Lime", CategoryID: &missing})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = svc.Create(context.Background(), CreateProductRequest{Name: "Lime", UnitPrice: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestUpdateKeepsUnsetFields(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	p, err := svc.Create(ctx, CreateProductRequest{Name: "Lime Pickle", UnitPrice: decimal.NewFromInt(15)})
	require.NoError(t, err)

	price := decimal.RequireFromString("17.50")
	updated, err := svc.Update(ctx, p.ID, UpdateProductRequest{UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "Lime Pickle", updated.Name)
	assert.True(t, updated.UnitPrice.Equal(price))

	blank := "  "
	_, err = svc.Update(ctx, p.ID, UpdateProductRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrNameEmpty)
}

func TestDeleteBlockedWhileReferenced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	p, err := svc.Create(ctx, CreateProductRequest{Name: "Mango Pickle", UnitPrice: decimal.NewFromInt(20)})
	require.NoError(t, err)

	repo.usage[p.ID] = Usage{Batches: 1}
	err = svc.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, ErrInUse)
	assert.ErrorIs(t, err, shared.ErrConflict)

	repo.usage[p.ID] = Usage{Orders: 3}
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrInUse)

	repo.usage[p.ID] = Usage{}
	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
}

func TestCategoryEndpoints(t *testing.T) {
	svc := NewService(newMemoryRepo())
	r := chi.NewRouter()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r.Route("/categories", h.MountCategoryRoutes)
	r.Route("/products", h.MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"pickles"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"Chutneys"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Mint Chutney","unit_price":"12.5"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unit_price":"12.5"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/77", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
