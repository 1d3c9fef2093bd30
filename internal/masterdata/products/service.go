package products

import (
	"context"

	"github.com/batchflow/batchflow/internal/shared"
)

// Service implements catalogue operations.
type Service struct {
	repo Repository
}

// NewService creates a new service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	name := shared.NormalizeText(req.Name)
	if name == "" {
		return nil, ErrNameEmpty
	}
	if req.UnitPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	id, err := s.repo.Create(ctx, Product{
		Name:        name,
		CategoryID:  req.CategoryID,
		UnitPrice:   req.UnitPrice.Round(2),
		Description: shared.NormalizeOptional(req.Description),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := shared.NormalizeText(*req.Name)
		if name == "" {
			return nil, ErrNameEmpty
		}
		p.Name = name
	}
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, ErrInvalidPrice
		}
		p.UnitPrice = req.UnitPrice.Round(2)
	}
	if req.Description != nil {
		p.Description = shared.NormalizeOptional(req.Description)
	}
	if err := s.repo.Update(ctx, *p); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a product nothing references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	usage, err := s.repo.DeleteUnused(ctx, id)
	if err != nil {
		return err
	}
	if usage.InUse() {
		return ErrInUse
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Product{}
	}
	return &ListResponse{
		Products:   items,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	}, nil
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	out, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Category{}
	}
	return out, nil
}

func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	c := Category{
		Name:        shared.NormalizeText(req.Name),
		Description: shared.NormalizeOptional(req.Description),
	}
	if c.Name == "" {
		return nil, ErrNameEmpty
	}
	id, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id
	return &c, nil
}
