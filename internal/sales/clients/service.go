package clients

import (
	"context"
	"fmt"

	"github.com/batchflow/batchflow/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateClientRequest) (*Client, error) {
	name := shared.NormalizeText(req.Name)
	if name == "" {
		return nil, ErrNameEmpty
	}
	client := Client{
		Name:    name,
		Phone:   shared.NormalizeOptional(req.Phone),
		Email:   shared.NormalizeOptional(req.Email),
		Address: shared.NormalizeOptional(req.Address),
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, client)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateClientRequest) (*Client, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		name := shared.NormalizeText(*req.Name)
		if name == "" {
			return nil, ErrNameEmpty
		}
		updates["name"] = name
	}
	// Blank optional fields clear the stored value.
	if req.Phone != nil {
		updates["phone"] = shared.NormalizeOptional(req.Phone)
	}
	if req.Email != nil {
		updates["email"] = shared.NormalizeOptional(req.Email)
	}
	if req.Address != nil {
		updates["address"] = shared.NormalizeOptional(req.Address)
	}

	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a client that has never placed an order.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		n, err := repo.CountOrders(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrHasOrders
		}
		return repo.Delete(ctx, id)
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListClientsRequest) (*ListClientsResponse, error) {
	clients, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	if clients == nil {
		clients = []Client{}
	}
	return &ListClientsResponse{
		Clients:    clients,
		Pagination: shared.NewPagination(req.Page.Page, req.Page.PerPage, total),
	}, nil
}
