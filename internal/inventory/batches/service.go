package batches

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/batchflow/batchflow/internal/shared"
)

// Config groups the stock alert settings.
type Config struct {
	LowStockThreshold int64
	ExpiryWarningDays int
	Location          *time.Location
}

// Service provides business logic for batches.
type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

// NewService creates a new service.
func NewService(repo Repository, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Create stores a new batch with qty = init_qty.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Batch, error) {
	mfg, err := parseDate("mfg_date", req.MfgDate)
	if err != nil {
		return nil, err
	}
	exp, err := parseDate("exp_date", req.ExpDate)
	if err != nil {
		return nil, err
	}
	if !exp.After(mfg) {
		return nil, ErrInvalidDates
	}
	if req.InitQty < 0 {
		return nil, ErrInvalidQuantity
	}
	cost := decimal.Zero
	if req.UnitCost != nil {
		if req.UnitCost.IsNegative() {
			return nil, ErrInvalidUnitCost
		}
		cost = req.UnitCost.Round(2)
	}

	b := Batch{
		ProductID:   req.ProductID,
		MfgDate:     mfg,
		ExpDate:     exp,
		InitQty:     req.InitQty,
		Qty:         req.InitQty,
		UnitCost:    cost,
		Description: shared.NormalizeOptional(req.Description),
	}
	if number := shared.NormalizeOptional(req.BatchNumber); number != nil {
		b.BatchNumber = strings.ToUpper(*number)
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockProduct(ctx, req.ProductID); err != nil {
			return err
		}
		if b.BatchNumber == "" {
			prefix := NumberPrefix(req.ProductID, mfg.Year())
			last, err := tx.LastSequence(ctx, prefix)
			if err != nil {
				return fmt.Errorf("last batch sequence: %w", err)
			}
			b.BatchNumber = FormatNumber(req.ProductID, mfg.Year(), last+1)
		}
		var err error
		id, err = tx.Insert(ctx, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// NumberPrefix is the shared prefix of a product's batch numbers for one year.
func NumberPrefix(productID int64, year int) string {
	return fmt.Sprintf("%d-%d-", productID, year)
}

// FormatNumber renders <PRODUCT-ID>-<YYYY>-<seq>.
func FormatNumber(productID int64, year, seq int) string {
	return fmt.Sprintf("%s%03d", NumberPrefix(productID, year), seq)
}

// Update edits a batch. init_qty may only change while nothing is assigned,
// and then resets qty.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Batch, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if req.MfgDate != nil {
			if b.MfgDate, err = parseDate("mfg_date", *req.MfgDate); err != nil {
				return err
			}
		}
		if req.ExpDate != nil {
			if b.ExpDate, err = parseDate("exp_date", *req.ExpDate); err != nil {
				return err
			}
		}
		if !b.ExpDate.After(b.MfgDate) {
			return ErrInvalidDates
		}
		if req.UnitCost != nil {
			if req.UnitCost.IsNegative() {
				return ErrInvalidUnitCost
			}
			b.UnitCost = req.UnitCost.Round(2)
		}
		if req.Description != nil {
			b.Description = shared.NormalizeOptional(req.Description)
		}
		if req.InitQty != nil && *req.InitQty != b.InitQty {
			if *req.InitQty < 0 {
				return ErrInvalidQuantity
			}
			assigned, err := tx.HasAssignments(ctx, id)
			if err != nil {
				return err
			}
			if assigned {
				return ErrInitQtyLocked
			}
			b.InitQty = *req.InitQty
			b.Qty = *req.InitQty
		}
		return tx.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a batch that no order draws from.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Lock(ctx, id); err != nil {
			return err
		}
		assigned, err := tx.HasAssignments(ctx, id)
		if err != nil {
			return err
		}
		if assigned {
			return ErrHasAssignments
		}
		return tx.Delete(ctx, id)
	})
}

// Get returns one batch.
func (s *Service) Get(ctx context.Context, id int64) (*Batch, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of batches.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResponse, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResponse{}, fmt.Errorf("list batches: %w", err)
	}
	if items == nil {
		items = []Batch{}
	}
	return ListResponse{
		Batches:    items,
		Pagination: shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total),
	}, nil
}

// LowStock lists unexpired batches whose remaining qty is under the threshold.
func (s *Service) LowStock(ctx context.Context) ([]Batch, error) {
	out, err := s.repo.LowStock(ctx, s.cfg.LowStockThreshold, s.today())
	if err != nil {
		return nil, fmt.Errorf("low stock batches: %w", err)
	}
	if out == nil {
		out = []Batch{}
	}
	return out, nil
}

// Expiring lists batches with stock that expire within days of today, including
// those already expired. days <= 0 uses the configured warning window.
func (s *Service) Expiring(ctx context.Context, days int) ([]Expiring, error) {
	if days <= 0 {
		days = s.cfg.ExpiryWarningDays
	}
	today := s.today()
	items, err := s.repo.ExpiringBy(ctx, today.AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("expiring batches: %w", err)
	}
	out := make([]Expiring, 0, len(items))
	for _, b := range items {
		out = append(out, Expiring{Batch: b, DaysLeft: daysBetween(today, b.ExpDate)})
	}
	return out, nil
}

// LowStockThreshold exposes the configured threshold.
func (s *Service) LowStockThreshold() int64 {
	return s.cfg.LowStockThreshold
}

func (s *Service) today() time.Time {
	y, m, d := s.now().In(s.cfg.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	y, m, d := to.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(from).Hours() / 24)
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, shared.NewError(shared.ErrValidation, fmt.Sprintf("%s must be YYYY-MM-DD", field))
	}
	return t, nil
}
