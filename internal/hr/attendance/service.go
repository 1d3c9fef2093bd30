package attendance

import (
	"context"
	"time"
)

// Service implements the punch state machine: absent, checked in, checked out.
type Service struct {
	repo      Repository
	loc       *time.Location
	lateAfter time.Duration
	now       func() time.Time
}

// NewService creates a service. lateAfter is the grace period past local midnight.
func NewService(repo Repository, loc *time.Location, lateAfter time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, lateAfter: lateAfter, now: time.Now}
}

// Punch records the next event for the employee on the current business day.
func (s *Service) Punch(ctx context.Context, employeeID int64) (*Punch, error) {
	now := s.now().In(s.loc)
	day := civilDate(now)

	var out *Punch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockEmployee(ctx, employeeID); err != nil {
			return err
		}
		existing, err := tx.Find(ctx, employeeID, day)
		if err != nil {
			return err
		}
		switch {
		case existing == nil:
			rec, err := tx.Insert(ctx, Record{
				EmployeeID: employeeID,
				WorkDate:   day,
				CheckIn:    now,
				IsLate:     s.isLate(now),
			})
			if err != nil {
				return err
			}
			out = &Punch{Event: EventCheckIn, Record: *rec}
		case existing.CheckOut == nil:
			rec, err := tx.SetCheckOut(ctx, existing.ID, now)
			if err != nil {
				return err
			}
			out = &Punch{Event: EventCheckOut, Record: *rec}
		default:
			return ErrAlreadyCheckedOut
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByDate returns the records for a business day; an empty date means today.
func (s *Service) ListByDate(ctx context.Context, date string) ([]Record, error) {
	day := civilDate(s.now().In(s.loc))
	if date != "" {
		parsed, err := time.Parse(DateLayout, date)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = parsed
	}
	out, err := s.repo.ListByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func (s *Service) isLate(local time.Time) bool {
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return local.Sub(midnight) > s.lateAfter
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
