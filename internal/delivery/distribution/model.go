// Package distribution runs delivery trips that carry assigned orders and the
// employees crewing them.
package distribution

import "time"

// State is derived from the run's timestamps; it is never stored.
type State string

const (
	StateCreated    State = "created"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	return s == StateCreated || s == StateInProgress || s == StateCompleted
}

// Distribution is one delivery run.
type Distribution struct {
	ID            int64      `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	DepartureTime *time.Time `json:"departure_time"`
	ArrivalTime   *time.Time `json:"arrival_time"`
	Notes         *string    `json:"notes,omitempty"`
}

// State derives the run's state.
func (d Distribution) State() State {
	switch {
	case d.ArrivalTime != nil:
		return StateCompleted
	case d.DepartureTime != nil:
		return StateInProgress
	default:
		return StateCreated
	}
}

// checkStart allows Created only.
func (d Distribution) checkStart() error {
	switch d.State() {
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateInProgress:
		return ErrAlreadyStarted
	}
	return nil
}

// checkEnd and checkCancel allow InProgress only.
func (d Distribution) checkEnd() error {
	switch d.State() {
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateCreated:
		return ErrNotStarted
	}
	return nil
}

func (d Distribution) checkCancel() error {
	return d.checkEnd()
}

// checkDelete allows Created only; a completed run also counts as started.
func (d Distribution) checkDelete() error {
	if d.State() != StateCreated {
		return ErrAlreadyStarted
	}
	return nil
}

// Employee is a crew member as shown on a run.
type Employee struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Role  string  `json:"role"`
	Phone *string `json:"phone,omitempty"`
}

// Order is a shipment as shown on a run.
type Order struct {
	ID           int64     `json:"id"`
	ClientName   string    `json:"client_name"`
	ProductName  string    `json:"product_name"`
	Qty          int64     `json:"qty"`
	Status       string    `json:"status"`
	RequiredDate time.Time `json:"required_date"`
}

// Summary is a list row.
type Summary struct {
	Distribution
	State         State `json:"state"`
	EmployeeCount int   `json:"employee_count"`
	OrderCount    int   `json:"order_count"`
}

// Detail is a run with its crew and shipments.
type Detail struct {
	Distribution
	State     State      `json:"state"`
	Employees []Employee `json:"employees"`
	Orders    []Order    `json:"orders"`
}
