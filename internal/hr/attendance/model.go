// Package attendance records daily check-in and check-out punches.
package attendance

import (
	"time"

	"github.com/batchflow/batchflow/internal/shared"
)

// DateLayout is the wire format of work dates.
const DateLayout = "2006-01-02"

// Event names the punch that was recorded.
type Event string

const (
	EventCheckIn  Event = "check_in"
	EventCheckOut Event = "check_out"
)

// Record is one employee's attendance for one business day.
type Record struct {
	ID           int64      `json:"id"`
	EmployeeID   int64      `json:"employee_id"`
	EmployeeName string     `json:"employee_name,omitempty"`
	WorkDate     time.Time  `json:"-"`
	Date         string     `json:"work_date"`
	CheckIn      time.Time  `json:"check_in"`
	CheckOut     *time.Time `json:"check_out,omitempty"`
	IsLate       bool       `json:"is_late"`
}

// Punch is the result of a punch call.
type Punch struct {
	Event  Event  `json:"event"`
	Record Record `json:"record"`
}

var (
	ErrEmployeeNotFound  = shared.NewError(shared.ErrNotFound, "employee not found")
	ErrAlreadyCheckedOut = shared.NewError(shared.ErrConflict, "employee already checked out today")
	ErrInvalidDate       = shared.NewError(shared.ErrValidation, "date must be YYYY-MM-DD")
)
