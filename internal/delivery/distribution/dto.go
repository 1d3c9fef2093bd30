package distribution

import "github.com/batchflow/batchflow/internal/shared"

// CreateRequest is the body of POST /distribution.
type CreateRequest struct {
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	EmployeeIDs []int64 `json:"employeeIds" validate:"dive,gt=0"`
	OrderIDs    []int64 `json:"orderIds" validate:"dive,gt=0"`
}

// ListFilter narrows GET /distribution.
type ListFilter struct {
	State *State
	Page  shared.PageRequest
}

// ListResponse is a page of runs.
type ListResponse struct {
	Distributions []Summary         `json:"distributions"`
	Pagination    shared.Pagination `json:"pagination"`
}
