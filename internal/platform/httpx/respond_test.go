package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchflow/batchflow/internal/shared"
)

type detailedErr struct{}

func (detailedErr) Error() string { return "insufficient quantity" }
func (detailedErr) Is(target error) bool {
	return target == shared.ErrRuleViolation
}
func (detailedErr) Details() any { return map[string]int{"available": 4} }

func TestRespondErrorMapsCategories(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("batch %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("bad: %w", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("illegal: %w", shared.ErrRuleViolation), http.StatusBadRequest},
		{fmt.Errorf("client has orders: %w", shared.ErrConflict), http.StatusConflict},
		{shared.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		status := RespondError(rr, tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.status, rr.Code)
	}
}

func TestRespondErrorIncludesDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("assign: %w", detailedErr{}))

	var body struct {
		Error   string         `json:"error"`
		Details map[string]int `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "assign: insufficient quantity", body.Error)
	assert.Equal(t, 4, body.Details["available"])
}

func TestRespondErrorHidesInternalMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: password authentication failed"))
	assert.NotContains(t, rr.Body.String(), "password")
	assert.NotContains(t, rr.Body.String(), "details")
}

type sample struct {
	BatchID int64  `json:"fk_batch_order_batch" validate:"required,gt=0"`
	Qty     int64  `json:"qty" validate:"required,gt=0"`
	Note    string `json:"note" validate:"omitempty,max=5"`
}

func TestDecodeJSONValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":0,"note":"too long"}`))
	var s sample
	err := DecodeJSON(req, &s)
	require.ErrorIs(t, err, shared.ErrValidation)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "fk_batch_order_batch")
	assert.Contains(t, ve.Fields, "qty")
	assert.Contains(t, ve.Fields, "note")
}

func TestDecodeJSONMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":`))
	var s sample
	require.ErrorIs(t, DecodeJSON(req, &s), shared.ErrValidation)
}

func TestIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	req := httptest.NewRequest(http.MethodGet, "/x/42", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	id, err := IDParam(req, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = IDParam(req, "missing")
	require.ErrorIs(t, err, shared.ErrValidation)
}
