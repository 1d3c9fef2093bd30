package distribution

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerLifecycle(t *testing.T) {
	_, svc, _ := setup(t)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	router := chi.NewRouter()
	router.Route("/distribution", h.MountRoutes)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
		return rec
	}

	rec := do(http.MethodPost, "/distribution", `{"notes":"north route","employeeIds":[],"orderIds":[10]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/distribution", `{"notes":"north route","employeeIds":[1],"orderIds":[10,11]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "north route", *created.Notes)

	rec = do(http.MethodPost, "/distribution/1/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"distribution started"}`, rec.Body.String())

	rec = do(http.MethodPost, "/distribution/1/start", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already started")

	rec = do(http.MethodDelete, "/distribution/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/distribution/7/end", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodGet, "/distribution/available/employees", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var employees []Employee
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &employees))
	require.Len(t, employees, 1)
	assert.Equal(t, "Meena", employees[0].Name)

	rec = do(http.MethodPost, "/distribution", `{"employeeIds":[2],"orderIds":[10]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
