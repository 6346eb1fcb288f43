package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"library-backend/internal/domains/lease/model"
	"library-backend/internal/domains/lease/repository"
	"library-backend/internal/domains/lease/service"
	"library-backend/internal/shared/middleware"
)

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		ID         int64      `json:"id"`
		HolderID   string     `json:"holder_id"`
		ReturnedAt *time.Time `json:"returned_at"`
		Status     string     `json:"status"`
		Outcome    string     `json:"outcome"`
		Available  bool       `json:"available"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func setupRouter(t *testing.T) (*gin.Engine, *repository.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	store.AddBook(1, 2)
	h := NewLeaseHandler(
		service.NewTransitionEngine(store, store, service.WithRetry(service.WithBaseDelay(0))),
		service.NewResolver(store, store),
	)

	r := gin.New()
	books := r.Group("/api/v1/books")
	books.PUT("/:id/leases", middleware.RequireHolder(), h.Toggle)
	books.GET("/:id/leases", h.History)
	books.GET("/:id/leases/export", h.Export)
	books.GET("/:id/availability", h.Availability)
	return r, store
}

func do(r *gin.Engine, method, path, holder, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if holder != "" {
		req.Header.Set("User-Id", holder)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = jsoniter.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestToggle_LeaseThenReturn(t *testing.T) {
	r, _ := setupRouter(t)

	w, env := do(r, http.MethodPut, "/api/v1/books/1/leases", "u1", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "leased", env.Data.Outcome)
	assert.Equal(t, "leased", env.Data.Status)
	assert.Equal(t, "u1", env.Data.HolderID)
	assert.Nil(t, env.Data.ReturnedAt)

	w, env = do(r, http.MethodPut, "/api/v1/books/1/leases", "u1", `{"returned_at":"2024-01-02T03:04:05Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "returned", env.Data.Outcome)
	require.NotNil(t, env.Data.ReturnedAt)
	assert.True(t, env.Data.ReturnedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestToggle_Conflict(t *testing.T) {
	r, _ := setupRouter(t)

	w, _ := do(r, http.MethodPut, "/api/v1/books/1/leases", "u1", "")
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := do(r, http.MethodPut, "/api/v1/books/1/leases", "u2", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "LEASED_BY_ANOTHER_HOLDER", env.Error.Code)
}

func TestToggle_HolderHeaders(t *testing.T) {
	r, _ := setupRouter(t)

	w, _ := do(r, http.MethodPut, "/api/v1/books/1/leases", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/books/1/leases", nil)
	req.Header.Set("X-User-Id", "fallback")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestToggle_Errors(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown book", "/api/v1/books/99/leases", "", http.StatusNotFound, "BOOK_NOT_FOUND"},
		{"bad id", "/api/v1/books/abc/leases", "", http.StatusBadRequest, "INVALID_BOOK_ID"},
		{"bad timestamp", "/api/v1/books/1/leases", `{"returned_at":"yesterday"}`, http.StatusBadRequest, "INVALID_RETURNED_AT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(r, http.MethodPut, tt.path, "u1", tt.body)
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestAvailabilityAndHistory(t *testing.T) {
	r, _ := setupRouter(t)

	w, env := do(r, http.MethodGet, "/api/v1/books/2/availability", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Data.Available)

	do(r, http.MethodPut, "/api/v1/books/2/leases", "u1", "")
	do(r, http.MethodPut, "/api/v1/books/2/leases", "u1", "")
	do(r, http.MethodPut, "/api/v1/books/2/leases", "u2", "")

	w, env = do(r, http.MethodGet, "/api/v1/books/2/availability", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.Data.Available)

	w, _ = do(r, http.MethodGet, "/api/v1/books/2/leases", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var history struct {
		Data []model.LeaseResponse `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Data, 2)
	assert.Equal(t, 2, history.Meta.Total)
	assert.Equal(t, model.StatusReturned, history.Data[0].Status)
	assert.Equal(t, "u2", history.Data[1].HolderID)

	w, _ = do(r, http.MethodGet, "/api/v1/books/99/leases", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExport(t *testing.T) {
	r, store := setupRouter(t)
	_, err := store.Append(context.Background(), 1, "u1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	w, _ := do(r, http.MethodGet, "/api/v1/books/1/leases/export", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "book-1-leases.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Holder", rows[0][2])
	assert.Equal(t, "u1", rows[1][2])
	assert.Equal(t, "2024-02-01T00:00:00Z", rows[1][3])
	assert.Equal(t, "leased", rows[1][5])
}
