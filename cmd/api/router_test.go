package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/config"
	"library-backend/pkg/container"
)

func memoryRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App: config.AppConfig{Environment: "test", Version: "test"},
		Lease: config.LeaseConfig{
			StoreDriver:      "memory",
			MemoryBooks:      3,
			RetryMaxAttempts: 3,
			RetryBaseDelay:   time.Millisecond,
			RetryJitter:      0.3,
		},
	}

	c, err := container.NewContainer(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Cleanup)
	return SetupRouter(c)
}

func call(r *gin.Engine, method, path, holder, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if holder != "" {
		req.Header.Set("User-Id", holder)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLeaseFlow_MemoryStore(t *testing.T) {
	r := memoryRouter(t)

	w := call(r, http.MethodPut, "/api/v1/books/1/leases", "alice", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(r, http.MethodPut, "/api/v1/books/1/leases", "bob", "")
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = call(r, http.MethodGet, "/api/v1/books/1/availability", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":false`)

	w = call(r, http.MethodPut, "/api/v1/books/1/leases", "alice", `{"returned_at":"2030-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodGet, "/api/v1/books/1/leases", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "alice", body.Data[0]["holder_id"])
}

func TestLeaseFlow_Errors(t *testing.T) {
	r := memoryRouter(t)

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPut, "/api/v1/books/1/leases", "", "").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPut, "/api/v1/books/99/leases", "alice", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPut, "/api/v1/books/abc/leases", "alice", "").Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/api/v1/books/99/availability", "", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := memoryRouter(t)

	w := call(r, http.MethodGet, "/api/v1/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"lease_store":"memory"`)

	w = call(r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCatalogRoutesAbsentWithoutDatabase(t *testing.T) {
	r := memoryRouter(t)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/api/v1/authors", "", "").Code)
}
