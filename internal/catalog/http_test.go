package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ProductAPI/internal/catalog"
)

const apiKey = "my-secret-api-key"

func newTS(t *testing.T, store catalog.Store, log *zap.Logger) *httptest.Server {
	t.Helper()

	if log == nil {
		log = zap.NewNop()
	}
	s := &catalog.Server{Store: store, Log: log, APIKey: apiKey}
	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:     log,
		Service: "productapi",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func seededTS(t *testing.T) *httptest.Server {
	t.Helper()
	return newTS(t, catalog.NewMemStore(catalog.SeedProducts()...), nil)
}

func do(t *testing.T, method, url, key string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("x-api-key", key)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

type messageBody struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func TestIndex_IsPublic(t *testing.T) {
	ts := seededTS(t)

	resp, raw := do(t, http.MethodGet, ts.URL+"/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Equal(t, "Welcome to the Product API! Go to /api/products to see all products.", string(raw))
}

func TestProtected(t *testing.T) {
	ts := seededTS(t)

	resp, raw := do(t, http.MethodGet, ts.URL+"/protected", apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"This is a protected route!"}`, string(raw))

	resp, _ = do(t, http.MethodGet, ts.URL+"/protected?api_key="+apiKey, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// spyStore fails the test on any call: unauthenticated requests must be
// rejected before the store is consulted.
type spyStore struct {
	mock.Mock
}

func (s *spyStore) Ping(ctx context.Context) error { return s.Called().Error(0) }

func (s *spyStore) List(ctx context.Context, q catalog.ListQuery) (catalog.ListResult, error) {
	args := s.Called(q)
	return args.Get(0).(catalog.ListResult), args.Error(1)
}

func (s *spyStore) Get(ctx context.Context, id string) (catalog.Product, error) {
	args := s.Called(id)
	return args.Get(0).(catalog.Product), args.Error(1)
}

func (s *spyStore) Create(ctx context.Context, np catalog.NewProduct) (catalog.Product, error) {
	args := s.Called(np)
	return args.Get(0).(catalog.Product), args.Error(1)
}

func (s *spyStore) Delete(ctx context.Context, id string) error { return s.Called(id).Error(0) }

func (s *spyStore) Search(ctx context.Context, term string) ([]catalog.Product, error) {
	args := s.Called(term)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (s *spyStore) StatsByCategory(ctx context.Context) (map[string]int, error) {
	args := s.Called()
	return args.Get(0).(map[string]int), args.Error(1)
}

func (s *spyStore) Count(ctx context.Context) (int, error) {
	args := s.Called()
	return args.Int(0), args.Error(1)
}

func TestProtectedRoutes_RejectWithoutValidKey(t *testing.T) {
	store := new(spyStore)
	ts := newTS(t, store, nil)

	routes := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/protected", nil},
		{http.MethodGet, "/api/products", nil},
		{http.MethodGet, "/api/products/search?q=lap", nil},
		{http.MethodGet, "/api/products/stats", nil},
		{http.MethodGet, "/api/products/1", nil},
		{http.MethodPost, "/api/products", map[string]any{"name": "n", "price": 1, "category": "c"}},
		{http.MethodDelete, "/api/products/1", nil},
	}

	for _, rt := range routes {
		for _, key := range []string{"", "wrong-key"} {
			resp, raw := do(t, rt.method, ts.URL+rt.path, key, rt.body)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s key=%q", rt.method, rt.path, key)

			var body map[string]string
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, "Unauthorized", body["error"])
		}
	}

	store.AssertExpectations(t)
	assert.Empty(t, store.Calls)
}

func TestListProducts(t *testing.T) {
	ts := seededTS(t)

	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
		wantTotal int
		wantIDs   []string
	}{
		{"all", "", 1, 7, 7, []string{"1", "2", "3", "4", "5", "6", "7"}},
		{"page 2 limit 2", "?page=2&limit=2", 2, 2, 7, []string{"3", "4"}},
		{"category filter counts before paging", "?category=Electronics&limit=3", 1, 3, 4, []string{"1", "2", "5"}},
		{"out of range page", "?page=5&limit=3", 5, 3, 7, []string{}},
		{"malformed paging falls back", "?page=abc&limit=-4", 1, 7, 7, []string{"1", "2", "3", "4", "5", "6", "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := do(t, http.MethodGet, ts.URL+"/api/products"+tt.query, apiKey, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

			var got catalog.ListResult
			require.NoError(t, json.Unmarshal(raw, &got))

			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantTotal, got.TotalProducts)

			gotIDs := make([]string, 0, len(got.Products))
			for _, p := range got.Products {
				gotIDs = append(gotIDs, p.ID)
			}
			assert.Equal(t, tt.wantIDs, gotIDs)
		})
	}
}

func TestGetProduct(t *testing.T) {
	ts := seededTS(t)

	resp, raw := do(t, http.MethodGet, ts.URL+"/api/products/4", apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"4","name":"Desk Chair","description":"Ergonomic office chair","price":250,"category":"furniture","inStock":true}`, string(raw))

	resp, raw = do(t, http.MethodGet, ts.URL+"/api/products/999", apiKey, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body messageBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "Product with ID 999 not found.", body.Message)
}

func TestCreateProduct_RoundTrip(t *testing.T) {
	ts := seededTS(t)

	payload := map[string]any{"name": "Desk Lamp", "price": 35.5, "category": "furniture"}

	resp, raw := do(t, http.MethodPost, ts.URL+"/api/products", apiKey, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var created catalog.Product
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Desk Lamp", created.Name)
	assert.Equal(t, "", created.Description)
	assert.Equal(t, 35.5, created.Price)
	assert.True(t, created.InStock)

	resp, raw = do(t, http.MethodPost, ts.URL+"/api/products", apiKey, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var second catalog.Product
	require.NoError(t, json.Unmarshal(raw, &second))
	assert.NotEqual(t, created.ID, second.ID)

	resp, raw = do(t, http.MethodGet, ts.URL+"/api/products/"+created.ID, apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched catalog.Product
	require.NoError(t, json.Unmarshal(raw, &fetched))
	assert.Equal(t, created, fetched)
}

func TestCreateProduct_Invalid(t *testing.T) {
	ts := seededTS(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"zero price", map[string]any{"name": "n", "price": 0, "category": "c"}, "price"},
		{"negative price", map[string]any{"name": "n", "price": -1, "category": "c"}, "price"},
		{"missing name", map[string]any{"price": 1, "category": "c"}, "name"},
		{"missing category", map[string]any{"name": "n", "price": 1}, "category"},
		{"bad inStock", map[string]any{"name": "n", "price": 1, "category": "c", "inStock": "yes"}, "inStock"},
		{"malformed json", `{"name":`, "body"},
		{"array body", `[]`, "body"},
		{"trailing data", `{"name":"n","price":1,"category":"c"} {}`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := do(t, http.MethodPost, ts.URL+"/api/products", apiKey, tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

			var body messageBody
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.NotEmpty(t, body.Message)
			assert.Equal(t, tt.field, body.Details["field"])
			if tt.field != "body" {
				assert.Contains(t, body.Message, tt.field)
			}
		})
	}
}

func TestDeleteProduct(t *testing.T) {
	ts := seededTS(t)

	resp, raw := do(t, http.MethodDelete, ts.URL+"/api/products/3", apiKey, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, raw)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/products/3", apiKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/api/products/3", apiKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = do(t, http.MethodGet, ts.URL+"/api/products", apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got catalog.ListResult
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 6, got.TotalProducts)
}

func TestSearchProducts(t *testing.T) {
	ts := seededTS(t)

	resp, raw := do(t, http.MethodGet, ts.URL+"/api/products/search?q=lap", apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []catalog.Product
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Laptop", got[0].Name)

	resp, raw = do(t, http.MethodGet, ts.URL+"/api/products/search?q=zzz", apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))

	for _, q := range []string{"", "?q=", "?q=%20%20"} {
		resp, raw = do(t, http.MethodGet, ts.URL+"/api/products/search"+q, apiKey, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, q)

		var body messageBody
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "Search query (q) parameter is required.", body.Message)
	}
}

func TestStats(t *testing.T) {
	ts := seededTS(t)

	resp, raw := do(t, http.MethodGet, ts.URL+"/api/products/stats", apiKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"electronics":4,"kitchen":2,"furniture":1}`, string(raw))
}

func TestUnexpectedStoreError_IsGeneric500(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	store := new(spyStore)
	store.On("StatsByCategory").Return(map[string]int(nil), errors.New("disk on fire"))

	ts := newTS(t, store, zap.New(core))

	resp, raw := do(t, http.MethodGet, ts.URL+"/api/products/stats", apiKey, nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body messageBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "Internal Server Error", body.Message)
	assert.NotContains(t, string(raw), "disk on fire")

	require.Equal(t, 1, logs.FilterMessage("unhandled request error").Len())
	store.AssertExpectations(t)
}

func TestReadyz(t *testing.T) {
	store := new(spyStore)
	store.On("Ping").Return(nil).Once()
	store.On("Ping").Return(errors.New("down")).Once()

	ts := newTS(t, store, nil)

	resp, _ := do(t, http.MethodGet, ts.URL+"/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	store.AssertExpectations(t)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := &catalog.Server{Store: catalog.NewMemStore(catalog.SeedProducts()...), APIKey: apiKey}
	ts := httptest.NewServer(catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            zap.NewNop(),
		Service:        "productapi",
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "metrics-token",
	}))
	t.Cleanup(ts.Close)

	do(t, http.MethodGet, ts.URL+"/api/products/1", apiKey, nil)

	resp, _ := do(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer metrics-token")
	mresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, mresp.StatusCode)
	assert.Contains(t, string(raw), `products_in_store{service="productapi"} 7`)
	assert.Contains(t, string(raw), `path="/api/products/{id}"`)
}
