package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

type plainGetter struct{}

func (plainGetter) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

// memOrderRepo collects created orders for assertions.
type memOrderRepo struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, *order)
	return nil
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func fakeCatalog(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products":
			_, _ = w.Write([]byte(`[{"id":1,"title":"Backpack","price":109.95},{"id":2,"title":"T-Shirt","price":22.95}]`))
		case "/products/1":
			_, _ = w.Write([]byte(`{"id":1,"title":"Backpack","price":109.95}`))
		case "/products/2":
			_, _ = w.Write([]byte(`{"id":2,"title":"T-Shirt","price":22.95}`))
		case "/products/categories":
			_, _ = w.Write([]byte(`["electronics"]`))
		default:
			_, _ = w.Write([]byte("null"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) (*httptest.Server, *memOrderRepo) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := memory.NewKVStore()
	stores := cart.NewStores(kv, log)

	tokens := session.NewTokenManager("test-secret", time.Hour)
	sessions := session.NewManager(kv, tokens, log, time.Hour)

	catalogClient := catalog.NewClient(plainGetter{}, fakeCatalog(t).URL)

	orders := &memOrderRepo{}
	checkoutSvc := checkout.NewService(orders, checkout.NewMockProvider(), event.NoopPublisher{}, log)

	router := NewRouter(RouterConfig{
		Products: NewProductHandler(catalogClient, log),
		Cart:     NewCartHandler(stores, catalogClient, event.NoopPublisher{}, log),
		Auth:     NewAuthHandler(sessions, stores, time.Hour, log),
		Checkout: NewCheckoutHandler(checkoutSvc, stores, log),
		Sessions: sessions,
		Health:   health.NewHandler(),
		Logger:   log,
		CORS:     middleware.DefaultCORSConfig(),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, orders
}

// client wraps http.Client with a cookie jar-free manual cookie carry, so
// tests can assert on individual Set-Cookie responses.
type testClient struct {
	t       *testing.T
	base    string
	cookies map[string]string
}

func newTestClient(t *testing.T, base string) *testClient {
	return &testClient{t: t, base: base, cookies: make(map[string]string)}
}

func (c *testClient) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	for _, cookie := range resp.Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
		} else {
			c.cookies[cookie.Name] = cookie.Value
		}
	}

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

type cartBody struct {
	Data struct {
		Items    []domain.CartLine `json:"items"`
		Count    int               `json:"count"`
		Subtotal int64             `json:"subtotal"`
	} `json:"data"`
}

func decodeCart(t *testing.T, data []byte) cartBody {
	t.Helper()
	var body cartBody
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestCartEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL)

	// Empty cart for a fresh browser; the cart cookie is pinned here.
	resp, data := c.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeCart(t, data).Data.Items)
	require.NotEmpty(t, c.cookies[CartCookie])

	// Add twice, plus a second product.
	c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 1})
	c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 1})
	resp, data = c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 2})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeCart(t, data)
	require.Len(t, body.Data.Items, 2)
	assert.Equal(t, 2, body.Data.Items[0].Quantity)
	assert.Equal(t, 3, body.Data.Count)
	assert.Equal(t, int64(2*10995+2295), body.Data.Subtotal)

	// Quantity controls.
	_, data = c.do(http.MethodPost, "/api/v1/cart/items/1/increase", nil)
	assert.Equal(t, 3, decodeCart(t, data).Data.Items[0].Quantity)

	_, data = c.do(http.MethodPost, "/api/v1/cart/items/2/decrease", nil)
	require.Len(t, decodeCart(t, data).Data.Items, 1)

	_, data = c.do(http.MethodDelete, "/api/v1/cart/items/1", nil)
	assert.Empty(t, decodeCart(t, data).Data.Items)

	// Unknown product in the catalog is a 404; the cart is unchanged.
	resp, _ = c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Clear.
	c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 1})
	resp, data = c.do(http.MethodDelete, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeCart(t, data).Data.Items)
}

func TestCartPersistsAcrossRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL)

	c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 1})

	// Same cookie, later request: the cart is still there.
	_, data := c.do(http.MethodGet, "/api/v1/cart", nil)
	body := decodeCart(t, data)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "Backpack", body.Data.Items[0].Title)
}

func TestAuthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL)

	resp, _ := c.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "johnd", "password": "m38rmF$"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, c.cookies[SessionCookie])

	resp, data := c.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &me))
	assert.Equal(t, "johnd", me.Data.Username)

	resp, _ = c.do(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, c.cookies[SessionCookie])

	resp, _ = c.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginAdoptsAnonymousCart(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL)

	// Shop before logging in.
	c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 1})
	c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 1})
	require.NotEmpty(t, c.cookies[CartCookie])

	resp, _ := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "johnd"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The anonymous cart followed the shopper into the session, and the
	// anonymous cart cookie is gone.
	assert.Empty(t, c.cookies[CartCookie])
	_, data := c.do(http.MethodGet, "/api/v1/cart", nil)
	body := decodeCart(t, data)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, int64(1), body.Data.Items[0].ProductID)
	assert.Equal(t, 2, body.Data.Items[0].Quantity)
}

func TestUnauthorizedRedirectHint(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL)

	resp, data := c.do(http.MethodPost, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Error struct {
			Code     string `json:"code"`
			Redirect string `json:"redirect"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "/login?redirect=checkout", body.Error.Redirect)
}

func TestRegisterEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL)

	resp, data := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{"username": "newshopper", "password": "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, c.cookies[SessionCookie])

	var created struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, "newshopper", created.Data.Username)

	resp, _ = c.do(http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckoutEndpoints(t *testing.T) {
	srv, orders := newTestServer(t)
	c := newTestClient(t, srv.URL)

	form := map[string]string{
		"firstName":  "John",
		"lastName":   "Doe",
		"email":      "john@example.com",
		"phone":      "5551234567",
		"address":    "7835 New Road",
		"city":       "Kilcoole",
		"zipCode":    "12926",
		"cardNumber": "4242424242424242",
		"expiry":     "12/28",
		"cvv":        "314",
	}

	// Anonymous checkout is rejected.
	resp, _ := c.do(http.MethodPost, "/api/v1/checkout", form)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "johnd"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Empty cart is rejected.
	resp, _ = c.do(http.MethodPost, "/api/v1/checkout", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	c.do(http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": 1})

	// Invalid form is a 400 with field messages.
	bad := map[string]string{}
	for k, v := range form {
		bad[k] = v
	}
	bad["cvv"] = "12"
	resp, _ = c.do(http.MethodPost, "/api/v1/checkout", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := c.do(http.MethodPost, "/api/v1/checkout", form)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var placed struct {
		Data domain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &placed))
	assert.Equal(t, int64(10995), placed.Data.TotalAmount)
	require.Len(t, orders.orders, 1)

	// Checkout emptied the cart.
	_, data = c.do(http.MethodGet, "/api/v1/cart", nil)
	assert.Empty(t, decodeCart(t, data).Data.Items)

	// Order history.
	resp, data = c.do(http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		Data []domain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &history))
	require.Len(t, history.Data, 1)
	assert.Equal(t, placed.Data.ID, history.Data[0].ID)
}

func TestProductEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL)

	resp, data := c.do(http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Data []domain.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &listing))
	require.Len(t, listing.Data, 2)
	assert.Equal(t, int64(10995), listing.Data[0].Price)

	resp, _ = c.do(http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", 999), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = c.do(http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cats struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &cats))
	assert.Equal(t, []string{"electronics"}, cats.Data)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL)

	resp, _ := c.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
