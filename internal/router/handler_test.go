package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/internal/account"
	"julianmorley.ca/pureview/api/internal/cart"
	"julianmorley.ca/pureview/api/internal/catalog"
	"julianmorley.ca/pureview/api/internal/images"
	"julianmorley.ca/pureview/api/internal/order"
	"julianmorley.ca/pureview/api/internal/payment"
	"julianmorley.ca/pureview/api/internal/realtime"
	"julianmorley.ca/pureview/api/internal/store"
	"julianmorley.ca/pureview/api/pkg/config"
	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

type testServer struct {
	router  *gin.Engine
	mem     *store.Memory
	orders  *order.Engine
	pingErr error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	mem := store.NewMemory()
	hub := realtime.NewHub(16, logger)
	orders := order.NewEngine(mem, mem, hub, logger, order.WithClock(func() time.Time {
		return time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	}))
	t.Cleanup(orders.Wait)

	payments := payment.NewGateway(func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return &stripe.PaymentIntent{ClientSecret: "pi_123_secret"}, nil
	}, "eur", logger)

	ts := &testServer{mem: mem, orders: orders}
	h := NewHandler(Deps{
		Carts:    cart.NewEngine(mem, logger),
		Orders:   orders,
		Accounts: account.NewService(mem, mem, logger),
		Catalog:  catalog.NewService(mem, mem, nil, nil, logger),
		Payments: payments,
		Images:   images.NewHost(nil, "", logger),
		Hub:      hub,
		Ping:     func(context.Context) error { return ts.pingErr },
	}, logger)

	ts.router = NewEngine(&config.Config{Env: "test", CORSOrigins: []string{"*"}}, h, logger)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) seedUser(t *testing.T, name, email string, admin bool) *models.User {
	t.Helper()
	user := models.NewUser(name, email, "hash")
	user.IsAdmin = admin
	require.NoError(t, ts.mem.CreateUser(context.Background(), user))
	return user
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func cartBody(userID, productID, price string) map[string]any {
	return map[string]any{"userId": userID, "productId": productID, "price": json.Number(price)}
}

func TestCartEndpoints(t *testing.T) {
	ts := newTestServer(t)
	user := ts.seedUser(t, "Ada", "ada@example.com", false)
	id := user.ID.Hex()

	w := ts.do(t, http.MethodPost, "/products/add-to-cart", cartBody(id, "p1", "10"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	got := decodeBody[models.User](t, w)
	assert.Equal(t, 1, got.Cart.Lines["p1"])
	assert.True(t, got.Cart.Total.Equal(decimal.NewFromInt(10)))

	w = ts.do(t, http.MethodPost, "/products/increase-cart", cartBody(id, "p1", "10"))
	require.Equal(t, http.StatusOK, w.Code)
	got = decodeBody[models.User](t, w)
	assert.Equal(t, 2, got.Cart.Count)
	assert.True(t, got.Cart.Total.Equal(decimal.NewFromInt(20)))

	w = ts.do(t, http.MethodPost, "/products/decrease-cart", cartBody(id, "p1", "10"))
	require.Equal(t, http.StatusOK, w.Code)
	got = decodeBody[models.User](t, w)
	assert.Equal(t, 1, got.Cart.Count)

	w = ts.do(t, http.MethodPost, "/products/remove-from-cart", cartBody(id, "p1", "10"))
	require.Equal(t, http.StatusOK, w.Code)
	got = decodeBody[models.User](t, w)
	assert.True(t, got.Cart.IsEmpty())
	assert.True(t, got.Cart.Total.IsZero())

	w = ts.do(t, http.MethodPost, "/products/remove-from-cart", cartBody(id, "p1", "10"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[global.APIResponse](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, string(global.KindInvalidState), resp.Code)
}

func TestCartRequestValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/products/add-to-cart", map[string]any{"productId": "p1", "price": 10})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[global.APIResponse](t, w)
	assert.Equal(t, "userId is required", resp.Message)
	assert.Equal(t, string(global.KindValidation), resp.Code)

	user := ts.seedUser(t, "Ada", "ada@example.com", false)
	w = ts.do(t, http.MethodPost, "/products/add-to-cart", map[string]any{"userId": user.ID.Hex(), "productId": "p1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "price is required", decodeBody[global.APIResponse](t, w).Message)
	stored, err := ts.mem.FindUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Cart.IsEmpty())

	w = ts.do(t, http.MethodPost, "/products/add-to-cart", cartBody(user.ID.Hex(), "total", "10"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(global.KindValidation), decodeBody[global.APIResponse](t, w).Code)

	w = ts.do(t, http.MethodPost, "/products/add-to-cart", cartBody("not-an-id", "p1", "10"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "userId must be a valid ObjectID", decodeBody[global.APIResponse](t, w).Message)

	w = ts.do(t, http.MethodPost, "/products/add-to-cart", cartBody("665f1f77bcf86cd799439011", "p1", "10"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(global.KindNotFound), decodeBody[global.APIResponse](t, w).Code)
}

func TestOrderLifecycle(t *testing.T) {
	ts := newTestServer(t)
	user := ts.seedUser(t, "Ada", "ada@example.com", false)
	id := user.ID.Hex()

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/products/add-to-cart", cartBody(id, "p1", "10")).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/products/increase-cart", cartBody(id, "p1", "10")).Code)

	w := ts.do(t, http.MethodPost, "/orders", map[string]any{
		"userId":  id,
		"cart":    map[string]any{"p1": 2, "total": 20, "count": 2},
		"country": "Canada",
		"address": "1 Main St",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	placed := decodeBody[models.User](t, w)
	assert.True(t, placed.Cart.IsEmpty())
	require.Len(t, placed.Orders, 1)

	w = ts.do(t, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decodeBody[[]models.OrderView](t, w)
	require.Len(t, views, 1)
	assert.Equal(t, models.OrderProcessing, views[0].Status)
	assert.True(t, views[0].Total.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 2, views[0].Count)
	require.NotNil(t, views[0].Owner)
	assert.Equal(t, "ada@example.com", views[0].Owner.Email)

	w = ts.do(t, http.MethodPatch, "/orders/"+placed.Orders[0].Hex()+"/mark-shipped", map[string]any{"ownerId": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	views = decodeBody[[]models.OrderView](t, w)
	assert.Equal(t, models.OrderShipped, views[0].Status)

	w = ts.do(t, http.MethodGet, "/users/"+id+"/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]models.Order](t, w), 1)

	w = ts.do(t, http.MethodGet, "/orders/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decodeBody[models.SalesReport](t, w)
	assert.Equal(t, 1, report.Summary.TotalOrders)
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	ts := newTestServer(t)
	user := ts.seedUser(t, "Ada", "ada@example.com", false)

	w := ts.do(t, http.MethodPost, "/orders", map[string]any{
		"userId": user.ID.Hex(),
		"cart":   map[string]any{"total": 0, "count": 0},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cart is empty", decodeBody[global.APIResponse](t, w).Message)
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/users/signup", map[string]any{
		"name": "Ada", "email": "Ada@Example.com", "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	assert.Equal(t, "ada@example.com", decodeBody[models.User](t, w).Email)

	w = ts.do(t, http.MethodPost, "/users/signup", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "other",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decodeBody[global.APIResponse](t, w).Message)

	wrong := ts.do(t, http.MethodPost, "/users/login", map[string]any{"email": "ada@example.com", "password": "nope"})
	unknown := ts.do(t, http.MethodPost, "/users/login", map[string]any{"email": "bob@example.com", "password": "nope"})
	require.Equal(t, http.StatusBadRequest, wrong.Code)
	require.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	w = ts.do(t, http.MethodPost, "/users/login", map[string]any{"email": "ada@example.com", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", decodeBody[models.User](t, w).Name)
}

func TestUserRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "Root", "root@example.com", true)
	user := ts.seedUser(t, "Ada", "ada@example.com", false)

	w := ts.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	customers := decodeBody[[]map[string]any](t, w)
	require.Len(t, customers, 1)
	assert.Equal(t, "ada@example.com", customers[0]["email"])

	w = ts.do(t, http.MethodPost, "/users/"+user.ID.Hex()+"/updateNotifications", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = ts.do(t, http.MethodDelete, "/users/"+user.ID.Hex(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := ts.mem.FindUser(context.Background(), user.ID)
	assert.ErrorIs(t, err, global.ErrNotFound)

	w = ts.do(t, http.MethodGet, "/users/zzz/orders", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[global.APIResponse](t, w)
	assert.Equal(t, "id must be a valid ObjectID", resp.Message)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "id", resp.Errors[0].Field)
}

func productBody(name, price string) map[string]any {
	return map[string]any{
		"name":        name,
		"description": name + " description",
		"price":       json.Number(price),
		"category":    "home",
		"images":      []map[string]string{{"url": "https://img/" + name, "public_id": name}},
	}
}

func TestProductRoutes(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.seedUser(t, "Root", "root@example.com", true)
	customer := ts.seedUser(t, "Ada", "ada@example.com", false)

	w := ts.do(t, http.MethodPost, "/products", productBody("lamp", "25"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, "/products", productBody("chair", "80"))
	require.Equal(t, http.StatusCreated, w.Code)
	products := decodeBody[[]models.Product](t, w)
	require.Len(t, products, 2)
	assert.Equal(t, "chair", products[0].Name, "newest first")
	lampID := products[1].ID.Hex()

	w = ts.do(t, http.MethodGet, "/products/"+lampID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeBody[models.ProductDetail](t, w)
	assert.Equal(t, "lamp", detail.Product.Name)
	require.Len(t, detail.Similar, 1)
	assert.Equal(t, "chair", detail.Similar[0].Name)

	w = ts.do(t, http.MethodGet, "/products/category/home", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]models.Product](t, w), 2)

	w = ts.do(t, http.MethodPatch, "/products/"+lampID, productBody("desk lamp", "30"))
	require.Equal(t, http.StatusOK, w.Code)
	products = decodeBody[[]models.Product](t, w)
	assert.Equal(t, "desk lamp", products[1].Name)

	w = ts.do(t, http.MethodPost, "/products", productBody("free", "0"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, "/products/"+lampID, map[string]any{"user_id": customer.ID.Hex()})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeBody[global.APIResponse](t, w)
	assert.Equal(t, "You don't have permission", resp.Message)
	assert.Equal(t, string(global.KindForbidden), resp.Code)

	w = ts.do(t, http.MethodDelete, "/products/"+lampID, map[string]any{"user_id": admin.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeBody[[]models.Product](t, w), 1)
}

func TestCreatePayment(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/create-payment", map[string]any{"amount": json.Number("19.99")})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"client_secret": "pi_123_secret"}, decodeBody[map[string]string](t, w))

	w = ts.do(t, http.MethodPost, "/create-payment", map[string]any{"amount": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody[map[string]string](t, w)
	assert.NotEmpty(t, body["error"])
}

func TestDeleteImageWithoutBucket(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodDelete, "/images/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(global.KindUnavailable), decodeBody[global.APIResponse](t, w).Code)
}

func TestHealthAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	ts.pingErr = errors.New("no reachable servers")
	w = ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
