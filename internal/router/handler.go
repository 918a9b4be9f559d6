package router

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/internal/account"
	"julianmorley.ca/pureview/api/internal/cart"
	"julianmorley.ca/pureview/api/internal/catalog"
	"julianmorley.ca/pureview/api/internal/images"
	"julianmorley.ca/pureview/api/internal/order"
	"julianmorley.ca/pureview/api/internal/payment"
	"julianmorley.ca/pureview/api/internal/realtime"
	"julianmorley.ca/pureview/api/pkg/global"
	"julianmorley.ca/pureview/api/pkg/models"
)

// Deps carries the services the handlers delegate to. Ping may be nil.
type Deps struct {
	Carts    *cart.Engine
	Orders   *order.Engine
	Accounts *account.Service
	Catalog  *catalog.Service
	Payments *payment.Gateway
	Images   *images.Host
	Hub      *realtime.Hub
	Ping     func(ctx context.Context) error
}

type Handler struct {
	carts    *cart.Engine
	orders   *order.Engine
	accounts *account.Service
	catalog  *catalog.Service
	payments *payment.Gateway
	images   *images.Host
	hub      *realtime.Hub
	ping     func(ctx context.Context) error
	logger   *zap.Logger
}

func NewHandler(d Deps, logger *zap.Logger) *Handler {
	return &Handler{
		carts:    d.Carts,
		orders:   d.Orders,
		accounts: d.Accounts,
		catalog:  d.Catalog,
		payments: d.Payments,
		images:   d.Images,
		hub:      d.Hub,
		ping:     d.Ping,
		logger:   logger,
	}
}

// fail writes the error envelope. Forbidden maps to 401, every other kind to 400.
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, global.ErrForbidden) {
		status = http.StatusUnauthorized
	}
	if global.KindOf(err) == global.KindInternal {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, global.ErrorResponseFor(err))
}

func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return global.FromValidator(err)
	}
	return nil
}

func (h *Handler) HealthCheck(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, global.ErrorResponse("Database connection failed", nil))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *Handler) ServeWS(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

type cartOp func(ctx context.Context, userID bson.ObjectID, productID string, price decimal.Decimal) (*models.User, error)

func (h *Handler) cartHandler(name string, op cartOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CartRequest
		if err := bindJSON(c, &req); err != nil {
			h.fail(c, err)
			return
		}
		userID, err := global.ParseObjectID("userId", req.UserID)
		if err != nil {
			h.fail(c, err)
			return
		}

		user, err := op(c.Request.Context(), userID, req.ProductID, *req.Price)
		if err != nil {
			h.logger.Debug("cart mutation rejected", zap.String("op", name), zap.Error(err))
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func (h *Handler) PlaceOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	userID, err := global.ParseObjectID("userId", req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.orders.PlaceOrder(c.Request.Context(), userID, req.Cart, req.Country, req.Address)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetAllOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) MarkShipped(c *gin.Context) {
	var req models.MarkShippedRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	ownerID, err := global.ParseObjectID("ownerId", req.OwnerID)
	if err != nil {
		h.fail(c, err)
		return
	}

	orders, err := h.orders.MarkShipped(c.Request.Context(), paramID(c, "id"), ownerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetSalesReport(c *gin.Context) {
	report, err := h.orders.SalesReport(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.accounts.Signup(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetCustomers(c *gin.Context) {
	customers, err := h.accounts.ListCustomers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) GetUserOrders(c *gin.Context) {
	orders, err := h.accounts.Orders(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) MarkNotificationsRead(c *gin.Context) {
	if err := h.accounts.MarkAllRead(c.Request.Context(), paramID(c, "id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), paramID(c, "id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) GetAllProducts(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProductsByCategory(c *gin.Context) {
	products, err := h.catalog.ByCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	detail, err := h.catalog.Get(c.Request.Context(), paramID(c, "id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req models.ProductRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	products, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, products)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var req models.ProductRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	products, err := h.catalog.Update(c.Request.Context(), paramID(c, "id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	var req models.DeleteProductRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(c, global.FromValidator(err))
		return
	}
	requesterID, err := global.ParseObjectID("user_id", req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	products, err := h.catalog.Delete(c.Request.Context(), paramID(c, "id"), requesterID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// CreatePayment answers with {client_secret} or {error}, the shape the
// checkout page reads.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req models.PaymentRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": global.MessageOf(err)})
		return
	}
	secret, err := h.payments.CreateIntent(c.Request.Context(), req.Amount, "")
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": global.MessageOf(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_secret": secret})
}

func (h *Handler) DeleteImage(c *gin.Context) {
	if err := h.images.DeleteAsset(c.Request.Context(), c.Param("public_id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}
