package router

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/pkg/config"
	"julianmorley.ca/pureview/api/pkg/global"
)

// NewEngine builds the gin engine with middleware and every route mounted.
func NewEngine(cfg *config.Config, h *Handler, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(global.JSONFieldName)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(logger))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	InitializeRoutes(router, h)
	return router
}

func corsConfig(origins []string) cors.Config {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		conf.AllowAllOrigins = true
		return conf
	}
	conf.AllowOrigins = origins
	conf.AllowCredentials = true
	return conf
}

func InitializeRoutes(router *gin.Engine, h *Handler) {
	router.GET("/health", h.HealthCheck)
	router.GET("/ws", h.ServeWS)
	router.POST("/create-payment", h.CreatePayment)
	router.DELETE("/images/:public_id", h.DeleteImage)

	products := router.Group("/products")
	{
		products.GET("", h.GetAllProducts)
		products.POST("", h.CreateProduct)
		products.GET("/category/:category", h.GetProductsByCategory)

		products.POST("/add-to-cart", h.cartHandler("add", h.carts.Add))
		products.POST("/increase-cart", h.cartHandler("increase", h.carts.Increase))
		products.POST("/decrease-cart", h.cartHandler("decrease", h.carts.Decrease))
		products.POST("/remove-from-cart", h.cartHandler("remove", h.carts.Remove))

		byID := products.Group("/:id", ObjectIDParam("id"))
		{
			byID.GET("", h.GetProduct)
			byID.PATCH("", h.UpdateProduct)
			byID.DELETE("", h.DeleteProduct)
		}
	}

	orders := router.Group("/orders")
	{
		orders.GET("", h.GetAllOrders)
		orders.POST("", h.PlaceOrder)
		orders.GET("/report", h.GetSalesReport)
		orders.PATCH("/:id/mark-shipped", ObjectIDParam("id"), h.MarkShipped)
	}

	users := router.Group("/users")
	{
		users.GET("", h.GetCustomers)
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)

		byID := users.Group("/:id", ObjectIDParam("id"))
		{
			byID.GET("/orders", h.GetUserOrders)
			byID.POST("/updateNotifications", h.MarkNotificationsRead)
			byID.DELETE("", h.DeleteUser)
		}
	}
}
