package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/storefront/pkg/metrics"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	CatalogHandler  *CatalogHTTP
	CartHandler     *CartHTTP
	WishlistHandler *WishlistHTTP
	OrderHandler    *OrderHTTP
	TrendingHandler *TrendingHTTP
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", metrics.Handler())

	authMW := middleware.NewJWTMiddleware(d.JWTSecret)

	v1 := e.Group("/api/v1")

	products := v1.Group("/products")
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/trending", d.TrendingHandler.GetTrending)
	products.GET("/:id", d.CatalogHandler.GetProduct)

	cart := v1.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("", d.CartHandler.ClearCart)

	wishlist := v1.Group("/wishlist", authMW.RequireAuth)
	wishlist.GET("", d.WishlistHandler.GetWishlist)
	wishlist.POST("", d.WishlistHandler.AddToWishlist)
	wishlist.DELETE("", d.WishlistHandler.ClearWishlist)
	wishlist.GET("/:product_id", d.WishlistHandler.CheckWishlist)
	wishlist.DELETE("/:product_id", d.WishlistHandler.RemoveFromWishlist)

	v1.GET("/orders/sales", d.OrderHandler.SalesData)

	orders := v1.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.GetOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("/:id/retry", d.OrderHandler.RetryCharge)
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder)

	payments := v1.Group("/payments", authMW.RequireAuth)
	payments.POST("/stripe/verify", d.OrderHandler.VerifyStripe)
	payments.POST("/razorpay/verify", d.OrderHandler.VerifyRazorpay)

	admin := v1.Group("/admin", authMW.RequireAdmin)
	admin.GET("/orders", d.OrderHandler.ListAllOrders)
	admin.GET("/orders/:id", d.OrderHandler.AdminGetOrder)
	admin.PATCH("/orders/:id/status", d.OrderHandler.UpdateStatus)
	admin.POST("/products", d.CatalogHandler.CreateProduct)
	admin.PUT("/products/:id/stock", d.CatalogHandler.SetStock)
	admin.POST("/products/:id/toggle", d.CatalogHandler.ToggleProduct)
	admin.PUT("/products/:id/promotion", d.CatalogHandler.SetPromotion)
	admin.POST("/promotions/sweep", d.CatalogHandler.SweepPromotions)
}
