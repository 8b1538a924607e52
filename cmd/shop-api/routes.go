package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MikeMC777/annoor-shop/docs"
	"github.com/MikeMC777/annoor-shop/internal/auth"
	"github.com/MikeMC777/annoor-shop/internal/httpx"
	"github.com/MikeMC777/annoor-shop/internal/logger"
	"github.com/MikeMC777/annoor-shop/internal/metrics"
	"github.com/MikeMC777/annoor-shop/internal/order"
	"github.com/MikeMC777/annoor-shop/internal/product"
	"github.com/MikeMC777/annoor-shop/internal/upload"
	"github.com/MikeMC777/annoor-shop/internal/user"
)

// deps is everything the router needs, built once in main.
type deps struct {
	log          *logger.Logger
	users        *user.Service
	products     *product.Service
	orders       *order.Service
	gate         *auth.Gate
	images       *upload.Ingestor
	metrics      *metrics.Collector
	gatherer     prometheus.Gatherer
	tokenLimiter *httpx.RateLimiter
	ping         func(ctx context.Context) error
	// assetsDir is served under /assets when images are kept on disk.
	assetsDir string
}

func newRouter(d *deps) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(httpx.RequestID(), httpx.Recovery(d.log), httpx.Logger(d.log), httpx.Metrics(d.metrics))

	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "Hello there!") })
	r.GET("/healthz", healthHandler(d.ping))
	r.GET("/metrics", gin.WrapH(metrics.Handler(d.gatherer)))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if d.assetsDir != "" {
		r.Static("/assets", d.assetsDir)
	}

	authed := d.gate.Authenticated()
	admin := d.gate.Admin()

	// identities
	r.PUT("/token", d.tokenLimiter.Middleware(), tokenHandler(d.users))
	r.GET("/user", authed, getUserHandler(d.users))
	r.POST("/update-user-info", authed, updateUserInfoHandler(d.users))
	r.GET("/all-users", admin, listUsersHandler(d.users))
	r.PUT("/user-role", admin, setRoleHandler(d.users))

	// catalog
	r.GET("/product", productsByCategoryHandler(d.products))
	r.POST("/product", admin, createProductHandler(d.products, d.images, d.log))
	r.POST("/edit-product", admin, editProductHandler(d.products, d.images, d.log))
	r.GET("/all-products", admin, listProductsHandler(d.products))
	r.GET("/single-product", admin, getProductHandler(d.products))
	r.DELETE("/delete-product", admin, deleteProductHandler(d.products, d.images, d.log))

	// orders
	r.POST("/order", authed, createOrderHandler(d.orders, d.metrics))
	r.GET("/my-orders", authed, myOrdersHandler(d.orders))
	r.GET("/order", authed, getMyOrderHandler(d.orders))
	r.POST("/order-payment", authed, payOrderHandler(d.orders))
	r.GET("/all-orders", admin, listOrdersHandler(d.orders))
	r.GET("/single-order", admin, getOrderHandler(d.orders))
	r.PUT("/order-status", admin, setOrderStatusHandler(d.orders))
	r.DELETE("/delete-order", admin, deleteOrderHandler(d.orders))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httpx.Envelope{Message: "route not found"})
	})
	return r
}

// healthHandler godoc
// @Summary Liveness and store reachability
// @Tags health
// @Produce json
// @Success 200 {object} httpx.Envelope
// @Failure 500 {object} httpx.Envelope
// @Router /healthz [get]
func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ping(c.Request.Context()); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "ok", nil)
	}
}

// listingParams reads page, search and filter from the query string.
func listingParams(c *gin.Context) (page, search, filter string) {
	return c.Query("page"), c.Query("search"), c.Query("filter")
}
