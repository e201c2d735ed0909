package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/marketplace-api/internal/handler"
	checkouth "github.com/jwalitptl/marketplace-api/internal/handler/checkout"
	orderh "github.com/jwalitptl/marketplace-api/internal/handler/order"
	producth "github.com/jwalitptl/marketplace-api/internal/handler/product"
	"github.com/jwalitptl/marketplace-api/internal/middleware"
	"github.com/jwalitptl/marketplace-api/pkg/auth"
)

type Router struct {
	engine   *gin.Engine
	tokens   *auth.TokenManager
	h        *handler.Handler
	productH *producth.Handler
	checkout *checkouth.Handler
	orderH   *orderh.Handler
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	CORSConfig    middleware.CORSConfig
	MetricsPrefix string
}

func NewRouter(
	tokens *auth.TokenManager,
	h *handler.Handler,
	productH *producth.Handler,
	checkoutH *checkouth.Handler,
	orderH *orderh.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	registerValidations()

	engine := gin.New()

	r := &Router{
		engine:   engine,
		tokens:   tokens,
		h:        h,
		productH: productH,
		checkout: checkoutH,
		orderH:   orderH,
		metrics:  initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Timeout: 30 * time.Second}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)
	r.setupPublicRoutes(api)

	// Checkout takes an optional token so guests can place orders.
	api.POST("/checkout", middleware.OptionalAuth(r.tokens), r.checkout.Checkout)

	protected := api.Group("")
	protected.Use(middleware.Auth(r.tokens))
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	{
		products.GET("/:id", r.productH.GetProduct)
		products.GET("/:id/availability", r.productH.GetAvailability)
	}
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	products := rg.Group("/products")
	products.Use(middleware.RequireRole(auth.RoleSeller))
	{
		products.POST("", r.productH.CreateProduct)
		products.GET("", r.productH.ListProducts)
		products.PUT("/:id", r.productH.UpdateProduct)
		products.DELETE("/:id", r.productH.DeleteProduct)
	}

	orders := rg.Group("/orders")
	{
		orders.GET("", r.orderH.ListOrders)
		orders.GET("/:id", r.orderH.GetOrder)

		seller := orders.Group("")
		seller.Use(middleware.RequireRole(auth.RoleSeller))
		{
			seller.POST("/:id/confirm-appointment", r.orderH.ConfirmAppointment)
			seller.POST("/:id/appointment/reject-propose", r.orderH.RejectPropose)
			seller.POST("/:id/complete-service", r.orderH.CompleteService)
		}

		buyer := orders.Group("")
		buyer.Use(middleware.RequireRole(auth.RoleBuyer))
		{
			buyer.POST("/:id/appointment/accept", r.orderH.AcceptAlternate)
			buyer.POST("/:id/pay", r.orderH.Pay)
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
