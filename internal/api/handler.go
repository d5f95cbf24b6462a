package api

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"pizza-service/internal/models"
	"pizza-service/internal/service"
	"pizza-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSubscriber streams order status updates
type StatusSubscriber interface {
	SubscribeStatus(ctx context.Context) (<-chan models.StatusUpdate, func() error, error)
}

// Handler contains HTTP handlers
type Handler struct {
	orderService *service.OrderService
	pizzaService *service.PizzaService
	db           Pinger
	hub          StatusSubscriber
	uploadDir    string
	heartbeat    time.Duration
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler. hub may be nil, in which case the
// status stream answers 503.
func NewHandler(orderService *service.OrderService, pizzaService *service.PizzaService, db Pinger, hub StatusSubscriber, uploadDir string) *Handler {
	return &Handler{
		orderService: orderService,
		pizzaService: pizzaService,
		db:           db,
		hub:          hub,
		uploadDir:    uploadDir,
		heartbeat:    15 * time.Second,
		logger:       util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.MaxMultipartMemory = 8 << 20

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.uploadDir != "" {
		router.Static("/uploads", filepath.Join(h.uploadDir, "uploads"))
	}

	api := router.Group("/api")
	{
		pizzas := api.Group("/pizzas")
		pizzas.GET("", h.listPizzas)
		pizzas.GET("/:id", h.getPizza)
		pizzas.POST("", h.createPizza)
		pizzas.PUT("/:id", h.updatePizza)
		pizzas.DELETE("/:id", h.deletePizza)

		orders := api.Group("/orders")
		orders.POST("", h.placeOrder)
		orders.GET("", h.listOrders)
		orders.GET("/updates", h.orderUpdates)
		orders.GET("/:id", h.getOrder)
		orders.PUT("/:id/status", h.updateOrderStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// parseID reads a positive integer path parameter, answering 400 otherwise
func parseID(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + entity + " id"})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(time.Since(start).Seconds())

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}

// requestLogger logs one structured line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// corsMiddleware allows any origin, method and header
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
