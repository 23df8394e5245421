package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/example/pizzaplanet/pkg/chat"
	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/service"
	"github.com/example/pizzaplanet/pkg/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/example/pizzaplanet/docs"
)

// API is the service surface published over HTTP.
type API interface {
	HandleChatMessage(ctx context.Context, req service.ChatRequest) (chat.Result, error)
	PlaceDirectOrder(ctx context.Context, lines []service.OrderLine, customer models.CustomerInfo) (*models.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (*service.OrderStatusView, error)
	AdvanceOrderStatus(ctx context.Context, orderID, status string) (*service.OrderStatusView, error)
	CancelOrder(ctx context.Context, orderID, reason string) (*service.OrderStatusView, error)
	GetMenu(category string) ([]models.MenuItem, error)
	Suggestions(preference string) ([]models.MenuItem, string)
	CheckUser(email string) (users.Check, error)
	SaveUser(ctx context.Context, email, name string) (*models.UserProfile, error)
	UserOrders(ctx context.Context, email string) ([]*models.Order, error)
	OrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error)
	Health() service.HealthReport
}

type Gateway struct {
	config *config.GatewayConfig
	api    API
	logger *zap.Logger
	feed   *OrderFeed
	router *gin.Engine
	server *http.Server
}

// NewGateway builds the HTTP surface. feed may be nil, in which case
// /ws/orders is not served.
func NewGateway(cfg *config.GatewayConfig, api API, feed *OrderFeed, logger *zap.Logger) *Gateway {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	router.Use(corsMiddleware(cfg.AllowOrigins))

	g := &Gateway{
		config: cfg,
		api:    api,
		feed:   feed,
		logger: logger,
		router: router,
	}
	g.SetupRoutes()
	return g
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)

	api := g.router.Group("/api")
	{
		api.POST("/chat", g.chat)
		api.GET("/menu", g.menu)
		api.GET("/suggestions", g.suggestions)

		orders := api.Group("/order")
		{
			orders.POST("", g.placeOrder)
			orders.GET("/:id", g.getOrder)
			orders.POST("/:id/status", g.updateOrderStatus)
			orders.POST("/:id/cancel", g.cancelOrder)
			orders.GET("/:id/events", g.orderEvents)
		}

		u := api.Group("/users")
		{
			u.GET("/check", g.checkUser)
			u.POST("", g.saveUser)
			u.GET("/:email/orders", g.userOrders)
		}
	}

	if g.feed != nil {
		g.router.GET("/ws/orders", g.feed.serve)
	}

	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := g.config.Addr()
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) health(c *gin.Context) {
	c.JSON(http.StatusOK, g.api.Health())
}

func (g *Gateway) chat(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := g.api.HandleChatMessage(c.Request.Context(), req)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response":        res.Response,
		"intent":          res.Intent,
		"action":          res.Action,
		"user_id":         service.ChatUserID(req),
		"suggested_items": res.SuggestedItems,
		"pending_order":   res.PendingOrder,
		"order_context":   res.OrderContext,
	})
}

func (g *Gateway) menu(c *gin.Context) {
	items, err := g.api.GetMenu(c.Query("category"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (g *Gateway) suggestions(c *gin.Context) {
	items, reason := g.api.Suggestions(c.DefaultQuery("preference", "popular"))
	c.JSON(http.StatusOK, gin.H{"suggestions": items, "reason": reason})
}

type placeOrderRequest struct {
	Customer models.CustomerInfo `json:"customer"`
	Items    []service.OrderLine `json:"items" binding:"required"`
}

func (g *Gateway) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	customer, err := models.NewCustomerInfo(req.Customer.Name, req.Customer.Email, req.Customer.Phone, req.Customer.Address)
	if err != nil {
		g.writeError(c, err)
		return
	}
	order, err := g.api.PlaceDirectOrder(c.Request.Context(), req.Items, customer)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (g *Gateway) getOrder(c *gin.Context) {
	view, err := g.api.GetOrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := g.api.AdvanceOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (g *Gateway) cancelOrder(c *gin.Context) {
	var req cancelRequest
	// The body is optional; only a malformed one is rejected.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := g.api.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) orderEvents(c *gin.Context) {
	events, err := g.api.OrderEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

func (g *Gateway) checkUser(c *gin.Context) {
	res, err := g.api.CheckUser(c.Query("email"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type saveUserRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name"`
}

func (g *Gateway) saveUser(c *gin.Context) {
	var req saveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := g.api.SaveUser(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

func (g *Gateway) userOrders(c *gin.Context) {
	orders, err := g.api.UserOrders(c.Request.Context(), c.Param("email"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": len(orders)})
}

// writeError maps domain errors to HTTP status codes.
func (g *Gateway) writeError(c *gin.Context, err error) {
	var nf *models.ItemNotFoundError
	switch {
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "suggestions": nf.Suggestions})
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrNoPendingOrder):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrEventsUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		g.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
