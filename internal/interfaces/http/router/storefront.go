package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig configures the global middleware chain
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	MeterProvider  *telemetry.MeterProvider
	MetricsEnabled bool
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine builds a gin engine with request ids, logging, recovery,
// tracing, metrics, security headers, CORS and the body limit.
func NewEngine(cfg EngineConfig, log *zap.Logger) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: cfg.MeterProvider,
		Enabled:       cfg.MetricsEnabled,
		Logger:        log,
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.NoRoute(func(c *gin.Context) {
		var h handler.BaseHandler
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Route not found")
	})
	return engine, nil
}

// Handlers groups the HTTP handlers mounted by RegisterStorefront
type Handlers struct {
	Cart      *handler.CartHandler
	Promotion *handler.PromotionHandler
	Product   *handler.ProductHandler
	Health    *handler.HealthHandler
}

// RegisterStorefront mounts every storefront route on r. promoLimiter may be
// nil to leave promo attempts unlimited.
func RegisterStorefront(r *Router, h Handlers, sessionHeader string, promoLimiter *middleware.RateLimiter) {
	if h.Health != nil {
		r.Register(NewDomainGroup("health", "/health").GET("", h.Health.Health))
	}
	if h.Cart != nil {
		r.Register(CartRoutes(h.Cart, sessionHeader, promoLimiter))
	}
	if h.Promotion != nil {
		r.Register(PromotionRoutes(h.Promotion))
	}
	if h.Product != nil {
		r.Register(ProductRoutes(h.Product))
	}
	r.Setup()
}

// CartRoutes returns the /cart group
func CartRoutes(h *handler.CartHandler, sessionHeader string, promoLimiter *middleware.RateLimiter) *DomainGroup {
	g := NewDomainGroup("cart", "/cart").
		Use(middleware.CartSession(sessionHeader), middleware.SpanEnricher())

	g.GET("", h.GetCart)
	g.DELETE("", h.ClearCart)
	g.POST("/items", h.AddItem)
	g.DELETE("/items", h.RemoveItem)
	g.PUT("/items/quantity", h.UpdateQuantity)
	g.POST("/promo", middleware.RateLimitByKey(promoLimiter, middleware.SessionKey), h.ApplyPromoCode)
	g.DELETE("/promo", h.RemovePromoCode)
	g.POST("/selection/toggle", h.ToggleSelection)
	g.POST("/selection/all", h.SelectAll)
	g.DELETE("/selection", h.DeselectAll)
	g.POST("/checkout", h.Checkout)
	return g
}

// PromotionRoutes returns the /promotions admin group
func PromotionRoutes(h *handler.PromotionHandler) *DomainGroup {
	g := NewDomainGroup("promotions", "/promotions").Use(middleware.SpanEnricher())
	g.GET("", h.ListPromos)
	g.POST("", h.CreatePromo)
	g.GET("/:code", h.GetPromo)
	g.PATCH("/:code/status", h.SetStatus)
	return g
}

// ProductRoutes returns the /products admin group
func ProductRoutes(h *handler.ProductHandler) *DomainGroup {
	g := NewDomainGroup("products", "/products").Use(middleware.SpanEnricher())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id/stock", h.UpdateStock)
	g.PATCH("/:id/status", h.SetStatus)
	return g
}
