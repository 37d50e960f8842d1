package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = ErrorJSON(h.logger())

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/pools/recent", h.RecentPools)
	v1.GET("/swaps/recent", h.RecentSwaps)

	// Endpoints that hit the RPC node are rate limited per client
	limiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.analysisRate()),
		Burst:     cfg.analysisBurst(),
		ExpiresIn: 2 * time.Minute,
	}))
	v1.GET("/tokens/:mint", h.Token, limiter)
	v1.GET("/pools/:signature", h.Pool, limiter)
	v1.GET("/swaps/:signature", h.Swap, limiter)

	// Runtime switches, only when Redis is configured
	if h.Switches != nil {
		v1.GET("/switches", h.SwitchesList)
		v1.GET("/switches/:key", h.SwitchGet)
		v1.PUT("/switches/:key", h.SwitchSet)
		v1.DELETE("/switches/:key", h.SwitchDelete)
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
