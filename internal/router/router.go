// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// Handlers bundles the handler set so route registration takes one
// argument instead of five.
type Handlers struct {
	Auth      *handler.AuthHandler
	Events    *handler.EventHandler
	Attending *handler.AttendingHandler
	Invoices  *handler.InvoiceHandler
}

// RegisterRoutes registers routes that do not require
// authentication.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the versioned API.  Unauthenticated session
// operations live under /v1/auth; everything else requires a valid
// access token.  Rate limiting and response caching run only when a
// Redis client is available, and invoice mutations additionally
// require an admin token.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	rl := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	ag := e.Group("/v1/auth", rl)
	ag.POST("/register", h.Auth.Register)
	ag.POST("/login", h.Auth.Login)
	ag.POST("/refresh", h.Auth.Refresh)
	ag.POST("/logout", h.Auth.Logout)

	// JWTAuth runs first so the limiter keys buckets by user identity;
	// the other way around every caller would share the guest bucket
	// for a route.
	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret), rl)
	v1.GET("/me", h.Auth.Me)
	v1.PUT("/me", h.Auth.UpdateMe)
	v1.PATCH("/me", h.Auth.UpdateMe)

	// Events.
	v1.GET("/events", h.Events.List, cache)
	v1.GET("/events/search/:title", h.Events.Search, cache)
	v1.GET("/events/:event_id", h.Events.Get, cache)
	v1.POST("/events", h.Events.Create)
	v1.PUT("/events/:event_id", h.Events.Update)
	v1.PATCH("/events/:event_id", h.Events.Update)
	v1.DELETE("/events/:event_id", h.Events.Delete)

	// Attendance records nested under an event.
	v1.GET("/events/:event_id/attending", h.Attending.List, cache)
	v1.POST("/events/:event_id/attending", h.Attending.Create)
	v1.GET("/events/:event_id/attending/:attending_id", h.Attending.Get)
	v1.PUT("/events/:event_id/attending/:attending_id", h.Attending.Update)
	v1.PATCH("/events/:event_id/attending/:attending_id", h.Attending.Update)
	v1.DELETE("/events/:event_id/attending/:attending_id", h.Attending.Delete)

	// Invoices nested under an attendance record.  Mutations are
	// restricted to admins.
	inv := v1.Group("/events/:event_id/attending/:attending_id/invoices")
	inv.GET("", h.Invoices.List)
	inv.GET("/:invoice_id", h.Invoices.Get)

	admin := inv.Group("", middleware.RequireAdmin())
	admin.POST("", h.Invoices.Create)
	admin.PUT("/:invoice_id", h.Invoices.Update)
	admin.PATCH("/:invoice_id", h.Invoices.Update)
	admin.DELETE("/:invoice_id", h.Invoices.Delete)
}
