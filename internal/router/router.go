package router // route registration for the reservation API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-seat-reservation/internal/config"
	"github.com/iliyamo/event-seat-reservation/internal/handler"
	"github.com/iliyamo/event-seat-reservation/internal/middleware"
	"github.com/iliyamo/event-seat-reservation/internal/model"
)

// Deps carries everything route registration needs.  The Redis client
// may be nil, in which case caching and rate limiting are skipped.
type Deps struct {
	Cfg     config.Config
	Auth    *handler.AuthHandler
	Events  *handler.EventHandler
	Booking *handler.BookingHandler
	Redis   *redis.Client
}

// Register wires up all routes.  Browse endpoints are public, the
// booking lifecycle requires a valid access token, and event creation
// is restricted to admins.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	rl := middleware.RateLimit(config.LoadRateLimitConfig(), d.Redis)
	cache := middleware.ResponseCache(config.LoadCacheConfig(), d.Redis)

	// Account endpoints.
	auth := e.Group("/v1/auth", rl)
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)

	// Public browsing.  Seat availability is read-heavy and sits
	// behind the short-TTL response cache.
	e.GET("/v1/events", d.Events.List, rl)
	e.GET("/v1/events/:id/seats", d.Events.Seats, rl, cache)

	// Booking lifecycle, authenticated.
	v1 := e.Group("/v1", middleware.JWTAuth(d.Cfg.JWTSecret), rl)
	v1.POST("/events/:id/bookings", d.Booking.Claim)
	v1.GET("/bookings/:id", d.Booking.Get)
	v1.POST("/bookings/:id/confirm", d.Booking.Confirm)
	v1.POST("/bookings/:id/cancel", d.Booking.Cancel)

	// Event administration.
	admin := e.Group("/v1/admin", middleware.JWTAuth(d.Cfg.JWTSecret), middleware.RequireRole(model.RoleAdmin))
	admin.POST("/events", d.Events.Create)
}
