package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/vistaro/booking-service/internal/handler"
	"github.com/vistaro/booking-service/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Unauthenticated
// operations live under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout works with either an access token or a refresh token in the
	// body, so it stays outside the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
	auth.GET("/me", a.Me)
}

// RegisterCatalog registers the public browse endpoints for slots and
// foods.  These are safe to cache; the cache middleware is passed in so
// the caller can disable it when Redis is unavailable.
func RegisterCatalog(e *echo.Echo, s *handler.SlotHandler, f *handler.FoodHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/api/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/eventslot", s.List)
	g.GET("/eventslot/:id", s.GetByID)
	g.GET("/food", f.ListAll)
	g.GET("/food/:id", f.GetByID)
	g.GET("/food/slot/:slotId", f.GetFoodsForSlot)
}

// RegisterSeats registers the seat map read and the lock/unlock endpoints.
// The seat map is public and deliberately uncached: stale availability
// would make the picker lie to users.  Lock and unlock require a session
// and sit behind the rate limiter.
func RegisterSeats(e *echo.Echo, h *handler.SeatHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	e.GET("/api/v1/seat/slot/:slotId", h.GetSeatsForSlot)

	g := e.Group("/api/v1/seat")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
	if limit != nil {
		g.Use(limit)
	}
	g.POST("/lock", h.LockSeats)
	g.POST("/unlock", h.UnlockSeats)
}

// RegisterBookings registers booking creation and lookups.  All routes
// require a session; the slot listing and the full listing are admin only.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/api/v1/booking")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))

	create := g.Group("")
	if limit != nil {
		create.Use(limit)
	}
	create.POST("/add", h.Create)

	g.GET("", h.ListMine)
	g.GET("/:id", h.GetByID)

	admin := g.Group("", middleware.RequireRole("ADMIN"))
	admin.GET("/all", h.ListAll)
	admin.GET("/slot/:slotId", h.ListBySlot)
}
