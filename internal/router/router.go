// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ndelacroix/culture-pass/internal/handler"
	"github.com/ndelacroix/culture-pass/internal/middleware"
	"github.com/ndelacroix/culture-pass/internal/model"
)

// RegisterRoutes registers routes that require no authentication: the
// health probe and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the session endpoints under /v1/auth plus the
// authenticated /v1/me profile route.  The limiter sits after JWTAuth
// on authenticated groups so user-scoped rate keys see the real id.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.Use(limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(limit)
	auth.POST("/logout", a.Logout)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints,
// optionally wrapped in the Redis response cache.  The limiter runs
// before the cache so hits are rate limited too.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/offers")
	g.Use(limit)
	if cache != nil {
		g.Use(cache)
	}
	g.GET("", p.Search)
	g.GET("/popular", p.Popular)
	g.GET("/:id", p.GetOffer)
	e.GET("/v1/subcategories", p.Subcategories, limit)
}

// RegisterBeneficiary registers the booking endpoints reserved to
// beneficiaries.
func RegisterBeneficiary(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(limit)
	g.Use(middleware.RequireRole(model.RoleBeneficiary))
	g.POST("", b.Book)
	g.GET("", b.List)
	g.GET("/:id", b.Get)
	g.POST("/:id/cancel", b.Cancel)
}

// RegisterPro registers the back-office endpoints reserved to pros:
// offerer/venue management, offer and stock management, countermark
// validation and booking exports.
func RegisterPro(e *echo.Echo, v *handler.ProVenueHandler, o *handler.ProOfferHandler, b *handler.ProBookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/pro")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(limit)
	g.Use(middleware.RequireRole(model.RolePro))

	g.POST("/offerers", v.CreateOfferer)
	g.GET("/offerers", v.ListOfferers)
	g.GET("/offerers/:id", v.GetOfferer)
	g.POST("/offerers/:id/validate", v.ValidateOfferer)
	g.GET("/offerers/:id/venues", v.ListVenues)
	g.POST("/venues", v.CreateVenue)

	g.POST("/offers", o.CreateOffer)
	g.GET("/offers", o.ListOffers)
	g.GET("/offers/:id", o.GetOffer)
	g.PATCH("/offers/:id/active", o.SetOfferActive)
	g.DELETE("/offers/:id", o.DeleteOffer)
	g.POST("/stocks", o.CreateStock)
	g.PUT("/stocks/:id", o.UpdateStock)
	g.DELETE("/stocks/:id", o.DeleteStock)

	g.GET("/bookings", b.List)
	g.GET("/bookings/export", b.Export)
	g.GET("/bookings/token/:token", b.GetByToken)
	g.POST("/bookings/token/:token/use", b.Use)
	g.POST("/bookings/token/:token/unuse", b.Unuse)
	g.POST("/bookings/:id/cancel", b.Cancel)
}
