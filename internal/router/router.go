// Package router registers the HTTP routes and ties handlers to their
// middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/satriadp/meeting-room-reservation/internal/booking"
	"github.com/satriadp/meeting-room-reservation/internal/config"
	"github.com/satriadp/meeting-room-reservation/internal/handler"
	"github.com/satriadp/meeting-room-reservation/internal/middleware"
	"github.com/satriadp/meeting-room-reservation/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Rooms     *handler.RoomHandler
	Bookings  *handler.BookingHandler
	Profile   *handler.ProfileHandler
	Stats     *handler.StatsHandler
	Analytics *handler.AnalyticsHandler
	AdminRoom *handler.AdminRoomHandler
	AdminUser *handler.AdminUserHandler
	Sync      *handler.SyncHandler
}

// Register mounts all routes. Unauthenticated endpoints are the health
// check and the /v1/auth group; everything else requires a valid JWT.
// Admin routes additionally require the ADMIN or SUPER_ADMIN role.
// Cacheable read views are wrapped in the Redis response cache so the
// engine's invalidations line up with what is actually cached.
func Register(e *echo.Echo, h Handlers, cfg config.Config, cacheCfg config.CacheConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)
	e.Static("/uploads", "uploads")

	// Session endpoints; logout works without the JWT middleware so an
	// expired session can still be closed with its refresh token.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/refresh-access", h.Auth.RefreshAccess)
	auth.POST("/logout", h.Auth.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole(model.RoleEmployee, model.RoleAdmin, model.RoleSuperAdmin))

	v1.GET("/me", h.Auth.Me)
	v1.GET("/profile", h.Profile.Get)
	v1.PATCH("/profile", h.Profile.Update)
	v1.POST("/profile/avatar", h.Profile.UploadAvatar)

	schedule := middleware.CachedView(cacheCfg, rdb, booking.ViewSchedule)
	v1.GET("/rooms", h.Rooms.List, schedule)
	v1.GET("/rooms/:id", h.Rooms.Get, schedule)
	v1.GET("/rooms/:id/slots", h.Rooms.Slots, schedule)

	bookingView := middleware.CachedView(cacheCfg, rdb, booking.ViewBooking)
	v1.GET("/bookings", h.Bookings.List, bookingView)
	v1.GET("/bookings/:id", h.Bookings.Get, bookingView)
	v1.POST("/bookings", h.Bookings.Create)
	v1.PATCH("/bookings/:id", h.Bookings.Modify)
	v1.POST("/bookings/:id/cancel", h.Bookings.Cancel)
	v1.POST("/bookings/:id/extend", h.Bookings.Extend)
	v1.POST("/bookings/:id/end", h.Bookings.EndEarly)
	v1.POST("/bookings/:id/check-in", h.Bookings.CheckIn)

	v1.GET("/stats", h.Stats.Dashboard, middleware.CachedView(cacheCfg, rdb, booking.ViewDashboard))

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin))

	admin.GET("/rooms", h.AdminRoom.ListAll)
	admin.POST("/rooms", h.AdminRoom.Create)
	admin.PUT("/rooms/:id", h.AdminRoom.Update)
	admin.DELETE("/rooms/:id", h.AdminRoom.Deactivate)

	admin.GET("/users", h.AdminUser.List)
	admin.POST("/users", h.AdminUser.Create)
	admin.PATCH("/users/:id", h.AdminUser.Update)
	admin.DELETE("/users/:id", h.AdminUser.Delete)

	admin.GET("/analytics", h.Analytics.Usage, middleware.CachedView(cacheCfg, rdb, booking.ViewAnalytics))
	admin.POST("/sync/pull", h.Sync.Pull)
	admin.POST("/sync/push", h.Sync.Push)
}
