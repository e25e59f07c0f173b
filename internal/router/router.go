package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/handler"
	"github.com/stemsi/coursehub-backend/internal/middleware"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
)

// Handlers groups all handler instances for route setup. In degraded mode
// only System is set.
type Handlers struct {
	System *handler.SystemHandler
	Course *handler.CourseHandler
	Auth   *handler.AuthHandler
	WS     *handler.WSHandler
}

// Degraded reports whether the catalog handlers are missing.
func (h *Handlers) Degraded() bool {
	return h.Course == nil || h.Auth == nil || h.WS == nil
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	metrics *service.MetricsService,
	loginLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request IDs first so every response, including errors, carries one.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics(metrics))
	router.Use(middleware.Brotli())

	// ─── System ────────────────────────────────────────────────────────
	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", handlers.System.Metrics)

	if handlers.Degraded() {
		setupDegradedRoutes(router, handlers.System)
		return router
	}

	// ─── 1. Public catalog ─────────────────────────────────────────────
	courses := router.Group("/api/v1/courses")
	courses.Use(middleware.NoStore())
	{
		courses.GET("", handlers.Course.ListCourses)
		courses.GET("/events", handlers.Course.CourseEvents)
		courses.GET("/:id", handlers.Course.GetCourse)
	}

	router.GET("/api/v1/catalog/filters", middleware.CacheControl(time.Hour), handlers.Course.GetFilters)

	// ─── 2. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/admin/login", loginLimiter.Middleware(), handlers.Auth.AdminLogin)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/courses", handlers.WS.CourseStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/courses",
			middleware.RequirePermission(model.PermissionCoursesWrite),
			handlers.Course.CreateCourse,
		)
		adminAPI.PUT("/courses/:id",
			middleware.RequirePermission(model.PermissionCoursesWrite),
			handlers.Course.UpdateCourse,
		)
		adminAPI.DELETE("/courses/:id",
			middleware.RequirePermission(model.PermissionCoursesWrite),
			handlers.Course.DeleteCourse,
		)
		adminAPI.POST("/courses/refetch",
			middleware.RequirePermission(model.PermissionCoursesRefetch),
			handlers.Course.RefetchCourses,
		)
	}

	return router
}

// setupDegradedRoutes answers every catalog route with 503 until the process
// is restarted with a valid configuration.
func setupDegradedRoutes(router *gin.Engine, system *handler.SystemHandler) {
	for _, prefix := range []string{"/api/v1", "/ws/v1"} {
		group := router.Group(prefix)
		group.Any("/*path", system.Unavailable)
	}
}
