package user

import (
	"github.com/cptrack/cptrack/internal/api"
	"github.com/cptrack/cptrack/internal/cache"
	"github.com/cptrack/cptrack/internal/config"
	"github.com/cptrack/cptrack/internal/platform/leetcode"
	"github.com/cptrack/cptrack/internal/tracker"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewRouter creates and configures the user-facing Gin engine.
func NewRouter(
	cfg *config.Config,
	db *gorm.DB,
	store cache.Store,
	syncer *tracker.Syncer,
	service *tracker.Service,
	lc *leetcode.Client) *gin.Engine {

	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, store, syncer, service, lc)

	v1 := r.Group("/api/v1")
	{
		// Auth
		authGroup := v1.Group("/auth")
		{
			authGroup.GET("/status", h.getAuthStatus)

			if h.oidcHandler != nil {
				oidcGroup := authGroup.Group("/oidc")
				oidcGroup.GET("/login", h.oidcHandler.Login)
				oidcGroup.GET("/callback", h.oidcHandler.Callback)
			}

			if cfg.Auth.Local.Enabled {
				localAuthGroup := authGroup.Group("/local")
				{
					localAuthGroup.POST("/register", h.localRegister)
					localAuthGroup.POST("/login", h.localLogin)
				}
			}
		}

		// Websocket for sync progress with token authorization
		v1.GET("/ws/sync/:platform", h.handleSyncWs)

		// Publicly accessible info
		v1.GET("/daily-problem", h.getDailyProblem)
		v1.GET("/users/:id/stats", h.getPublicUserStats)

		// Authenticated routes
		authed := v1.Group("/")
		authed.Use(api.AuthMiddleware(cfg.Auth.JWT.Secret))
		{
			// User profile
			profile := authed.Group("/user")
			{
				profile.GET("/profile", h.getUserProfile)
				profile.PATCH("/profile", h.updateUserProfile)
				profile.DELETE("/profile", h.deleteUserAccount)
			}

			// Platform handles
			platforms := authed.Group("/platforms")
			{
				platforms.GET("", h.listPlatformProfiles)
				platforms.POST("/:platform/handle", h.linkHandle)
				platforms.DELETE("/:platform/handle", h.unlinkHandle)
				platforms.POST("/:platform/sync", h.resync)
			}

			// Aggregates
			authed.GET("/dashboard/stats", h.getDashboardStats)
			authed.GET("/heatmap", h.getHeatmap)
			authed.GET("/contests", h.getContests)

			analytics := authed.Group("/analytics")
			{
				analytics.GET("/data", h.getAnalyticsData)
				analytics.GET("/progress", h.getAnalyticsProgress)
				analytics.GET("/trends", h.getAnalyticsTrends)
			}
		}
	}

	return r
}
