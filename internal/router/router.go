package router

import (
	"net/http"
	"time"

	"rollcall/internal/handler"
	"rollcall/internal/middleware"
	"rollcall/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func NewRouter(
	serverHandler *handler.Server,
	configManager types.ConfigManager,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Register global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(configManager.GetLogConfig()))
	router.Use(middleware.CORS(configManager.GetCORSConfig()))
	router.Use(middleware.RateLimiter(configManager.GetPerformanceConfig()))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	startTime := time.Now()
	router.Use(func(c *gin.Context) {
		c.Set("serverStartTime", startTime)
		c.Next()
	})

	registerSystemRoutes(router, serverHandler)
	registerAPIRoutes(router, serverHandler, configManager)

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	return router
}

// registerSystemRoutes registers system-level routes
func registerSystemRoutes(router *gin.Engine, serverHandler *handler.Server) {
	router.GET("/health", serverHandler.Health)
}

// registerAPIRoutes registers API routes
func registerAPIRoutes(
	router *gin.Engine,
	serverHandler *handler.Server,
	configManager types.ConfigManager,
) {
	api := router.Group("/api")

	authConfig := configManager.GetAuthConfig()

	// Check-in endpoint. Member-facing, no admin key required.
	api.POST("/checkin", serverHandler.CheckIn)
	api.GET("/window", serverHandler.WindowStatus)

	// Administrative routes
	admin := api.Group("/admin")
	admin.Use(middleware.Auth(authConfig))
	{
		admin.POST("/force-mark", serverHandler.ForceMark)
		admin.POST("/sweep", serverHandler.TriggerSweep)

		reports := admin.Group("/reports")
		{
			reports.GET("/daily", serverHandler.DailyReport)
			reports.GET("/monthly", serverHandler.MonthlyReport)
		}

		exports := admin.Group("/exports")
		{
			exports.POST("/daily", serverHandler.ExportDaily)
			exports.POST("/monthly", serverHandler.ExportMonthly)
		}

		settings := admin.Group("/settings")
		{
			settings.GET("", serverHandler.GetSettings)
			settings.PUT("", serverHandler.UpdateSettings)
		}

		members := admin.Group("/members")
		{
			members.GET("", serverHandler.ListMembers)
			members.PUT("/:external_id", serverHandler.UpdateMember)
		}
	}
}
