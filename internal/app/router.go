package app

import (
	"skillpath_backend/internal/config"
	"skillpath_backend/internal/middleware"

	"skillpath_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/health", c.health.HealthCheck)
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", c.auth.Register)
		auth.POST("/login", c.auth.Login)
		auth.GET("/me", middleware.AuthMiddleware(cfg), c.auth.Me)
	}

	roadmaps := api.Group("/roadmaps")
	{
		// Reads only require auth for private roadmaps, so they carry the
		// optional variant and let the service enforce visibility.
		roadmaps.GET("", middleware.TryAuthMiddleware(cfg), c.roadmap.List)
		roadmaps.GET("/:id", middleware.TryAuthMiddleware(cfg), c.roadmap.Get)

		roadmaps.POST("", middleware.AuthMiddleware(cfg), c.roadmap.Create)
		roadmaps.PUT("/:id", middleware.AuthMiddleware(cfg), c.roadmap.Update)
		roadmaps.DELETE("/:id", middleware.AuthMiddleware(cfg), c.roadmap.Delete)
	}

	quizzes := api.Group("/quizzes", middleware.AuthMiddleware(cfg))
	{
		quizzes.POST("/:id/submit", c.progress.SubmitQuiz)
	}

	progress := api.Group("/progress", middleware.AuthMiddleware(cfg))
	{
		progress.GET("", c.progress.GetUserProgress)
		progress.GET("/:roadmapId", c.progress.GetRoadmapProgress)
		progress.POST("", c.progress.UpsertProgress)
	}
}
