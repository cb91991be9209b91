package server

import (
	"github.com/vik9541/super-brain-digital-twin/internal/server/middleware"
	"github.com/vik9541/super-brain-digital-twin/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Graph recommendation routes
	apiRoutes.GET("/recommendations/:workspace_id/:contact_id", routes.GetRecommendationsHandler, middleware.RequirePermission("recommendation.view"))
	apiRoutes.POST("/train/:workspace_id", routes.TrainModelHandler, middleware.RequirePermission("model.train"))
	apiRoutes.GET("/model-status/:workspace_id", routes.GetModelStatusHandler, middleware.RequirePermission("model.view"))

	// Semantic embedding routes
	apiRoutes.POST("/embeddings/:workspace_id/generate", routes.GenerateEmbeddingsHandler, middleware.RequirePermission("embedding.create"))
	apiRoutes.GET("/similar/:workspace_id/:contact_id", routes.GetSimilarContactsHandler, middleware.RequirePermission("embedding.view"))
}
