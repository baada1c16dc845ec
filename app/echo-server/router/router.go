package router

import (
	"novaReco/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetRecommendationRoutes(api *echo.Group, handler *rest.RecommendationHandler) {
	api.GET("/recommendations", handler.Get)
}

func SetupProductRoutes(api *echo.Group, handler *rest.ProductHandler) {
	products := api.Group("/products")

	products.POST("", handler.EnsureProduct)
	products.GET("/:shop/popular", handler.ListPopular)
	products.GET("/:shop/:productId", handler.GetProduct)
}

func SetEventRoutes(api *echo.Group, handler *rest.EventHandler) {
	events := api.Group("/events")
	events.POST("/views", handler.RecordView)
	events.POST("/cart", handler.RecordCartEvent)
	events.POST("/orders", handler.RecordOrder)

	api.POST("/users/profile", handler.TouchUserProfile)
}

func SetAdminRoutes(api *echo.Group, handler *rest.AdminHandler, guards ...echo.MiddlewareFunc) {
	admin := api.Group("/admin", guards...)
	admin.POST("/recommendations/recompute", handler.Recompute)
	admin.POST("/popularity/recompute", handler.RecomputePopularity)
}

func SetHealthRoutes(e *echo.Echo, handler *rest.HealthHandler) {
	e.GET("/healthz", handler.Health)
}
