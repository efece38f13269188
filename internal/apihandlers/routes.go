package apihandlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the health check and the /api/v1 routes.
func RegisterRoutes(router gin.IRouter, h *APIHandler) {
	router.GET("/health", h.HealthHandler)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/cities", h.ListCitiesHandler)
		v1.GET("/pillars", h.ListPillarsHandler)

		runs := v1.Group("/runs")
		{
			runs.POST("", h.CreateRunHandler)
			runs.GET("", h.ListRunsHandler)
			runs.GET("/:id", h.GetRunHandler)
			runs.GET("/:id/report", h.RunReportHandler)
		}
	}
}
