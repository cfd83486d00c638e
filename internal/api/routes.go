package api

import (
	"github.com/gin-gonic/gin"

	"github.com/menta2k/bin-go/internal/telemetry"
)

// RegisterRoutes mounts all service endpoints on router
func RegisterRoutes(router *gin.Engine, h *Handler, metrics *telemetry.Provider) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// Kept at the top level for existing frontends
	router.POST("/analyze", h.AnalyzeText)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", h.AnalyzeText)
		v1.POST("/analyze/label", h.AnalyzeLabel)
		v1.POST("/analyze/image", h.AnalyzeImage)
		v1.GET("/donation-sites", h.DonationSites)
		v1.GET("/requests/:action", h.RequestState)
	}
}
