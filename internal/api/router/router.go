package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/deck-generator/internal/api/handlers/deck"
	"github.com/aliskhannn/deck-generator/internal/middleware"
)

func Setup(h *deck.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/health", h.Health)

	api := r.Group("/api")

	api.POST("/generate", h.Generate)         // submitting content for generation
	api.GET("/jobs/:id", h.Status)            // polling job status and progress
	api.POST("/jobs/:id/cancel", h.Cancel)    // requesting cooperative cancellation
	api.GET("/jobs/:id/download", h.Download) // retrieving the rendered deck

	return r
}
