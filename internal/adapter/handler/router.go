package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	segmentHandler *Segment
	opinionHandler *Opinion
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, segmentHandler *Segment, opinionHandler *Opinion) *Router {
	return &Router{
		cfg:            cfg,
		segmentHandler: segmentHandler,
		opinionHandler: opinionHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupSegmentRoutes(v1)
	rt.setupOpinionRoutes(v1)
}

// setupSegmentRoutes configures segmentation routes
func (rt *Router) setupSegmentRoutes(g *echo.Group) {
	segmentGroup := g.Group("/segment")
	segmentGroup.POST("/boundaries", rt.segmentHandler.Boundaries)
	segmentGroup.POST("/blocks", rt.segmentHandler.Blocks)
	segmentGroup.POST("/run", rt.segmentHandler.Run)
	segmentGroup.POST("/from-transcription", rt.segmentHandler.FromTranscription)
	segmentGroup.POST("/from-audio", rt.segmentHandler.FromAudio)

	g.GET("/segments/:video_id", rt.segmentHandler.GetSegments)
	g.GET("/exports/:video_id", rt.segmentHandler.GetExport)
}

// setupOpinionRoutes configures opinion detection routes
func (rt *Router) setupOpinionRoutes(g *echo.Group) {
	opinionGroup := g.Group("/opinions")
	opinionGroup.POST("/detect", rt.opinionHandler.Detect)
	opinionGroup.POST("/detect/batch", rt.opinionHandler.DetectBatch)

	g.GET("/chunks/:chunk_id", rt.opinionHandler.GetChunk)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
		"model":       rt.cfg.OpenAI.Model,
	})
}
