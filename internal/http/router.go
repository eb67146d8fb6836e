package http

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/fjord-atlas/internal/metrics"
	"go.ngs.io/fjord-atlas/internal/usecase"
)

// SetupRouter creates and configures the Gin router. m may be nil, in which
// case no /metrics endpoint is mounted.
func SetupRouter(atlasUC *usecase.AtlasUseCase, m *metrics.Metrics) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery())
	if m != nil {
		router.Use(instrument(m))
	}

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable.
	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(atlasUC)

	// API v1 routes.
	v1 := router.Group("/v1")

	// Polygons.
	v1.GET("/fjords", handler.GetFjords)
	v1.GET("/fjords/:id", handler.GetFjord)
	v1.GET("/fjord-groups", handler.GetFjordGroups)
	v1.GET("/regions", handler.GetRegions)
	v1.GET("/fjord-gates/top", handler.GetTopGates)

	// Region metadata.
	v1.GET("/regions/names", handler.GetRegionNames)
	v1.GET("/regions/positions", handler.GetRegionPositions)
	v1.GET("/extents", handler.GetExtents)

	// Groups.
	v1.GET("/groups", handler.GetGroups)
	v1.GET("/groups/bounds", handler.GetGroupBounds)

	// Maps.
	v1.GET("/plot/:file", handler.GetPlot)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	return router
}

// instrument counts requests and their durations by route template.
func instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
