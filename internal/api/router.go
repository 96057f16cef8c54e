package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/snacklabs/feedback-insights/internal/config"
	"github.com/snacklabs/feedback-insights/internal/handlers"
	"github.com/snacklabs/feedback-insights/internal/logger"
)

const corsMaxAgeHours = 12

// Options carries everything the router needs beyond the handler itself.
type Options struct {
	Server       config.ServerConfig
	JobsIndex    bool // registers the /jobs listing when true
	HealthChecks []func() error
}

func NewRouter(handler *handlers.FeedbackHandler, opts Options, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = int64(opts.Server.MaxUploadMB) << 20

	// CORS middleware - must be first
	router.Use(cors.New(cors.Config{
		AllowOrigins: opts.Server.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"Authorization", "accept", "origin", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeHours * time.Hour,
	}))

	// Middleware
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		for _, check := range opts.HealthChecks {
			if err := check(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1
	v1 := router.Group("/api/v1")

	feedback := v1.Group("/feedback")
	feedback.POST("/analyze", handler.Analyze)
	feedback.GET("/analysis/:job_id", handler.Info)
	feedback.POST("/export/:job_id", handler.Export)
	feedback.GET("/download/:job_id/:filename", handler.Download)
	feedback.GET("/stats", handler.Stats)
	if opts.JobsIndex {
		feedback.GET("/jobs", handler.ListJobs)
	}

	return router
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", statusCode),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", duration),
		)
	}
}
