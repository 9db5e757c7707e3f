package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/seo-optimizer/backend/analyzer"
	"github.com/seo-optimizer/backend/history"
	"github.com/seo-optimizer/backend/logging"
	"github.com/seo-optimizer/backend/middleware"
	"github.com/seo-optimizer/backend/report"
)

type server struct {
	analyzer *analyzer.Analyzer
	history  history.Store
	requests *logging.Statistics
	log      zerolog.Logger
	devMode  bool
}

func (s *server) router(rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()

	r.Use(middleware.ErrorHandler(s.log))
	r.Use(middleware.RequestLogger(s.log))
	r.Use(rateLimiter.RateLimit())
	r.Use(cors())
	r.Use(middleware.StatsMiddleware(s.requests, s.log))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/analyze", s.analyzeURL)

		api.GET("/history", s.listHistory)
		api.GET("/history/export.csv", s.exportHistory)
		api.GET("/history/:id", s.getHistory)
		api.DELETE("/history/:id", s.deleteHistory)

		api.GET("/statistics", s.statistics)
	}
	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// scanErrorStatus maps a failed scan to an HTTP status and a short message.
func scanErrorStatus(err error) (int, string) {
	fe, ok := analyzer.IsFetchError(err)
	if !ok {
		return http.StatusInternalServerError, "Failed to analyze URL"
	}
	switch fe.Kind {
	case analyzer.FetchInvalidURL:
		return http.StatusBadRequest, fe.Error()
	case analyzer.FetchTimeout:
		return http.StatusGatewayTimeout, fe.Error()
	default:
		return http.StatusBadGateway, fe.Error()
	}
}

func (s *server) analyzeURL(c *gin.Context) {
	var request struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
		return
	}
	c.Set(middleware.ScanURLKey, request.URL)

	result, err := s.analyzer.Analyze(c.Request.Context(), request.URL)
	if err != nil {
		status, msg := scanErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	rec := history.NewRecord(request.URL, *result)
	if err := s.history.Append(c.Request.Context(), rec); err != nil {
		// The scan itself succeeded, so it is still returned
		s.log.Error().Err(err).Str("url", request.URL).Msg("Could not store scan in history")
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) listHistory(c *gin.Context) {
	records, err := s.history.List(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Could not list history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *server) getHistory(c *gin.Context) {
	rec, err := s.history.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Could not load scan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load scan"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *server) deleteHistory(c *gin.Context) {
	err := s.history.Remove(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Could not delete scan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete scan"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) exportHistory(c *gin.Context) {
	records, err := s.history.List(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Could not list history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load history"})
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="seo-history.csv"`)
	if err := report.WriteCSV(c.Writer, records); err != nil {
		s.log.Error().Err(err).Msg("Could not write CSV export")
	}
}

func (s *server) statistics(c *gin.Context) {
	response := gin.H{
		"requests": s.requests.GetStatistics(s.devMode),
		"cache":    s.analyzer.GetCacheStats(),
	}
	if storage := s.analyzer.GetStats(); storage != nil {
		current := storage.GetCurrentStats()
		response["scans"] = gin.H{
			"month":         current,
			"averageScore":  current.AverageScore(),
			"monthsTracked": storage.GetAllMonths(),
		}
	}
	c.JSON(http.StatusOK, response)
}
