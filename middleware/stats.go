package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/seo-optimizer/backend/logging"
)

// saveEvery is how many analysis requests pass between statistics snapshots.
const saveEvery = 100

// StatsMiddleware tracks visitors and analysis requests. The scanned URL is read
// from the "scanURL" context key, which the analyze handler sets.
func StatsMiddleware(stats *logging.Statistics, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		stats.TrackVisitor(c.ClientIP())

		c.Next()

		// Only track analysis requests
		if c.Request.Method != http.MethodPost || c.FullPath() != "/api/analyze" {
			return
		}
		loadTime := float64(time.Since(start).Milliseconds())
		stats.TrackAnalysis(c.GetString(ScanURLKey), loadTime, c.Writer.Status() >= http.StatusBadRequest)

		if stats.TotalRequests()%saveEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					log.Warn().Err(err).Msg("could not save request statistics")
				}
			}()
		}
	}
}

// ScanURLKey is the gin context key carrying the URL being analyzed.
const ScanURLKey = "scanURL"
