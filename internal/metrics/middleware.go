package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetricsMiddleware records request counts and durations. The route
// template (not the raw URL) is used as the path label to keep cardinality
// bounded.
func HTTPMetricsMiddleware(recorder Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		recorder.RecordHTTPRequest(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		)
		recorder.ObserveHTTPRequestDuration(
			c.Request.Method,
			path,
			time.Since(start).Seconds(),
		)
	}
}
