package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPObserver records request metrics.
type HTTPObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics captures request metrics using the provided observer. Routes are
// labelled by their pattern; unmatched requests are grouped under "unmatched".
func Metrics(obs HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if obs == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		obs.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
