package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl marks successful responses as publicly cacheable for maxAge.
// Used for option lists that only change on redeploy.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	header := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	return func(c *gin.Context) {
		c.Header("Cache-Control", header)
		c.Next()
	}
}

// NoStore disables caching for live data.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
