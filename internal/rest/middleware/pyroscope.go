package middleware

import (
	"context"

	"github.com/flexprice/billing/internal/pyroscope"
	"github.com/gin-gonic/gin"
)

// PyroscopeMiddleware labels the profiling samples of a request with its route and method
func PyroscopeMiddleware(profiler *pyroscope.Profiler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if profiler == nil || !profiler.Enabled() {
			c.Next()
			return
		}

		labels := map[string]string{
			"method":   c.Request.Method,
			"endpoint": c.FullPath(),
		}
		profiler.TagWrapper(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
