package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger prints one access line per request. Server errors also carry the
// errors handlers attached with c.Error.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		line := "[HTTP] request_id=%s method=%s path=%s status=%d latency_ms=%.3f ip=%s"
		args := []any{
			GetRequestID(c),
			c.Request.Method,
			c.FullPath(),
			status,
			float64(time.Since(start).Microseconds()) / 1000.0,
			c.ClientIP(),
		}
		if status >= 500 && len(c.Errors) > 0 {
			line += " err=%q"
			args = append(args, c.Errors.String())
		}
		log.Printf(line, args...)
	}
}
