package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/supportchat-backend/internal/observability"
)

// Metrics records request counts and latency by route template. WebSocket
// sessions are counted but kept out of the latency histogram, and the
// scrape endpoint does not measure itself.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		upgrade := isWebSocketUpgrade(c)
		start := time.Now()
		if !upgrade {
			m.HTTPInflightInc()
			defer m.HTTPInflightDec()
		}

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		if upgrade {
			m.CountHTTP(c.Request.Method, route, status)
			return
		}
		m.ObserveHTTP(c.Request.Method, route, status, time.Since(start))
	}
}

func isWebSocketUpgrade(c *gin.Context) bool {
	return headerHasToken(c.GetHeader("Connection"), "upgrade") && headerHasToken(c.GetHeader("Upgrade"), "websocket")
}
