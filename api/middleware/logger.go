package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
)

// RequestLogger logs one line per request. Requests to skipPaths are only
// logged when they fail.
func RequestLogger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		if p != "" {
			skip[p] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		status := c.Writer.Status()
		if _, quiet := skip[c.Request.URL.Path]; quiet && status < 400 {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"route":       route,
			"status":      status,
			"duration_ms": float64(time.Since(began).Microseconds()) / 1000,
			"bytes":       c.Writer.Size(),
			"client_ip":   c.ClientIP(),
			"trace_id":    GetTraceID(c),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.ByType(gin.ErrorTypeAny).String())
		}

		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
