package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lwitkowski/aero-offers/internal/tracing"
)

const (
	traceIDKey   = "trace_id"
	sessionIDKey = "session_id"
)

// TraceID takes the trace id from the request header or creates one, and
// passes it on through the request context.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(tracing.Header)
		if id == "" {
			id = tracing.NewTraceID()
		}
		c.Set(traceIDKey, id)
		c.Request = c.Request.WithContext(tracing.ContextWithTraceID(c.Request.Context(), id))
		c.Header(tracing.Header, id)
		c.Next()
	}
}

// RequestLogger logs every request once it has been served.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"latency":  time.Since(start).String(),
			"trace_id": traceID(c),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Error("Request failed")
			return
		}
		if c.Writer.Status() >= 500 {
			entry.Warn("Request served with server error")
			return
		}
		entry.Debug("Request served")
	}
}

func traceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}
