package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-Id"
	RequestIDKey    = "request_id"
	// SessionKey is set by handlers that learn the session from the body so
	// the access line carries it too.
	SessionKey = "session_id"
)

// RequestLogger writes one access line per request, tagged with the request
// id (taken from X-Request-Id or generated) and the session when known.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(RequestIDHeader, reqID)
		c.Set(RequestIDKey, reqID)
		if sid := c.Param("session_id"); sid != "" {
			c.Set(SessionKey, sid)
		}

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			RequestIDKey: reqID,
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"bytes":      c.Writer.Size(),
		}
		if sid := c.GetString(SessionKey); sid != "" {
			fields[SessionKey] = sid
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		l.WithFields(fields).Log(accessLevel(status), "request")
	}
}

func accessLevel(status int) logrus.Level {
	if status >= 500 {
		return logrus.ErrorLevel
	}
	if status >= 400 {
		return logrus.WarnLevel
	}
	return logrus.InfoLevel
}
