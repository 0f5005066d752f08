package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Sternrassler/pokeapi-explorer/pkg/logging"
	"github.com/Sternrassler/pokeapi-explorer/pkg/metrics"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// requestID accepts a well-formed incoming X-Request-ID or generates one,
// echoes it on the response and attaches a tagged logger to the request
// context.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), s.logger, id))

		c.Next()
	}
}

// observe records inbound metrics and an access log entry.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		metrics.ObserveRequest(c.FullPath(), c.Request.Method, strconv.Itoa(status), elapsed.Seconds())

		logger := logging.FromContext(c.Request.Context())
		event := logger.Debug()
		if status >= 500 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("Request handled")
	}
}
