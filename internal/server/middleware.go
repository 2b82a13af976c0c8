package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/logger"
)

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Accept", "Content-Type", requestIDHeader}, ", ")
)

const corsMaxAge = 600

// cors answers preflight requests and allows the configured origins. A "*"
// entry allows any origin.
func (s *Server) cors() gin.HandlerFunc {
	allowAll := slices.Contains(s.cfg.CORSOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		c.Writer.Header().Add("Vary", "Origin")
		if !allowAll && !slices.Contains(s.cfg.CORSOrigins, origin) {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

const requestIDHeader = "X-Request-ID"

// accessLog writes one line per request. 5xx log at error, 4xx at warn.
// Requests without an X-Request-ID get a generated one, echoed back.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(started)),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("remote_addr", c.ClientIP()),
		}
		fields = append(fields, logger.StringFields(
			logger.StringField{Key: logger.FieldRequestID, Value: requestID},
		)...)

		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("http request completed with server error", fields...)
		case status >= http.StatusBadRequest:
			s.logger.Warn("http request completed with client error", fields...)
		default:
			s.logger.Info("http request completed", fields...)
		}
	}
}

// instrument records request metrics labelled by route template.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(started))
	}
}
