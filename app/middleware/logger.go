package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/pretty"

	"chronos/pkg/logger"
)

// RequestIDHeader carries the trace id of a request
const RequestIDHeader = "X-Request-ID"

const maxLoggedBody = 1000

// Logger logs every request through the zap logger. Each request gets a trace
// id (taken from X-Request-ID when present) that prefixes its log lines.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		traceID := c.GetHeader(RequestIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()[:8]
		}
		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, traceID)

		// Only bodies of mutating requests are worth logging
		var bodyStr string
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			bodyStr = getRequestBody(c)
		}

		c.Next()

		// Skip logging for 404 requests
		statusCode := c.Writer.Status()
		if statusCode == http.StatusNotFound && len(c.Errors) == 0 && c.FullPath() == "" {
			return
		}

		latency := time.Since(startTime)
		if bodyStr != "" {
			logger.InfoCtx(ctx, "[GIN] %3d | %13v | %15s | %s %s | body: %s",
				statusCode, latency, c.ClientIP(), c.Request.Method, c.Request.RequestURI, bodyStr)
			return
		}
		logger.InfoCtx(ctx, "[GIN] %3d | %13v | %15s | %s %s",
			statusCode, latency, c.ClientIP(), c.Request.Method, c.Request.RequestURI)
	}
}

// getRequestBody gets request body content
func getRequestBody(c *gin.Context) string {
	var bodyBytes []byte
	if c.Request.Body != nil {
		bodyBytes, _ = io.ReadAll(c.Request.Body)
		// Reset request body since reading it clears it
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}
	return CompressBody(string(bodyBytes))
}

// CompressBody compresses JSON using pretty package
func CompressBody(body string) string {
	if len(body) == 0 {
		return ""
	}

	// Compress JSON, ugly=true means remove all whitespace
	compressed := pretty.Ugly([]byte(body))
	if len(compressed) > maxLoggedBody {
		return string(compressed[:maxLoggedBody]) + "..."
	}
	return string(compressed)
}
