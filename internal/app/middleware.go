package app

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/quizbot-go/internal/ctxutil"
	"github.com/garyellow/quizbot-go/internal/logger"
)

var requestIDHeaders = []string{"X-Request-Id", "X-Correlation-Id"}

// responseHeaders go on every response. Nothing served here is meant to
// be framed, sniffed or embedded.
var responseHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	{"Content-Security-Policy", "default-src 'none'"},
	{"X-Permitted-Cross-Domain-Policies", "none"},
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range responseHeaders {
			c.Header(h[0], h[1])
		}
		c.Next()
	}
}

// requestID takes the caller's correlation header, if any.
func requestID(c *gin.Context) string {
	for _, h := range requestIDHeaders {
		if id := c.GetHeader(h); id != "" {
			return id
		}
	}
	return ""
}

// logRequest picks the level by status: 5xx errors, rejected requests
// warn, and 404s and successes stay at debug so webhook traffic is quiet.
func logRequest(entry *logger.Logger, status int) {
	switch {
	case status >= http.StatusInternalServerError:
		entry.Error("HTTP request failed")
	case status >= http.StatusBadRequest && status != http.StatusNotFound:
		entry.Warn("HTTP request rejected")
	default:
		entry.Debug("HTTP request completed")
	}
}

func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := requestID(c)
		if id != "" {
			c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), id))
		}
		path := c.Request.URL.Path

		c.Next()

		fields := map[string]any{
			"http_method": c.Request.Method,
			"http_path":   path,
			"http_status": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		if id != "" {
			fields["request_id"] = id
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		logRequest(log.WithFields(fields), c.Writer.Status())
	}
}

// metricsAuthMiddleware enforces Basic Auth on /metrics when enabled.
func metricsAuthMiddleware(enabled bool, username, password string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	wantUser, wantPass := []byte(username), []byte(password)
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		// evaluate both comparisons so timing does not reveal which one failed
		userOK := subtle.ConstantTimeCompare([]byte(user), wantUser) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), wantPass) == 1
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", `Basic realm="metrics"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
