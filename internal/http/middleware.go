package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/bans"
	"github.com/inkwell-hq/inkwell/internal/metrics"
)

// apiPrefix scopes traffic logging and unauthorized-access enforcement.
const apiPrefix = "/api/"

// securityHeaders are set on every response unless the handler already set
// them, so re-running the stage is a no-op.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
}

// headersToRemove are identifying headers stripped from every response.
var headersToRemove = []string{
	"Server",
	"X-Powered-By",
}

// protectedAPIPaths require an authenticated session.
var protectedAPIPaths = []string{
	"/api/auth/me/",
	"/api/my-posts/",
	"/api/admin/",
}

// allowedAnyPaths are reachable without authentication even though they sit
// under a protected prefix.
var allowedAnyPaths = []string{
	"/api/admin/status",
	"/api/admin/setup",
	"/api/admin/login",
}

// SecurityHeadersMiddleware strips identifying headers and injects hardening
// headers. Runs first so the headers are present on every response,
// including pipeline short-circuits.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		for _, name := range headersToRemove {
			header.Del(name)
		}
		for _, pair := range securityHeaders {
			if header.Get(pair[0]) == "" {
				header.Set(pair[0], pair[1])
			}
		}
		c.Next()
	}
}

// BlockBannedIPMiddleware rejects requests from banned addresses before any
// other processing. Ban-store failures let the request through.
func BlockBannedIPMiddleware(store *bans.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ClientIP(c.Request)
		if ip == "" {
			c.Next()
			return
		}
		if store.IsBanned(c.Request.Context(), ip) {
			metrics.BlockedRequests.Inc()
			c.String(http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// TrafficLogMiddleware records one traffic row per API request with the
// final status code. Positioned after the ban check so blocked requests
// leave no traffic trace, and before the handler chain so it observes
// every other outcome, including 401 short-circuits and 404s.
func TrafficLogMiddleware(recorder *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.Request.URL.Path
		if !strings.HasPrefix(path, apiPrefix) {
			return
		}
		recorder.Traffic(
			c.Request.Context(),
			ClientIP(c.Request),
			path,
			c.Request.Method,
			c.Writer.Status(),
			c.Request.UserAgent(),
		)
	}
}

// UnauthorizedAccessMiddleware rejects unauthenticated requests to protected
// paths with 401 and records the attempt for the admin portal.
func UnauthorizedAccessMiddleware(recorder *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, allowed := range allowedAnyPaths {
			if strings.HasPrefix(path, allowed) {
				c.Next()
				return
			}
		}
		protected := false
		for _, prefix := range protectedAPIPaths {
			if strings.HasPrefix(path, prefix) {
				protected = true
				break
			}
		}
		if !protected {
			c.Next()
			return
		}
		if _, ok := CurrentUser(c); ok {
			c.Next()
			return
		}

		ip := ClientIP(c.Request)
		log.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"ip":         ip,
			"user_agent": c.Request.UserAgent(),
		}).Warn("unauthorized access attempt")
		metrics.UnauthorizedAttempts.Inc()
		recorder.Record(c.Request.Context(), audit.Entry{
			IPAddress: ip,
			Path:      path,
			Method:    c.Request.Method,
			Action:    audit.ActionUnauthorizedAttempt,
			Details: map[string]any{
				"user_agent": audit.TruncateUserAgent(c.Request.UserAgent()),
			},
		})
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"detail": "You are not authorized to access this resource",
		})
	}
}
