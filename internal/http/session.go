package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/config"
	"github.com/inkwell-hq/inkwell/internal/models"
	"github.com/inkwell-hq/inkwell/internal/security"
)

// currentUserKey is the gin context key for the resolved session user.
const currentUserKey = "currentUser"

// SessionMiddleware resolves the session token (cookie first, Authorization
// bearer as fallback) into the current user. It never aborts: protected
// paths are enforced later in the pipeline and by handlers.
func SessionMiddleware(db *gorm.DB, cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cfg.CookieName)
		if token == "" {
			c.Next()
			return
		}

		claims, errParse := security.ParseSessionToken(cfg.Secret, token)
		if errParse != nil {
			c.Next()
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.Next()
			return
		}
		if !user.IsActive {
			c.Next()
			return
		}

		c.Set(currentUserKey, &user)
		c.Next()
	}
}

// CurrentUser returns the session user resolved by SessionMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// sessionToken extracts the raw session token from the request.
func sessionToken(c *gin.Context, cookieName string) string {
	if cookie, errCookie := c.Cookie(cookieName); errCookie == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}
	return strings.TrimSpace(token)
}

// SetSessionCookie establishes an authenticated session on the response.
func SetSessionCookie(c *gin.Context, cfg config.SessionConfig, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, token, int(cfg.Expiry().Seconds()), "/", "", cfg.Secure, true)
}

// ClearSessionCookie ends the session on the response.
func ClearSessionCookie(c *gin.Context, cfg config.SessionConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.Secure, true)
}
