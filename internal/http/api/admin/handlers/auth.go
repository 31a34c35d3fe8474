package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/audit"
	"github.com/inkwell-hq/inkwell/internal/config"
	internalhttp "github.com/inkwell-hq/inkwell/internal/http"
	"github.com/inkwell-hq/inkwell/internal/models"
	"github.com/inkwell-hq/inkwell/internal/security"
)

// AuthHandler handles admin session endpoints.
type AuthHandler struct {
	db         *gorm.DB
	sessionCfg config.SessionConfig
	recorder   *audit.Recorder
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, sessionCfg config.SessionConfig, recorder *audit.Recorder) *AuthHandler {
	return &AuthHandler{db: db, sessionCfg: sessionCfg, recorder: recorder}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a staff user. Valid credentials for a non-staff user
// are rejected exactly like bad credentials.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}
	username := strings.TrimSpace(body.Username)

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials or not an admin."})
		return
	}
	if !user.IsActive || !user.IsStaff || !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials or not an admin."})
		return
	}

	token, errToken := security.GenerateSessionToken(h.sessionCfg.Secret, user.ID, user.Username, h.sessionCfg.Expiry())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Login failed."})
		return
	}

	now := time.Now().UTC()
	_ = h.db.WithContext(c.Request.Context()).Model(&user).Update("last_login", now).Error

	internalhttp.SetSessionCookie(c, h.sessionCfg, token)
	h.recorder.Record(c.Request.Context(), audit.Entry{
		UserID:    &user.ID,
		IPAddress: internalhttp.ClientIP(c.Request),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
		Action:    audit.ActionAdminLogin,
		Details:   map[string]any{"username": user.Username},
	})
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Logout ends the admin session. Idempotent; audits only when a staff
// session existed.
func (h *AuthHandler) Logout(c *gin.Context) {
	if user, ok := internalhttp.CurrentUser(c); ok && user.IsStaff {
		h.recorder.Record(c.Request.Context(), audit.Entry{
			UserID:    &user.ID,
			IPAddress: internalhttp.ClientIP(c.Request),
			Path:      c.Request.URL.Path,
			Method:    c.Request.Method,
			Action:    audit.ActionAdminLogout,
			Details:   map[string]any{"username": user.Username},
		})
	}
	internalhttp.ClearSessionCookie(c, h.sessionCfg)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated admin's identity.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := internalhttp.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Forbidden"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}
