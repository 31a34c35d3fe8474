package handlers

import (
	"errors"
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

// minPasswordLen is the minimum accepted password length.
const minPasswordLen = 8

// AuthHandler handles registration and session endpoints.
type AuthHandler struct {
	db         *gorm.DB
	sessionCfg config.SessionConfig
	recorder   *audit.Recorder
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, sessionCfg config.SessionConfig, recorder *audit.Recorder) *AuthHandler {
	return &AuthHandler{db: db, sessionCfg: sessionCfg, recorder: recorder}
}

// registerRequest defines the request body for registration.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username is required."})
		return
	}
	if len(body.Password) < minPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Password must be at least 8 characters."})
		return
	}

	var existing models.User
	errCheck := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&existing).Error
	if errCheck == nil {
		c.JSON(http.StatusConflict, gin.H{"detail": "Username already exists."})
		return
	}
	if !errors.Is(errCheck, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Registration failed."})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Registration failed."})
		return
	}

	user := models.User{
		Username: username,
		Password: hash,
		Email:    strings.TrimSpace(body.Email),
		IsActive: true,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"detail": "Username already exists."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and establishes a session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON body."})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username and password are required."})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials."})
		return
	}
	if !user.IsActive || !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials."})
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
		Action:    audit.ActionLogin,
	})
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// Logout ends the session. Idempotent: it succeeds with or without one, and
// only audits when a session existed.
func (h *AuthHandler) Logout(c *gin.Context) {
	if user, ok := internalhttp.CurrentUser(c); ok {
		h.recorder.Record(c.Request.Context(), audit.Entry{
			UserID:    &user.ID,
			IPAddress: internalhttp.ClientIP(c.Request),
			Path:      c.Request.URL.Path,
			Method:    c.Request.Method,
			Action:    audit.ActionLogout,
		})
	}
	internalhttp.ClearSessionCookie(c, h.sessionCfg)
	c.Status(http.StatusNoContent)
}
